package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/unilodge/unilodge-api/internal/dto"
	"github.com/unilodge/unilodge-api/internal/models"
	"github.com/unilodge/unilodge-api/internal/observability"
	"github.com/unilodge/unilodge-api/internal/repository"
)

// Event names emitted on a live update channel.
const (
	EventMessage    = "message"
	EventTyping     = "typing"
	EventStopTyping = "stop_typing"
)

const (
	// DefaultPollInterval is the pause between poll cycles.
	DefaultPollInterval = time.Second
	// DefaultChannelLifetime caps how long a single channel stays open; the
	// client reopens with its last-seen cursor afterwards.
	DefaultChannelLifetime = 30 * time.Second

	streamBufferSize = 32
	systemSenderName = "Unilodge"
)

// StreamEvent is one typed delta pushed over a live update channel.
type StreamEvent struct {
	Name string
	// ID is the message id for message events and zero otherwise. The
	// transport exposes it as the resumption cursor.
	ID   uint
	Data any
}

// StreamOptions scope a channel to one viewer of one conversation. Cursor is
// the highest message id the client has already observed; zero streams from
// the beginning of the log.
type StreamOptions struct {
	ConversationID uint
	ViewerID       uint
	Cursor         uint
}

// StreamService opens long-lived per-client channels that observe the message
// log and the typing tracker for one conversation.
type StreamService interface {
	Open(ctx context.Context, opts StreamOptions) (<-chan StreamEvent, error)
}

type streamService struct {
	authorizer ConversationAuthorizer
	messages   repository.MessageRepository
	typing     repository.TypingStore
	users      repository.UserDirectory
	logger     zerolog.Logger
	interval   time.Duration
	lifetime   time.Duration
}

// NewStreamService constructs a stream service. Non-positive interval or
// lifetime fall back to the defaults.
func NewStreamService(
	authorizer ConversationAuthorizer,
	messages repository.MessageRepository,
	typing repository.TypingStore,
	users repository.UserDirectory,
	interval, lifetime time.Duration,
	logger zerolog.Logger,
) StreamService {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if lifetime <= 0 {
		lifetime = DefaultChannelLifetime
	}
	return &streamService{
		authorizer: authorizer,
		messages:   messages,
		typing:     typing,
		users:      users,
		logger:     logger.With().Str("component", "stream_service").Logger(),
		interval:   interval,
		lifetime:   lifetime,
	}
}

// Open authorizes the viewer once and starts the poll loop. The returned
// channel closes when the caller cancels ctx or the lifetime ceiling passes.
// Authorization is not re-checked per iteration; a channel rides out its
// lifetime on the membership that was valid at open.
func (s *streamService) Open(ctx context.Context, opts StreamOptions) (<-chan StreamEvent, error) {
	conversation, err := s.authorizer.Authorize(ctx, opts.ConversationID, opts.ViewerID)
	if err != nil {
		return nil, err
	}

	events := make(chan StreamEvent, streamBufferSize)
	go s.run(ctx, conversation, opts, events)

	return events, nil
}

func (s *streamService) run(ctx context.Context, conversation models.Conversation, opts StreamOptions, events chan<- StreamEvent) {
	defer close(events)

	observability.StreamChannelsActive().Inc()
	defer observability.StreamChannelsActive().Dec()

	logger := s.logger.With().
		Uint("conversation_id", opts.ConversationID).
		Uint("viewer_id", opts.ViewerID).
		Logger()

	candidates := make([]uint, 0, 2)
	for _, id := range conversation.ParticipantIDs() {
		if id != opts.ViewerID {
			candidates = append(candidates, id)
		}
	}

	names := map[uint]string{models.SystemSenderID: systemSenderName}
	cursor := opts.Cursor

	deadline := time.NewTimer(s.lifetime)
	defer deadline.Stop()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		// A poll error yields an empty iteration, never a torn-down stream.
		messages, err := s.messages.ListSince(ctx, opts.ConversationID, cursor, opts.ViewerID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			observability.StreamPollErrorsTotal().Inc()
			logger.Error().Err(err).Msg("message poll failed")
		}
		for _, message := range messages {
			event := StreamEvent{
				Name: EventMessage,
				ID:   message.ID,
				Data: dto.StreamMessageEvent{
					ID:         message.ID,
					Body:       message.Body,
					CreatedAt:  message.CreatedAt,
					SenderID:   message.SenderID,
					SenderName: s.senderName(ctx, names, message.SenderID),
				},
			}
			if !emit(ctx, events, event) {
				return
			}
			cursor = message.ID
		}

		typerID, active, err := s.typing.ActiveTyper(ctx, opts.ConversationID, candidates)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			observability.StreamPollErrorsTotal().Inc()
			logger.Error().Err(err).Msg("typing poll failed")
		}
		// Emitted unconditionally each cycle so the client's typing UI
		// self-expires without an explicit stop signal from the peer.
		typingEvent := StreamEvent{Name: EventStopTyping}
		if active {
			typingEvent = StreamEvent{Name: EventTyping, Data: dto.StreamTypingEvent{UserID: typerID}}
		}
		if !emit(ctx, events, typingEvent) {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			return
		case <-ticker.C:
		}
	}
}

func (s *streamService) senderName(ctx context.Context, cache map[uint]string, senderID uint) string {
	if name, ok := cache[senderID]; ok {
		return name
	}

	name := ""
	if user, err := s.users.FindByID(ctx, senderID); err == nil {
		name = user.Name
	} else {
		s.logger.Warn().Err(err).Uint("user_id", senderID).Msg("sender name lookup failed")
	}
	cache[senderID] = name
	return name
}

func emit(ctx context.Context, events chan<- StreamEvent, event StreamEvent) bool {
	select {
	case events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}
