package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/unilodge/unilodge-api/internal/dto"
	"github.com/unilodge/unilodge-api/internal/observability"
	"github.com/unilodge/unilodge-api/internal/repository"
)

const notificationBufferSize = 16

// NotificationService exposes the read surface for notifications and the live
// fan-out used by the send path. Rows are created inside the send transaction
// by the message service; this service only delivers and reads them.
type NotificationService interface {
	Dispatch(ctx context.Context, notification dto.NotificationResponse)
	List(ctx context.Context, userID uint, limit, offset int) ([]dto.NotificationResponse, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, id, userID uint) (dto.NotificationResponse, error)
	Subscribe(userID uint) (<-chan dto.NotificationResponse, func())
	Start(ctx context.Context)
}

type notificationService struct {
	repo        repository.NotificationRepository
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	logger      zerolog.Logger
	broker      *notificationBroker
	nodeID      string
}

type notificationEvent struct {
	Source       string                   `json:"source"`
	Notification dto.NotificationResponse `json:"notification"`
	SentAt       time.Time                `json:"sent_at"`
}

type notificationBroker struct {
	mu          sync.RWMutex
	subscribers map[uint]map[chan dto.NotificationResponse]struct{}
}

// NewNotificationService constructs a notification service. redisClient and
// natsConn may be nil; cross-node relay is skipped for whichever is absent.
func NewNotificationService(repo repository.NotificationRepository, redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) NotificationService {
	stream := ""
	subject := ""
	if channelBase != "" {
		stream = channelBase + ":notifications"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".notifications"
	}

	return &notificationService{
		repo:        repo,
		redis:       redisClient,
		redisStream: stream,
		nats:        natsConn,
		natsSubject: subject,
		logger:      logger.With().Str("component", "notification_service").Logger(),
		broker: &notificationBroker{
			subscribers: make(map[uint]map[chan dto.NotificationResponse]struct{}),
		},
		nodeID: uuid.NewString(),
	}
}

func (s *notificationService) Start(ctx context.Context) {
	if s.redis != nil && s.redisStream != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

// Dispatch fans a committed notification out to in-process subscribers and
// relays it to peer nodes. Relay failures are logged, never surfaced: the row
// is already durable and the recipient will see it on the next list call.
func (s *notificationService) Dispatch(ctx context.Context, notification dto.NotificationResponse) {
	s.broker.broadcast(notification.UserID, notification)
	if err := s.relay(ctx, notification); err != nil {
		s.logger.Warn().Err(err).Msg("failed to relay notification to peer nodes")
	}
	observability.NotificationsPublishedTotal().WithLabelValues(notification.Type).Inc()
}

func (s *notificationService) List(ctx context.Context, userID uint, limit, offset int) ([]dto.NotificationResponse, error) {
	notifications, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return dto.NewNotificationResponseSlice(notifications), nil
}

func (s *notificationService) CountUnread(ctx context.Context, userID uint) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *notificationService) MarkRead(ctx context.Context, id, userID uint) (dto.NotificationResponse, error) {
	notification, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return dto.NotificationResponse{}, fmt.Errorf("%w: notification %d", ErrNotFound, id)
		}
		return dto.NotificationResponse{}, err
	}
	return dto.NewNotificationResponse(notification), nil
}

func (s *notificationService) Subscribe(userID uint) (<-chan dto.NotificationResponse, func()) {
	channel := make(chan dto.NotificationResponse, notificationBufferSize)

	s.broker.subscribe(userID, channel)
	observability.NotificationSubscribersActive().Inc()

	cleanup := func() {
		s.broker.unsubscribe(userID, channel)
		observability.NotificationSubscribersActive().Dec()
	}

	return channel, cleanup
}

func (s *notificationService) relay(ctx context.Context, notification dto.NotificationResponse) error {
	if (s.redis == nil || s.redisStream == "") && (s.nats == nil || s.natsSubject == "") {
		return nil
	}

	event := notificationEvent{
		Source:       s.nodeID,
		Notification: notification,
		SentAt:       time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisStream != "" {
		if err := s.redis.Publish(ctx, s.redisStream, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (s *notificationService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("notification redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *notificationService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "unilodge-notifications", func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats notifications subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain notification nats subscription")
		}
	}()
}

func (s *notificationService) handleEvent(payload []byte) {
	var event notificationEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid notification event payload")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	s.broker.broadcast(event.Notification.UserID, event.Notification)
}

func (b *notificationBroker) subscribe(userID uint, ch chan dto.NotificationResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[userID]; !exists {
		b.subscribers[userID] = make(map[chan dto.NotificationResponse]struct{})
	}
	b.subscribers[userID][ch] = struct{}{}
}

func (b *notificationBroker) unsubscribe(userID uint, ch chan dto.NotificationResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[userID]; ok {
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, userID)
		}
	}
}

func (b *notificationBroker) broadcast(userID uint, notification dto.NotificationResponse) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[userID] {
		select {
		case ch <- notification:
		default:
		}
	}
}
