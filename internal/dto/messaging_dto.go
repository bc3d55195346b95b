package dto

import (
	"time"

	"github.com/unilodge/unilodge-api/internal/models"
	"github.com/unilodge/unilodge-api/internal/repository"
)

// ConversationStartRequest asks for a thread with another user, optionally
// anchored to a property listing.
type ConversationStartRequest struct {
	PartnerID  uint  `json:"partner_id" validate:"required"`
	PropertyID *uint `json:"property_id" validate:"omitempty,min=1"`
}

// MessageSendRequest carries the body of an outgoing chat message.
type MessageSendRequest struct {
	Body string `json:"body" validate:"required,min=1,max=4000"`
}

// ConversationResponse is the serialized representation of a thread.
type ConversationResponse struct {
	ID         uint      `json:"id"`
	Type       string    `json:"type"`
	StudentID  *uint     `json:"student_id,omitempty"`
	OwnerID    *uint     `json:"owner_id,omitempty"`
	AdminID    *uint     `json:"admin_id,omitempty"`
	PropertyID *uint     `json:"property_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewConversationResponse converts a model into a DTO.
func NewConversationResponse(conversation models.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:         conversation.ID,
		Type:       string(conversation.Type),
		StudentID:  conversation.StudentID,
		OwnerID:    conversation.OwnerID,
		AdminID:    conversation.AdminID,
		PropertyID: conversation.PropertyID,
		CreatedAt:  conversation.CreatedAt,
		UpdatedAt:  conversation.UpdatedAt,
	}
}

// MessageResponse is the serialized representation of a chat message.
type MessageResponse struct {
	ID             uint      `json:"id"`
	ConversationID uint      `json:"conversation_id"`
	SenderID       uint      `json:"sender_id"`
	Body           string    `json:"body"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewMessageResponse converts a model into a DTO.
func NewMessageResponse(message models.Message) MessageResponse {
	return MessageResponse{
		ID:             message.ID,
		ConversationID: message.ConversationID,
		SenderID:       message.SenderID,
		Body:           message.Body,
		IsRead:         message.IsRead,
		CreatedAt:      message.CreatedAt,
	}
}

// NewMessageResponseSlice converts a slice of models into DTOs.
func NewMessageResponseSlice(messages []models.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(messages))
	for _, message := range messages {
		out = append(out, NewMessageResponse(message))
	}
	return out
}

// ConversationSummaryResponse augments a conversation with list-view fields.
type ConversationSummaryResponse struct {
	ConversationResponse
	LastMessage *MessageResponse `json:"last_message,omitempty"`
	UnreadCount int64            `json:"unread_count"`
}

// NewConversationSummaryResponse converts a repository summary into a DTO.
func NewConversationSummaryResponse(summary repository.ConversationSummary) ConversationSummaryResponse {
	response := ConversationSummaryResponse{
		ConversationResponse: NewConversationResponse(summary.Conversation),
		UnreadCount:          summary.UnreadCount,
	}
	if summary.LastMessage != nil {
		last := NewMessageResponse(*summary.LastMessage)
		response.LastMessage = &last
	}
	return response
}

// NewConversationSummaryResponseSlice converts summaries to DTOs.
func NewConversationSummaryResponseSlice(summaries []repository.ConversationSummary) []ConversationSummaryResponse {
	out := make([]ConversationSummaryResponse, 0, len(summaries))
	for _, summary := range summaries {
		out = append(out, NewConversationSummaryResponse(summary))
	}
	return out
}

// StreamMessageEvent is the payload of a `message` event on the live channel.
type StreamMessageEvent struct {
	ID         uint      `json:"id"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
	SenderID   uint      `json:"sender_id"`
	SenderName string    `json:"sender_name"`
}

// StreamTypingEvent is the payload of a `typing` event on the live channel.
type StreamTypingEvent struct {
	UserID uint `json:"user_id"`
}
