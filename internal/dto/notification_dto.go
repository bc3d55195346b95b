package dto

import (
	"time"

	"github.com/unilodge/unilodge-api/internal/models"
)

// NotificationResponse represents notification data returned to clients.
type NotificationResponse struct {
	ID         uint              `json:"id"`
	UserID     uint              `json:"user_id"`
	PropertyID *uint             `json:"property_id,omitempty"`
	Type       string            `json:"type"`
	Message    string            `json:"message"`
	Read       bool              `json:"read"`
	Data       map[string]string `json:"data,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// NewNotificationResponse converts a notification model to DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	response := NotificationResponse{
		ID:         model.ID,
		UserID:     model.UserID,
		PropertyID: model.PropertyID,
		Type:       model.Type,
		Message:    model.Message,
		Read:       model.Read,
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
	}
	if model.Data != nil {
		response.Data = make(map[string]string)
		for key, value := range model.Data {
			if str, ok := value.(string); ok {
				response.Data[key] = str
			}
		}
	}
	return response
}

// NewNotificationResponseSlice converts a slice to DTOs.
func NewNotificationResponseSlice(items []models.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewNotificationResponse(item))
	}
	return out
}
