package models

import (
	"time"

	"gorm.io/datatypes"
)

// ConversationType is the closed set of participant pairings a conversation
// can have. Exactly the slots relevant to the type are populated; the unused
// slot stays nil.
type ConversationType string

const (
	// ConversationStudentOwner pairs a student with a property owner.
	ConversationStudentOwner ConversationType = "student_owner"
	// ConversationOwnerAdmin pairs a property owner with a platform admin.
	ConversationOwnerAdmin ConversationType = "owner_admin"
)

// SystemSenderID identifies messages authored by the platform itself, such as
// the welcome message seeded into a freshly created conversation.
const SystemSenderID uint = 0

// Conversation is a persistent thread between two fixed participant roles.
// UpdatedAt is bumped on every new message and drives recency ordering in
// conversation lists.
type Conversation struct {
	ID         uint             `gorm:"primaryKey" json:"id"`
	Type       ConversationType `gorm:"size:32;not null;index" json:"type"`
	StudentID  *uint            `gorm:"index" json:"student_id,omitempty"`
	OwnerID    *uint            `gorm:"index" json:"owner_id,omitempty"`
	AdminID    *uint            `gorm:"index" json:"admin_id,omitempty"`
	PropertyID *uint            `gorm:"index" json:"property_id,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `gorm:"index" json:"updated_at"`
}

// HasParticipant reports whether userID occupies one of the participant
// slots. It is the sole membership test used for access control.
func (c Conversation) HasParticipant(userID uint) bool {
	for _, slot := range []*uint{c.StudentID, c.OwnerID, c.AdminID} {
		if slot != nil && *slot == userID {
			return true
		}
	}
	return false
}

// CounterpartOf returns the participant on the other side of the thread from
// senderID. The second return value is false when senderID is not a
// participant or the counterpart slot is empty.
func (c Conversation) CounterpartOf(senderID uint) (uint, bool) {
	var a, b *uint
	switch c.Type {
	case ConversationOwnerAdmin:
		a, b = c.OwnerID, c.AdminID
	case ConversationStudentOwner:
		a, b = c.StudentID, c.OwnerID
	default:
		return 0, false
	}

	if a != nil && *a == senderID && b != nil {
		return *b, true
	}
	if b != nil && *b == senderID && a != nil {
		return *a, true
	}
	return 0, false
}

// ParticipantIDs returns the populated participant slots.
func (c Conversation) ParticipantIDs() []uint {
	ids := make([]uint, 0, 3)
	for _, slot := range []*uint{c.StudentID, c.OwnerID, c.AdminID} {
		if slot != nil {
			ids = append(ids, *slot)
		}
	}
	return ids
}

// Message is a single append-only chat entry. The monotonically increasing
// primary key doubles as the delivery cursor: higher id means later within a
// conversation.
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"not null;index:idx_messages_conversation_id_id" json:"conversation_id"`
	SenderID       uint      `gorm:"not null;index" json:"sender_id"`
	Body           string    `gorm:"type:text;not null" json:"body"`
	IsRead         bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

// Notification is a user-addressed alert created as a side effect of a
// message send, in the same transaction as the message itself.
type Notification struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	UserID     uint              `gorm:"not null;index" json:"user_id"`
	PropertyID *uint             `gorm:"index" json:"property_id,omitempty"`
	Type       string            `gorm:"size:64;not null" json:"type"`
	Message    string            `gorm:"type:text;not null" json:"message"`
	Read       bool              `gorm:"not null;default:false" json:"read"`
	Data       datatypes.JSONMap `gorm:"type:json" json:"data,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}
