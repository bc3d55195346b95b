package models

import "time"

// Role classifies a marketplace account.
type Role string

const (
	RoleStudent Role = "student"
	RoleOwner   Role = "owner"
	RoleAdmin   Role = "admin"
)

// User is the directory record the messaging core consults for role lookup
// and display names. Account lifecycle lives in the auth service.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Role      Role      `gorm:"size:32;not null;index" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Property anchors a conversation to a specific listing. Listing CRUD lives
// in the marketplace service; the messaging core only validates existence.
type Property struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OwnerID   uint      `gorm:"not null;index" json:"owner_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
