package repository

import (
	"context"

	"gorm.io/gorm"
)

// Stores groups the repositories that participate in a message-send
// transaction.
type Stores struct {
	Conversations ConversationRepository
	Messages      MessageRepository
	Notifications NotificationRepository
}

// NewStores builds a Stores set bound to the given database handle, which may
// be a transaction.
func NewStores(db *gorm.DB) Stores {
	return Stores{
		Conversations: NewConversationRepository(db),
		Messages:      NewMessageRepository(db),
		Notifications: NewNotificationRepository(db),
	}
}

// UnitOfWork runs a function against transaction-bound stores. All writes
// inside fn commit together or roll back together.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(stores Stores) error) error
}

type gormUnitOfWork struct {
	db *gorm.DB
}

// NewUnitOfWork constructs a UnitOfWork over a GORM connection.
func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &gormUnitOfWork{db: db}
}

func (u *gormUnitOfWork) Do(ctx context.Context, fn func(stores Stores) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStores(tx))
	})
}
