package repository

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/unilodge/unilodge-api/internal/models"
)

// setupTestDB opens a per-test in-memory database. The DSN is derived from the
// test name so parallel tests never share state.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Property{},
		&models.Conversation{},
		&models.Message{},
		&models.Notification{},
	))

	return db
}

func uintPtr(v uint) *uint { return &v }
