package service

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/LinkLocker-Labs/linklocker-back/internal/auth"
	"github.com/LinkLocker-Labs/linklocker-back/internal/config"
	"github.com/LinkLocker-Labs/linklocker-back/internal/db"
)

// newTestDB opens a private in-memory sqlite database with the schema
// migrated. cache=shared keeps it alive across the pool's connections.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Discard,
	})
	require.NoError(t, err)

	require.NoError(t, database.AutoMigrate(&db.User{}))
	require.NoError(t, database.AutoMigrate(&db.Bookmark{}))

	return database
}

func newTestAuth(t *testing.T, database *gorm.DB) *Auth {
	t.Helper()

	tokens := auth.NewJWTManager(&config.Config{JWTSecret: "test-secret"})
	return NewAuth(database, auth.NewBcryptHasher(), tokens, zap.NewNop().Sugar())
}

func createTestUser(t *testing.T, database *gorm.DB, email string) *db.User {
	t.Helper()

	user := db.User{
		Email:    email,
		Password: "$2a$04$notarealdigestnotarealdigestnotarealdigest",
	}
	require.NoError(t, database.Create(&user).Error)
	return &user
}

func strPtr(s string) *string {
	return &s
}
