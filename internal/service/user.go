package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/LinkLocker-Labs/linklocker-back/internal/db"
)

// Profile is the sanitized user record: no password digest, ever.
type Profile struct {
	ID        uint64
	Email     string
	FirstName *string
	LastName  *string
	CreatedAt time.Time
}

type UserPatch struct {
	FirstName *string
	LastName  *string
	Email     *string
}

type Users struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func NewUsers(database *gorm.DB, l *zap.SugaredLogger) *Users {
	return &Users{
		db:     database,
		logger: l,
	}
}

func (s *Users) Get(ctx context.Context, userID uint64) (*Profile, error) {
	user := db.User{}
	res := s.db.WithContext(ctx).First(&user, userID)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, res.Error
	}
	return sanitize(&user), nil
}

// Edit applies a partial profile patch. Changing the email can collide
// with the unique index the same way signup does.
func (s *Users) Edit(ctx context.Context, userID uint64, patch UserPatch) (*Profile, error) {
	user := db.User{}
	res := s.db.WithContext(ctx).First(&user, userID)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, res.Error
	}

	updates := map[string]interface{}{}
	if patch.FirstName != nil {
		updates["first_name"] = *patch.FirstName
	}
	if patch.LastName != nil {
		updates["last_name"] = *patch.LastName
	}
	if patch.Email != nil {
		updates["email"] = *patch.Email
	}
	if len(updates) == 0 {
		return sanitize(&user), nil
	}

	res = s.db.WithContext(ctx).Model(&user).Updates(updates)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return nil, ErrCredentialsTaken
		}
		return nil, errors.Wrap(res.Error, "update user")
	}

	return sanitize(&user), nil
}

func sanitize(user *db.User) *Profile {
	return &Profile{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		CreatedAt: user.CreatedAt,
	}
}
