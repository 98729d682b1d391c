package service

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/LinkLocker-Labs/linklocker-back/internal/auth"
	"github.com/LinkLocker-Labs/linklocker-back/internal/db"
)

// Token is the wrapper returned by both signup and signin.
type Token struct {
	AccessToken string `json:"access_token"`
}

// Auth orchestrates signup and signin: hashing, persistence, and token
// issuance. It holds no state of its own.
type Auth struct {
	db     *gorm.DB
	hasher *auth.BcryptHasher
	tokens *auth.JWTManager
	logger *zap.SugaredLogger
}

func NewAuth(database *gorm.DB, hasher *auth.BcryptHasher, tokens *auth.JWTManager, l *zap.SugaredLogger) *Auth {
	return &Auth{
		db:     database,
		hasher: hasher,
		tokens: tokens,
		logger: l,
	}
}

func (s *Auth) Signup(ctx context.Context, email, pass string) (*Token, error) {
	hash, err := s.hasher.Hash(pass)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	user := db.User{
		Email:    email,
		Password: hash,
	}
	res := s.db.WithContext(ctx).Create(&user)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return nil, ErrCredentialsTaken
		}
		return nil, res.Error
	}

	return s.issue(&user)
}

func (s *Auth) Signin(ctx context.Context, email, pass string) (*Token, error) {
	user := db.User{}
	res := s.db.WithContext(ctx).Where("email = ?", email).First(&user)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, ErrCredentialsIncorrect
		}
		return nil, res.Error
	}

	if err := s.hasher.Check(user.Password, pass); err != nil {
		return nil, ErrCredentialsIncorrect
	}

	return s.issue(&user)
}

func (s *Auth) issue(user *db.User) (*Token, error) {
	signed, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, errors.Wrap(err, "issue token")
	}
	return &Token{AccessToken: signed}, nil
}
