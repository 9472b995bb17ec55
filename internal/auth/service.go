// Package auth handles accounts, password hashing and bearer tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/youruser/cardsmith/internal/storage"
)

var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrBadCredential = errors.New("invalid username or password")
)

const MinPasswordLen = 8

// UserStore is the user side of storage.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (storage.User, error)
	GetUserByUsername(ctx context.Context, username string) (storage.User, error)
}

type Service struct {
	Users    UserStore
	Secret   []byte
	TokenTTL time.Duration
	// Cost is the bcrypt cost; zero means bcrypt.DefaultCost.
	Cost int
}

func NewService(users UserStore, secret []byte, ttl time.Duration) *Service {
	return &Service{Users: users, Secret: secret, TokenTTL: ttl}
}

func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Register creates an account and returns it with a fresh token.
func (s *Service) Register(ctx context.Context, username, password string) (storage.User, string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return storage.User{}, "", fmt.Errorf("%w: username is required", storage.ErrValidation)
	}
	if len(password) < MinPasswordLen {
		return storage.User{}, "", fmt.Errorf("%w: password needs at least %d characters", storage.ErrValidation, MinPasswordLen)
	}
	hash, err := HashPassword(password, s.Cost)
	if err != nil {
		return storage.User{}, "", err
	}
	u, err := s.Users.CreateUser(ctx, username, hash)
	if err != nil {
		return storage.User{}, "", err
	}
	tok, err := GenerateToken(u.ID, s.Secret, s.TokenTTL)
	if err != nil {
		return storage.User{}, "", err
	}
	return u, tok, nil
}

// Login checks the credentials and issues a token. Unknown users and wrong
// passwords fail the same way.
func (s *Service) Login(ctx context.Context, username, password string) (storage.User, string, error) {
	u, err := s.Users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, storage.ErrNotFound) {
		return storage.User{}, "", ErrBadCredential
	}
	if err != nil {
		return storage.User{}, "", err
	}
	if !CheckPassword(u.PasswordHash, password) {
		return storage.User{}, "", ErrBadCredential
	}
	tok, err := GenerateToken(u.ID, s.Secret, s.TokenTTL)
	if err != nil {
		return storage.User{}, "", err
	}
	return u, tok, nil
}

// Verify returns the user id of a bearer token.
func (s *Service) Verify(token string) (string, error) {
	return UserIDFromToken(token, s.Secret)
}
