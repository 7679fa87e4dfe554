package auth

import (
	"context"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/godown-erp/godown/internal/shared"
)

// Service wraps authentication business rules for the single operator
// account. The configured password is hashed once at startup so the
// plaintext never lives beyond construction.
type Service struct {
	username     string
	passwordHash []byte
}

// NewService constructs a Service from the configured credential pair.
func NewService(username, password string) (*Service, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash operator password: %w", err)
	}
	return &Service{username: username, passwordHash: hash}, nil
}

// Authenticate validates username/password credentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*Operator, error) {
	usernameOK := subtle.ConstantTimeCompare([]byte(s.username), []byte(username)) == 1
	// Always run the bcrypt compare so a bad username costs the same as a
	// bad password.
	passwordErr := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
	if !usernameOK || passwordErr != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return &Operator{Username: s.username}, nil
}
