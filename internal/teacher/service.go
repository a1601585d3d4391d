package teacher

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned when email or password do not match.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Store is the persistence surface the service needs.
type Store interface {
	Insert(ctx context.Context, t *Teacher) error
	GetByEmail(ctx context.Context, email string) (*Teacher, error)
}

// Service handles account registration and password checks.
type Service struct {
	store      Store
	bcryptCost int
}

// NewService creates a service backed by a store.
func NewService(store Store, bcryptCost int) *Service {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{store: store, bcryptCost: bcryptCost}
}

// Register hashes the password and creates the account.
func (s *Service) Register(ctx context.Context, name, email, password string) (*Teacher, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, err
	}
	t := &Teacher{Name: name, Email: email, PasswordHash: string(hash)}
	if err := s.store.Insert(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Authenticate looks up the account and verifies the password. A missing
// account and a wrong password are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Teacher, error) {
	t, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(t.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return t, nil
}
