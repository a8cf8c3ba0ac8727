package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"onecall/pkg/hash"
)

var (
	ErrAccountExists = errors.New("account already exists")
	ErrInvalidCreds  = errors.New("invalid credentials")
)

type Repository interface {
	Create(ctx context.Context, a *Account) error
	GetByName(ctx context.Context, name string) (*Account, error)
}

type Service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Register(ctx context.Context, name, password string) (*Account, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	_, err := s.repo.GetByName(ctx, name)
	if err == nil {
		return nil, ErrAccountExists
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hashed, err := hash.HashPassword(password)
	if err != nil {
		return nil, err
	}
	a := &Account{Name: name, PasswordHash: hashed, CreatedAt: time.Now()}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Info("account registered", zap.String("account", name))
	return a, nil
}

// Login returns ErrInvalidCreds for an unknown name or a wrong password alike.
func (s *Service) Login(ctx context.Context, name, password string) (*Account, error) {
	a, err := s.repo.GetByName(ctx, strings.ToLower(strings.TrimSpace(name)))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCreds
	}
	if err != nil {
		return nil, err
	}
	if !hash.CheckPassword(a.PasswordHash, password) {
		return nil, ErrInvalidCreds
	}
	return a, nil
}
