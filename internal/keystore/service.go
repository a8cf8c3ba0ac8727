// Package keystore keeps per-account exchange credentials encrypted at rest.
package keystore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"onecall/pkg/exchange"
)

type Service struct {
	repo   Repository
	cipher *Cipher
	logger *zap.Logger
	now    func() time.Time
}

func NewService(repo Repository, cipher *Cipher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, cipher: cipher, logger: logger, now: time.Now}
}

// Save stores creds for account on exchangeName, replacing earlier keys.
// The API key itself is kept in clear so it can be shown masked.
func (s *Service) Save(ctx context.Context, account, exchangeName string, creds exchange.Credentials) error {
	if account == "" || exchangeName == "" {
		return fmt.Errorf("account and exchange are required")
	}
	if creds.IsZero() {
		return exchange.ConfigurationError(exchangeName, "api key and secret are required", nil)
	}

	name := normalize(exchangeName)
	secret, err := s.cipher.Encrypt(creds.Secret(), binding(account, name, "secret"))
	if err != nil {
		return fmt.Errorf("failed to encrypt secret: %w", err)
	}
	passphrase, err := s.cipher.Encrypt(creds.Passphrase(), binding(account, name, "passphrase"))
	if err != nil {
		return fmt.Errorf("failed to encrypt passphrase: %w", err)
	}

	rec := Record{
		Account:    account,
		Exchange:   name,
		APIKey:     creds.Key(),
		Secret:     secret,
		Passphrase: passphrase,
		UpdatedAt:  s.now(),
	}
	if err := s.repo.Save(ctx, rec); err != nil {
		return err
	}
	s.logger.Info("exchange keys saved",
		zap.String("account", account), zap.String("exchange", rec.Exchange), zap.String("key", exchange.MaskKey(rec.APIKey)))
	return nil
}

// Credentials returns the decrypted credentials, or ErrNotFound.
func (s *Service) Credentials(ctx context.Context, account, exchangeName string) (exchange.Credentials, error) {
	name := normalize(exchangeName)
	rec, err := s.repo.Get(ctx, account, name)
	if err != nil {
		return exchange.Credentials{}, err
	}
	secret, err := s.cipher.Decrypt(rec.Secret, binding(account, name, "secret"))
	if err != nil {
		return exchange.Credentials{}, err
	}
	passphrase, err := s.cipher.Decrypt(rec.Passphrase, binding(account, name, "passphrase"))
	if err != nil {
		return exchange.Credentials{}, err
	}
	return exchange.NewCredentialsWithPassphrase(rec.APIKey, secret, passphrase)
}

func (s *Service) Delete(ctx context.Context, account, exchangeName string) error {
	if err := s.repo.Delete(ctx, account, normalize(exchangeName)); err != nil {
		return err
	}
	s.logger.Info("exchange keys deleted", zap.String("account", account), zap.String("exchange", normalize(exchangeName)))
	return nil
}

// binding ties a sealed value to its row and column, so ciphertexts cannot
// be moved between accounts, exchanges or fields.
func binding(account, exchangeName, field string) string {
	return account + "/" + exchangeName + "/" + field
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
