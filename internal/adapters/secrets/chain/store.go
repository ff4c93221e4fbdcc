// Package chain layers two secret stores: reads try the primary first and
// fall back on a miss; writes land in the first store that accepts them.
package chain

import (
	"context"
	"errors"
	"fmt"

	envstore "github.com/lmoreno/railguard/internal/adapters/secrets/env"
	filestore "github.com/lmoreno/railguard/internal/adapters/secrets/file"
	"github.com/lmoreno/railguard/internal/domain"
	"github.com/lmoreno/railguard/internal/ports"
)

type Store struct {
	primary  ports.SecretStore
	fallback ports.SecretStore
}

var _ ports.SecretStore = (*Store)(nil)

func NewStore(primary, fallback ports.SecretStore) (*Store, error) {
	if primary == nil {
		return nil, errors.New("primary secret store is nil")
	}
	if fallback == nil {
		return nil, errors.New("fallback secret store is nil")
	}
	return &Store{primary: primary, fallback: fallback}, nil
}

// NewEnvFirstWithFileFallback is the default wiring: environment variables
// win, the file store under secretDir holds everything else.
func NewEnvFirstWithFileFallback(secretDir string) (*Store, error) {
	return NewStore(envstore.NewStore(), filestore.NewStore(secretDir))
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, err := s.primary.Get(ctx, key)
	if err == nil {
		return value, nil
	}
	if !errors.Is(err, domain.ErrSecretNotFound) {
		return "", err
	}

	value, fallbackErr := s.fallback.Get(ctx, key)
	if fallbackErr == nil {
		return value, nil
	}
	return "", fmt.Errorf("get secret from chain: %w", errors.Join(err, fallbackErr))
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	if err := s.primary.Put(ctx, key, value); err == nil {
		return nil
	}
	return s.fallback.Put(ctx, key, value)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	primaryErr := s.primary.Delete(ctx, key)
	fallbackErr := s.fallback.Delete(ctx, key)
	if primaryErr != nil && fallbackErr != nil {
		return fmt.Errorf("delete secret from chain: %w", errors.Join(primaryErr, fallbackErr))
	}
	return nil
}
