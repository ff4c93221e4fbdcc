// Package env resolves secrets from environment variables, for containerized
// deployments where mounting a secret directory is inconvenient. The store is
// read-only: Put and Delete report domain.ErrSecretNotFound semantics rather
// than mutating the process environment.
package env

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/lmoreno/railguard/internal/domain"
	"github.com/lmoreno/railguard/internal/ports"
)

const prefix = "RAILGUARD_SECRET_"

type Store struct{}

var _ ports.SecretStore = Store{}

var errReadOnly = errors.New("environment secret store is read-only")

func NewStore() Store { return Store{} }

// Get resolves "railguard/ana/password" from RAILGUARD_SECRET_ANA_PASSWORD.
func (Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name, err := variableForKey(key)
	if err != nil {
		return "", err
	}

	value, ok := os.LookupEnv(name)
	if !ok || value == "" {
		return "", fmt.Errorf("secret %q (env %s): %w", key, name, domain.ErrSecretNotFound)
	}
	return value, nil
}

func (Store) Put(ctx context.Context, key string, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return errReadOnly
}

func (Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return errReadOnly
}

func variableForKey(key string) (string, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return "", errors.New("secret key is empty")
	}

	trimmed = strings.TrimPrefix(trimmed, "railguard/")
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - ('a' - 'A')
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, trimmed)

	return prefix + mapped, nil
}
