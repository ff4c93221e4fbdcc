package ports

import (
	"context"

	"github.com/lmoreno/railguard/internal/domain"
)

// CodeChannel retrieves one-time login codes from the external relay.
// WaitForCode blocks until a non-expired code appears or the configured
// wall-clock timeout elapses (domain.ErrCodeTimeout). A successfully read
// code is invalidated at the relay so it can never be read twice.
type CodeChannel interface {
	WaitForCode(ctx context.Context) (domain.OneTimeCode, error)
}
