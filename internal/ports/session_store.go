package ports

import (
	"context"

	"github.com/lmoreno/railguard/internal/domain"
)

// SessionStore persists per-account authentication state. Load returns
// domain.ErrSessionAbsent when no record exists, the record is malformed, or
// the record is older than the freshness window (stale records are removed).
type SessionStore interface {
	Load(ctx context.Context, account domain.AccountName) (domain.Session, error)
	Save(ctx context.Context, account domain.AccountName, session domain.Session) error
	Clear(ctx context.Context, account domain.AccountName) error
}
