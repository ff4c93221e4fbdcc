package ports

import (
	"context"

	"github.com/lmoreno/railguard/internal/domain"
)

// BrowserPage is a page plus the session state owned by its browser context.
type BrowserPage interface {
	Page

	Cookies(ctx context.Context) ([]domain.Cookie, error)
	SetCookies(ctx context.Context, cookies []domain.Cookie) error
	StorageSnapshot(ctx context.Context) (map[string]string, error)
	RestoreStorage(ctx context.Context, snapshot map[string]string) error
	UserAgent(ctx context.Context) (string, error)
}

// Browser creates isolated page contexts, one per account. Close releases the
// context and must be safe to call exactly once per NewPage.
type Browser interface {
	NewPage(ctx context.Context) (BrowserPage, func(), error)
}
