package application

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/lmoreno/railguard/internal/ports"
)

// Diagnostics captures screenshots on error when enabled. Capture failures
// are logged and swallowed; a missing screenshot never changes the outcome
// of the operation that wanted it.
type Diagnostics struct {
	Enabled bool
	Dir     string
}

// Capture takes a screenshot named after the label and returns its path, or
// "" when disabled or failed.
func (d Diagnostics) Capture(ctx context.Context, page ports.Page, log *slog.Logger, label string) string {
	if !d.Enabled {
		return ""
	}

	path := filepath.Join(d.Dir, fmt.Sprintf("%s-%s.png", label, time.Now().UTC().Format("20060102-150405")))
	if err := page.Screenshot(ctx, path); err != nil {
		log.Warn("capturing diagnostic screenshot failed", "label", label, "err", err)
		return ""
	}
	return path
}
