package summary

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/lmoreno/railguard/internal/domain"
)

type RenderOptions struct {
	StartedAt time.Time
	Now       time.Time
}

func renderView(results []domain.AccountResult, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Reservation confirmation run"),
		s.header.Render(headerLine(results, opts)),
	}

	if len(results) == 0 {
		lines = append(lines, s.empty.Render("No accounts configured."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, result := range results {
		lines = append(lines, s.section.Render(renderAccount(result, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func headerLine(results []domain.AccountResult, opts RenderOptions) string {
	header := fmt.Sprintf("accounts: %d", len(results))
	if !opts.StartedAt.IsZero() && !opts.Now.IsZero() {
		header += fmt.Sprintf(", took %s", opts.Now.Sub(opts.StartedAt).Round(time.Second))
	}
	return header
}

func renderAccount(result domain.AccountResult, s styles) string {
	parts := []string{s.account.Render(string(result.Account))}

	if result.AuthFailed {
		parts = append(parts, s.failure.Render("authentication failed"))
		if result.Error != "" {
			parts = append(parts, s.detail.Render(result.Error))
		}
		return lipgloss.JoinVertical(lipgloss.Left, parts...)
	}

	parts = append(parts, countsLine(result, s))
	if result.Error != "" {
		parts = append(parts, s.detail.Render(result.Error))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func countsLine(result domain.AccountResult, s styles) string {
	confirmed := s.success.Render(fmt.Sprintf("%d confirmed", result.Confirmed))
	skipped := s.warning.Render(fmt.Sprintf("%d skipped", result.Skipped))
	failed := s.detail.Render(fmt.Sprintf("%d failed", result.Failed))
	if result.Failed > 0 {
		failed = s.failure.Render(fmt.Sprintf("%d failed", result.Failed))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, confirmed, s.detail.Render(", "), skipped, s.detail.Render(", "), failed)
}
