package summary

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmoreno/railguard/internal/domain"
)

func TestRenderRunSummary(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 2, 30, 0, time.UTC)

	output, err := Render([]domain.AccountResult{
		{Account: "ana", Confirmed: 2, Skipped: 1},
		{Account: "luis", AuthFailed: true, Error: "authenticate account: wait for code: relay timed out"},
	}, RenderOptions{StartedAt: now.Add(-90 * time.Second), Now: now})

	require.NoError(t, err)
	assert.Contains(t, output, "accounts: 2")
	assert.Contains(t, output, "took 1m30s")
	assert.Contains(t, output, "ana")
	assert.Contains(t, output, "2 confirmed")
	assert.Contains(t, output, "1 skipped")
	assert.Contains(t, output, "0 failed")
	assert.Contains(t, output, "luis")
	assert.Contains(t, output, "authentication failed")
	assert.Contains(t, output, "relay timed out")
}

func TestRenderEmptyRun(t *testing.T) {
	output, err := Render(nil, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "accounts: 0")
	assert.Contains(t, output, "No accounts configured.")
}
