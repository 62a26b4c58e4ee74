package quota

import (
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glowcli/internal/config"
)

func newTestCounter(t *testing.T, limit int) *Counter {
	t.Helper()
	dir := t.TempDir()
	paths := config.NewPaths(config.PathsConfig{DataDir: dir, LogsDir: dir})
	require.NoError(t, paths.EnsureDirectories())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCounter(paths, limit, logger)
}

func TestGetDailyUsageFresh(t *testing.T) {
	counter := newTestCounter(t, 5)

	usage, err := counter.GetDailyUsage()
	require.NoError(t, err)
	assert.Equal(t, 0, usage.Count)
	assert.Equal(t, time.Now().Format(dateLayout), usage.Date)
}

func TestIncrementDailyUsage(t *testing.T) {
	counter := newTestCounter(t, 5)

	for i := 1; i <= 3; i++ {
		count, err := counter.IncrementDailyUsage()
		require.NoError(t, err)
		assert.Equal(t, i, count)
	}

	usage, err := counter.GetDailyUsage()
	require.NoError(t, err)
	assert.Equal(t, 3, usage.Count)
}

func TestDateRolloverResetsCounter(t *testing.T) {
	counter := newTestCounter(t, 5)

	yesterday := time.Now().Add(-24 * time.Hour)
	counter.now = func() time.Time { return yesterday }

	for i := 0; i < 5; i++ {
		_, err := counter.IncrementDailyUsage()
		require.NoError(t, err)
	}

	decision, err := counter.CanPerformAction(false)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)

	// Next day: the counter resets lazily on read
	counter.now = time.Now

	usage, err := counter.GetDailyUsage()
	require.NoError(t, err)
	assert.Equal(t, 0, usage.Count)

	decision, err = counter.CanPerformAction(false)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 5, decision.Remaining)
}

func TestExhaustionAtLimit(t *testing.T) {
	counter := newTestCounter(t, 2)

	for i := 0; i < 2; i++ {
		decision, err := counter.CanPerformAction(false)
		require.NoError(t, err)
		require.True(t, decision.Allowed)
		_, err = counter.IncrementDailyUsage()
		require.NoError(t, err)
	}

	decision, err := counter.CanPerformAction(false)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 0, decision.Remaining)
}

func TestPremiumBypassesQuota(t *testing.T) {
	counter := newTestCounter(t, 1)

	_, err := counter.IncrementDailyUsage()
	require.NoError(t, err)

	remaining, err := counter.GetRemainingUsage(true)
	require.NoError(t, err)
	assert.Equal(t, UnlimitedUsage, remaining)

	decision, err := counter.CanPerformAction(true)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, UnlimitedUsage, decision.Remaining)
}

func TestRemainingNeverNegative(t *testing.T) {
	counter := newTestCounter(t, 2)

	for i := 0; i < 4; i++ {
		_, err := counter.IncrementDailyUsage()
		require.NoError(t, err)
	}

	remaining, err := counter.GetRemainingUsage(false)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

func TestMalformedCounterResets(t *testing.T) {
	counter := newTestCounter(t, 5)

	require.NoError(t, os.WriteFile(counter.path, []byte("{broken"), 0600))

	usage, err := counter.GetDailyUsage()
	require.NoError(t, err)
	assert.Equal(t, 0, usage.Count)

	count, err := counter.IncrementDailyUsage()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNegativeStoredCountClamped(t *testing.T) {
	counter := newTestCounter(t, 5)

	record := `{"date":"` + time.Now().Format(dateLayout) + `","count":-3}`
	require.NoError(t, os.WriteFile(counter.path, []byte(record), 0600))

	usage, err := counter.GetDailyUsage()
	require.NoError(t, err)
	assert.Equal(t, 0, usage.Count)
}

func TestNonPositiveLimitFallsBack(t *testing.T) {
	counter := newTestCounter(t, 0)
	assert.Equal(t, DefaultDailyLimit, counter.Limit())
}

func TestReset(t *testing.T) {
	counter := newTestCounter(t, 5)

	_, err := counter.IncrementDailyUsage()
	require.NoError(t, err)

	require.NoError(t, counter.Reset())

	usage, err := counter.GetDailyUsage()
	require.NoError(t, err)
	assert.Equal(t, 0, usage.Count)

	// Reset on a missing file is not an error
	assert.NoError(t, counter.Reset())
}
