// Package quota tracks the per-calendar-day counter of free-tier
// actions. The counter is independent of licensing: it is consulted
// alongside the license verifier to decide whether an action may
// proceed, and resets lazily at local-date rollover.
package quota

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"glowcli/internal/config"
	apperrors "glowcli/internal/errors"
)

// UnlimitedUsage is the remaining-usage sentinel for premium installs
const UnlimitedUsage = -1

// DefaultDailyLimit is the free-tier action budget per calendar day
const DefaultDailyLimit = 5

// dateLayout is the stored calendar date format
const dateLayout = "2006-01-02"

// Usage is the persisted daily counter record
type Usage struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Decision is the outcome of a free-tier admission check
type Decision struct {
	Allowed   bool `json:"allowed"`
	Remaining int  `json:"remaining"`
}

// Counter manages the daily usage record. Operations serialize under a
// mutex within one process; across processes the store is
// last-writer-wins, which is accepted for a single-user device.
type Counter struct {
	path   string
	limit  int
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

// NewCounter creates a daily usage counter. A non-positive limit falls
// back to the default.
func NewCounter(paths *config.Paths, limit int, logger *slog.Logger) *Counter {
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	return &Counter{
		path:   paths.UsagePath(),
		limit:  limit,
		logger: logger.With(slog.String("component", "quota")),
		now:    time.Now,
	}
}

// Limit returns the configured daily limit
func (c *Counter) Limit() int {
	return c.limit
}

// GetDailyUsage loads the counter, lazily resetting it when the stored
// date is not today. The reset is not persisted until the next
// increment.
func (c *Counter) GetDailyUsage() (Usage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked()
}

func (c *Counter) loadLocked() (Usage, error) {
	today := c.now().Format(dateLayout)
	fresh := Usage{Date: today, Count: 0}

	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fresh, nil
		}
		return Usage{}, fmt.Errorf("%w: reading usage counter: %v", apperrors.ErrStorageUnavailable, err)
	}

	var usage Usage
	if err := json.Unmarshal(data, &usage); err != nil {
		c.logger.Warn("Usage counter is malformed, resetting",
			slog.String("path", c.path),
			slog.String("error", err.Error()))
		return fresh, nil
	}

	if usage.Date != today {
		return fresh, nil
	}
	if usage.Count < 0 {
		usage.Count = 0
	}

	return usage, nil
}

// IncrementDailyUsage increments today's counter, persists it, and
// returns the new count
func (c *Counter) IncrementDailyUsage() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	usage, err := c.loadLocked()
	if err != nil {
		return 0, err
	}

	usage.Count++
	if err := c.saveLocked(usage); err != nil {
		return 0, err
	}

	c.logger.Debug("Daily usage incremented",
		slog.String("date", usage.Date),
		slog.Int("count", usage.Count),
		slog.Int("limit", c.limit))

	return usage.Count, nil
}

func (c *Counter) saveLocked(usage Usage) error {
	data, err := json.Marshal(usage)
	if err != nil {
		return fmt.Errorf("%w: encoding usage counter: %v", apperrors.ErrStorageUnavailable, err)
	}
	if err := os.WriteFile(c.path, data, 0600); err != nil {
		return fmt.Errorf("%w: persisting usage counter: %v", apperrors.ErrStorageUnavailable, err)
	}
	return nil
}

// GetRemainingUsage returns how many free actions remain today, or
// UnlimitedUsage for premium installs
func (c *Counter) GetRemainingUsage(isPremium bool) (int, error) {
	if isPremium {
		return UnlimitedUsage, nil
	}

	usage, err := c.GetDailyUsage()
	if err != nil {
		return 0, err
	}

	remaining := c.limit - usage.Count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// CanPerformAction reports whether an action may proceed: premium
// installs always may, free-tier installs only with budget remaining
func (c *Counter) CanPerformAction(isPremium bool) (Decision, error) {
	remaining, err := c.GetRemainingUsage(isPremium)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Allowed:   isPremium || remaining > 0,
		Remaining: remaining,
	}, nil
}

// Reset clears the stored counter. Admin and test use only; regular
// resets happen automatically at date rollover.
func (c *Counter) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: clearing usage counter: %v", apperrors.ErrStorageUnavailable, err)
	}
	return nil
}
