package ai

import (
	"sync"
	"time"
)

// usageTracker holds a provider's usage statistics (thread-safe)
type usageTracker struct {
	mu    sync.RWMutex
	usage ProviderUsage
}

func (u *usageTracker) recordSuccess(duration time.Duration) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.usage.RequestCount++
	if u.usage.RequestCount > 1 {
		u.usage.AvgLatency = (u.usage.AvgLatency*float64(u.usage.RequestCount-1) + duration.Seconds()) / float64(u.usage.RequestCount)
	} else {
		u.usage.AvgLatency = duration.Seconds()
	}
	u.usage.LastUsed = time.Now()
}

func (u *usageTracker) recordError() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.usage.ErrorCount++
	u.usage.LastUsed = time.Now()
}

func (u *usageTracker) recordParseFallback() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.usage.ParseFallbacks++
}

// snapshot returns a copy to prevent data races
func (u *usageTracker) snapshot(id ProviderID) *ProviderUsage {
	u.mu.RLock()
	defer u.mu.RUnlock()

	out := u.usage
	out.Provider = id
	return &out
}
