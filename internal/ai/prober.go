package ai

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"studyforge/internal/logging"
	"studyforge/internal/metrics"
)

// DefaultProbeTimeout bounds the local daemon availability probe
const DefaultProbeTimeout = 3 * time.Second

// Prober owns the provider status map. Status is never persisted.
type Prober struct {
	providers map[ProviderID]Provider
	logger    *zap.Logger
	metrics   *metrics.Metrics

	mu     sync.RWMutex
	status map[ProviderID]bool
}

// NewProber creates a prober with every provider marked unavailable
func NewProber(providers []Provider, logger *zap.Logger) *Prober {
	if logger == nil {
		logger = logging.L()
	}
	p := &Prober{
		providers: make(map[ProviderID]Provider, len(providers)),
		logger:    logger.Named("prober"),
		metrics:   metrics.Get(),
		status:    make(map[ProviderID]bool, len(AllProviders())),
	}
	for _, provider := range providers {
		p.providers[provider.ID()] = provider
	}
	for _, id := range AllProviders() {
		p.status[id] = false
	}
	return p
}

// CheckAll probes every provider concurrently and swaps in the new status map
func (p *Prober) CheckAll(ctx context.Context) map[ProviderID]bool {
	ids := AllProviders()
	results := make([]bool, len(ids))

	var g errgroup.Group
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			results[i] = p.probe(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	next := make(map[ProviderID]bool, len(ids))
	for i, id := range ids {
		next[id] = results[i]
		p.metrics.SetAIProviderAvailable(string(id), results[i])
	}

	p.mu.Lock()
	p.status = next
	p.mu.Unlock()

	p.logger.Debug("provider status refreshed", zap.Any("status", next))
	return copyStatus(next)
}

// Check re-probes one provider and updates its entry
func (p *Prober) Check(ctx context.Context, id ProviderID) bool {
	available := p.probe(ctx, id)

	p.mu.Lock()
	p.status[id] = available
	p.mu.Unlock()

	p.metrics.SetAIProviderAvailable(string(id), available)
	return available
}

// Status returns a copy of the last known status map
func (p *Prober) Status() map[ProviderID]bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return copyStatus(p.status)
}

// IsAvailable returns the last known status of one provider
func (p *Prober) IsAvailable(id ProviderID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status[id]
}

// Run refreshes the status map every interval until ctx is cancelled
func (p *Prober) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.CheckAll(ctx)
		}
	}
}

func (p *Prober) probe(ctx context.Context, id ProviderID) bool {
	provider, ok := p.providers[id]
	if !ok {
		return false
	}
	return provider.Available(ctx)
}

func copyStatus(in map[ProviderID]bool) map[ProviderID]bool {
	out := make(map[ProviderID]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
