package biz

import (
	"context"
	"sort"
	"sync"

	"BountyBot/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
)

// Names of the pre-configured breakers.
const (
	BreakerPayments = conf.BreakerPayments
	BreakerGitHub   = conf.BreakerGitHub
	BreakerEmail    = conf.BreakerEmail
	BreakerBilling  = conf.BreakerBilling
)

// DefaultBreakerConfigs returns the tuning of the pre-configured breakers, ordered by name.
func DefaultBreakerConfigs() []BreakerConfig {
	services := conf.DefaultBreakerServices()
	configs := make([]BreakerConfig, 0, len(services))
	for name, svc := range services {
		configs = append(configs, breakerConfigFromService(name, svc))
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].Name < configs[j].Name })
	return configs
}

func breakerConfigFromService(name string, svc conf.BreakerService) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		FailureThreshold: svc.FailureThreshold,
		ResetTimeout:     svc.ResetTimeout,
		FailureWindow:    svc.FailureWindow,
		SuccessThreshold: svc.SuccessThreshold,
	}
}

// BreakerRegistry hands out named breakers over one shared store.
type BreakerRegistry struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
	store    CounterStore
	logger   log.Logger
	opts     []BreakerOption
}

// NewBreakerRegistry creates a registry holding a breaker for each config.
func NewBreakerRegistry(store CounterStore, configs []BreakerConfig, logger log.Logger, opts ...BreakerOption) *BreakerRegistry {
	r := &BreakerRegistry{
		breakers: make(map[string]*CircuitBreaker, len(configs)),
		store:    store,
		logger:   logger,
		opts:     opts,
	}
	for _, cfg := range configs {
		r.breakers[cfg.Name] = NewCircuitBreaker(cfg, store, logger, opts...)
	}
	return r
}

// NewBreakerRegistryFromConf builds the registry from configuration.
// Configured services override the defaults of the same name.
func NewBreakerRegistryFromConf(c *conf.Breaker, store CounterStore, notifier BreakerNotifier, logger log.Logger) *BreakerRegistry {
	configs := make(map[string]BreakerConfig)
	for _, cfg := range DefaultBreakerConfigs() {
		configs[cfg.Name] = cfg
	}

	opts := []BreakerOption{WithNotifier(notifier)}
	if c != nil {
		opts = append(opts, WithKeyPrefix(c.KeyPrefix))
		for name, svc := range c.Services {
			if svc == nil {
				continue
			}
			configs[name] = breakerConfigFromService(name, *svc)
		}
	}

	list := make([]BreakerConfig, 0, len(configs))
	for _, cfg := range configs {
		list = append(list, cfg)
	}
	return NewBreakerRegistry(store, list, logger, opts...)
}

// Get returns the breaker called name, creating it with default tuning on first use.
func (r *BreakerRegistry) Get(name string) *CircuitBreaker {
	r.mu.RLock()
	cb, exists := r.breakers[name]
	r.mu.RUnlock()

	if exists {
		return cb
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check: another goroutine may have created it
	if cb, exists = r.breakers[name]; exists {
		return cb
	}

	cb = NewCircuitBreaker(DefaultBreakerConfig(name), r.store, r.logger, r.opts...)
	r.breakers[name] = cb
	return cb
}

// Lookup returns the breaker called name if it is registered.
func (r *BreakerRegistry) Lookup(name string) (*CircuitBreaker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cb, ok := r.breakers[name]
	return cb, ok
}

// Names returns the registered breaker names in order.
func (r *BreakerRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stats returns GetStats of every breaker, ordered by name.
func (r *BreakerRegistry) Stats(ctx context.Context) ([]*BreakerStats, error) {
	return r.collect(ctx, (*CircuitBreaker).GetStats)
}

// Peek returns Peek of every breaker, ordered by name.
func (r *BreakerRegistry) Peek(ctx context.Context) ([]*BreakerStats, error) {
	return r.collect(ctx, (*CircuitBreaker).Peek)
}

// ResetAll closes every registered breaker.
func (r *BreakerRegistry) ResetAll(ctx context.Context) error {
	for _, name := range r.Names() {
		cb, _ := r.Lookup(name)
		if err := cb.Reset(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *BreakerRegistry) collect(ctx context.Context, read func(*CircuitBreaker, context.Context) (*BreakerStats, error)) ([]*BreakerStats, error) {
	names := r.Names()
	stats := make([]*BreakerStats, 0, len(names))
	for _, name := range names {
		cb, _ := r.Lookup(name)
		s, err := read(cb, ctx)
		if err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, nil
}
