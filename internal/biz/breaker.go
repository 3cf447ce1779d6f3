package biz

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"BountyBot/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// DefaultKeyPrefix namespaces breaker keys when no prefix is configured.
const DefaultKeyPrefix = "bountybot"

// Store key fields under <prefix>:circuit:<name>:.
const (
	fieldState     = "state"
	fieldFailures  = "failures"
	fieldSuccesses = "successes"
	fieldOpenedAt  = "opened_at"
)

// State is the position of a circuit breaker in its state machine.
type State int

const (
	// StateClosed lets calls through and counts failures.
	StateClosed State = iota
	// StateOpen rejects calls until the reset timeout elapses.
	StateOpen
	// StateHalfOpen lets probe calls through to test recovery.
	StateHalfOpen
)

// String returns the persisted name of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText encodes the state as its name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseState parses a persisted state name, case-insensitively.
func ParseState(s string) (State, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CLOSED":
		return StateClosed, nil
	case "OPEN":
		return StateOpen, nil
	case "HALF_OPEN":
		return StateHalfOpen, nil
	default:
		return StateClosed, fmt.Errorf("unknown circuit state %q", s)
	}
}

// ErrCircuitOpen matches every OpenError through errors.Is.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// OpenError is returned when a call is rejected because the circuit is OPEN.
type OpenError struct {
	Name string
}

// Error implements the error interface.
func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker %q is OPEN: service temporarily unavailable", e.Name)
}

// Is reports whether target is ErrCircuitOpen.
func (e *OpenError) Is(target error) bool {
	return target == ErrCircuitOpen
}

// IsOpenError reports whether err is, or wraps, an OpenError.
func IsOpenError(err error) bool {
	var openErr *OpenError
	return errors.As(err, &openErr)
}

// BreakerConfig tunes one circuit breaker.
type BreakerConfig struct {
	Name string
	// FailureThreshold is the number of failures within FailureWindow that opens the circuit.
	FailureThreshold int
	// ResetTimeout is how long the circuit stays OPEN before a probe is allowed.
	ResetTimeout time.Duration
	// FailureWindow is the time to live of the failure counter, refreshed on every failure.
	FailureWindow time.Duration
	// SuccessThreshold is the number of successful probes that closes a HALF_OPEN circuit.
	SuccessThreshold int
}

// Defaults applied to zero BreakerConfig fields.
const (
	DefaultFailureThreshold = 5
	DefaultResetTimeout     = 30 * time.Second
	DefaultFailureWindow    = 60 * time.Second
	DefaultSuccessThreshold = 2
)

// DefaultBreakerConfig returns the default tuning for name.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{Name: name}.withDefaults()
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = DefaultFailureThreshold
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = DefaultResetTimeout
	}
	if c.FailureWindow <= 0 {
		c.FailureWindow = DefaultFailureWindow
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = DefaultSuccessThreshold
	}
	return c
}

// BreakerStats is a point-in-time snapshot of a breaker.
type BreakerStats struct {
	Name      string     `json:"name"`
	State     State      `json:"state"`
	Failures  int64      `json:"failures"`
	Successes int64      `json:"successes"`
	OpenedAt  *time.Time `json:"opened_at,omitempty"`
}

// BreakerOption customises a CircuitBreaker.
type BreakerOption func(*CircuitBreaker)

// WithKeyPrefix sets the store key namespace.
func WithKeyPrefix(prefix string) BreakerOption {
	return func(cb *CircuitBreaker) {
		if prefix != "" {
			cb.prefix = prefix
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) BreakerOption {
	return func(cb *CircuitBreaker) {
		if now != nil {
			cb.now = now
		}
	}
}

// WithNotifier receives every state transition.
func WithNotifier(n BreakerNotifier) BreakerOption {
	return func(cb *CircuitBreaker) {
		cb.notifier = n
	}
}

// CircuitBreaker guards calls to a dependency. All of its state lives in the CounterStore:
// the struct itself is immutable and safe for concurrent use.
//
// Reads and counter updates are separate store operations, so under concurrent failures
// the circuit may open one failure early or late.
type CircuitBreaker struct {
	cfg      BreakerConfig
	store    CounterStore
	prefix   string
	now      func() time.Time
	notifier BreakerNotifier
	logger   *log.Helper
}

// NewCircuitBreaker creates a breaker persisting to store. Zero config fields take the defaults.
func NewCircuitBreaker(cfg BreakerConfig, store CounterStore, logger log.Logger, opts ...BreakerOption) *CircuitBreaker {
	if logger == nil {
		logger = log.DefaultLogger
	}
	cb := &CircuitBreaker{
		cfg:    cfg.withDefaults(),
		store:  store,
		prefix: DefaultKeyPrefix,
		now:    time.Now,
		logger: log.NewHelper(log.With(logger, "breaker", cfg.Name)),
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

// Name returns the breaker name.
func (cb *CircuitBreaker) Name() string {
	return cb.cfg.Name
}

// Config returns the effective configuration.
func (cb *CircuitBreaker) Config() BreakerConfig {
	return cb.cfg
}

// Key returns the store key of field, e.g. bountybot:circuit:github:state.
func (cb *CircuitBreaker) Key(field string) string {
	return cb.prefix + ":circuit:" + cb.cfg.Name + ":" + field
}

// GetState returns the current state. An OPEN circuit whose reset timeout has elapsed
// is moved to HALF_OPEN and persisted as part of the read.
func (cb *CircuitBreaker) GetState(ctx context.Context) (State, error) {
	state, err := cb.readState(ctx)
	if err != nil || state != StateOpen {
		return state, err
	}

	openedAt, ok, err := cb.readOpenedAt(ctx)
	if err != nil {
		return state, err
	}
	// A missing marker cannot hold the circuit open.
	if ok && cb.now().Sub(openedAt) <= cb.cfg.ResetTimeout {
		return StateOpen, nil
	}

	if err := cb.transition(ctx, StateOpen, StateHalfOpen, model.ReasonResetTimeout); err != nil {
		return state, err
	}
	return StateHalfOpen, nil
}

// CanExecute reports whether a call would currently be let through.
func (cb *CircuitBreaker) CanExecute(ctx context.Context) (bool, error) {
	state, err := cb.GetState(ctx)
	if err != nil {
		return false, err
	}
	return state != StateOpen, nil
}

// Execute runs fn unless the circuit is OPEN, in which case it returns an *OpenError
// without calling fn. The error returned by fn is passed through unchanged.
//
// A store error while reading the state is returned and fn is not run. Store errors
// while recording the outcome are logged and never replace the result of fn.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	_, err := cb.execute(ctx, fn)
	return err
}

// ExecuteWithFallback is Execute, except that a call rejected by this breaker runs fallback
// instead. Errors from fn, including OpenErrors of other breakers, are returned unchanged.
func (cb *CircuitBreaker) ExecuteWithFallback(ctx context.Context, fn, fallback func(context.Context) error) error {
	rejected, err := cb.execute(ctx, fn)
	if rejected {
		return fallback(ctx)
	}
	return err
}

// execute reports rejected when the call was refused because the circuit is OPEN.
func (cb *CircuitBreaker) execute(ctx context.Context, fn func(context.Context) error) (rejected bool, err error) {
	state, err := cb.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("circuit breaker %q: read state: %w", cb.cfg.Name, err)
	}
	if state == StateOpen {
		return true, &OpenError{Name: cb.cfg.Name}
	}

	if fnErr := fn(ctx); fnErr != nil {
		if err := cb.RecordFailure(ctx); err != nil {
			cb.logger.Warnw("msg", "failed to record failure", "error", err)
		}
		return false, fnErr
	}

	if err := cb.RecordSuccess(ctx); err != nil {
		cb.logger.Warnw("msg", "failed to record success", "error", err)
	}
	return false, nil
}

// Call runs fn through cb and returns its value.
func Call[T any](ctx context.Context, cb *CircuitBreaker, fn func(context.Context) (T, error)) (T, error) {
	var result T
	err := cb.Execute(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}

// CallWithFallback runs fn through cb, or fallback when cb rejects the call.
func CallWithFallback[T any](ctx context.Context, cb *CircuitBreaker, fn, fallback func(context.Context) (T, error)) (T, error) {
	var result T
	err := cb.ExecuteWithFallback(ctx,
		func(ctx context.Context) error {
			v, err := fn(ctx)
			if err != nil {
				return err
			}
			result = v
			return nil
		},
		func(ctx context.Context) error {
			v, err := fallback(ctx)
			if err != nil {
				return err
			}
			result = v
			return nil
		},
	)
	return result, err
}

// RecordFailure counts one failed call.
//
// CLOSED: the windowed failure counter is incremented and the circuit opens at the threshold.
// HALF_OPEN: the failed probe reopens the circuit immediately.
// OPEN: the counter is incremented only. opened_at is set on the transition into OPEN
// and is not moved, so failures while OPEN do not extend the cooldown.
func (cb *CircuitBreaker) RecordFailure(ctx context.Context) error {
	state, err := cb.GetState(ctx)
	if err != nil {
		return err
	}

	if state == StateHalfOpen {
		return cb.transition(ctx, StateHalfOpen, StateOpen, model.ReasonProbeFailed)
	}

	failures, err := cb.store.Incr(ctx, cb.Key(fieldFailures))
	if err != nil {
		return fmt.Errorf("increment failures: %w", err)
	}
	if err := cb.store.Expire(ctx, cb.Key(fieldFailures), cb.cfg.FailureWindow); err != nil {
		return fmt.Errorf("expire failures: %w", err)
	}

	if state == StateClosed && failures >= int64(cb.cfg.FailureThreshold) {
		return cb.transition(ctx, StateClosed, StateOpen, model.ReasonThreshold)
	}
	return nil
}

// RecordSuccess counts one successful call.
//
// CLOSED: a positive failure count is decremented by one rather than cleared.
// HALF_OPEN: the success counter is incremented and the circuit closes at the threshold.
func (cb *CircuitBreaker) RecordSuccess(ctx context.Context) error {
	state, err := cb.GetState(ctx)
	if err != nil {
		return err
	}

	switch state {
	case StateHalfOpen:
		successes, err := cb.store.Incr(ctx, cb.Key(fieldSuccesses))
		if err != nil {
			return fmt.Errorf("increment successes: %w", err)
		}
		if successes >= int64(cb.cfg.SuccessThreshold) {
			return cb.transition(ctx, StateHalfOpen, StateClosed, model.ReasonRecovered)
		}
	case StateClosed:
		failures, err := cb.readInt(ctx, fieldFailures)
		if err != nil {
			return err
		}
		if failures <= 0 {
			return nil
		}
		remaining, err := cb.store.Decr(ctx, cb.Key(fieldFailures))
		if err != nil {
			return fmt.Errorf("decrement failures: %w", err)
		}
		// The key may have expired between the read and the decrement.
		if remaining < 0 {
			return cb.store.Del(ctx, cb.Key(fieldFailures))
		}
	}
	return nil
}

// GetStats returns a snapshot, applying the lazy OPEN to HALF_OPEN transition first.
func (cb *CircuitBreaker) GetStats(ctx context.Context) (*BreakerStats, error) {
	state, err := cb.GetState(ctx)
	if err != nil {
		return nil, err
	}
	return cb.stats(ctx, state)
}

// Peek returns a snapshot of the persisted state without triggering any transition.
func (cb *CircuitBreaker) Peek(ctx context.Context) (*BreakerStats, error) {
	state, err := cb.readState(ctx)
	if err != nil {
		return nil, err
	}
	return cb.stats(ctx, state)
}

func (cb *CircuitBreaker) stats(ctx context.Context, state State) (*BreakerStats, error) {
	failures, err := cb.readInt(ctx, fieldFailures)
	if err != nil {
		return nil, err
	}
	successes, err := cb.readInt(ctx, fieldSuccesses)
	if err != nil {
		return nil, err
	}

	stats := &BreakerStats{
		Name:      cb.cfg.Name,
		State:     state,
		Failures:  failures,
		Successes: successes,
	}
	if openedAt, ok, err := cb.readOpenedAt(ctx); err != nil {
		return nil, err
	} else if ok {
		stats.OpenedAt = &openedAt
	}
	return stats, nil
}

// Reset forces the circuit CLOSED and clears every counter.
func (cb *CircuitBreaker) Reset(ctx context.Context) error {
	prev, err := cb.readState(ctx)
	if err != nil {
		return err
	}
	return cb.transition(ctx, prev, StateClosed, model.ReasonManualReset)
}

// transition persists the target state. Logging and notification happen only when the state changed.
func (cb *CircuitBreaker) transition(ctx context.Context, from, to State, reason string) error {
	switch to {
	case StateOpen:
		if err := cb.store.Set(ctx, cb.Key(fieldState), to.String(), 0); err != nil {
			return fmt.Errorf("set state: %w", err)
		}
		openedAt := strconv.FormatInt(cb.now().UnixMilli(), 10)
		if err := cb.store.Set(ctx, cb.Key(fieldOpenedAt), openedAt, 0); err != nil {
			return fmt.Errorf("set opened_at: %w", err)
		}
	case StateHalfOpen:
		if err := cb.store.Set(ctx, cb.Key(fieldState), to.String(), 0); err != nil {
			return fmt.Errorf("set state: %w", err)
		}
	case StateClosed:
		if err := cb.store.Set(ctx, cb.Key(fieldState), to.String(), 0); err != nil {
			return fmt.Errorf("set state: %w", err)
		}
		if err := cb.store.Del(ctx, cb.Key(fieldFailures), cb.Key(fieldSuccesses), cb.Key(fieldOpenedAt)); err != nil {
			return fmt.Errorf("clear counters: %w", err)
		}
	}

	if from == to {
		return nil
	}

	keyvals := []interface{}{"msg", "circuit breaker state changed", "from", from.String(), "to", to.String(), "reason", reason}
	if to == StateOpen {
		cb.logger.Warnw(keyvals...)
	} else {
		cb.logger.Infow(keyvals...)
	}

	if cb.notifier != nil {
		event := &model.BreakerTransitionEvent{
			Breaker: cb.cfg.Name,
			From:    from.String(),
			To:      to.String(),
			At:      cb.now(),
			Reason:  reason,
		}
		if to != StateClosed {
			event.Failures, _ = cb.readInt(ctx, fieldFailures)
			event.Successes, _ = cb.readInt(ctx, fieldSuccesses)
		}
		if err := cb.notifier.NotifyTransition(ctx, event); err != nil {
			cb.logger.Warnw("msg", "failed to notify breaker transition", "to", to.String(), "error", err)
		}
	}
	return nil
}

func (cb *CircuitBreaker) readState(ctx context.Context) (State, error) {
	raw, ok, err := cb.store.Get(ctx, cb.Key(fieldState))
	if err != nil {
		return StateClosed, fmt.Errorf("get state: %w", err)
	}
	if !ok {
		return StateClosed, nil
	}
	state, err := ParseState(raw)
	if err != nil {
		cb.logger.Warnw("msg", "unreadable circuit state, treating as CLOSED", "value", raw)
		return StateClosed, nil
	}
	return state, nil
}

func (cb *CircuitBreaker) readInt(ctx context.Context, field string) (int64, error) {
	raw, ok, err := cb.store.Get(ctx, cb.Key(field))
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", field, err)
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, raw, err)
	}
	return n, nil
}

func (cb *CircuitBreaker) readOpenedAt(ctx context.Context) (time.Time, bool, error) {
	ms, err := cb.readInt(ctx, fieldOpenedAt)
	if err != nil {
		return time.Time{}, false, err
	}
	if ms == 0 {
		return time.Time{}, false, nil
	}
	return time.UnixMilli(ms), true, nil
}
