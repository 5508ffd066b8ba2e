package resilience

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrWong99/vibeline/internal/observe"
)

// ErrAllFailed is returned when no entry of a [FallbackGroup] succeeded.
var ErrAllFailed = errors.New("resilience: all backends failed")

// FallbackConfig configures the breaker created for each group entry. Its
// Name is replaced by the entry's name.
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

type entry[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// FallbackGroup holds a primary value and ordered fallbacks, each behind its
// own circuit breaker. Entries are fixed once the group is in use.
type FallbackGroup[T any] struct {
	cfg     FallbackConfig
	entries []entry[T]
}

// NewFallbackGroup returns a group with primary as its first entry.
func NewFallbackGroup[T any](primary T, primaryName string, cfg FallbackConfig) *FallbackGroup[T] {
	g := &FallbackGroup[T]{cfg: cfg}
	g.AddFallback(primaryName, primary)
	return g
}

// AddFallback appends an entry tried after all earlier ones. It must not be
// called concurrently with [Do] or [FallbackGroup.Execute].
func (g *FallbackGroup[T]) AddFallback(name string, value T) {
	cbCfg := g.cfg.CircuitBreaker
	cbCfg.Name = name
	g.entries = append(g.entries, entry[T]{name: name, value: value, breaker: NewCircuitBreaker(cbCfg)})
}

// Names returns the entry names in try order.
func (g *FallbackGroup[T]) Names() []string {
	out := make([]string, len(g.entries))
	for i, e := range g.entries {
		out[i] = e.name
	}
	return out
}

// Breaker returns the circuit breaker of the named entry.
func (g *FallbackGroup[T]) Breaker(name string) (*CircuitBreaker, bool) {
	for _, e := range g.entries {
		if e.name == name {
			return e.breaker, true
		}
	}
	return nil, false
}

// Execute is [Do] for calls without a result.
func (g *FallbackGroup[T]) Execute(ctx context.Context, fn func(T) error) error {
	_, err := Do(ctx, g, func(v T) (struct{}, error) {
		return struct{}{}, fn(v)
	})
	return err
}

// Do calls fn with each entry in order until one succeeds and returns its
// result. Entries with an open breaker are skipped. When every entry fails,
// the error wraps [ErrAllFailed] and every entry's error. A cancelled ctx
// stops the walk early.
func Do[T, R any](ctx context.Context, g *FallbackGroup[T], fn func(T) (R, error)) (R, error) {
	log := observe.Logger(ctx)
	var (
		zero R
		errs []error
	)
	for i := range g.entries {
		e := &g.entries[i]
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		var out R
		err := e.breaker.Execute(func() error {
			var callErr error
			out, callErr = fn(e.value)
			return callErr
		})
		if err == nil {
			if i > 0 {
				log.Info("resilience: served by fallback", "backend", e.name)
			}
			return out, nil
		}
		if errors.Is(err, ErrCircuitOpen) {
			log.Debug("resilience: skipping backend, circuit open", "backend", e.name)
		} else {
			log.Warn("resilience: backend failed, trying next", "backend", e.name, "err", err)
		}
		errs = append(errs, fmt.Errorf("%s: %w", e.name, err))
	}
	return zero, fmt.Errorf("%w: %w", ErrAllFailed, errors.Join(errs...))
}
