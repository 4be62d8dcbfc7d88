// Package views keeps derived read models in sync with the stored
// collections.
//
// A Live view never patches its value. Every change notification on a
// watched collection triggers a full reload from the store, so missed or
// reordered notifications cannot make it drift.
//
// A view that is started keeps its value in memory and publishes a snapshot
// to its Cache. A view that is never started serves the cached snapshot,
// which lets one process keep a shared cache fresh for the others.
package views

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mmynk/tableside/internal/events"
	"github.com/mmynk/tableside/internal/metrics"
)

// ErrStarted is returned by Start on a running view.
var ErrStarted = errors.New("view already started")

// Config describes a Live view.
type Config struct {
	// Name identifies the view in logs, metrics and cache keys.
	Name string
	// Bus delivers change notifications.
	Bus events.Bus
	// Watch lists the collections whose changes invalidate the view.
	Watch []events.Collection
	// Cache, when set, receives a JSON snapshot after every reload.
	Cache Cache
	// TTL bounds how long a cached snapshot is served. Zero keeps it
	// until overwritten.
	TTL time.Duration
	// Interval, when positive, also reloads on a timer. Views whose value
	// depends on the clock need it.
	Interval time.Duration
}

// Live is a derived view with an explicit subscription lifecycle:
// Start subscribes and loads, Stop unsubscribes.
type Live[T any] struct {
	cfg  Config
	load func(ctx context.Context) (T, error)

	group   singleflight.Group
	gen     atomic.Uint64
	running atomic.Bool

	mu        sync.RWMutex
	current   T
	loaded    bool
	loadedGen uint64

	lifecycle sync.Mutex
	subs      []*events.Subscription
	kick      chan struct{}
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewLive creates a stopped view whose value is derived by load.
func NewLive[T any](cfg Config, load func(ctx context.Context) (T, error)) *Live[T] {
	return &Live[T]{cfg: cfg, load: load}
}

// Start subscribes to the watched collections, performs the first load and
// begins reloading on every notification until Stop or ctx ends.
func (l *Live[T]) Start(ctx context.Context) error {
	l.lifecycle.Lock()
	defer l.lifecycle.Unlock()
	if l.cancel != nil {
		return ErrStarted
	}

	kick := make(chan struct{}, 1)
	var subs []*events.Subscription
	for _, c := range l.cfg.Watch {
		sub, err := l.cfg.Bus.Subscribe(c, events.All, func(events.Event) {
			select {
			case kick <- struct{}{}:
			default: // a reload is already pending
			}
		})
		if err != nil {
			for _, s := range subs {
				s.Unsubscribe()
			}
			return fmt.Errorf("failed to subscribe %s to %s: %w", l.cfg.Name, c, err)
		}
		subs = append(subs, sub)
	}

	if _, err := l.reload(ctx); err != nil {
		for _, s := range subs {
			s.Unsubscribe()
		}
		return fmt.Errorf("failed to load %s: %w", l.cfg.Name, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	l.subs, l.kick, l.cancel, l.done = subs, kick, cancel, make(chan struct{})
	l.running.Store(true)
	go l.run(runCtx, kick, l.done)

	slog.Info("View started", "view", l.cfg.Name, "watch", l.cfg.Watch)
	return nil
}

func (l *Live[T]) run(ctx context.Context, kick <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	var tick <-chan time.Time
	if l.cfg.Interval > 0 {
		ticker := time.NewTicker(l.cfg.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			if _, err := l.reload(ctx); err != nil && ctx.Err() == nil {
				slog.Warn("View reload failed", "view", l.cfg.Name, "error", err)
			}
		case <-kick:
			if _, err := l.reload(ctx); err != nil && ctx.Err() == nil {
				slog.Warn("View reload failed", "view", l.cfg.Name, "error", err)
			}
		}
	}
}

// Stop unsubscribes and waits for an in-flight reload to finish.
// Stopping a stopped view does nothing.
func (l *Live[T]) Stop() {
	l.lifecycle.Lock()
	defer l.lifecycle.Unlock()
	if l.cancel == nil {
		return
	}
	l.running.Store(false)
	for _, s := range l.subs {
		s.Unsubscribe()
	}
	l.cancel()
	<-l.done
	l.subs, l.kick, l.cancel, l.done = nil, nil, nil, nil
	slog.Info("View stopped", "view", l.cfg.Name)
}

// Get returns the current value. A started view answers from memory. A view
// that is not started reads the cached snapshot and loads on demand only
// when there is none.
func (l *Live[T]) Get(ctx context.Context) (T, error) {
	if l.running.Load() {
		l.mu.RLock()
		v, ok := l.current, l.loaded
		l.mu.RUnlock()
		if ok {
			return v, nil
		}
	}

	if v, ok := l.cached(ctx); ok {
		return v, nil
	}
	return l.Refresh(ctx)
}

// Refresh reloads the view now. Concurrent callers share one load.
func (l *Live[T]) Refresh(ctx context.Context) (T, error) {
	v, err, _ := l.group.Do(l.cfg.Name, func() (interface{}, error) {
		return l.reload(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// reload derives a fresh value. A load that started earlier than the one
// already stored never replaces it.
func (l *Live[T]) reload(ctx context.Context) (T, error) {
	gen := l.gen.Add(1)
	v, err := l.load(ctx)
	if err != nil {
		metrics.ViewRefreshes.WithLabelValues(l.cfg.Name, "error").Inc()
		return v, err
	}
	metrics.ViewRefreshes.WithLabelValues(l.cfg.Name, "ok").Inc()

	l.mu.Lock()
	if gen > l.loadedGen {
		l.current, l.loaded, l.loadedGen = v, true, gen
	} else {
		v = l.current
	}
	l.mu.Unlock()

	l.store(ctx, v)
	return v, nil
}

func (l *Live[T]) store(ctx context.Context, v T) {
	if l.cfg.Cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("Failed to encode view snapshot", "view", l.cfg.Name, "error", err)
		return
	}
	if err := l.cfg.Cache.Set(ctx, l.cfg.Name, data, l.cfg.TTL); err != nil {
		slog.Warn("Failed to cache view snapshot", "view", l.cfg.Name, "error", err)
	}
}

func (l *Live[T]) cached(ctx context.Context) (T, bool) {
	var v T
	if l.cfg.Cache == nil {
		return v, false
	}
	data, ok, err := l.cfg.Cache.Get(ctx, l.cfg.Name)
	if err != nil {
		slog.Warn("Failed to read view snapshot", "view", l.cfg.Name, "error", err)
		return v, false
	}
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		slog.Warn("Discarding unreadable view snapshot", "view", l.cfg.Name, "error", err)
		return v, false
	}
	return v, true
}
