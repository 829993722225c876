// Package scheduler drives a worker over a list of items in bounded rounds,
// re-queueing rate-limited items after a cooldown.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-egress/internal/logging"
	"github.com/goliatone/go-egress/pkg/interfaces"
)

const (
	DefaultMaxConcurrency = 5
	DefaultMaxRounds      = 10
	DefaultCooldown       = 60 * time.Second
)

// Worker processes one item. index is the item's position in the list given
// to Run and total is that list's length; both stay fixed across rounds.
type Worker[T any] func(ctx context.Context, item T, index, total int) error

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// CooldownFunc observes every cooldown before it starts.
type CooldownFunc func(round int, wait time.Duration, pending int)

// Config holds scheduler settings. Use the With* options to build one.
type Config struct {
	MaxConcurrency  int
	MaxRounds       int
	DefaultCooldown time.Duration
	Sleep           Sleeper
	Now             func() time.Time
	OnCooldown      CooldownFunc
	Logger          interfaces.Logger
}

// Option customises a Scheduler.
type Option func(*Config)

// WithMaxConcurrency bounds the number of in-flight workers.
func WithMaxConcurrency(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxConcurrency = n
		}
	}
}

// WithMaxRounds caps the number of rounds, the first included.
func WithMaxRounds(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxRounds = n
		}
	}
}

// WithDefaultCooldown sets the wait used when a rate-limit error carries no
// usable hint.
func WithDefaultCooldown(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.DefaultCooldown = d
		}
	}
}

// WithSleeper replaces the cooldown sleep.
func WithSleeper(s Sleeper) Option {
	return func(c *Config) {
		if s != nil {
			c.Sleep = s
		}
	}
}

// WithClock sets the time source used to resolve HTTP-date retry hints.
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		if now != nil {
			c.Now = now
		}
	}
}

// WithCooldownObserver registers fn to be told about each cooldown.
func WithCooldownObserver(fn CooldownFunc) Option {
	return func(c *Config) {
		c.OnCooldown = fn
	}
}

// WithLogger sets the scheduler logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// Report summarises a Run.
type Report[T any] struct {
	Rounds            int
	Succeeded         int
	Skipped           int
	Failed            int
	RateLimited       int
	Cooldowns         []time.Duration
	PermanentlyFailed []T
}

// Scheduler runs workers over items in rounds.
type Scheduler[T any] struct {
	cfg Config
}

// New returns a scheduler with defaults overridden by opts.
func New[T any](opts ...Option) *Scheduler[T] {
	cfg := Config{
		MaxConcurrency:  DefaultMaxConcurrency,
		MaxRounds:       DefaultMaxRounds,
		DefaultCooldown: DefaultCooldown,
		Sleep:           Sleep,
		Now:             time.Now,
		Logger:          logging.NoOp(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Scheduler[T]{cfg: cfg}
}

// Config returns the effective settings.
func (s *Scheduler[T]) Config() Config {
	return s.cfg
}

type pending[T any] struct {
	item  T
	index int
}

type roundResult[T any] struct {
	limited  []pending[T]
	cooldown time.Duration
	hinted   bool
}

// Run drives worker over items. Rate-limited items are retried in later
// rounds after a cooldown; every other failure is logged and dropped. Items
// still rate-limited after MaxRounds are returned in the report. The only
// error returned is the context error when ctx is cancelled, in which case
// no new workers are launched and in-flight ones are awaited.
func (s *Scheduler[T]) Run(ctx context.Context, items []T, worker Worker[T]) (Report[T], error) {
	var report Report[T]
	if worker == nil {
		return report, errors.New("scheduler: worker is required")
	}

	total := len(items)
	queue := make([]pending[T], total)
	for i, item := range items {
		queue[i] = pending[T]{item: item, index: i}
	}

	for round := 1; len(queue) > 0; round++ {
		report.Rounds = round
		s.cfg.Logger.Debug("scheduler.round.start", "round", round, "items", len(queue), "concurrency", s.cfg.MaxConcurrency)

		result, err := s.runRound(ctx, queue, total, worker, &report)
		if err != nil {
			return report, err
		}
		queue = result.limited
		if len(queue) == 0 {
			break
		}

		if round >= s.cfg.MaxRounds {
			for _, p := range queue {
				report.PermanentlyFailed = append(report.PermanentlyFailed, p.item)
			}
			s.cfg.Logger.Warn("scheduler.rounds.exhausted", "rounds", round, "remaining", len(queue))
			break
		}

		wait := result.cooldown
		if !result.hinted {
			wait = s.cfg.DefaultCooldown
		}
		report.Cooldowns = append(report.Cooldowns, wait)
		s.cfg.Logger.Info("scheduler.cooldown", "round", round, "wait", wait, "pending", len(queue))
		if s.cfg.OnCooldown != nil {
			s.cfg.OnCooldown(round, wait, len(queue))
		}
		if err := s.cfg.Sleep(ctx, wait); err != nil {
			return report, err
		}
	}

	s.cfg.Logger.Debug("scheduler.completed",
		"rounds", report.Rounds,
		"succeeded", report.Succeeded,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"permanently_failed", len(report.PermanentlyFailed),
	)
	return report, nil
}

func (s *Scheduler[T]) runRound(ctx context.Context, queue []pending[T], total int, worker Worker[T], report *Report[T]) (roundResult[T], error) {
	var (
		mu     sync.Mutex
		result roundResult[T]
		group  errgroup.Group
	)
	group.SetLimit(s.cfg.MaxConcurrency)

	for _, p := range queue {
		if ctx.Err() != nil {
			break
		}
		group.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			err := invoke(ctx, worker, p, total)

			mu.Lock()
			defer mu.Unlock()
			s.classify(p, err, &result, report)
			return nil
		})
	}
	_ = group.Wait()

	if err := ctx.Err(); err != nil {
		s.cfg.Logger.Warn("scheduler.cancelled", "error", err)
		return result, err
	}
	return result, nil
}

func (s *Scheduler[T]) classify(p pending[T], err error, result *roundResult[T], report *Report[T]) {
	switch {
	case err == nil:
		report.Succeeded++
	case errors.Is(err, ErrSkipped):
		report.Skipped++
		s.cfg.Logger.Warn("scheduler.item.skipped", "index", p.index, "reason", err)
	case IsRateLimited(err):
		report.RateLimited++
		result.limited = append(result.limited, p)
		if hint, ok := RetryHint(err, s.cfg.Now()); ok {
			if !result.hinted || hint > result.cooldown {
				result.cooldown = hint
			}
			result.hinted = true
		}
		s.cfg.Logger.Debug("scheduler.item.rate_limited", "index", p.index, "error", err)
	default:
		report.Failed++
		s.cfg.Logger.Error("scheduler.item.failed", "index", p.index, "error", err)
	}
}

func invoke[T any](ctx context.Context, worker Worker[T], p pending[T], total int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scheduler: worker panic: %v", r)
		}
	}()
	return worker(ctx, p.item, p.index, total)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
