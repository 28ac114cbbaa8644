// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package coordinator keeps the latest soil state up to date by refreshing it from a
// soil.Provider on a fixed interval.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/wneessen/soil-temperature/internal/logger"
	"github.com/wneessen/soil-temperature/internal/soil"
)

const (
	DefaultInterval = time.Minute * 60
	MinInterval     = time.Minute

	jobName = "soil_refresh_job"
)

var (
	// ErrSetupFailed is returned by Start if the first refresh did not succeed.
	ErrSetupFailed = errors.New("initial soil data refresh failed")

	// ErrRefreshInProgress is returned if a refresh is requested while another one is running.
	ErrRefreshInProgress = errors.New("refresh already in progress")

	ErrNotStarted         = errors.New("coordinator not started")
	ErrAlreadyStarted     = errors.New("coordinator already started")
	ErrInvalidInterval    = fmt.Errorf("refresh interval must be at least %s", MinInterval)
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// Listener is called with the new state after every successful refresh.
type Listener func(*soil.State)

// Observer is called after every completed refresh with its duration and outcome. Abandoned
// refreshes are not observed.
type Observer func(duration time.Duration, err error)

type Option func(*Coordinator)

// WithInterval sets the scheduled refresh interval.
func WithInterval(interval time.Duration) Option {
	return func(c *Coordinator) {
		c.interval.Store(int64(interval))
	}
}

// WithLocation sets the time zone that defines the calendar day for the summary.
func WithLocation(loc *time.Location) Option {
	return func(c *Coordinator) {
		if loc != nil {
			c.location = loc
		}
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(c *Coordinator) {
		if log != nil {
			c.logger = log
		}
	}
}

// WithClock replaces the wall clock used for timestamps and the summary day.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

func WithObserver(observer Observer) Option {
	return func(c *Coordinator) {
		c.observer = observer
	}
}

// Coordinator owns the soil state. Readers never block: the state is replaced as a whole with a
// single atomic swap per successful refresh.
type Coordinator struct {
	provider soil.Provider
	coords   soil.Coordinates
	location *time.Location
	logger   *logger.Logger
	now      func() time.Time
	observer Observer

	interval atomic.Int64
	inFlight atomic.Bool
	state    atomic.Pointer[soil.State]
	lastErr  atomic.Pointer[refreshError]

	mu         sync.Mutex
	scheduler  gocron.Scheduler
	job        gocron.Job
	jobCtx     context.Context
	cancelJobs context.CancelFunc

	listenerLock sync.RWMutex
	listeners    map[uint64]Listener
	listenerID   uint64
}

type refreshError struct {
	err error
	at  time.Time
}

func New(provider soil.Provider, coords soil.Coordinates, opts ...Option) (*Coordinator, error) {
	if provider == nil {
		return nil, errors.New("soil provider is required")
	}
	if !coords.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCoordinates, coords.Title())
	}

	coordinator := &Coordinator{
		provider:  provider,
		coords:    coords,
		location:  time.Local,
		logger:    logger.NewLogger(slog.LevelError, io.Discard),
		now:       time.Now,
		listeners: make(map[uint64]Listener),
	}
	coordinator.interval.Store(int64(DefaultInterval))
	for _, opt := range opts {
		opt(coordinator)
	}
	if coordinator.Interval() < MinInterval {
		return nil, ErrInvalidInterval
	}
	coordinator.logger = coordinator.logger.With(slog.String("entry", coords.ID()),
		slog.String("provider", provider.Name()))

	return coordinator, nil
}

// Start performs the initial refresh and, if it succeeded, schedules the periodic refresh. The
// scheduled job runs with a context derived from ctx.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scheduler != nil {
		return ErrAlreadyStarted
	}

	if err := c.Refresh(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrSetupFailed, err)
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(c.location), gocron.WithLogger(c.logger))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	jobCtx, cancel := context.WithCancel(ctx)
	job, err := scheduler.NewJob(gocron.DurationJob(c.Interval()), gocron.NewTask(c.scheduledRefresh),
		c.jobOptions(jobCtx)...)
	if err != nil {
		cancel()
		if shutdownErr := scheduler.Shutdown(); shutdownErr != nil {
			c.logger.Error("failed to shut down scheduler", logger.Err(shutdownErr))
		}
		return fmt.Errorf("failed to create %s: %w", jobName, err)
	}

	c.scheduler, c.job, c.jobCtx, c.cancelJobs = scheduler, job, jobCtx, cancel
	c.scheduler.Start()
	c.logger.Info("soil data refresh scheduled", slog.Duration("interval", c.Interval()))
	return nil
}

// Refresh fetches new data and, on success, replaces the state. Only one refresh runs at a time;
// a concurrent call returns ErrRefreshInProgress. On failure the previous state is kept and the
// error is recorded. If ctx is cancelled before the fetch completes, nothing is committed.
// Listeners are notified after the refresh is no longer in flight.
func (c *Coordinator) Refresh(ctx context.Context) error {
	state, err := c.refresh(ctx)
	if err != nil {
		return err
	}
	c.notify(state)
	return nil
}

func (c *Coordinator) refresh(ctx context.Context) (*soil.State, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return nil, ErrRefreshInProgress
	}
	defer c.inFlight.Store(false)

	start := c.now()
	payload, err := c.provider.Fetch(ctx, c.coords)
	if ctxErr := ctx.Err(); ctxErr != nil {
		c.logger.Debug("soil data refresh abandoned", logger.Err(ctxErr))
		return nil, fmt.Errorf("refresh abandoned: %w", ctxErr)
	}
	if err == nil && payload == nil {
		err = soil.NewUpdateError(soil.ErrShape, errors.New("provider returned no data"))
	}
	if err != nil {
		now := c.now()
		c.lastErr.Store(&refreshError{err: err, at: now})
		c.observe(now.Sub(start), err)
		c.logger.Error("failed to refresh soil data", logger.Err(err))
		return nil, err
	}

	now := c.now().In(c.location)
	state := &soil.State{
		Current:   payload.Current,
		Summary:   soil.Summarize(payload.Timeline, now),
		FetchedAt: now,
	}
	c.state.Store(state)
	c.lastErr.Store(nil)
	c.observe(now.Sub(start), nil)
	c.logger.Debug("soil data refreshed", slog.Int("timeline_samples", len(payload.Timeline)),
		slog.Duration("duration", now.Sub(start)))
	return state, nil
}

// State returns the latest state or nil if no refresh succeeded yet.
func (c *Coordinator) State() *soil.State {
	return c.state.Load()
}

// LastError returns the error of the latest refresh, or nil if it succeeded.
func (c *Coordinator) LastError() error {
	if last := c.lastErr.Load(); last != nil {
		return last.err
	}
	return nil
}

// LastErrorAt returns when the latest failed refresh happened.
func (c *Coordinator) LastErrorAt() time.Time {
	if last := c.lastErr.Load(); last != nil {
		return last.at
	}
	return time.Time{}
}

// Refreshing reports whether a refresh is currently running.
func (c *Coordinator) Refreshing() bool {
	return c.inFlight.Load()
}

func (c *Coordinator) Interval() time.Duration {
	return time.Duration(c.interval.Load())
}

// SetInterval changes the refresh interval. A running schedule is updated in place.
func (c *Coordinator) SetInterval(interval time.Duration) error {
	if interval < MinInterval {
		return ErrInvalidInterval
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	previous := c.Interval()
	c.interval.Store(int64(interval))
	if c.scheduler == nil || previous == interval {
		return nil
	}

	job, err := c.scheduler.Update(c.job.ID(), gocron.DurationJob(interval), gocron.NewTask(c.scheduledRefresh),
		c.jobOptions(c.jobCtx)...)
	if err != nil {
		c.interval.Store(int64(previous))
		return fmt.Errorf("failed to update %s: %w", jobName, err)
	}
	c.job = job
	c.logger.Info("soil data refresh interval updated", slog.Duration("previous", previous),
		slog.Duration("interval", interval))
	return nil
}

// NextRun returns the time of the next scheduled refresh.
func (c *Coordinator) NextRun() (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.job == nil {
		return time.Time{}, ErrNotStarted
	}
	return c.job.NextRun()
}

// RequestRefresh asks the scheduler to run the refresh job right away. It does not wait for
// the refresh to complete.
func (c *Coordinator) RequestRefresh() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.job == nil {
		return ErrNotStarted
	}
	if c.Refreshing() {
		return ErrRefreshInProgress
	}
	if err := c.job.RunNow(); err != nil {
		return fmt.Errorf("failed to run %s: %w", jobName, err)
	}
	return nil
}

// AddListener registers a listener for state updates. The returned function removes it again.
func (c *Coordinator) AddListener(listener Listener) func() {
	c.listenerLock.Lock()
	defer c.listenerLock.Unlock()
	c.listenerID++
	id := c.listenerID
	c.listeners[id] = listener

	return func() {
		c.listenerLock.Lock()
		defer c.listenerLock.Unlock()
		delete(c.listeners, id)
	}
}

// Shutdown cancels running refreshes and stops the scheduler.
func (c *Coordinator) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scheduler == nil {
		return nil
	}

	c.cancelJobs()
	err := c.scheduler.Shutdown()
	c.scheduler, c.job, c.jobCtx, c.cancelJobs = nil, nil, nil, nil
	if err != nil {
		return fmt.Errorf("failed to shut down scheduler: %w", err)
	}
	return nil
}

func (c *Coordinator) jobOptions(ctx context.Context) []gocron.JobOption {
	return []gocron.JobOption{
		gocron.WithContext(ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName(jobName),
	}
}

func (c *Coordinator) scheduledRefresh(ctx context.Context) {
	err := c.Refresh(ctx)
	if errors.Is(err, ErrRefreshInProgress) {
		c.logger.Debug("skipping scheduled refresh, another refresh is still running")
	}
}

func (c *Coordinator) observe(duration time.Duration, err error) {
	if c.observer != nil {
		c.observer(duration, err)
	}
}

func (c *Coordinator) notify(state *soil.State) {
	c.listenerLock.RLock()
	listeners := make([]Listener, 0, len(c.listeners))
	for _, listener := range c.listeners {
		listeners = append(listeners, listener)
	}
	c.listenerLock.RUnlock()

	for _, listener := range listeners {
		listener(state)
	}
}
