package utils

import (
	"sync"
	"time"
)

// Phase is one timed step of a discovery run.
type Phase struct {
	Name      string
	StartTime time.Time
	Duration  time.Duration
	completed bool
}

// PhaseTimer stops a single phase; intended for use with defer.
type PhaseTimer struct {
	timer *Timer
	name  string
}

// Stop stops the phase timer and records the duration.
// Safe to call multiple times; only the first call has effect.
func (pt *PhaseTimer) Stop() time.Duration {
	return pt.timer.StopPhase(pt.name)
}

// Timer records named phases in start order.
type Timer struct {
	mu        sync.RWMutex
	name      string
	startTime time.Time
	phases    map[string]*Phase
	order     []string
	clock     Clock
}

// TimerOption configures a Timer instance.
type TimerOption func(*Timer)

// WithClock sets a custom clock for testability.
func WithClock(clock Clock) TimerOption {
	return func(t *Timer) {
		t.clock = clock
	}
}

// NewTimer creates a new Timer with the given name and options.
func NewTimer(name string, opts ...TimerOption) *Timer {
	t := &Timer{
		name:   name,
		phases: make(map[string]*Phase),
		clock:  NewRealClock(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.startTime = t.clock.Now()
	return t
}

// Start starts timing a phase. Restarting a phase name resets it.
func (t *Timer) Start(name string) *PhaseTimer {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.phases[name]; !ok {
		t.order = append(t.order, name)
	}
	t.phases[name] = &Phase{Name: name, StartTime: t.clock.Now()}
	return &PhaseTimer{timer: t, name: name}
}

// StopPhase stops timing a phase and returns its duration.
func (t *Timer) StopPhase(name string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	phase, ok := t.phases[name]
	if !ok {
		return 0
	}
	if !phase.completed {
		phase.Duration = t.clock.Since(phase.StartTime)
		phase.completed = true
	}
	return phase.Duration
}

// Phases returns copies of all phases in start order.
func (t *Timer) Phases() []Phase {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Phase, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, *t.phases[name])
	}
	return out
}

// Milliseconds returns phase durations keyed by phase name, for persistence.
func (t *Timer) Milliseconds() map[string]int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]int64, len(t.phases))
	for name, p := range t.phases {
		out[name] = p.Duration.Milliseconds()
	}
	return out
}

// Total returns the time elapsed since the timer was created.
func (t *Timer) Total() time.Duration {
	return t.clock.Since(t.startTime)
}

// Log writes one debug line per phase and a total line.
func (t *Timer) Log(logger Logger) {
	if logger == nil {
		return
	}
	for _, p := range t.Phases() {
		logger.Debug("%s: %s took %v", t.name, p.Name, p.Duration)
	}
	logger.Debug("%s: total %v", t.name, t.Total())
}
