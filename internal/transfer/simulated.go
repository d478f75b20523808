package transfer

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Defaults match the upload screen's pacing.
const (
	DefaultInterval = 500 * time.Millisecond
	DefaultMinStep  = 5.0
	DefaultMaxStep  = 30.0
)

// SimulatedOptions tunes the fabricated progress ramp.
type SimulatedOptions struct {
	Interval time.Duration
	MinStep  float64
	MaxStep  float64
	// Rand returns values in [0, 1). It must be safe for concurrent use.
	Rand func() float64
}

// Simulated fabricates progress on a timer without moving any bytes.
type Simulated struct {
	opts SimulatedOptions
}

// NewSimulated creates a simulated transport, filling unset options with defaults.
func NewSimulated(opts SimulatedOptions) *Simulated {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.MinStep <= 0 {
		opts.MinStep = DefaultMinStep
	}
	if opts.MaxStep < opts.MinStep {
		opts.MaxStep = opts.MinStep
	}
	if opts.Rand == nil {
		opts.Rand = rand.Float64
	}
	return &Simulated{opts: opts}
}

func (s *Simulated) Name() string { return "simulated" }

// Open returns a transfer that ignores the source content.
func (s *Simulated) Open(Source) Transfer {
	return &simulatedTransfer{opts: s.opts}
}

type simulatedTransfer struct {
	opts SimulatedOptions

	mu        sync.Mutex
	cancel    context.CancelFunc
	cancelled bool
}

func (t *simulatedTransfer) Start(ctx context.Context) <-chan Event {
	events := make(chan Event)

	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		close(events)
		return events
	}
	ctx, t.cancel = context.WithCancel(ctx)
	cancel := t.cancel
	t.mu.Unlock()

	go func() {
		defer close(events)
		defer cancel()

		ticker := time.NewTicker(t.opts.Interval)
		defer ticker.Stop()

		progress := 0.0
		for progress < 100 {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			progress += t.opts.MinStep + t.opts.Rand()*(t.opts.MaxStep-t.opts.MinStep)
			if progress > 100 {
				progress = 100
			}
			if !send(ctx, events, Event{Progress: progress}) {
				return
			}
		}
	}()

	return events
}

func (t *simulatedTransfer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cancelled = true
	if t.cancel != nil {
		t.cancel()
	}
}
