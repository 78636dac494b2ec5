package sequencer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/traffic-light/internal/device"
	"github.com/oshokin/traffic-light/internal/domain/light"
	"github.com/oshokin/traffic-light/internal/logger"
	"github.com/oshokin/traffic-light/internal/metrics"
)

// Transition sources used in logs and metrics.
const (
	sourceManual = "manual"
	sourceStop   = "stop"
)

var (
	// ErrSequenceRunning is returned when a sequence is started while another one runs.
	ErrSequenceRunning = errors.New("sequence is already running")
	// ErrClosed is returned by operations on a closed sequencer.
	ErrClosed = errors.New("sequencer is closed")
)

// Emitter delivers the commands of one light transition.
type Emitter interface {
	Emit(ctx context.Context, l light.Lights) *device.Batch
}

// run is an active automatic sequence.
type run struct {
	// id identifies the run in logs.
	id string
	// cancel is the run's cancellation token.
	cancel context.CancelFunc
}

// Sequencer holds the light state and performs transitions.
type Sequencer struct {
	// emitter sends device commands for every transition.
	emitter Emitter
	// clock schedules the waits between phases.
	clock Clock
	// steps is the phase table of the automatic sequence.
	steps []light.Step
	// now returns the current time for snapshots.
	now func() time.Time

	// mu guards every field below.
	mu sync.Mutex
	// snapshot is the current observable state.
	snapshot light.Snapshot
	// active is the running sequence or nil.
	active *run
	// generation changes whenever a run is started or cancelled.
	generation uint64
	// subscribers receive every new snapshot.
	subscribers map[uint64]chan light.Snapshot
	// nextSubscriber is the id of the next subscription.
	nextSubscriber uint64
	// closed rejects further operations.
	closed bool

	// runs tracks driving goroutines.
	runs sync.WaitGroup
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(clock Clock) Option {
	return func(s *Sequencer) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New creates a sequencer with every light off.
// Nothing is emitted until the first operation.
func New(emitter Emitter, opts ...Option) *Sequencer {
	s := &Sequencer{
		emitter:     emitter,
		clock:       systemClock{},
		steps:       light.Sequence(),
		now:         time.Now,
		subscribers: make(map[uint64]chan light.Snapshot),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.snapshot = light.Snapshot{
		Lights:    light.AllOff(),
		Phase:     light.PhaseNone,
		UpdatedAt: s.now(),
	}

	return s
}

// Snapshot returns the current state.
func (s *Sequencer) Snapshot() light.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshot
}

// Lights returns the current channel states.
func (s *Sequencer) Lights() light.Lights {
	return s.Snapshot().Lights
}

// Running reports whether an automatic sequence is in progress.
func (s *Sequencer) Running() bool {
	return s.Snapshot().Running
}

// SetGreen lights green only.
func (s *Sequencer) SetGreen(ctx context.Context) (*device.Batch, error) {
	return s.manual(ctx, light.Green)
}

// SetYellow lights yellow only.
func (s *Sequencer) SetYellow(ctx context.Context) (*device.Batch, error) {
	return s.manual(ctx, light.Yellow)
}

// SetRed lights red only.
func (s *Sequencer) SetRed(ctx context.Context) (*device.Batch, error) {
	return s.manual(ctx, light.Red)
}

// SetColor lights the named color only.
func (s *Sequencer) SetColor(ctx context.Context, c light.Color) (*device.Batch, error) {
	switch c {
	case light.Red, light.Yellow, light.Green:
	default:
		return nil, fmt.Errorf("%w: %q", light.ErrUnknownColor, c)
	}

	return s.manual(ctx, c)
}

// manual cancels any running sequence and lights c only.
func (s *Sequencer) manual(ctx context.Context, c light.Color) (*device.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	s.cancelLocked(ctx)

	return s.applyLocked(ctx, light.Only(c), light.PhaseNone, sourceManual), nil
}

// Stop cancels any running sequence and turns every light off.
func (s *Sequencer) Stop(ctx context.Context) (*device.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	s.cancelLocked(ctx)

	return s.applyLocked(ctx, light.AllOff(), light.PhaseNone, sourceStop), nil
}

// StartSequence applies the first phase immediately and drives the rest
// in the background. It returns the run id and the commands of the first phase.
func (s *Sequencer) StartSequence(ctx context.Context) (string, *device.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", nil, ErrClosed
	}

	if s.active != nil {
		metrics.RecordSequenceRun(metrics.RunRejected)
		logger.WarnKV(ctx, "Sequence already running", "run_id", s.active.id)

		return "", nil, ErrSequenceRunning
	}

	r := &run{id: uuid.NewString()}

	// The run outlives the request that started it; Stop or Close end it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	runCtx = logger.WithKV(runCtx, "run_id", r.id)
	r.cancel = cancel

	s.active = r
	s.generation++
	gen := s.generation

	logger.InfoKV(runCtx, "Sequence started", "duration", light.SequenceDuration())

	first := s.steps[0]
	batch := s.applyLocked(runCtx, first.Phase.Lights(), first.Phase, first.Phase.String())

	s.runs.Add(1)

	go s.drive(runCtx, r, gen)

	return r.id, batch, nil
}

// drive waits between phases and applies them while the run is current.
func (s *Sequencer) drive(ctx context.Context, r *run, gen uint64) {
	defer s.runs.Done()
	defer r.cancel()

	for i := 0; i+1 < len(s.steps); i++ {
		select {
		case <-ctx.Done():
			s.finish(ctx, r, metrics.RunCancelled)
			return
		case <-s.clock.After(s.steps[i].Wait):
		}

		if !s.advance(ctx, gen, s.steps[i+1].Phase) {
			s.finish(ctx, r, metrics.RunCancelled)
			return
		}
	}

	s.finish(ctx, r, metrics.RunCompleted)
}

// advance applies phase if gen is still the current generation.
func (s *Sequencer) advance(ctx context.Context, gen uint64, phase light.Phase) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != gen || ctx.Err() != nil {
		return false
	}

	s.applyLocked(ctx, phase.Lights(), phase, phase.String())

	return true
}

// finish releases the run slot if r still holds it.
func (s *Sequencer) finish(ctx context.Context, r *run, outcome string) {
	metrics.RecordSequenceRun(outcome)
	logger.InfoKV(ctx, "Sequence finished", "outcome", outcome)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != r {
		return
	}

	s.active = nil
	s.snapshot.Running = false
	s.publishLocked()
}

// cancelLocked cancels the running sequence, if any.
func (s *Sequencer) cancelLocked(ctx context.Context) {
	if s.active == nil {
		return
	}

	logger.InfoKV(ctx, "Cancelling sequence", "run_id", s.active.id)

	s.active.cancel()
	s.active = nil
	s.generation++
}

// applyLocked stores the new lights, emits the device commands and
// notifies subscribers.
func (s *Sequencer) applyLocked(ctx context.Context, l light.Lights, phase light.Phase, source string) *device.Batch {
	s.snapshot = light.Snapshot{
		Lights:    l,
		Phase:     phase,
		Running:   s.active != nil,
		UpdatedAt: s.now(),
	}

	logger.InfoKV(ctx, "Lights changed", "source", source, "lights", l.String())

	metrics.RecordTransition(source)

	for _, c := range light.Colors() {
		metrics.SetLightActive(string(c), l.Get(c).IsActive())
	}

	s.publishLocked()

	return s.emitter.Emit(ctx, l)
}

// Subscribe returns a channel receiving the current snapshot and every
// later change. Slow readers only see the latest snapshot. The returned
// function ends the subscription.
func (s *Sequencer) Subscribe() (<-chan light.Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan light.Snapshot, 1)
	ch <- s.snapshot

	if s.closed {
		close(ch)

		return ch, func() {}
	}

	id := s.nextSubscriber
	s.nextSubscriber++
	s.subscribers[id] = ch

	var once sync.Once

	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()

			if sub, ok := s.subscribers[id]; ok {
				delete(s.subscribers, id)
				close(sub)
			}
		})
	}
}

// publishLocked pushes the snapshot to every subscriber, replacing an
// unread older one.
func (s *Sequencer) publishLocked() {
	for _, ch := range s.subscribers {
		select {
		case <-ch:
		default:
		}

		ch <- s.snapshot
	}
}

// Wait blocks until no sequence goroutine is running.
func (s *Sequencer) Wait() {
	s.runs.Wait()
}

// Close cancels the running sequence, switches every light off, ends all
// subscriptions and waits for the driving goroutine to exit. Every later
// operation fails with ErrClosed. The returned batch is nil if the
// sequencer was already closed.
func (s *Sequencer) Close(ctx context.Context) *device.Batch {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return nil
	}

	s.closed = true
	s.cancelLocked(ctx)

	batch := s.applyLocked(ctx, light.AllOff(), light.PhaseNone, sourceStop)

	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}

	s.mu.Unlock()

	s.runs.Wait()

	return batch
}
