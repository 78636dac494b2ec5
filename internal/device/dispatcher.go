package device

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oshokin/traffic-light/internal/domain/light"
	"github.com/oshokin/traffic-light/internal/logger"
	"github.com/oshokin/traffic-light/internal/metrics"
)

// DefaultCommandTimeout bounds a single fire-and-forget delivery.
const DefaultCommandTimeout = 5 * time.Second

// Batch is the set of commands emitted for one light transition.
type Batch struct {
	// Commands are the emitted commands in emission order.
	Commands []Command

	// results receives one Delivery per command and is closed afterwards.
	results chan Delivery
	// remaining counts deliveries not yet reported.
	remaining atomic.Int32
}

// Results returns the delivery outcomes. The channel is buffered for the
// whole batch, so callers that ignore it never block the dispatcher.
func (b *Batch) Results() <-chan Delivery {
	return b.results
}

// Wait blocks until every command finished and returns the outcomes
// in completion order.
func (b *Batch) Wait() []Delivery {
	deliveries := make([]Delivery, 0, len(b.Commands))
	for d := range b.results {
		deliveries = append(deliveries, d)
	}

	return deliveries
}

// report publishes one outcome and closes results after the last one.
func (b *Batch) report(d Delivery) {
	b.results <- d

	if b.remaining.Add(-1) == 0 {
		close(b.results)
	}
}

// job is one queued command of a batch.
type job struct {
	// ctx carries the caller's values without its cancellation.
	ctx context.Context //nolint:containedctx // Queued work keeps the emitter's logging scope.
	// cmd is the command to deliver.
	cmd Command
	// batch receives the outcome.
	batch *Batch
}

// lane is the FIFO queue of one color. Commands of a color reach the sink
// in emission order, while colors never wait for each other.
type lane struct {
	// mu protects queue and running.
	mu sync.Mutex
	// queue holds pending jobs, oldest first.
	queue []job
	// running is true while a drain goroutine owns the lane.
	running bool
}

// Dispatcher delivers light transitions to a Sink without blocking the caller.
type Dispatcher struct {
	// sink performs the actual delivery.
	sink Sink
	// timeout bounds each delivery.
	timeout time.Duration
	// mu serializes Emit so batches enter the lanes in emission order.
	mu sync.Mutex
	// lanes holds one queue per color.
	lanes map[light.Color]*lane
	// inflight tracks drain goroutines for Close.
	inflight sync.WaitGroup
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithCommandTimeout sets the per-command delivery timeout.
func WithCommandTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// NewDispatcher creates a dispatcher over the given sink.
func NewDispatcher(sink Sink, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		sink:    sink,
		timeout: DefaultCommandTimeout,
		lanes:   make(map[light.Color]*lane, len(light.Colors())),
	}

	for _, color := range light.Colors() {
		d.lanes[color] = new(lane)
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Emit queues one command per color (red, yellow, green) reflecting l and
// returns immediately. Commands of the same color are delivered in the
// order they were emitted. Deliveries outlive ctx's cancellation but keep
// its values, so logging stays scoped.
func (d *Dispatcher) Emit(ctx context.Context, l light.Lights) *Batch {
	commands := CommandsFor(l)
	batch := &Batch{
		Commands: commands,
		results:  make(chan Delivery, len(commands)),
	}

	batch.remaining.Store(int32(len(commands))) //nolint:gosec // Always three commands.

	deliveryCtx := context.WithoutCancel(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, cmd := range commands {
		d.enqueue(d.lanes[cmd.Color], job{ctx: deliveryCtx, cmd: cmd, batch: batch})
	}

	return batch
}

// enqueue appends j to the lane and starts its drain goroutine if idle.
func (d *Dispatcher) enqueue(ln *lane, j job) {
	ln.mu.Lock()
	defer ln.mu.Unlock()

	ln.queue = append(ln.queue, j)
	if ln.running {
		return
	}

	ln.running = true

	d.inflight.Add(1)

	go d.drain(ln)
}

// drain delivers queued jobs one by one and exits once the lane is empty.
func (d *Dispatcher) drain(ln *lane) {
	defer d.inflight.Done()

	for {
		ln.mu.Lock()

		if len(ln.queue) == 0 {
			ln.running = false
			ln.mu.Unlock()

			return
		}

		j := ln.queue[0]
		ln.queue[0] = job{}
		ln.queue = ln.queue[1:]

		ln.mu.Unlock()

		j.batch.report(d.deliver(j.ctx, j.cmd))
	}
}

// deliver sends one command and records its outcome.
func (d *Dispatcher) deliver(ctx context.Context, cmd Command) Delivery {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	started := time.Now()
	err := d.sink.Send(callCtx, cmd)
	elapsed := time.Since(started)

	result := metrics.ResultOK

	if err != nil {
		err = &DeliveryError{Command: cmd, Err: err}
		result = metrics.ResultFailed

		logger.ErrorKV(ctx, "Error controlling LED", "led", cmd.Color, "state", cmd.StateParam(), "error", err)
	} else {
		logger.DebugKV(ctx, "LED command delivered", "led", cmd.Color, "state", cmd.StateParam(), "took", elapsed)
	}

	metrics.ObserveDeviceCommand(string(cmd.Color), cmd.StateParam(), result, elapsed.Seconds())

	return Delivery{
		Command:  cmd,
		Err:      err,
		Duration: elapsed,
	}
}

// Close waits until every queued delivery finished.
func (d *Dispatcher) Close() {
	d.inflight.Wait()
}
