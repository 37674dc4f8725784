package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls how gate events are queued for the sink.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull makes Emit non-blocking; events that find the queue full
	// are counted and handed to OnDrop instead.
	DropIfFull bool
	OnDrop     func(Event)
	// Clock stamps events that arrive without a Timestamp. Defaults to time.Now.
	Clock func() time.Time
}

// Dispatcher relays gate events to a single sink from one worker goroutine,
// so sinks never see concurrent Emit calls. A nil *Dispatcher is valid and
// discards everything.
type Dispatcher struct {
	cfg   Config
	sink  Sink
	queue chan Event

	// mu guards closing queue: Emit holds the read side while sending.
	mu     sync.RWMutex
	closed bool

	finished chan struct{}
	dropped  atomic.Uint64
}

// NewDispatcher starts the relay worker. It returns nil when cfg is disabled.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = 1
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:      cfg,
		sink:     sink,
		queue:    make(chan Event, cfg.BufferSize),
		finished: make(chan struct{}),
	}
	go d.relay()
	return d
}

// relay runs until queue is closed and empty, which is what makes Close
// flush everything accepted before it.
func (d *Dispatcher) relay() {
	defer close(d.finished)
	ctx := context.Background()
	for event := range d.queue {
		d.sink.Emit(ctx, event)
	}
}

// Emit queues event. Without DropIfFull it waits for room or for ctx.
// Events emitted after Close are ignored.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = d.cfg.Clock().UTC()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if !d.cfg.DropIfFull {
		select {
		case d.queue <- event:
		case <-ctx.Done():
		}
		return
	}

	select {
	case d.queue <- event:
	default:
		d.dropped.Add(1)
		if d.cfg.OnDrop != nil {
			d.cfg.OnDrop(event)
		}
	}
}

// Close stops intake and blocks until the sink has seen every queued event.
// It is safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.finished
}

// Dropped returns how many events DropIfFull discarded.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
