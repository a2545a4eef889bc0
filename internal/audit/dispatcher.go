package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	// BufferSize of zero makes Emit write synchronously.
	BufferSize int
	DropIfFull bool
	// WriteTimeout bounds each sink call. Zero means 5s.
	WriteTimeout time.Duration
}

// Dispatcher forwards entries to a sink.
type Dispatcher struct {
	cfg       Config
	sink      Sink
	logger    *zap.Logger
	ch        chan Entry
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	failed    atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts a dispatcher. A nil sink yields a dispatcher that
// discards everything.
func NewDispatcher(cfg Config, sink Sink, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BufferSize < 0 {
		cfg.BufferSize = 0
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}

	d := &Dispatcher{
		cfg:    cfg,
		sink:   sink,
		logger: logger,
		done:   make(chan struct{}),
	}
	if sink == nil || cfg.BufferSize == 0 {
		return d
	}

	d.ch = make(chan Entry, cfg.BufferSize)
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case entry := <-d.ch:
			d.write(context.Background(), entry)
		case <-d.done:
			for {
				select {
				case entry := <-d.ch:
					d.write(context.Background(), entry)
				default:
					return
				}
			}
		}
	}
}

// Emit records entry. It never returns an error and never blocks when
// DropIfFull is set.
func (d *Dispatcher) Emit(ctx context.Context, entry Entry) {
	if d == nil || d.sink == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.ch == nil {
		// Detach from request cancellation; the write is bounded by WriteTimeout.
		d.write(context.WithoutCancel(ctx), entry)
		return
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- entry:
		case <-d.done:
		default:
			d.dropped.Add(1)
			d.logger.Warn("audit buffer full, entry dropped", zap.String("event_type", entry.EventType))
		}
		return
	}

	select {
	case d.ch <- entry:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.done:
	}
}

func (d *Dispatcher) write(ctx context.Context, entry Entry) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.WriteTimeout)
	defer cancel()

	if err := d.sink.Append(ctx, entry); err != nil {
		d.failed.Add(1)
		d.logger.Warn("audit write failed",
			zap.String("event_type", entry.EventType),
			zap.Bool("success", entry.Success),
			zap.Error(err),
		)
	}
}

// Close stops accepting entries and drains the buffer.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped returns how many entries were discarded due to backpressure.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Failed returns how many sink writes returned an error.
func (d *Dispatcher) Failed() uint64 {
	if d == nil {
		return 0
	}
	return d.failed.Load()
}
