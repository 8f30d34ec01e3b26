package dialog

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/shopbot/core/logger"
)

var (
	// ErrPoolClosed is returned when submit is attempted after pool shutdown.
	ErrPoolClosed = errors.New("dialog pool: closed")
	// ErrQueueFull indicates the chat's queue is saturated and the event was
	// not accepted.
	ErrQueueFull = errors.New("dialog pool: queue full")
)

// PoolOptions controls the dispatch pool.
type PoolOptions struct {
	Workers   int
	QueueSize int
	// MaxDuration bounds the processing of a single event.
	MaxDuration time.Duration
}

type task struct {
	ctx context.Context
	ev  Event
}

// Pool fans inbound events out to workers while keeping each chat on exactly
// one worker, so a chat's events are always processed in arrival order and
// never concurrently. Routing is chat id modulo worker count.
type Pool struct {
	opts    PoolOptions
	machine *Machine
	queues  []chan task
	stop    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// NewPool starts a pool with sane defaults if options are zeroed.
func NewPool(machine *Machine, opts PoolOptions) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 30 * time.Second
	}

	p := &Pool{
		opts:    opts,
		machine: machine,
		queues:  make([]chan task, opts.Workers),
		stop:    make(chan struct{}),
	}

	p.wg.Add(opts.Workers)
	for i := range p.queues {
		p.queues[i] = make(chan task, opts.QueueSize)
		go p.worker(p.queues[i])
	}
	return p
}

// Submit hands one event to the chat's worker. It never blocks: a saturated
// queue rejects with ErrQueueFull so the poller is not stalled by one busy
// chat.
func (p *Pool) Submit(ctx context.Context, ev Event) error {
	select {
	case <-p.stop:
		return ErrPoolClosed
	default:
	}

	queue := p.queues[p.route(ev.ChatID)]
	select {
	case queue <- task{ctx: ctx, ev: ev}:
		return nil
	default:
		logger.Warn(ctx, "dialog", "event.enqueue",
			slog.String("status", "dropped"),
			slog.Int64("chat_id", ev.ChatID),
			slog.String("reason", "queue full"),
		)
		return ErrQueueFull
	}
}

// Close stops intake and waits for queued events to drain.
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.stop)
		for _, q := range p.queues {
			close(q)
		}
		p.wg.Wait()
	})
}

func (p *Pool) route(chatID int64) int {
	idx := chatID % int64(len(p.queues))
	if idx < 0 {
		idx = -idx
	}
	return int(idx)
}

func (p *Pool) worker(queue chan task) {
	defer p.wg.Done()
	for t := range queue {
		p.handle(t)
	}
}

func (p *Pool) handle(t task) {
	ctx := t.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, p.opts.MaxDuration)
	defer cancel()

	// Errors are already logged at the machine boundary; the pool only
	// guards against a handler panic taking the worker down.
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "dialog", "event.panic",
				slog.String("status", "fail"),
				slog.Int64("chat_id", t.ev.ChatID),
				slog.Any("panic", r),
			)
		}
	}()
	_ = p.machine.OnEvent(ctx, t.ev)
}
