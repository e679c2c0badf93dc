package actor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ID names an actor in the directory ("clock", "shard/1", "gateway").
type ID string

// State is the lifecycle phase of an actor.
type State int32

const (
	StateCreated  State = iota // registered, loop not yet started
	StateRunning               // consumer loop active
	StateStopping              // inbound closed, in-flight handler finishing
	StateStopped               // removed from the directory
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateStopped:
		return "Stopped"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Envelope wraps a message with routing metadata.
type Envelope struct {
	From    ID
	To      ID
	Message any
	SentAt  time.Time
}

// Handler processes one message. Returned errors and panics are logged by the
// loop and never stop the actor.
type Handler func(ctx context.Context, env Envelope) error

// Ref is a live actor: a bounded inbox plus exactly one consumer goroutine.
type Ref struct {
	id      ID
	inbox   chan Envelope
	handler Handler

	state      atomic.Int32
	lastActive atomic.Int64 // unix nanos of last handled message
	processed  atomic.Uint64
	failures   atomic.Uint64

	ctx     context.Context
	cancel  context.CancelFunc
	closing chan struct{} // closed on Stop; unblocks waiting senders
	done    chan struct{} // closed when the loop has exited

	log *zap.Logger
}

func newRef(parent context.Context, id ID, h Handler, mailbox int, log *zap.Logger) *Ref {
	ctx, cancel := context.WithCancel(parent)
	r := &Ref{
		id:      id,
		inbox:   make(chan Envelope, mailbox),
		handler: h,
		ctx:     ctx,
		cancel:  cancel,
		closing: make(chan struct{}),
		done:    make(chan struct{}),
		log:     log.With(zap.String("actor", string(id))),
	}
	r.state.Store(int32(StateCreated))
	r.lastActive.Store(time.Now().UnixNano())
	return r
}

func (r *Ref) ID() ID            { return r.id }
func (r *Ref) State() State      { return State(r.state.Load()) }
func (r *Ref) Processed() uint64 { return r.processed.Load() }
func (r *Ref) Failures() uint64  { return r.failures.Load() }
func (r *Ref) Pending() int      { return len(r.inbox) }

// Done is closed once the consumer loop has exited.
func (r *Ref) Done() <-chan struct{} { return r.done }

// LastActive is the time the actor last finished a message (or was created).
func (r *Ref) LastActive() time.Time { return time.Unix(0, r.lastActive.Load()) }

// accepting reports whether new messages may be enqueued.
func (r *Ref) accepting() bool {
	st := r.State()
	return st == StateCreated || st == StateRunning
}

// enqueue blocks while the inbox is full. Returns false when the actor began
// stopping or ctx ended before space was available.
func (r *Ref) enqueue(ctx context.Context, env Envelope) bool {
	select {
	case <-r.closing:
		return false
	default:
	}
	select {
	case r.inbox <- env:
		return true
	default:
	}
	select {
	case r.inbox <- env:
		return true
	case <-r.closing:
		return false
	case <-ctx.Done():
		return false
	}
}

// run is the single consumer loop. Messages are handled strictly in arrival order.
func (r *Ref) run() {
	if !r.state.CompareAndSwap(int32(StateCreated), int32(StateRunning)) {
		return // stopped before the loop started
	}
	for {
		select {
		case <-r.ctx.Done():
			return
		default:
		}
		select {
		case <-r.ctx.Done():
			return
		case env := <-r.inbox:
			r.handle(env)
		}
	}
}

func (r *Ref) handle(env Envelope) {
	defer func() {
		if rec := recover(); rec != nil {
			r.failures.Add(1)
			r.log.Error("actor handler panic recovered",
				zap.String("from", string(env.From)),
				zap.String("message", fmt.Sprintf("%T", env.Message)),
				zap.Any("panic", rec),
			)
		}
		r.processed.Add(1)
		r.lastActive.Store(time.Now().UnixNano())
	}()
	if err := r.handler(r.ctx, env); err != nil {
		r.failures.Add(1)
		r.log.Error("actor handler failed",
			zap.String("from", string(env.From)),
			zap.String("message", fmt.Sprintf("%T", env.Message)),
			zap.Error(err),
		)
	}
}

// stop moves the actor to Stopping. Safe to call more than once.
func (r *Ref) stop() bool {
	for {
		st := r.State()
		if st == StateStopping || st == StateStopped {
			return false
		}
		if r.state.CompareAndSwap(int32(st), int32(StateStopping)) {
			close(r.closing)
			r.cancel()
			return true
		}
	}
}
