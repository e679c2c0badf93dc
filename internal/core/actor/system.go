package actor

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrDuplicateActor = errors.New("actor: id already registered")
	ErrSystemClosed   = errors.New("actor: system is shut down")
)

const defaultMailboxSize = 256

// SpawnOption customises a single actor.
type SpawnOption func(*spawnConfig)

type spawnConfig struct {
	mailbox int
}

// WithMailboxSize sets the bounded inbox capacity.
func WithMailboxSize(n int) SpawnOption {
	return func(c *spawnConfig) {
		if n > 0 {
			c.mailbox = n
		}
	}
}

// System is the global actor directory. It owns every consumer loop and
// supervises them with an errgroup so Shutdown can wait for all of them.
type System struct {
	mu      sync.RWMutex
	actors  map[ID]*Ref
	closed  bool
	mailbox int

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	log *zap.Logger
}

func NewSystem(parent context.Context, mailbox int, log *zap.Logger) *System {
	if mailbox <= 0 {
		mailbox = defaultMailboxSize
	}
	ctx, cancel := context.WithCancel(parent)
	group, gctx := errgroup.WithContext(ctx)
	return &System{
		actors:  make(map[ID]*Ref),
		mailbox: mailbox,
		ctx:     gctx,
		cancel:  cancel,
		group:   group,
		log:     log,
	}
}

// Spawn registers an actor and starts its consumer loop.
func (s *System) Spawn(id ID, h Handler, opts ...SpawnOption) (*Ref, error) {
	cfg := spawnConfig{mailbox: s.mailbox}
	for _, o := range opts {
		o(&cfg)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSystemClosed
	}
	if _, exists := s.actors[id]; exists {
		s.mu.Unlock()
		return nil, ErrDuplicateActor
	}
	ref := newRef(s.ctx, id, h, cfg.mailbox, s.log)
	s.actors[id] = ref
	s.mu.Unlock()

	s.group.Go(func() error {
		defer s.finish(ref)
		ref.run()
		return nil
	})
	s.log.Debug("actor spawned", zap.String("actor", string(id)), zap.Int("mailbox", cfg.mailbox))
	return ref, nil
}

// finish marks the actor stopped and removes it from the directory.
func (s *System) finish(ref *Ref) {
	ref.stop()
	ref.state.Store(int32(StateStopped))
	s.mu.Lock()
	if cur, ok := s.actors[ref.id]; ok && cur == ref {
		delete(s.actors, ref.id)
	}
	s.mu.Unlock()
	close(ref.done)
}

// Lookup returns the registered actor, if any.
func (s *System) Lookup(id ID) (*Ref, bool) {
	s.mu.RLock()
	ref, ok := s.actors[id]
	s.mu.RUnlock()
	return ref, ok
}

// Alive reports whether id is registered and still accepting messages.
func (s *System) Alive(id ID) bool {
	ref, ok := s.Lookup(id)
	return ok && ref.accepting()
}

// Send delivers msg to target with an anonymous sender.
func (s *System) Send(ctx context.Context, target ID, msg any) bool {
	return s.SendFrom(ctx, "", target, msg)
}

// SendFrom enqueues msg on target's inbox, waiting while the inbox is full.
// Sending to a missing or stopped actor is a logged no-op, never an error.
func (s *System) SendFrom(ctx context.Context, from, target ID, msg any) bool {
	ref, ok := s.Lookup(target)
	if !ok || !ref.accepting() {
		s.log.Warn("send to unavailable actor dropped",
			zap.String("from", string(from)),
			zap.String("to", string(target)),
		)
		return false
	}
	env := Envelope{From: from, To: target, Message: msg, SentAt: time.Now()}
	if !ref.enqueue(ctx, env) {
		s.log.Warn("send abandoned",
			zap.String("from", string(from)),
			zap.String("to", string(target)),
			zap.String("state", ref.State().String()),
		)
		return false
	}
	return true
}

// Stop asks the actor to stop. The in-flight handler, if any, finishes first.
// The returned channel is closed once the actor is Stopped.
func (s *System) Stop(id ID) <-chan struct{} {
	ref, ok := s.Lookup(id)
	if !ok {
		done := make(chan struct{})
		close(done)
		return done
	}
	if ref.stop() {
		s.log.Debug("actor stopping", zap.String("actor", string(id)))
	}
	return ref.done
}

// Count returns the number of registered actors.
func (s *System) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.actors)
}

// Shutdown stops every actor and waits for all loops to exit.
func (s *System) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	refs := make([]*Ref, 0, len(s.actors))
	for _, ref := range s.actors {
		refs = append(refs, ref)
	}
	s.mu.Unlock()

	for _, ref := range refs {
		ref.stop()
	}
	s.cancel()

	waitCh := make(chan error, 1)
	go func() { waitCh <- s.group.Wait() }()
	select {
	case err := <-waitCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
