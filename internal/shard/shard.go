// Package shard binds a region World to a mailbox actor. The actor is the
// only goroutine touching the World: intents and ticks arrive as messages
// and are handled one at a time, in arrival order.
package shard

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/l1jgo/worldcore/internal/clock"
	"github.com/l1jgo/worldcore/internal/config"
	"github.com/l1jgo/worldcore/internal/core/actor"
	"github.com/l1jgo/worldcore/internal/region"
	"github.com/l1jgo/worldcore/internal/world"
)

// OutboundBatch is the whole outbound output of one shard tick, sent to the
// gateway actor in a single message.
type OutboundBatch struct {
	Shard uint32
	Tick  uint64
	Items []world.Outbound
}

// StatsRequest asks the shard for its counters; the reply is sent to Reply.
type StatsRequest struct {
	Reply chan<- region.Stats
}

// ActorID is the directory name of shard id.
func ActorID(id uint32) actor.ID { return actor.ID(fmt.Sprintf("shard/%d", id)) }

// sender forwards a tick batch to the gateway actor. ctx is the context of
// the message being handled, so a stopping shard abandons a blocked send.
type sender struct {
	sys  *actor.System
	from actor.ID
	to   actor.ID
	ctx  context.Context
}

func (s *sender) Deliver(shard uint32, tick uint64, batch []world.Outbound) {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	s.sys.SendFrom(ctx, s.from, s.to, OutboundBatch{Shard: shard, Tick: tick, Items: batch})
}

type Shard struct {
	id       actor.ID
	world    *region.World
	out      *sender
	ref      *actor.Ref
	lastTick uint64
	log      *zap.Logger
}

// Spawn builds the World of sc, registers the shard actor and subscribes it
// to clock ticks. Ticks are DropOldest: a shard that falls behind skips to
// the newest tick rather than replaying a backlog.
func Spawn(sys *actor.System, bus *actor.Bus, cfg *config.Config, sc config.ShardConfig, deps region.Deps, gateway actor.ID, log *zap.Logger) (*Shard, error) {
	id := ActorID(sc.ID)
	s := &Shard{
		id:  id,
		out: &sender{sys: sys, from: id, to: gateway},
		log: log.With(zap.String("actor", string(id))),
	}
	deps.Gateway = s.out
	w, err := region.New(cfg, sc, deps, log)
	if err != nil {
		return nil, err
	}
	s.world = w

	s.ref, err = sys.Spawn(id, s.handle, actor.WithMailboxSize(cfg.Actor.MailboxSize))
	if err != nil {
		return nil, fmt.Errorf("spawn %s: %w", id, err)
	}
	if _, err := actor.Subscribe[clock.TickElapsed](bus, id, cfg.Actor.SubscriberQueue, actor.DropOldest); err != nil {
		sys.Stop(id)
		return nil, fmt.Errorf("subscribe %s: %w", id, err)
	}
	return s, nil
}

func (s *Shard) ID() actor.ID     { return s.id }
func (s *Shard) Ref() *actor.Ref  { return s.ref }
func (s *Shard) LastTick() uint64 { return s.lastTick }

func (s *Shard) handle(ctx context.Context, env actor.Envelope) error {
	switch m := env.Message.(type) {
	case clock.TickElapsed:
		if m.Tick <= s.lastTick {
			return nil
		}
		s.out.ctx = ctx
		s.world.Tick(m.Tick, m.Delta)
		s.lastTick = m.Tick
	case region.Intent:
		s.world.Enqueue(m)
	case StatsRequest:
		m.Reply <- s.world.Stats()
	default:
		return fmt.Errorf("%s: unexpected message %T", s.id, env.Message)
	}
	return nil
}
