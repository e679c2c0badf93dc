// Package gateway is the outbound edge of the simulation core. Shards send
// one OutboundBatch per tick to the gateway actor, which hands it to a Sink
// (the network layer in production, a logger by default).
package gateway

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/l1jgo/worldcore/internal/core/actor"
	"github.com/l1jgo/worldcore/internal/shard"
	"github.com/l1jgo/worldcore/internal/world"
)

// ID is the directory name of the gateway actor.
const ID actor.ID = "gateway"

// Sink receives every shard batch.
type Sink interface {
	Deliver(shard uint32, tick uint64, batch []world.Outbound)
}

// LogSink logs a per-protocol summary of each batch at Debug.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink { return &LogSink{log: log} }

func (s *LogSink) Deliver(shardID uint32, tick uint64, batch []world.Outbound) {
	if ce := s.log.Check(zap.DebugLevel, "outbound batch"); ce != nil {
		ce.Write(
			zap.Uint32("shard", shardID),
			zap.Uint64("tick", tick),
			zap.Int("messages", len(batch)),
			zap.String("protocols", Summary(batch)),
		)
	}
}

// Summary renders message counts per protocol, e.g. "damage=2 move_sync=5".
func Summary(batch []world.Outbound) string {
	counts := make(map[world.Protocol]int)
	for _, o := range batch {
		counts[o.Protocol]++
	}
	protos := make([]world.Protocol, 0, len(counts))
	for p := range counts {
		protos = append(protos, p)
	}
	sort.Slice(protos, func(i, j int) bool { return protos[i] < protos[j] })
	parts := make([]string, len(protos))
	for i, p := range protos {
		parts[i] = fmt.Sprintf("%s=%d", p, counts[p])
	}
	return strings.Join(parts, " ")
}

// Gateway is the actor behind ID.
type Gateway struct {
	sink     Sink
	batches  atomic.Uint64
	messages atomic.Uint64
}

// Spawn registers the gateway actor.
func Spawn(sys *actor.System, sink Sink, opts ...actor.SpawnOption) (*Gateway, error) {
	g := &Gateway{sink: sink}
	if _, err := sys.Spawn(ID, g.handle, opts...); err != nil {
		return nil, fmt.Errorf("spawn gateway: %w", err)
	}
	return g, nil
}

func (g *Gateway) Batches() uint64  { return g.batches.Load() }
func (g *Gateway) Messages() uint64 { return g.messages.Load() }

func (g *Gateway) handle(_ context.Context, env actor.Envelope) error {
	b, ok := env.Message.(shard.OutboundBatch)
	if !ok {
		return fmt.Errorf("gateway: unexpected message %T from %s", env.Message, env.From)
	}
	g.batches.Add(1)
	g.messages.Add(uint64(len(b.Items)))
	g.sink.Deliver(b.Shard, b.Tick, b.Items)
	return nil
}
