package actor

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DropPolicy decides what Publish does when a subscriber queue is full.
type DropPolicy int

const (
	// Block waits for space (backpressure on the publisher).
	Block DropPolicy = iota
	// DropOldest evicts the oldest queued event. Used for high-frequency,
	// low-value events such as ticks sent to stragglers.
	DropOldest
)

func (p DropPolicy) String() string {
	if p == DropOldest {
		return "drop_oldest"
	}
	return "block"
}

// SubscriptionID identifies one subscription.
type SubscriptionID string

var ErrUnknownActor = errors.New("actor: subscriber is not registered")

// SubscriptionStats is a point-in-time view of one subscription.
type SubscriptionStats struct {
	Actor      ID
	EventType  reflect.Type
	Policy     DropPolicy
	Queued     int
	Delivered  uint64
	Dropped    uint64
	LastActive time.Time
}

type subscription struct {
	id        SubscriptionID
	actor     ID
	eventType reflect.Type
	policy    DropPolicy
	queue     chan any

	offerMu    sync.Mutex // serialises drop-oldest evictions between publishers
	delivered  atomic.Uint64
	dropped    atomic.Uint64
	lastActive atomic.Int64

	cancel context.CancelFunc
	done   chan struct{}
}

func newSubscription(actor ID, eventType reflect.Type, capacity int, policy DropPolicy, now time.Time) *subscription {
	if capacity <= 0 {
		capacity = 1
	}
	sub := &subscription{
		id:        SubscriptionID(uuid.NewString()),
		actor:     actor,
		eventType: eventType,
		policy:    policy,
		queue:     make(chan any, capacity),
		done:      make(chan struct{}),
	}
	sub.lastActive.Store(now.UnixNano())
	return sub
}

// offer places ev on the subscriber queue according to the drop policy.
func (sub *subscription) offer(ctx context.Context, ev any) bool {
	if sub.policy == DropOldest {
		sub.offerMu.Lock()
		defer sub.offerMu.Unlock()
		for {
			select {
			case sub.queue <- ev:
				return true
			default:
			}
			select {
			case <-sub.queue:
				sub.dropped.Add(1)
			default:
			}
		}
	}
	select {
	case sub.queue <- ev:
		return true
	case <-sub.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// Bus fans events out to subscribed actors, keyed by the event's runtime type.
// Each subscription owns a bounded queue and a pump goroutine forwarding to the
// subscriber's mailbox, so a slow actor never stalls the others.
type Bus struct {
	sys *System

	mu     sync.RWMutex
	byType map[reflect.Type]map[SubscriptionID]*subscription
	byID   map[SubscriptionID]*subscription

	inactiveAfter time.Duration
	sweepEvery    time.Duration
	now           func() time.Time

	log *zap.Logger
}

func NewBus(sys *System, sweepEvery, inactiveAfter time.Duration, log *zap.Logger) *Bus {
	return &Bus{
		sys:           sys,
		byType:        make(map[reflect.Type]map[SubscriptionID]*subscription),
		byID:          make(map[SubscriptionID]*subscription),
		inactiveAfter: inactiveAfter,
		sweepEvery:    sweepEvery,
		now:           time.Now,
		log:           log,
	}
}

// Subscribe registers actor for events whose runtime type is eventType.
func (b *Bus) Subscribe(actor ID, eventType reflect.Type, capacity int, policy DropPolicy) (SubscriptionID, error) {
	if _, ok := b.sys.Lookup(actor); !ok {
		return "", ErrUnknownActor
	}
	sub := newSubscription(actor, eventType, capacity, policy, b.now())

	b.mu.Lock()
	subs := b.byType[eventType]
	if subs == nil {
		subs = make(map[SubscriptionID]*subscription)
		b.byType[eventType] = subs
	}
	subs[sub.id] = sub
	b.byID[sub.id] = sub
	b.mu.Unlock()

	ctx, cancel := context.WithCancel(b.sys.ctx)
	sub.cancel = cancel
	go b.pump(ctx, sub)

	b.log.Debug("subscribed",
		zap.String("actor", string(actor)),
		zap.String("event", eventType.String()),
		zap.String("policy", policy.String()),
	)
	return sub.id, nil
}

// Subscribe is the typed form of Bus.Subscribe.
func Subscribe[T any](b *Bus, actor ID, capacity int, policy DropPolicy) (SubscriptionID, error) {
	return b.Subscribe(actor, reflect.TypeOf((*T)(nil)).Elem(), capacity, policy)
}

// Unsubscribe removes a subscription and stops its pump.
func (b *Bus) Unsubscribe(id SubscriptionID) bool {
	b.mu.Lock()
	sub, ok := b.byID[id]
	if ok {
		b.removeLocked(sub)
	}
	b.mu.Unlock()
	return ok
}

func (b *Bus) removeLocked(sub *subscription) {
	delete(b.byID, sub.id)
	if subs := b.byType[sub.eventType]; subs != nil {
		delete(subs, sub.id)
		if len(subs) == 0 {
			delete(b.byType, sub.eventType)
		}
	}
	if sub.cancel != nil {
		sub.cancel()
	}
	close(sub.done)
}

// Publish offers event to every current subscriber of its runtime type and
// returns how many queues accepted it.
func (b *Bus) Publish(ctx context.Context, event any) int {
	t := reflect.TypeOf(event)
	b.mu.RLock()
	subs := make([]*subscription, 0, len(b.byType[t]))
	for _, sub := range b.byType[t] {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	accepted := 0
	for _, sub := range subs {
		if sub.offer(ctx, event) {
			accepted++
		}
	}
	return accepted
}

func (b *Bus) pump(ctx context.Context, sub *subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub.queue:
			if !b.sys.Alive(sub.actor) {
				// left for Sweep; keep lastActive untouched
				sub.dropped.Add(1)
				continue
			}
			if b.sys.SendFrom(ctx, "bus", sub.actor, ev) {
				sub.delivered.Add(1)
				sub.lastActive.Store(b.now().UnixNano())
			} else {
				sub.dropped.Add(1)
			}
		}
	}
}

// Sweep prunes subscriptions whose actor is gone and which have been inactive
// for longer than inactiveAfter. Returns the number removed.
func (b *Bus) Sweep(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	removed := 0
	for _, sub := range b.byID {
		if b.sys.Alive(sub.actor) {
			continue
		}
		idle := now.Sub(time.Unix(0, sub.lastActive.Load()))
		if idle < b.inactiveAfter {
			continue
		}
		b.removeLocked(sub)
		removed++
	}
	if removed > 0 {
		b.log.Debug("pruned inactive subscriptions", zap.Int("count", removed))
	}
	return removed
}

// Run sweeps periodically until ctx is done.
func (b *Bus) Run(ctx context.Context) error {
	if b.sweepEvery <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(b.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			b.Sweep(now)
		}
	}
}

// Stats returns a snapshot of one subscription.
func (b *Bus) Stats(id SubscriptionID) (SubscriptionStats, bool) {
	b.mu.RLock()
	sub, ok := b.byID[id]
	b.mu.RUnlock()
	if !ok {
		return SubscriptionStats{}, false
	}
	return SubscriptionStats{
		Actor:      sub.actor,
		EventType:  sub.eventType,
		Policy:     sub.policy,
		Queued:     len(sub.queue),
		Delivered:  sub.delivered.Load(),
		Dropped:    sub.dropped.Load(),
		LastActive: time.Unix(0, sub.lastActive.Load()),
	}, true
}

// Subscribers returns the number of live subscriptions for an event type.
func (b *Bus) Subscribers(eventType reflect.Type) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byType[eventType])
}
