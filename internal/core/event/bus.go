package event

import (
	"reflect"
)

// maxRounds bounds cascades (a handler emitting events that emit events).
const maxRounds = 8

// Queue is a double-buffered, typed world-event queue owned by one shard.
// Systems Emit during the tick; the event phase calls Drain, which swaps the
// buffers and delivers every event in emission order. Events emitted by
// handlers while draining are delivered in the same Drain, in a later round.
// Accessed only from the shard goroutine, so no locks.
type Queue struct {
	front    []any
	back     []any
	handlers map[reflect.Type][]func(any)
	dropped  int
}

func NewQueue() *Queue {
	return &Queue{
		front:    make([]any, 0, 64),
		back:     make([]any, 0, 64),
		handlers: make(map[reflect.Type][]func(any)),
	}
}

// Emit queues an event into the back buffer.
func Emit[T any](q *Queue, event T) {
	q.back = append(q.back, event)
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](q *Queue, fn func(T)) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	q.handlers[t] = append(q.handlers[t], func(ev any) { fn(ev.(T)) })
}

// Len returns the number of events waiting for the next Drain.
func (q *Queue) Len() int { return len(q.back) }

// Dropped counts events abandoned because a cascade exceeded maxRounds.
func (q *Queue) Dropped() int { return q.dropped }

// Drain delivers all queued events and returns how many were dispatched.
func (q *Queue) Drain() int {
	n := 0
	for round := 0; round < maxRounds && len(q.back) > 0; round++ {
		q.swapBuffers()
		for _, ev := range q.front {
			for _, h := range q.handlers[reflect.TypeOf(ev)] {
				h(ev)
			}
			n++
		}
	}
	if len(q.back) > 0 {
		q.dropped += len(q.back)
		q.back = q.back[:0]
	}
	return n
}

// swapBuffers rotates back→front and clears the new back buffer.
func (q *Queue) swapBuffers() {
	q.front, q.back = q.back, q.front[:0]
}
