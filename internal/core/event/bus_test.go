package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type hit struct{ Amount int }
type died struct{ ID int }

func TestDrainDeliversInEmissionOrder(t *testing.T) {
	q := NewQueue()
	var log []string
	Subscribe(q, func(e hit) { log = append(log, "hit") })
	Subscribe(q, func(e died) { log = append(log, "died") })

	Emit(q, hit{Amount: 1})
	Emit(q, died{ID: 1})
	Emit(q, hit{Amount: 2})
	assert.Equal(t, 3, q.Len())

	assert.Equal(t, 3, q.Drain())
	assert.Equal(t, []string{"hit", "died", "hit"}, log)
	assert.Equal(t, 0, q.Len())
}

func TestCascadeIsDeliveredInSameDrain(t *testing.T) {
	q := NewQueue()
	deaths := 0
	Subscribe(q, func(e hit) {
		if e.Amount >= 10 {
			Emit(q, died{ID: 7})
		}
	})
	Subscribe(q, func(died) { deaths++ })

	Emit(q, hit{Amount: 10})
	assert.Equal(t, 2, q.Drain())
	assert.Equal(t, 1, deaths)
}

func TestRunawayCascadeIsBounded(t *testing.T) {
	q := NewQueue()
	Subscribe(q, func(e hit) { Emit(q, e) })
	Emit(q, hit{})
	assert.Equal(t, maxRounds, q.Drain())
	assert.Equal(t, 1, q.Dropped())
}
