package system

import (
	"fmt"
	"time"
)

const phaseCount = int(PhaseCleanup) + 1

// Runner executes systems in phase order each tick. Systems sharing a phase
// run in registration order. The wall time of every phase is kept for the
// last tick so a slow shard can say where its time went.
type Runner struct {
	phases [phaseCount][]System
	spent  [phaseCount]time.Duration
	now    func() time.Time
}

func NewRunner() *Runner {
	return &Runner{now: time.Now}
}

// Register adds s to its phase bucket. An out of range phase is a wiring bug.
func (r *Runner) Register(s System) {
	p := s.Phase()
	if p < 0 || int(p) >= phaseCount {
		panic(fmt.Sprintf("system: phase %d out of range", p))
	}
	r.phases[p] = append(r.phases[p], s)
}

// Tick runs every phase and returns the total wall time spent.
func (r *Runner) Tick(dt time.Duration) time.Duration {
	var total time.Duration
	for p := range r.phases {
		total += r.run(Phase(p), dt)
	}
	return total
}

// TickPhase runs only the systems of one phase.
func (r *Runner) TickPhase(phase Phase, dt time.Duration) {
	if phase >= 0 && int(phase) < phaseCount {
		r.run(phase, dt)
	}
}

func (r *Runner) run(p Phase, dt time.Duration) time.Duration {
	if len(r.phases[p]) == 0 {
		r.spent[p] = 0
		return 0
	}
	start := r.now()
	for _, s := range r.phases[p] {
		s.Update(dt)
	}
	r.spent[p] = r.now().Sub(start)
	return r.spent[p]
}

// Spent is the wall time phase p took on its last run.
func (r *Runner) Spent(p Phase) time.Duration {
	if p < 0 || int(p) >= phaseCount {
		return 0
	}
	return r.spent[p]
}

// Slowest returns the phase that took longest on the last tick.
func (r *Runner) Slowest() Phase {
	best := Phase(0)
	for p := 1; p < phaseCount; p++ {
		if r.spent[p] > r.spent[best] {
			best = Phase(p)
		}
	}
	return best
}

// Phases returns the phase of every registered system in execution order.
func (r *Runner) Phases() []Phase {
	var out []Phase
	for p, bucket := range r.phases {
		for range bucket {
			out = append(out, Phase(p))
		}
	}
	return out
}
