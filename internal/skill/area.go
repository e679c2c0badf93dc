package skill

import (
	"time"

	"github.com/l1jgo/worldcore/internal/core/ecs"
	"github.com/l1jgo/worldcore/internal/geom"
	"github.com/l1jgo/worldcore/internal/world"
)

// Zone re-applies a buff to every entity inside it each interval until its
// lifetime runs out.
type Zone struct {
	ID        int
	Source    ecs.EntityID
	Center    geom.Vec3
	Radius    float32
	Buff      int32
	Interval  time.Duration
	Remaining time.Duration
	next      time.Duration
}

type AreaBuffSystem struct {
	ctx   *world.Context
	buffs *BuffSystem
	zones []*Zone
	seq   int
}

func NewAreaBuffSystem(ctx *world.Context, buffs *BuffSystem) *AreaBuffSystem {
	return &AreaBuffSystem{ctx: ctx, buffs: buffs}
}

// Add opens a zone. The first pulse happens on the next Update.
func (a *AreaBuffSystem) Add(source ecs.EntityID, center geom.Vec3, radius float32, buff int32, interval, lifetime time.Duration) int {
	if interval <= 0 {
		interval = time.Second
	}
	a.seq++
	a.zones = append(a.zones, &Zone{
		ID:        a.seq,
		Source:    source,
		Center:    center,
		Radius:    radius,
		Buff:      buff,
		Interval:  interval,
		Remaining: lifetime,
	})
	return a.seq
}

func (a *AreaBuffSystem) Len() int { return len(a.zones) }

func (a *AreaBuffSystem) Update(dt time.Duration) {
	kept := a.zones[:0]
	for _, z := range a.zones {
		z.next -= dt
		for z.next <= 0 {
			a.pulse(z)
			z.next += z.Interval
		}
		z.Remaining -= dt
		if z.Remaining > 0 {
			kept = append(kept, z)
		}
	}
	for i := len(kept); i < len(a.zones); i++ {
		a.zones[i] = nil
	}
	a.zones = kept
}

// pulse applies the zone buff. Harmful buffs land on hostiles of the source,
// everything else on its allies (and the source itself).
func (a *AreaBuffSystem) pulse(z *Zone) {
	info := a.buffs.table.Get(z.Buff)
	if info == nil {
		return
	}
	harmful := info.DamagePerTick > 0 || info.Attack < 0 || info.Defense < 0 || info.MoveSpeed < 0
	for _, id := range a.ctx.EntitiesNear(z.Center, z.Radius) {
		if a.ctx.Dead(id) {
			continue
		}
		if a.ctx.Hostile(z.Source, id) != harmful {
			continue
		}
		a.buffs.Apply(id, z.Source, z.Buff)
	}
}
