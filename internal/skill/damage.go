package skill

import (
	"github.com/l1jgo/worldcore/internal/core/ecs"
	"github.com/l1jgo/worldcore/internal/core/event"
	"github.com/l1jgo/worldcore/internal/scripting"
	"github.com/l1jgo/worldcore/internal/world"
)

// Damage applies HP changes and emits the matching world events.
type Damage struct {
	ctx     *world.Context
	scripts *scripting.Engine // nil = built-in formula
}

func NewDamage(ctx *world.Context, scripts *scripting.Engine) *Damage {
	return &Damage{ctx: ctx, scripts: scripts}
}

// Calc computes the amount a skill effect of the given power deals (or heals).
func (d *Damage) Calc(source, target ecs.EntityID, skill, power int32, heal bool) int32 {
	atk, def := int32(0), int32(0)
	if cb, ok := d.ctx.Combat.Get(source); ok {
		atk = cb.TotalAttack()
	}
	tcb, ok := d.ctx.Combat.Get(target)
	if ok {
		def = tcb.TotalDefense()
	}
	if d.scripts != nil && ok {
		dc := scripting.DamageContext{
			SkillID:     skill,
			Power:       power,
			Heal:        heal,
			Attack:      atk,
			Defense:     def,
			TargetHP:    tcb.HP,
			TargetMaxHP: tcb.MaxHP,
		}
		if p, ok := d.ctx.Profile.Get(source); ok {
			dc.AttackerLevel = p.Level
		}
		if p, ok := d.ctx.Profile.Get(target); ok {
			dc.TargetLevel = p.Level
		}
		if amount, ok := d.scripts.CalcSkillDamage(dc); ok {
			return amount
		}
	}
	if heal {
		return power
	}
	amount := power + atk - def/2
	if amount < 1 {
		amount = 1
	}
	return amount
}

// Apply computes and deals a skill effect. Returns the HP actually changed.
func (d *Damage) Apply(source, target ecs.EntityID, skill, power int32, heal bool) int32 {
	if d.ctx.Dead(target) {
		return 0
	}
	return d.Deal(source, target, skill, d.Calc(source, target, skill, power, heal), heal)
}

// Deal changes HP by a precomputed amount. Reaching zero HP marks the target
// dead and emits a DeathEvent exactly once.
func (d *Damage) Deal(source, target ecs.EntityID, skill, amount int32, heal bool) int32 {
	cb, ok := d.ctx.Combat.Get(target)
	if !ok || cb.Dead || amount <= 0 {
		return 0
	}
	if heal {
		if cb.HP+amount > cb.MaxHP {
			amount = cb.MaxHP - cb.HP
		}
		if amount <= 0 {
			return 0
		}
		cb.HP += amount
	} else {
		cb.HP -= amount
		cb.LastAttacker = source
	}
	event.Emit(d.ctx.Events, world.DamageEvent{
		Source: source,
		Target: target,
		Skill:  skill,
		Amount: amount,
		HP:     max(cb.HP, 0),
		Heal:   heal,
	})
	if cb.HP <= 0 {
		cb.HP = 0
		cb.Dead = true
		event.Emit(d.ctx.Events, world.DeathEvent{Entity: target, Killer: source})
	}
	return amount
}
