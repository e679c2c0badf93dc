package region

import (
	"go.uber.org/zap"

	"github.com/l1jgo/worldcore/internal/core/ecs"
	"github.com/l1jgo/worldcore/internal/loot"
	"github.com/l1jgo/worldcore/internal/skill"
	"github.com/l1jgo/worldcore/internal/world"
)

// combat lets AI agents cast through the same path as players.
type combat struct{ w *World }

func (c combat) Cast(caster ecs.EntityID, skillID int32, target ecs.EntityID) bool {
	ok, _ := c.w.cast(caster, skill.CastData{Skill: skillID, Target: target})
	return ok
}

func (c combat) Casting(id ecs.EntityID) bool { return c.w.skills.IsCasting(id) }
func (c combat) CanCast(id ecs.EntityID, skillID int32) bool {
	return c.w.skills.CanCast(id, skillID)
}

// cast runs TryCastSkill and, on success, puts the caster's entity machine
// into the Action child matching the skill.
func (w *World) cast(caster ecs.EntityID, cd skill.CastData) (bool, skill.Reason) {
	ok, reason := w.skills.TryCastSkill(caster, cd)
	if !ok {
		return false, reason
	}
	if info := w.skills.Skills().Get(cd.Skill); info != nil {
		w.behavior.RequestAction(caster, info.Action)
	}
	return true, skill.ReasonOK
}

func (w *World) applyCast(in CastSkill) {
	id, ok := w.ctx.PlayerEntity(in.Player)
	if !ok {
		return
	}
	ok, reason := w.cast(id, skill.CastData{
		Skill:      in.Skill,
		Input:      in.Input,
		Target:     in.Target,
		TargetPos:  in.TargetPos,
		TargetDir:  in.TargetDir,
		ClientTick: in.ClientTick,
	})
	if ok {
		return
	}
	w.stats.CastsRejected++
	w.ctx.SendTo(in.Player, world.ProtoCastRejected, world.CastRejectedPayload{
		Entity: id,
		Skill:  in.Skill,
		Reason: reason.String(),
	})
}

func (w *World) applyLoot(in LootChoice) {
	res := w.loot.Choose(in.Source, in.Player, in.Item, in.Choice)
	if res == loot.Accepted {
		return
	}
	w.ctx.SendTo(in.Player, world.ProtoLootRejected, world.LootRejectedPayload{
		Source: in.Source,
		Item:   in.Item,
		Reason: res.String(),
	})
}

// onDeath stops the dead entity, pays kill credit and opens the loot of a
// monster. A dungeon is cleared when its last monster dies.
func (w *World) onDeath(ev world.DeathEvent) {
	w.skills.OnDeath(ev.Entity)
	w.behavior.Kill(ev.Entity)
	credits := w.ai.OnDeath(ev.Entity)

	tag, ok := w.ctx.Monster.Get(ev.Entity)
	if !ok || tag.DiedAt != 0 {
		return
	}
	tag.DiedAt = w.ctx.Tick()
	w.monsters--

	if tag.LootTable != 0 && len(credits) > 0 {
		pids := make([]world.PlayerID, len(credits))
		for i, c := range credits {
			pids[i] = c.Player
		}
		w.loot.Open(ev.Entity, tag.LootTable, pids)
	}

	if w.kind == KindDungeon && w.monsters == 0 && !w.cleared {
		w.cleared = true
		w.ctx.SendToMany(w.ctx.Players(), world.ProtoDungeonCleared, world.DungeonClearedPayload{
			Shard: w.id,
			Tick:  w.ctx.Tick(),
		})
		w.log.Info("dungeon cleared", zap.Uint64("tick", w.ctx.Tick()))
	}
}
