package region

import (
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/worldcore/internal/component"
	"github.com/l1jgo/worldcore/internal/core/ecs"
	"github.com/l1jgo/worldcore/internal/data"
	"github.com/l1jgo/worldcore/internal/geom"
	"github.com/l1jgo/worldcore/internal/world"
)

// populate places every monster of the shard's spawn list.
func (w *World) populate() {
	for i, e := range w.spawns {
		for n := 0; n < e.Count; n++ {
			w.spawnFromList(i)
		}
	}
}

// spawnFromList spawns one monster of spawn entry i, scattered around its
// point.
func (w *World) spawnFromList(i int) (ecs.EntityID, bool) {
	e := w.spawns[i]
	tpl := w.tables.Monsters.Get(e.MonsterID)
	if tpl == nil {
		w.log.Warn("spawn: unknown monster template", zap.Int32("template", e.MonsterID))
		return 0, false
	}
	pos := geom.V(e.X, e.Y, e.Z)
	if e.Scatter > 0 {
		off := geom.Forward(w.rng.Float32() * 360).Scale(w.rng.Float32() * e.Scatter)
		if p, ok := w.volume.Project(pos.Add(off)); ok {
			pos = p
		}
	}
	return w.spawnMonster(tpl, pos, i)
}

func (w *World) spawnAdHoc(in SpawnMonster) {
	tpl := w.tables.Monsters.Get(in.Template)
	if tpl == nil {
		w.log.Debug("spawn monster: unknown template", zap.Int32("template", in.Template))
		return
	}
	w.spawnMonster(tpl, in.Pos, -1)
}

func (w *World) spawnMonster(tpl *data.MonsterTemplate, pos geom.Vec3, spawnIndex int) (ecs.EntityID, bool) {
	if p, ok := w.volume.Project(pos); ok {
		pos = p
	}
	id, err := w.ctx.AddEntity(world.Spawn{
		Identity:  component.Identity{Kind: component.KindMonster, Name: tpl.Name, TemplateID: tpl.MonsterID},
		Transform: component.Transform{Pos: pos, Yaw: w.rng.Float32() * 360},
		Combat: component.Combat{
			HP:      tpl.HP,
			MaxHP:   tpl.HP,
			MP:      tpl.MP,
			MaxMP:   tpl.MP,
			Attack:  tpl.Attack,
			Defense: tpl.Defense,
		},
		Profile: component.Profile{
			Level:       tpl.Level,
			BaseAttack:  tpl.Attack,
			BaseDefense: tpl.Defense,
			BaseSpeed:   tpl.Speed,
		},
		Skills: tpl.Skills,
		AI: &component.AITag{
			Aggressive:  tpl.Aggressive,
			SightRange:  tpl.SightRange,
			AttackRange: tpl.AttackRange,
			Leash:       tpl.Leash,
		},
		Monster: &component.MonsterTag{
			TemplateID:   tpl.MonsterID,
			SpawnIndex:   spawnIndex,
			Home:         pos,
			LootTable:    tpl.LootTable,
			RespawnDelay: w.ctx.TicksFor(tpl.RespawnDelay()),
			Exp:          tpl.Exp,
		},
	})
	if err != nil {
		w.log.Error("spawn monster", zap.Int32("template", tpl.MonsterID), zap.Error(err))
		return 0, false
	}
	w.behavior.Add(id)
	w.ai.Add(id)
	w.monsters++
	w.stats.Spawned++
	return id, true
}

func (w *World) spawnPlayer(in SpawnPlayer) {
	pos := in.Pos
	if p, ok := w.volume.Project(pos); ok {
		pos = p
	}
	hp := in.HP
	if hp <= 0 {
		hp = 1
	}
	id, err := w.ctx.AddEntity(world.Spawn{
		Identity:  component.Identity{Kind: component.KindPlayer, Name: in.Name, PlayerID: uint64(in.Player)},
		Transform: component.Transform{Pos: pos, Yaw: in.Yaw},
		Combat: component.Combat{
			HP:      hp,
			MaxHP:   hp,
			MP:      in.MP,
			MaxMP:   in.MP,
			Attack:  in.Attack,
			Defense: in.Defense,
		},
		Profile: component.Profile{
			Level:       in.Level,
			BaseAttack:  in.Attack,
			BaseDefense: in.Defense,
			BaseSpeed:   in.Speed,
		},
		Skills:    in.Skills,
		SessionID: in.Session,
	})
	if err != nil {
		w.log.Warn("spawn player", zap.Uint64("player", uint64(in.Player)), zap.Error(err))
		return
	}
	if mv, ok := w.ctx.Movement.Get(id); ok {
		mv.LastAccepted = pos
		mv.LastAcceptedAt = w.ctx.Tick()
	}
	w.behavior.Add(id)
	w.stats.Spawned++
	w.log.Debug("player entered",
		zap.Uint64("player", uint64(in.Player)),
		zap.Uint64("entity", uint64(id)),
	)
}

func (w *World) applyDespawn(in Despawn) {
	id := in.Entity
	if in.Player != 0 {
		var ok bool
		if id, ok = w.ctx.PlayerEntity(in.Player); !ok {
			return
		}
	}
	w.despawn(id)
}

// despawn removes an entity now; its remaining state goes at cleanup.
func (w *World) despawn(id ecs.EntityID) bool {
	if !w.ctx.Alive(id) {
		return false
	}
	if tag, ok := w.ctx.Monster.Get(id); ok && tag.DiedAt == 0 {
		w.monsters--
	}
	w.skills.Interrupt(id)
	w.behavior.Forget(id)
	w.ai.Forget(id)
	return w.ctx.Despawn(id)
}

// upkeep removes corpses whose delay ran out and brings back monsters whose
// respawn delay passed. Respawns happen in regions only.
func (w *World) upkeep(_ time.Duration) {
	tick := w.ctx.Tick()
	for _, id := range w.ctx.Monster.SortedIDs() {
		tag, _ := w.ctx.Monster.Get(id)
		if tag.DiedAt == 0 || !w.ctx.Alive(id) || tick < tag.DiedAt+uint64(w.corpseTicks) {
			continue
		}
		index, delay := tag.SpawnIndex, tag.RespawnDelay
		w.despawn(id)
		if w.kind == KindRegion && index >= 0 {
			w.respawns = append(w.respawns, respawn{index: index, at: tick + uint64(delay)})
		}
	}
	if len(w.respawns) == 0 {
		return
	}
	var due []int
	kept := w.respawns[:0]
	for _, r := range w.respawns {
		if tick >= r.at {
			due = append(due, r.index)
		} else {
			kept = append(kept, r)
		}
	}
	w.respawns = kept
	for _, i := range due {
		if _, ok := w.spawnFromList(i); ok {
			w.stats.Respawned++
		}
	}
}
