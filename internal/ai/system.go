// Package ai drives monsters: perception over the AOI visible set, a threat
// table, and a hierarchical state machine choosing between combat, peace and
// returning home.
package ai

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/worldcore/internal/config"
	"github.com/l1jgo/worldcore/internal/core/ecs"
	"github.com/l1jgo/worldcore/internal/geom"
	"github.com/l1jgo/worldcore/internal/hfsm"
	"github.com/l1jgo/worldcore/internal/world"
)

// Combat is what the AI needs from the skill engine.
type Combat interface {
	Cast(caster ecs.EntityID, skill int32, target ecs.EntityID) bool
	Casting(id ecs.EntityID) bool
	// CanCast is true when skill is off cooldown and affordable.
	CanCast(id ecs.EntityID, skill int32) bool
}

// Pathing plans walkable paths. nav.Pathfinder implements it.
type Pathing interface {
	FindPath(start, goal geom.Vec3) ([]geom.Vec3, bool)
}

// Agent is the AI state of one entity and the context of its machine.
type Agent struct {
	ID     ecs.EntityID
	Home   geom.Vec3
	Target ecs.EntityID
	Aggro  *Aggro

	machine     *hfsm.Machine[*Agent]
	perception  Perception
	aggressive  bool
	attackRange float32
	leash       float32
	skills      []int32
	rng         *rand.Rand

	returning    bool
	idleLeft     time.Duration
	patrolFailed bool
	planned      bool
	plannedFor   geom.Vec3 // target position the current chase path leads to
	castTick     uint64
}

// State returns the name of the agent's active leaf.
func (a *Agent) State() string { return a.machine.LeafName() }

// System owns the AI agents of one shard.
type System struct {
	ctx    *world.Context
	cfg    config.AIConfig
	combat Combat
	paths  Pathing
	seed   int64

	def    *hfsm.Definition[*Agent]
	states States
	agents map[ecs.EntityID]*Agent
	log    *zap.Logger
}

func NewSystem(ctx *world.Context, cfg config.AIConfig, combat Combat, paths Pathing, seed int64, log *zap.Logger) (*System, error) {
	s := &System{
		ctx:    ctx,
		cfg:    cfg,
		combat: combat,
		paths:  paths,
		seed:   seed,
		agents: make(map[ecs.EntityID]*Agent),
		log:    log,
	}
	def, err := s.build()
	if err != nil {
		return nil, fmt.Errorf("build ai machine: %w", err)
	}
	s.def = def
	return s, nil
}

func (s *System) States() States { return s.states }
func (s *System) Len() int       { return len(s.agents) }

// Add creates an agent for an entity carrying an AITag. Tag values of zero
// fall back to the configured defaults.
func (s *System) Add(id ecs.EntityID) (*Agent, bool) {
	tag, ok := s.ctx.AI.Get(id)
	if !ok {
		return nil, false
	}
	if a, ok := s.agents[id]; ok {
		return a, true
	}
	pos, _ := s.ctx.Position(id)
	a := &Agent{
		ID:          id,
		Home:        pos,
		Aggro:       NewAggro(),
		perception:  Perception{Sight: orF(tag.SightRange, s.cfg.SightRange), FOV: s.cfg.FOVDegrees},
		aggressive:  tag.Aggressive,
		attackRange: orF(tag.AttackRange, s.cfg.AttackRange),
		leash:       orF(tag.Leash, s.cfg.LeashDistance),
		rng:         rand.New(rand.NewSource(s.seed ^ int64(id))),
	}
	if m, ok := s.ctx.Monster.Get(id); ok {
		a.Home = m.Home
	}
	if book, ok := s.ctx.SkillBook.Get(id); ok {
		a.skills = append([]int32(nil), book.Skills...)
	}
	a.machine = hfsm.NewMachine(s.def)
	s.agents[id] = a
	a.machine.Start(a)
	return a, true
}

// Agent returns the agent of id.
func (s *System) Agent(id ecs.EntityID) (*Agent, bool) {
	a, ok := s.agents[id]
	return a, ok
}

// Forget drops the agent of a despawned entity.
func (s *System) Forget(id ecs.EntityID) { delete(s.agents, id) }

// Update runs perception, aggro upkeep and the machine of every living
// agent, in entity id order.
func (s *System) Update(dt time.Duration) {
	ids := make([]ecs.EntityID, 0, len(s.agents))
	for id := range s.agents {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		a := s.agents[id]
		if s.ctx.Dead(id) {
			continue
		}
		a.Aggro.Prune(func(t ecs.EntityID) bool { return !s.ctx.Dead(t) })
		if !a.returning && a.aggressive {
			for _, seen := range s.perceive(a) {
				a.Aggro.Notice(seen)
			}
		}
		a.Target, _ = a.Aggro.Top()
		a.machine.Update(a, dt)
	}
}

// OnDamage turns damage taken into threat.
func (s *System) OnDamage(ev world.DamageEvent) {
	if ev.Heal || ev.Amount <= 0 || ev.Source == 0 || ev.Source == ev.Target {
		return
	}
	a, ok := s.agents[ev.Target]
	if !ok || a.returning {
		return
	}
	a.Aggro.Add(ev.Source, float64(ev.Amount))
}

// Credit is one player's share of a kill.
type Credit struct {
	Player world.PlayerID
	Entity ecs.EntityID
	Exp    int64
}

// OnDeath splits the dead agent's experience among the players on its threat
// table, in proportion to their threat, sends KillCredit and returns the
// shares. The table is cleared afterwards.
func (s *System) OnDeath(id ecs.EntityID) []Credit {
	a, ok := s.agents[id]
	if !ok {
		return nil
	}
	var exp int64
	var template int32
	if m, ok := s.ctx.Monster.Get(id); ok {
		exp = m.Exp
		template = m.TemplateID
	}
	total := a.Aggro.Total()
	var credits []Credit
	for _, eid := range a.Aggro.IDs() {
		pid, ok := s.ctx.PlayerOf(eid)
		if !ok {
			continue
		}
		share := int64(0)
		if total > 0 {
			share = int64(float64(exp) * a.Aggro.Threat(eid) / total)
		}
		credits = append(credits, Credit{Player: pid, Entity: eid, Exp: share})
		s.ctx.SendTo(pid, world.ProtoKillCredit, world.KillCreditPayload{
			Killer:   pid,
			Victim:   id,
			Template: template,
			Exp:      share,
		})
	}
	a.Aggro.Clear()
	a.Target = 0
	s.clearPath(a)
	return credits
}

// --- state behaviour ---

func (s *System) clearPath(a *Agent) {
	if mv, ok := s.ctx.Movement.Get(a.ID); ok {
		mv.Path = nil
	}
	a.planned = false
}

// walkTo plans a path and hands it to the movement component.
func (s *System) walkTo(a *Agent, goal geom.Vec3) bool {
	pos, ok := s.ctx.Position(a.ID)
	if !ok || s.paths == nil {
		return false
	}
	path, ok := s.paths.FindPath(pos, goal)
	if !ok {
		return false
	}
	mv, ok := s.ctx.Movement.Get(a.ID)
	if !ok {
		return false
	}
	if len(path) > 0 && geom.Dist(path[0], pos) < 1e-3 {
		path = path[1:]
	}
	mv.Path = path
	return true
}

func (s *System) walking(a *Agent) bool {
	mv, ok := s.ctx.Movement.Get(a.ID)
	return ok && len(mv.Path) > 0
}

// chase keeps a path towards the target, replanning once the target has
// drifted more than ReplanDistance from where the path ends.
func (s *System) chase(a *Agent, _ time.Duration) {
	tpos, ok := s.ctx.Position(a.Target)
	if !ok {
		return
	}
	if a.planned && s.walking(a) && geom.Dist(tpos, a.plannedFor) <= s.cfg.ReplanDistance {
		return
	}
	a.planned = s.walkTo(a, tpos)
	a.plannedFor = tpos
	if !a.planned {
		s.log.Debug("chase path failed", zap.Uint64("agent", uint64(a.ID)))
	}
}

func (s *System) faceTarget(a *Agent) {
	pos, ok1 := s.ctx.Position(a.ID)
	tpos, ok2 := s.ctx.Position(a.Target)
	tr, ok3 := s.ctx.Transform.Get(a.ID)
	mv, ok4 := s.ctx.Movement.Get(a.ID)
	if !ok1 || !ok2 || !ok3 || !ok4 || !mv.CanTurn() {
		return
	}
	if dir := tpos.Sub(pos).Flat().Normalize(); !dir.IsZero() {
		tr.Yaw = geom.YawOf(dir)
		tr.Dir = dir
	}
}

// readySkill returns the first known skill the agent can use now. Skills it
// cannot pay for are skipped so an agent out of mana falls back to free ones.
func (s *System) readySkill(a *Agent) (int32, bool) {
	if s.combat == nil || s.combat.Casting(a.ID) {
		return 0, false
	}
	for _, sk := range a.skills {
		if s.combat.CanCast(a.ID, sk) {
			return sk, true
		}
	}
	return 0, false
}

func (s *System) attack(a *Agent) {
	sk, ok := s.readySkill(a)
	if !ok {
		return
	}
	s.faceTarget(a)
	a.castTick = s.ctx.Tick()
	s.combat.Cast(a.ID, sk, a.Target)
}

func (s *System) idleDwell(a *Agent) time.Duration {
	lo, hi := s.cfg.IdleMin, s.cfg.IdleMax
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(a.rng.Int63n(int64(hi-lo)))
}

// startPatrol picks a random point around home and walks there if a path
// exists. A failed plan sends the agent straight back to Idle.
func (s *System) startPatrol(a *Agent) {
	yaw := float32(a.rng.Float64() * 360)
	dist := float32(a.rng.Float64()) * s.cfg.PatrolRadius
	goal := a.Home.Add(geom.Forward(yaw).Scale(dist))
	a.patrolFailed = !s.walkTo(a, goal)
}

func (s *System) goHome(a *Agent) {
	if !s.walkTo(a, a.Home) {
		// unreachable home: snap back rather than stay stranded outside the leash
		s.ctx.MoveEntity(a.ID, a.Home)
		s.clearPath(a)
	}
}

// checkHome ends ReturnHome once the walk home is over and restores the
// agent to full health.
func (s *System) checkHome(a *Agent, _ time.Duration) {
	if s.walking(a) {
		return
	}
	a.returning = false
	if cb, ok := s.ctx.Combat.Get(a.ID); ok && !cb.Dead {
		cb.HP = cb.MaxHP
	}
}

func orF(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}
