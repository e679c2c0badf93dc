package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/l1jgo/worldcore/internal/core/system"
	"github.com/l1jgo/worldcore/internal/loot"
	"github.com/l1jgo/worldcore/internal/skill"
)

// CombatSystem advances skill timelines, buffs and area buffs, then the loot
// timers. Phase 1 (Combat).
type CombatSystem struct {
	skills *skill.System
	loot   *loot.Manager
	log    *zap.Logger
}

func NewCombatSystem(skills *skill.System, lm *loot.Manager, log *zap.Logger) *CombatSystem {
	return &CombatSystem{skills: skills, loot: lm, log: log}
}

func (s *CombatSystem) Phase() coresys.Phase { return coresys.PhaseCombat }

func (s *CombatSystem) Update(dt time.Duration) {
	for _, f := range s.skills.Advance(dt) {
		if f.Interrupted {
			s.log.Debug("skill interrupted",
				zap.Uint64("caster", uint64(f.Caster)),
				zap.Int32("skill", f.Skill),
			)
		}
	}
	if s.loot != nil {
		s.loot.Update()
	}
}
