package skill

// Reason explains the outcome of TryCastSkill. Rejections are normal
// gameplay and are reported to the caster, never returned as errors.
type Reason string

const (
	ReasonOK            Reason = "ok"
	ReasonUnknownSkill  Reason = "unknown skill"
	ReasonNotLearned    Reason = "not learned"
	ReasonCasterDead    Reason = "caster dead"
	ReasonCoolingDown   Reason = "cooling down"
	ReasonNotEnoughMana Reason = "not enough mana"
	ReasonOutOfRange    Reason = "target out of range"
	ReasonInvalidTarget Reason = "invalid target"
)

func (r Reason) String() string { return string(r) }
