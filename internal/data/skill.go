package data

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Skill event types (instantaneous, fired at a timestamp).
const (
	EventDamage    = "damage"
	EventHeal      = "heal"
	EventApplyBuff = "apply_buff"
	EventAreaBuff  = "area_buff"
	EventDispel    = "dispel"
)

// Skill phase types (durable windows).
const (
	PhaseChannel  = "channel"
	PhaseMoveLock = "move_lock"
	PhaseDash     = "dash"
)

// Skill targeting modes.
const (
	TargetSelf      = "self"
	TargetEntity    = "entity"
	TargetPosition  = "position"
	TargetDirection = "direction"
)

// Skill actions select the entity state entered while casting.
const (
	ActionAttack = "attack"
	ActionRoll   = "roll"
	ActionCast   = "cast"
)

// SkillInfo holds a single skill timeline template.
type SkillInfo struct {
	SkillID  int32
	Name     string
	Action   string
	Target   string
	Range    float32
	MpCost   int32
	Cooldown float64 // seconds; converted to ticks at cast time
	Duration time.Duration
	Events   []SkillEvent // sorted by At
	Phases   []SkillPhase // sorted by Start
}

// SkillEvent is an instantaneous effect at a point of the timeline.
type SkillEvent struct {
	At       time.Duration
	Type     string
	Power    int32
	Radius   float32 // 0 = single target
	BuffID   int32
	Interval time.Duration // area_buff re-apply interval
	Duration time.Duration // area_buff lifetime
	All      bool          // dispel every dispellable buff
}

// SkillPhase is a window [Start, End) of the timeline.
type SkillPhase struct {
	Type     string
	Start    time.Duration
	End      time.Duration
	Interval time.Duration // channel tick interval
	Power    int32
	Radius   float32
	Speed    float32 // dash speed, metres per second
	Heal     bool    // channel heals instead of damaging
}

// SkillTable holds all skills indexed by SkillID.
type SkillTable struct {
	skills map[int32]*SkillInfo
}

// Get returns a skill by ID, or nil if not found.
func (t *SkillTable) Get(skillID int32) *SkillInfo {
	return t.skills[skillID]
}

// Count returns total loaded skills.
func (t *SkillTable) Count() int {
	return len(t.skills)
}

// NewSkillTable builds a table from already constructed skills.
func NewSkillTable(skills ...*SkillInfo) *SkillTable {
	t := &SkillTable{skills: make(map[int32]*SkillInfo, len(skills))}
	for _, s := range skills {
		sortTimeline(s)
		t.skills[s.SkillID] = s
	}
	return t
}

func sortTimeline(s *SkillInfo) {
	sort.SliceStable(s.Events, func(i, j int) bool { return s.Events[i].At < s.Events[j].At })
	sort.SliceStable(s.Phases, func(i, j int) bool { return s.Phases[i].Start < s.Phases[j].Start })
}

// --- YAML loading ---

type skillEventEntry struct {
	At       float64 `yaml:"at"`
	Type     string  `yaml:"type"`
	Power    int32   `yaml:"power"`
	Radius   float32 `yaml:"radius"`
	BuffID   int32   `yaml:"buff_id"`
	Interval float64 `yaml:"interval"`
	Duration float64 `yaml:"duration"`
	All      bool    `yaml:"all"`
}

type skillPhaseEntry struct {
	Type     string  `yaml:"type"`
	Start    float64 `yaml:"start"`
	End      float64 `yaml:"end"`
	Interval float64 `yaml:"interval"`
	Power    int32   `yaml:"power"`
	Radius   float32 `yaml:"radius"`
	Speed    float32 `yaml:"speed"`
	Heal     bool    `yaml:"heal"`
}

type skillEntry struct {
	SkillID  int32             `yaml:"skill_id"`
	Name     string            `yaml:"name"`
	Action   string            `yaml:"action"`
	Target   string            `yaml:"target"`
	Range    float32           `yaml:"range"`
	MpCost   int32             `yaml:"mp_cost"`
	Cooldown float64           `yaml:"cooldown"`
	Duration float64           `yaml:"duration"`
	Events   []skillEventEntry `yaml:"events"`
	Phases   []skillPhaseEntry `yaml:"phases"`
}

type skillListFile struct {
	Skills []skillEntry `yaml:"skills"`
}

// seconds converts a YAML seconds value to a Duration.
func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// LoadSkillTable loads skill definitions from YAML.
func LoadSkillTable(path string) (*SkillTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read skills: %w", err)
	}
	return ParseSkillTable(raw)
}

// ParseSkillTable parses skill YAML.
func ParseSkillTable(raw []byte) (*SkillTable, error) {
	var f skillListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse skills: %w", err)
	}
	t := &SkillTable{skills: make(map[int32]*SkillInfo, len(f.Skills))}
	for i := range f.Skills {
		e := &f.Skills[i]
		if _, dup := t.skills[e.SkillID]; dup {
			return nil, fmt.Errorf("parse skills: duplicate skill_id %d", e.SkillID)
		}
		s := &SkillInfo{
			SkillID:  e.SkillID,
			Name:     e.Name,
			Action:   orDefault(e.Action, ActionCast),
			Target:   orDefault(e.Target, TargetEntity),
			Range:    e.Range,
			MpCost:   e.MpCost,
			Cooldown: e.Cooldown,
			Duration: seconds(e.Duration),
		}
		switch s.Action {
		case ActionAttack, ActionRoll, ActionCast:
		default:
			return nil, fmt.Errorf("skill %d: unknown action %q", e.SkillID, s.Action)
		}
		for _, ev := range e.Events {
			switch ev.Type {
			case EventDamage, EventHeal, EventApplyBuff, EventAreaBuff, EventDispel:
			default:
				return nil, fmt.Errorf("skill %d: unknown event type %q", e.SkillID, ev.Type)
			}
			s.Events = append(s.Events, SkillEvent{
				At:       seconds(ev.At),
				Type:     ev.Type,
				Power:    ev.Power,
				Radius:   ev.Radius,
				BuffID:   ev.BuffID,
				Interval: seconds(ev.Interval),
				Duration: seconds(ev.Duration),
				All:      ev.All,
			})
		}
		for _, ph := range e.Phases {
			switch ph.Type {
			case PhaseChannel, PhaseMoveLock, PhaseDash:
			default:
				return nil, fmt.Errorf("skill %d: unknown phase type %q", e.SkillID, ph.Type)
			}
			if ph.End < ph.Start {
				return nil, fmt.Errorf("skill %d: phase %s ends before it starts", e.SkillID, ph.Type)
			}
			s.Phases = append(s.Phases, SkillPhase{
				Type:     ph.Type,
				Start:    seconds(ph.Start),
				End:      seconds(ph.End),
				Interval: seconds(ph.Interval),
				Power:    ph.Power,
				Radius:   ph.Radius,
				Speed:    ph.Speed,
				Heal:     ph.Heal,
			})
		}
		sortTimeline(s)
		t.skills[s.SkillID] = s
	}
	return t, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
