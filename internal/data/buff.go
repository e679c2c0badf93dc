package data

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Buff stack policies: what happens when a buff lands on a target that
// already carries it.
const (
	StackRefresh = "refresh" // reset remaining duration
	StackAdd     = "stack"   // add a stack up to MaxStacks, reset duration
	StackReplace = "replace" // remove the old instance, apply fresh
	StackIgnore  = "ignore"  // keep the old instance untouched
)

// BuffInfo is one buff template.
type BuffInfo struct {
	BuffID        int32
	Name          string
	Duration      time.Duration
	Interval      time.Duration // periodic tick, 0 = none
	Stack         string
	MaxStacks     int
	Dispellable   bool
	DamagePerTick int32
	HealPerTick   int32
	Attack        int32 // flat modifiers, per stack
	Defense       int32
	MoveSpeed     float32
}

// BuffTable holds buffs indexed by id.
type BuffTable struct {
	buffs map[int32]*BuffInfo
}

func (t *BuffTable) Get(id int32) *BuffInfo { return t.buffs[id] }
func (t *BuffTable) Count() int             { return len(t.buffs) }

// NewBuffTable builds a table from already constructed buffs.
func NewBuffTable(buffs ...*BuffInfo) *BuffTable {
	t := &BuffTable{buffs: make(map[int32]*BuffInfo, len(buffs))}
	for _, b := range buffs {
		t.buffs[b.BuffID] = b
	}
	return t
}

type buffEntry struct {
	BuffID        int32   `yaml:"buff_id"`
	Name          string  `yaml:"name"`
	Duration      float64 `yaml:"duration"`
	Interval      float64 `yaml:"interval"`
	Stack         string  `yaml:"stack"`
	MaxStacks     int     `yaml:"max_stacks"`
	Dispellable   bool    `yaml:"dispellable"`
	DamagePerTick int32   `yaml:"damage_per_tick"`
	HealPerTick   int32   `yaml:"heal_per_tick"`
	Attack        int32   `yaml:"attack"`
	Defense       int32   `yaml:"defense"`
	MoveSpeed     float32 `yaml:"move_speed"`
}

type buffListFile struct {
	Buffs []buffEntry `yaml:"buffs"`
}

// LoadBuffTable loads buff definitions from YAML.
func LoadBuffTable(path string) (*BuffTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read buffs: %w", err)
	}
	return ParseBuffTable(raw)
}

// ParseBuffTable parses buff YAML.
func ParseBuffTable(raw []byte) (*BuffTable, error) {
	var f buffListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse buffs: %w", err)
	}
	t := &BuffTable{buffs: make(map[int32]*BuffInfo, len(f.Buffs))}
	for _, e := range f.Buffs {
		stack := orDefault(e.Stack, StackRefresh)
		switch stack {
		case StackRefresh, StackAdd, StackReplace, StackIgnore:
		default:
			return nil, fmt.Errorf("buff %d: unknown stack policy %q", e.BuffID, e.Stack)
		}
		maxStacks := e.MaxStacks
		if maxStacks < 1 {
			maxStacks = 1
		}
		t.buffs[e.BuffID] = &BuffInfo{
			BuffID:        e.BuffID,
			Name:          e.Name,
			Duration:      seconds(e.Duration),
			Interval:      seconds(e.Interval),
			Stack:         stack,
			MaxStacks:     maxStacks,
			Dispellable:   e.Dispellable,
			DamagePerTick: e.DamagePerTick,
			HealPerTick:   e.HealPerTick,
			Attack:        e.Attack,
			Defense:       e.Defense,
			MoveSpeed:     e.MoveSpeed,
		}
	}
	return t, nil
}
