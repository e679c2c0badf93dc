package data

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// MonsterTemplate holds static data for a monster type loaded from YAML.
type MonsterTemplate struct {
	MonsterID   int32   `yaml:"monster_id"`
	Name        string  `yaml:"name"`
	Level       int32   `yaml:"level"`
	HP          int32   `yaml:"hp"`
	MP          int32   `yaml:"mp"`
	Attack      int32   `yaml:"attack"`
	Defense     int32   `yaml:"defense"`
	Speed       float32 `yaml:"speed"` // metres per second
	Exp         int64   `yaml:"exp"`
	Aggressive  bool    `yaml:"aggressive"`
	SightRange  float32 `yaml:"sight_range"`
	AttackRange float32 `yaml:"attack_range"`
	Leash       float32 `yaml:"leash"`
	Respawn     float64 `yaml:"respawn"` // seconds
	LootTable   int32   `yaml:"loot_table"`
	Skills      []int32 `yaml:"skills"` // tried in order when attacking
}

// RespawnDelay returns the respawn delay as a Duration.
func (m *MonsterTemplate) RespawnDelay() time.Duration { return seconds(m.Respawn) }

type monsterListFile struct {
	Monsters []MonsterTemplate `yaml:"monsters"`
}

// MonsterTable holds monster templates indexed by MonsterID.
type MonsterTable struct {
	templates map[int32]*MonsterTemplate
}

// LoadMonsterTable loads monster templates from YAML.
func LoadMonsterTable(path string) (*MonsterTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read monster_list: %w", err)
	}
	return ParseMonsterTable(raw)
}

// ParseMonsterTable parses monster YAML.
func ParseMonsterTable(raw []byte) (*MonsterTable, error) {
	var f monsterListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse monster_list: %w", err)
	}
	t := &MonsterTable{templates: make(map[int32]*MonsterTemplate, len(f.Monsters))}
	for i := range f.Monsters {
		m := &f.Monsters[i]
		if m.HP <= 0 {
			return nil, fmt.Errorf("monster %d: hp must be positive", m.MonsterID)
		}
		t.templates[m.MonsterID] = m
	}
	return t, nil
}

// NewMonsterTable builds a table from already constructed templates.
func NewMonsterTable(ms ...*MonsterTemplate) *MonsterTable {
	t := &MonsterTable{templates: make(map[int32]*MonsterTemplate, len(ms))}
	for _, m := range ms {
		t.templates[m.MonsterID] = m
	}
	return t
}

// Get returns a template by ID, or nil if not found.
func (t *MonsterTable) Get(id int32) *MonsterTemplate {
	return t.templates[id]
}

// Count returns total loaded templates.
func (t *MonsterTable) Count() int {
	return len(t.templates)
}

// SpawnEntry defines where and how many monsters to spawn in a shard.
type SpawnEntry struct {
	MonsterID int32   `yaml:"monster_id"`
	Shard     uint32  `yaml:"shard"`
	X         float32 `yaml:"x"`
	Y         float32 `yaml:"y"`
	Z         float32 `yaml:"z"`
	Count     int     `yaml:"count"`
	Scatter   float32 `yaml:"scatter"` // metres around the point
}

type spawnListFile struct {
	Spawns []SpawnEntry `yaml:"spawns"`
}

// LoadSpawnList loads monster spawn definitions from YAML.
func LoadSpawnList(path string) ([]SpawnEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spawn_list: %w", err)
	}
	return ParseSpawnList(raw)
}

// ParseSpawnList parses spawn YAML.
func ParseSpawnList(raw []byte) ([]SpawnEntry, error) {
	var f spawnListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse spawn_list: %w", err)
	}
	for i := range f.Spawns {
		if f.Spawns[i].Count <= 0 {
			f.Spawns[i].Count = 1
		}
	}
	return f.Spawns, nil
}
