package data

import "github.com/l1jgo/worldcore/internal/config"

// Tables bundles every immutable lookup table the simulation reads.
type Tables struct {
	Skills   *SkillTable
	Buffs    *BuffTable
	Monsters *MonsterTable
	Spawns   []SpawnEntry
	Loot     *LootTable
}

// LoadTables loads all YAML tables named in cfg.
func LoadTables(cfg config.DataConfig) (*Tables, error) {
	skills, err := LoadSkillTable(cfg.Skills)
	if err != nil {
		return nil, err
	}
	buffs, err := LoadBuffTable(cfg.Buffs)
	if err != nil {
		return nil, err
	}
	monsters, err := LoadMonsterTable(cfg.Monsters)
	if err != nil {
		return nil, err
	}
	spawns, err := LoadSpawnList(cfg.Spawns)
	if err != nil {
		return nil, err
	}
	loot, err := LoadLootTable(cfg.Loot)
	if err != nil {
		return nil, err
	}
	return &Tables{Skills: skills, Buffs: buffs, Monsters: monsters, Spawns: spawns, Loot: loot}, nil
}

// SpawnsFor returns the spawn entries of one shard, in file order.
func (t *Tables) SpawnsFor(shard uint32) []SpawnEntry {
	var out []SpawnEntry
	for _, s := range t.Spawns {
		if s.Shard == shard {
			out = append(out, s)
		}
	}
	return out
}
