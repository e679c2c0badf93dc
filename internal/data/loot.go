package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LootItem represents a single possible drop.
type LootItem struct {
	ItemID int32 `yaml:"item_id"`
	Min    int32 `yaml:"min"`
	Max    int32 `yaml:"max"`
	Chance int   `yaml:"chance"` // out of 1,000,000 (100% = 1000000)
}

type lootEntry struct {
	LootID int32      `yaml:"loot_id"`
	Items  []LootItem `yaml:"items"`
}

type lootListFile struct {
	Loot []lootEntry `yaml:"loot"`
}

// LootTable holds loot lists indexed by loot table id.
type LootTable struct {
	lists map[int32][]LootItem
}

// Get returns the loot list, or nil if none defined.
func (t *LootTable) Get(id int32) []LootItem {
	return t.lists[id]
}

// Count returns the number of loot lists.
func (t *LootTable) Count() int {
	return len(t.lists)
}

// NewLootTable builds a table from a map of lists.
func NewLootTable(lists map[int32][]LootItem) *LootTable {
	return &LootTable{lists: lists}
}

// LoadLootTable loads loot lists from a YAML file.
func LoadLootTable(path string) (*LootTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read loot_list: %w", err)
	}
	return ParseLootTable(raw)
}

// ParseLootTable parses loot YAML.
func ParseLootTable(raw []byte) (*LootTable, error) {
	var f lootListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse loot_list: %w", err)
	}
	t := &LootTable{lists: make(map[int32][]LootItem, len(f.Loot))}
	for _, entry := range f.Loot {
		t.lists[entry.LootID] = entry.Items
	}
	return t, nil
}
