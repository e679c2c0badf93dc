package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server     ServerConfig     `toml:"server"`
	Simulation SimulationConfig `toml:"simulation"`
	Actor      ActorConfig      `toml:"actor"`
	AOI        AOIConfig        `toml:"aoi"`
	Nav        NavConfig        `toml:"nav"`
	AI         AIConfig         `toml:"ai"`
	Data       DataConfig       `toml:"data"`
	Scripting  ScriptingConfig  `toml:"scripting"`
	Shards     []ShardConfig    `toml:"shards"`
	Logging    LoggingConfig    `toml:"logging"`
}

type ServerConfig struct {
	Name      string `toml:"name"`
	ID        int    `toml:"id"`
	StartTime int64  // set at boot, not from config
}

type SimulationConfig struct {
	TickRate          time.Duration `toml:"tick_rate"`
	MaxIntentsPerTick int           `toml:"max_intents_per_tick"`
	Seed              int64         `toml:"seed"`
	CorpseDelay       time.Duration `toml:"corpse_delay"`
	LootTimeout       time.Duration `toml:"loot_timeout"`
	MoveTolerance     float32       `toml:"move_tolerance"` // metres of slack on client moves
}

type ActorConfig struct {
	MailboxSize     int           `toml:"mailbox_size"`
	SubscriberQueue int           `toml:"subscriber_queue"`
	SweepInterval   time.Duration `toml:"sweep_interval"`
	InactiveAfter   time.Duration `toml:"inactive_after"`
}

type AOIConfig struct {
	CellSize float32 `toml:"cell_size"`
	Radius   int     `toml:"radius"` // in cells; 1 = 3x3 neighbourhood
}

type NavConfig struct {
	VolumePath      string  `toml:"volume_path"`
	NeighborMode    int     `toml:"neighbor_mode"` // 6, 18 or 26
	MaxExpansions   int     `toml:"max_expansions"`
	LOSStep         float32 `toml:"los_step"`
	HeuristicScale  float32 `toml:"heuristic_scale"`
	SnapMaxDelta    int     `toml:"snap_max_delta"` // voxels searched up/down when projecting height
	DirectTolerance float32 `toml:"direct_tolerance"`
	PathCacheSize   int     `toml:"path_cache_size"`
}

type AIConfig struct {
	LeashDistance  float32       `toml:"leash_distance"`
	PatrolRadius   float32       `toml:"patrol_radius"`
	IdleMin        time.Duration `toml:"idle_min"`
	IdleMax        time.Duration `toml:"idle_max"`
	SightRange     float32       `toml:"sight_range"`
	FOVDegrees     float32       `toml:"fov_degrees"`
	AttackRange    float32       `toml:"attack_range"`
	ReplanDistance float32       `toml:"replan_distance"`
}

type DataConfig struct {
	Skills   string `toml:"skills"`
	Buffs    string `toml:"buffs"`
	Monsters string `toml:"monsters"`
	Spawns   string `toml:"spawns"`
	Loot     string `toml:"loot"`
}

type ScriptingConfig struct {
	Dir string `toml:"dir"`
}

// ShardConfig declares one world shard started at boot.
type ShardConfig struct {
	ID   uint32 `toml:"id"`
	Kind string `toml:"kind"` // "region" or "dungeon"
	Name string `toml:"name"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

// Parse decodes TOML over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if len(cfg.Shards) == 0 {
		cfg.Shards = Defaults().Shards
	}
	return cfg, nil
}

// TickMs is the tick length in whole milliseconds, used by cooldown math.
func (c *SimulationConfig) TickMs() int64 {
	ms := c.TickRate.Milliseconds()
	if ms <= 0 {
		return 1
	}
	return ms
}

func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name: "worldcore",
			ID:   1,
		},
		Simulation: SimulationConfig{
			TickRate:          100 * time.Millisecond,
			MaxIntentsPerTick: 4096,
			Seed:              1,
			CorpseDelay:       5 * time.Second,
			LootTimeout:       30 * time.Second,
			MoveTolerance:     0.5,
		},
		Actor: ActorConfig{
			MailboxSize:     256,
			SubscriberQueue: 8,
			SweepInterval:   10 * time.Second,
			InactiveAfter:   30 * time.Second,
		},
		AOI: AOIConfig{
			CellSize: 20,
			Radius:   1,
		},
		Nav: NavConfig{
			VolumePath:      "data/nav/world.nav",
			NeighborMode:    26,
			MaxExpansions:   20000,
			LOSStep:         0.5,
			HeuristicScale:  1.0,
			SnapMaxDelta:    4,
			DirectTolerance: 0.5,
			PathCacheSize:   256,
		},
		AI: AIConfig{
			LeashDistance:  30,
			PatrolRadius:   8,
			IdleMin:        2 * time.Second,
			IdleMax:        6 * time.Second,
			SightRange:     12,
			FOVDegrees:     120,
			AttackRange:    2,
			ReplanDistance: 2,
		},
		Data: DataConfig{
			Skills:   "data/yaml/skill_list.yaml",
			Buffs:    "data/yaml/buff_list.yaml",
			Monsters: "data/yaml/monster_list.yaml",
			Spawns:   "data/yaml/spawn_list.yaml",
			Loot:     "data/yaml/loot_list.yaml",
		},
		Scripting: ScriptingConfig{
			Dir: "scripts",
		},
		Shards: []ShardConfig{
			{ID: 1, Kind: "region", Name: "overworld"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
