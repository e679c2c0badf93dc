package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[simulation]
tick_rate = "50ms"

[aoi]
radius = 2

[[shards]]
id = 7
kind = "dungeon"
name = "crypt"
`))
	require.NoError(t, err)

	assert.Equal(t, 50*time.Millisecond, cfg.Simulation.TickRate)
	assert.Equal(t, int64(50), cfg.Simulation.TickMs())
	assert.Equal(t, 2, cfg.AOI.Radius)
	assert.Equal(t, float32(20), cfg.AOI.CellSize, "untouched keys keep defaults")
	require.Len(t, cfg.Shards, 1)
	assert.Equal(t, "dungeon", cfg.Shards[0].Kind)
}

func TestParseEmptyKeepsDefaultShard(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	require.Len(t, cfg.Shards, 1)
	assert.Equal(t, uint32(1), cfg.Shards[0].ID)
	assert.Equal(t, 26, cfg.Nav.NeighborMode)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte("[simulation\ntick_rate = "))
	assert.Error(t, err)
}
