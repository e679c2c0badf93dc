package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1jgo/worldcore/internal/geom"
	"github.com/l1jgo/worldcore/internal/nav"
)

const sample = `# two floors
voxel 0.5
origin 10 0 -4
layer 0
....
.xx.
layer 1
x..x
xxxx
`

func TestParseLayout(t *testing.T) {
	vol, walkable, err := parseLayout(strings.NewReader(sample))
	require.NoError(t, err)
	assert.Equal(t, 8, walkable)

	x, y, z := vol.Size()
	assert.Equal(t, []int{4, 2, 2}, []int{x, y, z})
	assert.Equal(t, geom.V(10, 0, -4), vol.Origin())
	assert.Equal(t, float32(0.5), vol.VoxelSize())

	assert.True(t, vol.IsValid(nav.Cell{X: 0, Y: 0, Z: 0}))
	assert.False(t, vol.IsValid(nav.Cell{X: 1, Y: 0, Z: 1}))
	assert.True(t, vol.IsValid(nav.Cell{X: 1, Y: 1, Z: 0}))
}

func TestParsedLayoutSurvivesBlob(t *testing.T) {
	vol, _, err := parseLayout(strings.NewReader(sample))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, nav.WriteVolume(&buf, vol))
	back, err := nav.ReadVolume(&buf)
	require.NoError(t, err)
	assert.True(t, back.IsValid(nav.Cell{X: 3, Y: 0, Z: 1}))
	assert.False(t, back.IsValid(nav.Cell{X: 0, Y: 1, Z: 0}))
}

func TestParseLayoutErrors(t *testing.T) {
	for name, src := range map[string]string{
		"empty":         "# nothing\n",
		"row before":    "....\n",
		"ragged row":    "layer 0\n...\n..\n",
		"layer skipped": "layer 1\n..\n",
		"bad voxel":     "voxel -1\nlayer 0\n.\n",
		"depth differs": "layer 0\n..\n..\nlayer 1\n..\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := parseLayout(strings.NewReader(src))
			assert.Error(t, err)
		})
	}
}
