package scripting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestShippedScripts(t *testing.T) {
	e, err := NewEngine("../../scripts", zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	amount, ok := e.CalcSkillDamage(DamageContext{Power: 10, AttackerLevel: 5, Attack: 8, TargetLevel: 5, Defense: 4})
	require.True(t, ok)
	assert.Equal(t, int32(16), amount) // 10 + 8 - 2

	heal, ok := e.CalcSkillDamage(DamageContext{Power: 20, Heal: true, AttackerLevel: 4, TargetHP: 90, TargetMaxHP: 100})
	require.True(t, ok)
	assert.Equal(t, int32(10), heal, "heal is capped at missing hp")

	assert.Equal(t, int32(9), e.CalcBuffTick(3, 3))
}

func TestMissingFunctionFallsBack(t *testing.T) {
	e, err := NewEngineFromString(`x = 1`, zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	_, ok := e.CalcSkillDamage(DamageContext{Power: 5})
	assert.False(t, ok)
	assert.Equal(t, int32(8), e.CalcBuffTick(4, 2))
}

func TestScriptErrorIsContained(t *testing.T) {
	e, err := NewEngineFromString(`
function calc_skill_damage(ctx) error("boom") end
function calc_buff_tick(power, stacks) error("boom") end
`, zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	assert.True(t, e.Has("calc_skill_damage"))
	_, ok := e.CalcSkillDamage(DamageContext{Power: 5})
	assert.False(t, ok)
	assert.Equal(t, int32(6), e.CalcBuffTick(3, 2), "failed script falls back to power*stacks")
}

func TestBadSource(t *testing.T) {
	_, err := NewEngineFromString(`function (`, zap.NewNop())
	assert.Error(t, err)
}
