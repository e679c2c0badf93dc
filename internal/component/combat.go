package component

import "github.com/l1jgo/worldcore/internal/core/ecs"

// Combat holds live combat stats. Bonus fields are buff modifiers applied on
// add and reverted on remove.
type Combat struct {
	HP    int32
	MaxHP int32
	MP    int32
	MaxMP int32

	Attack       int32
	Defense      int32
	AttackBonus  int32
	DefenseBonus int32

	Dead         bool
	LastAttacker ecs.EntityID
}

// TotalAttack is attack including buffs.
func (c *Combat) TotalAttack() int32 { return c.Attack + c.AttackBonus }

// TotalDefense is defense including buffs.
func (c *Combat) TotalDefense() int32 { return c.Defense + c.DefenseBonus }

// SkillBook lists the skills an entity may cast.
type SkillBook struct {
	Skills []int32
}

// Knows reports whether skill is in the book.
func (b *SkillBook) Knows(skill int32) bool {
	for _, s := range b.Skills {
		if s == skill {
			return true
		}
	}
	return false
}
