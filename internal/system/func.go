package system

import (
	"time"

	coresys "github.com/l1jgo/worldcore/internal/core/system"
)

// Func adapts a plain function to a system of the given phase.
type Func struct {
	P  coresys.Phase
	Fn func(dt time.Duration)
}

func (f Func) Phase() coresys.Phase    { return f.P }
func (f Func) Update(dt time.Duration) { f.Fn(dt) }
