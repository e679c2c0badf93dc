package component

// SessionRef links a player entity to the session that drives it.
// This is a reference, not the session itself; sessions live outside the core.
type SessionRef struct {
	PlayerID  uint64
	SessionID uint64
}
