package region

import "fmt"

// Kind distinguishes persistent regions from dungeon instances.
type Kind uint8

const (
	KindRegion Kind = iota + 1
	KindDungeon
)

func (k Kind) String() string {
	switch k {
	case KindRegion:
		return "region"
	case KindDungeon:
		return "dungeon"
	}
	return "unknown"
}

// ParseKind reads the shard kind from config. Empty means region.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "", "region":
		return KindRegion, nil
	case "dungeon":
		return KindDungeon, nil
	}
	return 0, fmt.Errorf("unknown shard kind %q", s)
}
