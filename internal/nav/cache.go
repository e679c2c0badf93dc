package nav

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

type pathKey struct {
	start, goal Cell
	mode        NeighborMode
}

func (k pathKey) hash() uint64 {
	var buf [28]byte
	binary.LittleEndian.PutUint32(buf[0:], uint32(k.start.X))
	binary.LittleEndian.PutUint32(buf[4:], uint32(k.start.Y))
	binary.LittleEndian.PutUint32(buf[8:], uint32(k.start.Z))
	binary.LittleEndian.PutUint32(buf[12:], uint32(k.goal.X))
	binary.LittleEndian.PutUint32(buf[16:], uint32(k.goal.Y))
	binary.LittleEndian.PutUint32(buf[20:], uint32(k.goal.Z))
	binary.LittleEndian.PutUint32(buf[24:], uint32(k.mode))
	return xxhash.Sum64(buf[:])
}

type cacheEntry struct {
	key   pathKey
	cells []Cell
}

// PathCache memoises searched cell paths, evicting the oldest insertion once
// full. Owned by one shard; not safe for concurrent use.
type PathCache struct {
	capacity int
	entries  map[uint64]cacheEntry
	order    []uint64
}

func NewPathCache(capacity int) *PathCache {
	return &PathCache{
		capacity: capacity,
		entries:  make(map[uint64]cacheEntry),
	}
}

// Get returns the cached path for key. Hash collisions are detected by
// comparing the stored key.
func (c *PathCache) Get(key pathKey) ([]Cell, bool) {
	if c.capacity <= 0 {
		return nil, false
	}
	e, ok := c.entries[key.hash()]
	if !ok || e.key != key {
		return nil, false
	}
	return e.cells, true
}

func (c *PathCache) Put(key pathKey, cells []Cell) {
	if c.capacity <= 0 {
		return
	}
	h := key.hash()
	if _, exists := c.entries[h]; !exists {
		if len(c.order) >= c.capacity {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, h)
	}
	c.entries[h] = cacheEntry{key: key, cells: cells}
}

func (c *PathCache) Len() int { return len(c.entries) }
