package network

import "sync"

// ReplayCache tracks the highest (seq, ivIndex) accepted from each source
// address, rejecting anything not strictly newer (spec.md's invariant:
// `seq > replayCache[src].seq ∨ ivIndex > replayCache[src].ivIndex`).
type ReplayCache struct {
	mu      sync.Mutex
	entries map[uint16]replayEntry
}

type replayEntry struct {
	seq     uint32
	ivIndex uint32
}

// NewReplayCache creates an empty replay cache.
func NewReplayCache() *ReplayCache {
	return &ReplayCache{entries: make(map[uint16]replayEntry)}
}

// Accept reports whether (src, seq, ivIndex) should be accepted, and if so
// records it as the new high-water mark for src.
func (c *ReplayCache) Accept(src uint16, seq, ivIndex uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev, ok := c.entries[src]
	if ok && seq <= prev.seq && ivIndex <= prev.ivIndex {
		return false
	}
	c.entries[src] = replayEntry{seq: seq, ivIndex: ivIndex}
	return true
}

// Forget removes the replay state for src, used when a node is reset or
// removed from the network.
func (c *ReplayCache) Forget(src uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, src)
}
