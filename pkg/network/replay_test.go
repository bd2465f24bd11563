package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReplayCache_AcceptsStrictlyIncreasing(t *testing.T) {
	c := NewReplayCache()
	assert.True(t, c.Accept(0x0010, 1, 0))
	assert.True(t, c.Accept(0x0010, 2, 0))
	assert.False(t, c.Accept(0x0010, 2, 0), "non-increasing seq must be rejected")
	assert.False(t, c.Accept(0x0010, 1, 0), "replayed seq must be rejected")
}

func TestReplayCache_IVIndexAdvanceResetsSeqFloor(t *testing.T) {
	c := NewReplayCache()
	assert.True(t, c.Accept(0x0010, 100, 0))
	assert.True(t, c.Accept(0x0010, 5, 1), "lower seq under a higher IV Index is still newer")
}

func TestReplayCache_TracksPerSource(t *testing.T) {
	c := NewReplayCache()
	assert.True(t, c.Accept(0x0010, 5, 0))
	assert.True(t, c.Accept(0x0020, 1, 0), "different source starts its own sequence")
}

func TestReplayCache_Forget(t *testing.T) {
	c := NewReplayCache()
	assert.True(t, c.Accept(0x0010, 5, 0))
	c.Forget(0x0010)
	assert.True(t, c.Accept(0x0010, 1, 0), "forgotten source has no replay floor")
}
