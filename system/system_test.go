package system

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshot(t *testing.T) {
	s := Snapshot()
	assert.Positive(t, s.Goroutines)
	assert.Positive(t, s.SysMB)
	if len(s.Errors) == 0 {
		assert.GreaterOrEqual(t, s.MemoryPercent, 0.0)
		assert.LessOrEqual(t, s.MemoryPercent, 100.0)
	}
}
