package clock_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/clock"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/utils/config"
)

func TestClockAdvance(t *testing.T) {
	c := clock.New(config.Control{Days: 2})
	assert.False(t, c.Done())
	assert.Equal(t, "Day 0/2", c.String())
	c.Next()
	c.Next()
	assert.True(t, c.Done())
	assert.Equal(t, int32(2), c.Elapsed())
	c.Init()
	assert.Equal(t, int32(0), c.Day)
}
