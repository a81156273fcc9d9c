package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFor(t *testing.T) {
	cases := map[int]int{
		math.MinInt: 0, -5: 0, 0: 0, 9: 0,
		10: 1, 24: 1,
		25: 2, 49: 2,
		50: 3, 74: 3,
		75: 4, 99: 4,
		100: 5, 1000: 5, math.MaxInt: 5,
	}
	for experience, want := range cases {
		assert.Equal(t, want, LevelFor(experience), "experience %d", experience)
	}
}

func TestLevelForIsMonotonic(t *testing.T) {
	prev := LevelFor(-1)
	for e := 0; e <= 150; e++ {
		level := LevelFor(e)
		assert.GreaterOrEqual(t, level, prev)
		prev = level
	}
}
