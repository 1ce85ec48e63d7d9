package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMoveTowards(t *testing.T) {
	tests := []struct {
		name                      string
		current, target, maxDelta float64
		want                      float64
	}{
		{"step up", 0, 10, 3, 3},
		{"step down", 0, -10, 3, -3},
		{"reaches target", 9, 10, 3, 10},
		{"already there", 5, 5, 1, 5},
		{"zero delta", 1, 5, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, MoveTowards(tt.current, tt.target, tt.maxDelta), 1e-9)
		})
	}
}

func TestSpeedConversion(t *testing.T) {
	assert.InDelta(t, 30.0, MsToKmh(KmhToMs(30)), 1e-9)
	assert.InDelta(t, 10.0, KmhToMs(36), 1e-9)
}

func TestInverseLerp(t *testing.T) {
	assert.Equal(t, 0.0, InverseLerp(30, 100, 10))
	assert.Equal(t, 1.0, InverseLerp(30, 100, 150))
	assert.InDelta(t, 0.5, InverseLerp(30, 100, 65), 1e-9)
	assert.Equal(t, 0.0, InverseLerp(5, 5, 5))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, -1.0, Clamp(-4, -1, 1))
	assert.Equal(t, 1.0, Clamp(4, -1, 1))
	assert.Equal(t, 0.25, Clamp01(0.25))
}
