package peer

import "math"

// InputState is the raw local input for one update. Arrays are indexed by
// role; a networked peer only reads the entry of its own role.
type InputState struct {
	// Steer axis per wheel in [-1, 1], positive right.
	Steer [2]float64
	Nitro [2]bool
	Brake bool
}

// Input produces the local input at session time now.
type Input interface {
	Read(now float64) InputState
}

// InputFunc adapts a function to Input.
type InputFunc func(now float64) InputState

func (f InputFunc) Read(now float64) InputState { return f(now) }

// Idle is an Input that never steers or boosts.
var Idle = InputFunc(func(float64) InputState { return InputState{} })

// Weave is a scripted driver: both wheels follow the same sine so the car
// weaves without toe, and nitro is held for NitroFor seconds out of every
// NitroEvery.
type Weave struct {
	Amplitude  float64
	Period     float64
	NitroEvery float64
	NitroFor   float64
}

// Read implements Input.
func (w Weave) Read(now float64) InputState {
	var in InputState
	if w.Period > 0 {
		axis := w.Amplitude * math.Sin(2*math.Pi*now/w.Period)
		in.Steer = [2]float64{axis, axis}
	}
	if w.NitroEvery > 0 && math.Mod(now, w.NitroEvery) < w.NitroFor {
		in.Nitro = [2]bool{true, true}
	}
	return in
}
