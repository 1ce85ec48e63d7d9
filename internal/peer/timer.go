package peer

// Timer fires every n ticks. It replaces sleeps inside the update loop.
type Timer struct {
	every int
	count int
}

// NewTimer creates a Timer firing on every n-th Tick. n < 1 never fires.
func NewTimer(n int) *Timer {
	return &Timer{every: n}
}

// Tick advances the timer and reports whether it fired.
func (t *Timer) Tick() bool {
	if t.every < 1 {
		return false
	}
	t.count++
	if t.count >= t.every {
		t.count = 0
		return true
	}
	return false
}

// Reset restarts the count.
func (t *Timer) Reset() { t.count = 0 }

// Accumulator turns variable frame times into a whole number of fixed
// physics steps.
type Accumulator struct {
	Step     float64
	MaxFrame float64
	acc      float64
}

// Advance adds a frame of dt seconds, clamped to MaxFrame, and returns how
// many fixed steps are due.
func (a *Accumulator) Advance(dt float64) int {
	if a.Step <= 0 || dt <= 0 {
		return 0
	}
	if a.MaxFrame > 0 && dt > a.MaxFrame {
		dt = a.MaxFrame
	}
	a.acc += dt
	n := 0
	for a.acc >= a.Step-1e-12 {
		a.acc -= a.Step
		n++
	}
	if a.acc < 0 {
		a.acc = 0
	}
	return n
}

// Reset drops the leftover time.
func (a *Accumulator) Reset() { a.acc = 0 }
