package dynamics

import (
	"math"

	"github.com/tandemdrive/tandem/pkg/core"
)

// Toe is the relative orientation of the two front wheels.
type Toe int

const (
	ToeNone Toe = iota
	// ToeIn: left wheel steers right, right wheel steers left.
	ToeIn
	// ToeOut: left wheel steers left, right wheel steers right.
	ToeOut
)

func (t Toe) String() string {
	switch t {
	case ToeIn:
		return "toe-in"
	case ToeOut:
		return "toe-out"
	default:
		return "none"
	}
}

// ClassifyToe reports toe-in when left > threshold and right < -threshold,
// toe-out for the mirror case. Angles at or below the threshold never count.
func ClassifyToe(steer [2]float64, threshold float64) Toe {
	left, right := steer[core.RoleLeft], steer[core.RoleRight]
	if math.Abs(left) <= threshold || math.Abs(right) <= threshold {
		return ToeNone
	}
	switch {
	case left > 0 && right < 0:
		return ToeIn
	case left < 0 && right > 0:
		return ToeOut
	default:
		return ToeNone
	}
}
