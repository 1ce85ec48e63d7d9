package replication

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/tandemdrive/tandem/pkg/core"
)

// ErrEmptyBuffer is returned when sampling a buffer with no snapshots.
var ErrEmptyBuffer = errors.New("snapshot buffer is empty")

// ExtrapolationPolicy decides what happens once the target time is further
// past the newest snapshot than the extrapolation limit.
type ExtrapolationPolicy string

const (
	// PolicyFreeze holds the newest snapshot.
	PolicyFreeze ExtrapolationPolicy = "freeze"
	// PolicyClampToLimit extrapolates up to the limit and holds there.
	PolicyClampToLimit ExtrapolationPolicy = "clampToLimit"
)

// ParsePolicy validates a policy name. Empty selects PolicyFreeze.
func ParsePolicy(s string) (ExtrapolationPolicy, error) {
	switch ExtrapolationPolicy(s) {
	case "", PolicyFreeze:
		return PolicyFreeze, nil
	case PolicyClampToLimit:
		return PolicyClampToLimit, nil
	default:
		return "", fmt.Errorf("unknown extrapolation policy %q", s)
	}
}

// Placement says where the target time fell relative to the buffer.
type Placement int

const (
	Interpolated Placement = iota
	// BeforeOldest: target older than every snapshot, oldest returned.
	BeforeOldest
	Exact
	Extrapolated
	// Frozen: too far past the newest snapshot, newest held.
	Frozen
	// Clamped: extrapolated up to the limit only.
	Clamped
)

func (p Placement) String() string {
	switch p {
	case Interpolated:
		return "interpolated"
	case BeforeOldest:
		return "before-oldest"
	case Exact:
		return "exact"
	case Extrapolated:
		return "extrapolated"
	case Frozen:
		return "frozen"
	case Clamped:
		return "clamped"
	default:
		return "unknown"
	}
}

// Sample reconstructs the state at target time t from the buffer.
func Sample(b *Buffer, t, limit float64, policy ExtrapolationPolicy) (core.Snapshot, Placement, error) {
	oldest, ok := b.Oldest()
	if !ok {
		return core.Snapshot{}, Frozen, ErrEmptyBuffer
	}
	newest, _ := b.Newest()

	switch {
	case t < oldest.Timestamp:
		return oldest, BeforeOldest, nil
	case t == newest.Timestamp:
		return newest, Exact, nil
	case t > newest.Timestamp:
		dt := t - newest.Timestamp
		if dt <= limit {
			return extrapolate(newest, dt), Extrapolated, nil
		}
		if policy == PolicyClampToLimit && limit > 0 {
			return extrapolate(newest, limit), Clamped, nil
		}
		return newest, Frozen, nil
	}

	a, c := b.bracket(t)
	if t == a.Timestamp {
		return a, Exact, nil
	}
	alpha := (t - a.Timestamp) / (c.Timestamp - a.Timestamp)
	return interpolate(a, c, alpha, t), Interpolated, nil
}

func interpolate(a, b core.Snapshot, alpha, t float64) core.Snapshot {
	out := core.Snapshot{Timestamp: t}
	out.Position = lerpVec(a.Position, b.Position, alpha)
	out.Orientation = slerp(a.Orientation, b.Orientation, alpha)
	out.LinearVelocity = lerpVec(a.LinearVelocity, b.LinearVelocity, alpha)
	out.AngularVelocity = lerpVec(a.AngularVelocity, b.AngularVelocity, alpha)
	for _, r := range core.Roles {
		out.SteerAngle[r] = core.Lerp(a.SteerAngle[r], b.SteerAngle[r], alpha)
		out.Nitro[r] = core.Lerp(a.Nitro[r], b.Nitro[r], alpha)
	}
	// flags are discrete: take the older sample until the newer one is reached
	out.NitroActive = a.NitroActive
	return out
}

// extrapolate projects s forward by dt using its velocities.
func extrapolate(s core.Snapshot, dt float64) core.Snapshot {
	out := s
	out.Timestamp = s.Timestamp + dt
	out.Position = s.Position.Add(s.LinearVelocity.Mul(dt))
	if w := s.AngularVelocity.Len(); w > 0 {
		turn := mgl64.QuatRotate(w*dt, s.AngularVelocity.Mul(1/w))
		out.Orientation = turn.Mul(s.Orientation).Normalize()
	}
	return out
}

func lerpVec(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	t = core.Clamp01(t)
	return a.Add(b.Sub(a).Mul(t))
}

// slerp interpolates along the shortest arc.
func slerp(a, b mgl64.Quat, t float64) mgl64.Quat {
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl64.QuatSlerp(a, b, core.Clamp01(t)).Normalize()
}

// angleBetween returns the rotation angle in degrees between two orientations.
func angleBetween(a, b mgl64.Quat) float64 {
	d := a.Normalize().Dot(b.Normalize())
	if d < 0 {
		d = -d
	}
	return mgl64.RadToDeg(2 * acosClamped(d))
}
