package dynamics

import (
	"fmt"
	"math"

	"github.com/tandemdrive/tandem/pkg/core"
)

// Drive carries one acceleration request to a Strategy. Target and Speed are
// magnitudes in m/s; Direction is +1 for forward and -1 for reverse.
type Drive struct {
	Body      Body
	Dt        float64
	Target    float64
	Speed     float64
	Direction float64

	MaxMotor          float64
	Kp                float64
	TorqueMultiplier  float64
	FullThrottleUntil float64
	ExtraAcceleration float64
	SnapPerSecond     float64
}

// Strategy turns a Drive into motor torque, possibly also acting on the body.
type Strategy interface {
	Name() string
	Accelerate(d Drive) float64
}

// Strategy names accepted by ParseStrategy.
const (
	StrategyTorque       = "torque"
	StrategyForceBoost   = "forceBoost"
	StrategyVelocitySnap = "velocitySnap"
)

// ParseStrategy returns the strategy with the given name.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case StrategyTorque:
		return Torque{}, nil
	case StrategyForceBoost:
		return ForceBoost{}, nil
	case StrategyVelocitySnap:
		return VelocitySnap{}, nil
	default:
		return nil, fmt.Errorf("unknown acceleration mode %q", name)
	}
}

func (d Drive) ratio() float64 {
	if d.Target <= 0.001 {
		return 1
	}
	return core.Clamp01(d.Speed / d.Target)
}

// Torque applies full torque until the speed ratio reaches FullThrottleUntil,
// then torque proportional to the remaining error.
type Torque struct{}

func (Torque) Name() string { return StrategyTorque }

func (Torque) Accelerate(d Drive) float64 {
	if d.ratio() < d.FullThrottleUntil {
		return d.Direction * d.MaxMotor * d.TorqueMultiplier
	}
	err := math.Max(0, d.Target-d.Speed)
	return d.Direction * core.Clamp(err*d.Kp, 0, d.MaxMotor) * d.TorqueMultiplier
}

// ForceBoost applies full torque plus a constant extra acceleration in the
// travel direction while below target, and nothing once at target.
type ForceBoost struct{}

func (ForceBoost) Name() string { return StrategyForceBoost }

func (ForceBoost) Accelerate(d Drive) float64 {
	if d.ratio() >= 1 {
		return 0
	}
	if d.Body != nil {
		d.Body.AddForce(d.Body.Forward().Mul(d.Direction*d.ExtraAcceleration), Acceleration)
	}
	return d.Direction * d.MaxMotor * d.TorqueMultiplier
}

// VelocitySnap moves the forward velocity component toward the target by at
// most SnapPerSecond*Dt, keeping the lateral component, and returns a low
// nominal torque so the wheels still spin.
type VelocitySnap struct{}

func (VelocitySnap) Name() string { return StrategyVelocitySnap }

const snapNominalTorque = 0.25

func (VelocitySnap) Accelerate(d Drive) float64 {
	if d.Body != nil {
		fwd := d.Body.Forward()
		along, lateral := decompose(d.Body.Velocity(), fwd)
		directed := d.Direction * along
		next := math.Min(directed+d.SnapPerSecond*d.Dt, d.Target)
		d.Body.SetVelocity(lateral.Add(fwd.Mul(d.Direction * next)))
	}
	return d.Direction * d.MaxMotor * snapNominalTorque
}
