// Package dynamics is the arcade drivetrain, braking, reverse and stability
// model the authority runs once per physics tick.
package dynamics

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/tandemdrive/tandem/pkg/core"
)

// ForceMode selects how a force or torque is applied to a Body.
type ForceMode int

const (
	// Force is mass dependent, in newtons (or newton metres).
	Force ForceMode = iota
	// Acceleration ignores mass, in m/s² (or rad/s²).
	Acceleration
)

// Body is the rigid body capability the controller drives. Axes follow
// Right=+X, Up=+Y, Forward=+Z.
type Body interface {
	Pose() core.Pose
	// SetPose moves the body directly, used in kinematic mode.
	SetPose(core.Pose)
	Velocity() mgl64.Vec3
	SetVelocity(mgl64.Vec3)
	AngularVelocity() mgl64.Vec3
	SetAngularVelocity(mgl64.Vec3)
	Forward() mgl64.Vec3
	Up() mgl64.Vec3
	Right() mgl64.Vec3
	AddForce(f mgl64.Vec3, mode ForceMode)
	AddForceAtPosition(f, p mgl64.Vec3)
	// AddRelativeTorque applies a torque expressed in body space.
	AddRelativeTorque(t mgl64.Vec3, mode ForceMode)
	Kinematic() bool
	SetKinematic(bool)
}

// Contact describes a wheel touching the ground.
type Contact struct {
	Point mgl64.Vec3
	// Travel is the suspension compression ratio, 0 fully compressed, 1 fully extended.
	Travel float64
}

// Wheel is the wheel collider capability.
type Wheel interface {
	SteerAngle() float64
	SetSteerAngle(deg float64)
	SetMotorTorque(nm float64)
	SetBrakeTorque(nm float64)
	GroundHit() (Contact, bool)
	Position() mgl64.Vec3
}

// Wheels groups the four wheels. A nil wheel is skipped.
type Wheels struct {
	FrontLeft  Wheel
	FrontRight Wheel
	RearLeft   Wheel
	RearRight  Wheel
}

// Front returns the front wheels indexed by Role.
func (w Wheels) Front() [2]Wheel {
	return [2]Wheel{core.RoleLeft: w.FrontLeft, core.RoleRight: w.FrontRight}
}

// SetSteer applies per-role angles to the front wheels.
func (w Wheels) SetSteer(angles [2]float64) {
	for role, wheel := range w.Front() {
		if wheel != nil {
			wheel.SetSteerAngle(angles[role])
		}
	}
}

// Steer reads back the front wheel angles. Missing wheels read 0.
func (w Wheels) Steer() [2]float64 {
	var out [2]float64
	for role, wheel := range w.Front() {
		if wheel != nil {
			out[role] = wheel.SteerAngle()
		}
	}
	return out
}

func (w Wheels) all() []Wheel {
	return []Wheel{w.FrontLeft, w.FrontRight, w.RearLeft, w.RearRight}
}

// decompose splits v into its component along the unit axis and the rest.
func decompose(v, axis mgl64.Vec3) (along float64, rest mgl64.Vec3) {
	along = v.Dot(axis)
	return along, v.Sub(axis.Mul(along))
}
