// Package physics is a flat-ground rigid body car used to drive the
// dynamics controller outside a game engine. Only planar motion is
// simulated: vertical velocity is pinned to zero and roll and pitch are
// constrained.
package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/tandemdrive/tandem/internal/dynamics"
	"github.com/tandemdrive/tandem/pkg/core"
)

// Gravity in m/s².
const Gravity = 9.81

var (
	axisRight   = mgl64.Vec3{1, 0, 0}
	axisUp      = mgl64.Vec3{0, 1, 0}
	axisForward = mgl64.Vec3{0, 0, 1}
)

// Spec describes the car.
type Spec struct {
	MassKg      float64
	WheelRadius float64
	Wheelbase   float64
	TrackWidth  float64
	// YawInertia is the moment of inertia about the up axis, kg·m².
	YawInertia float64
	// RollingResistance is the rolling coefficient per wheel.
	RollingResistance float64
	// CorneringStiffness is the lateral force per m/s of wheel slip, per wheel.
	CorneringStiffness float64
	// Grip is the friction coefficient bounding lateral force.
	Grip float64
	// SuspensionTravel is the constant reported travel ratio on flat ground.
	SuspensionTravel float64
}

// DefaultSpec returns a mid-size car of the given mass.
func DefaultSpec(massKg float64) Spec {
	if massKg <= 0 {
		massKg = 1600
	}
	return Spec{
		MassKg:             massKg,
		WheelRadius:        0.35,
		Wheelbase:          2.6,
		TrackWidth:         1.6,
		YawInertia:         massKg * 1.5,
		RollingResistance:  0.015,
		CorneringStiffness: massKg * 2,
		Grip:               1.1,
		SuspensionTravel:   0.5,
	}
}

// Vehicle is a rigid body with four wheels. It implements dynamics.Body.
type Vehicle struct {
	spec      Spec
	pose      core.Pose
	vel       mgl64.Vec3
	angVel    mgl64.Vec3
	kinematic bool

	// accumulators cleared every step, world space
	force    mgl64.Vec3
	accel    mgl64.Vec3
	torque   mgl64.Vec3
	angAccel mgl64.Vec3

	fl, fr, rl, rr *Wheel
}

// NewVehicle places a car at pose.
func NewVehicle(spec Spec, pose core.Pose) *Vehicle {
	v := &Vehicle{spec: spec, pose: pose}
	halfTrack, halfBase := spec.TrackWidth/2, spec.Wheelbase/2
	v.fl = &Wheel{vehicle: v, local: mgl64.Vec3{-halfTrack, 0, halfBase}}
	v.fr = &Wheel{vehicle: v, local: mgl64.Vec3{halfTrack, 0, halfBase}}
	v.rl = &Wheel{vehicle: v, local: mgl64.Vec3{-halfTrack, 0, -halfBase}}
	v.rr = &Wheel{vehicle: v, local: mgl64.Vec3{halfTrack, 0, -halfBase}}
	return v
}

// Wheels returns the four wheels.
func (v *Vehicle) Wheels() dynamics.Wheels {
	return dynamics.Wheels{FrontLeft: v.fl, FrontRight: v.fr, RearLeft: v.rl, RearRight: v.rr}
}

func (v *Vehicle) Pose() core.Pose { return v.pose }

func (v *Vehicle) SetPose(p core.Pose) {
	p.Orientation = p.Orientation.Normalize()
	v.pose = p
}

func (v *Vehicle) Velocity() mgl64.Vec3            { return v.vel }
func (v *Vehicle) SetVelocity(vel mgl64.Vec3)      { v.vel = vel }
func (v *Vehicle) AngularVelocity() mgl64.Vec3     { return v.angVel }
func (v *Vehicle) SetAngularVelocity(w mgl64.Vec3) { v.angVel = w }
func (v *Vehicle) Forward() mgl64.Vec3             { return v.pose.Orientation.Rotate(axisForward) }
func (v *Vehicle) Up() mgl64.Vec3                  { return v.pose.Orientation.Rotate(axisUp) }
func (v *Vehicle) Right() mgl64.Vec3               { return v.pose.Orientation.Rotate(axisRight) }
func (v *Vehicle) Kinematic() bool                 { return v.kinematic }

// SetKinematic switches between simulated and directly posed. Entering
// kinematic mode drops pending forces.
func (v *Vehicle) SetKinematic(k bool) {
	v.kinematic = k
	v.clearAccumulators()
}

func (v *Vehicle) AddForce(f mgl64.Vec3, mode dynamics.ForceMode) {
	if v.kinematic {
		return
	}
	switch mode {
	case dynamics.Acceleration:
		v.accel = v.accel.Add(f)
	default:
		v.force = v.force.Add(f)
	}
}

func (v *Vehicle) AddForceAtPosition(f, p mgl64.Vec3) {
	if v.kinematic {
		return
	}
	v.force = v.force.Add(f)
	v.torque = v.torque.Add(p.Sub(v.pose.Position).Cross(f))
}

func (v *Vehicle) AddRelativeTorque(t mgl64.Vec3, mode dynamics.ForceMode) {
	if v.kinematic {
		return
	}
	world := v.pose.Orientation.Rotate(t)
	switch mode {
	case dynamics.Acceleration:
		v.angAccel = v.angAccel.Add(world)
	default:
		v.torque = v.torque.Add(world)
	}
}

func (v *Vehicle) clearAccumulators() {
	v.force = mgl64.Vec3{}
	v.accel = mgl64.Vec3{}
	v.torque = mgl64.Vec3{}
	v.angAccel = mgl64.Vec3{}
}

// Step integrates one tick with semi-implicit Euler. Kinematic bodies only
// drop their accumulators.
func (v *Vehicle) Step(dt float64) {
	if v.kinematic || dt <= 0 {
		v.clearAccumulators()
		return
	}

	for _, w := range []*Wheel{v.fl, v.fr, v.rl, v.rr} {
		v.applyTire(w, dt)
	}

	linear := v.force.Mul(1 / v.spec.MassKg).Add(v.accel)
	v.vel = v.vel.Add(linear.Mul(dt))
	v.vel[1] = 0

	yaw := v.angAccel.Y()
	if v.spec.YawInertia > 0 {
		yaw += v.torque.Y() / v.spec.YawInertia
	}
	v.angVel = mgl64.Vec3{0, v.angVel.Y() + yaw*dt, 0}

	v.pose.Position = v.pose.Position.Add(v.vel.Mul(dt))
	v.pose.Position[1] = 0
	turn := mgl64.QuatRotate(v.angVel.Y()*dt, axisUp)
	v.pose.Orientation = turn.Mul(v.pose.Orientation).Normalize()

	v.clearAccumulators()
}

// applyTire converts one wheel's torques and slip into a force at the contact.
func (v *Vehicle) applyTire(w *Wheel, dt float64) {
	heading := w.heading()
	side := heading.Cross(axisUp).Mul(-1)
	at := w.Position()
	contactVel := v.vel.Add(v.angVel.Cross(at.Sub(v.pose.Position)))

	vLong := contactVel.Dot(heading)
	vLat := contactVel.Dot(side)
	share := v.spec.MassKg / 4
	stop := func(speed float64) float64 { return math.Abs(speed) * share / dt }

	long := 0.0
	if v.spec.WheelRadius > 0 {
		long = w.motor / v.spec.WheelRadius
		resist := math.Abs(w.brake)/v.spec.WheelRadius + v.spec.RollingResistance*share*Gravity
		long -= math.Copysign(math.Min(resist, stop(vLong)), vLong)
	}

	lat := -vLat * v.spec.CorneringStiffness
	limit := math.Min(v.spec.Grip*share*Gravity, stop(vLat))
	lat = core.Clamp(lat, -limit, limit)

	v.AddForceAtPosition(heading.Mul(long).Add(side.Mul(lat)), at)
}

// Wheel is one wheel of a Vehicle. It implements dynamics.Wheel.
type Wheel struct {
	vehicle *Vehicle
	local   mgl64.Vec3
	steer   float64
	motor   float64
	brake   float64
}

func (w *Wheel) SteerAngle() float64       { return w.steer }
func (w *Wheel) SetSteerAngle(deg float64) { w.steer = deg }
func (w *Wheel) SetMotorTorque(nm float64) { w.motor = nm }
func (w *Wheel) SetBrakeTorque(nm float64) { w.brake = nm }
func (w *Wheel) MotorTorque() float64      { return w.motor }
func (w *Wheel) BrakeTorque() float64      { return w.brake }

// Position returns the wheel centre in world space.
func (w *Wheel) Position() mgl64.Vec3 {
	p := w.vehicle.pose
	return p.Position.Add(p.Orientation.Rotate(w.local))
}

// GroundHit always reports contact on flat ground.
func (w *Wheel) GroundHit() (dynamics.Contact, bool) {
	pos := w.Position()
	pos[1] -= w.vehicle.spec.WheelRadius
	return dynamics.Contact{Point: pos, Travel: w.vehicle.spec.SuspensionTravel}, true
}

// heading is the rolling direction of the wheel in world space. Positive
// steer turns toward +X.
func (w *Wheel) heading() mgl64.Vec3 {
	q := w.vehicle.pose.Orientation.Mul(mgl64.QuatRotate(mgl64.DegToRad(w.steer), axisUp))
	return q.Rotate(axisForward)
}
