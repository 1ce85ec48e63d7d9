package physics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tandemdrive/tandem/internal/config"
	"github.com/tandemdrive/tandem/internal/dynamics"
	"github.com/tandemdrive/tandem/pkg/core"
)

var _ dynamics.Body = (*Vehicle)(nil)
var _ dynamics.Wheel = (*Wheel)(nil)

func TestVehicle_AccelerationForce(t *testing.T) {
	v := NewVehicle(DefaultSpec(1600), core.IdentityPose())

	v.AddForce(mgl64.Vec3{0, 0, 10}, dynamics.Acceleration)
	v.Step(0.1)

	assert.InDelta(t, 1.0, v.Velocity().Z(), 1e-9)
	assert.Zero(t, v.Velocity().Y())
	assert.Greater(t, v.Pose().Position.Z(), 0.0)
}

func TestVehicle_MotorTorqueDrives(t *testing.T) {
	v := NewVehicle(DefaultSpec(1600), core.IdentityPose())
	w := v.Wheels()
	w.RearLeft.SetMotorTorque(300)
	w.RearRight.SetMotorTorque(300)

	for i := 0; i < 100; i++ {
		v.Step(0.01)
	}
	// 2*300/0.35 N minus rolling resistance over 1600 kg for 1 s
	want := (600/0.35 - 4*0.015*400*Gravity) / 1600
	assert.InDelta(t, want, v.Velocity().Z(), 0.01)
	assert.InDelta(t, 0, v.AngularVelocity().Y(), 1e-9)
}

func TestVehicle_BrakeNeverReverses(t *testing.T) {
	v := NewVehicle(DefaultSpec(1600), core.IdentityPose())
	v.SetVelocity(mgl64.Vec3{0, 0, 1})
	for _, w := range []dynamics.Wheel{v.fl, v.fr, v.rl, v.rr} {
		w.SetBrakeTorque(5000)
	}

	for i := 0; i < 50; i++ {
		v.Step(0.01)
	}
	assert.InDelta(t, 0, v.Velocity().Len(), 1e-9)
}

func TestVehicle_KinematicIgnoresForces(t *testing.T) {
	v := NewVehicle(DefaultSpec(1600), core.IdentityPose())
	v.SetKinematic(true)

	v.AddForce(mgl64.Vec3{0, 0, 1000}, dynamics.Force)
	v.AddRelativeTorque(mgl64.Vec3{0, 10, 0}, dynamics.Acceleration)
	v.Step(0.1)

	assert.Equal(t, mgl64.Vec3{}, v.Velocity())
	assert.Equal(t, mgl64.Vec3{}, v.AngularVelocity())

	target := core.Pose{Position: mgl64.Vec3{1, 0, 2}, Orientation: mgl64.QuatRotate(0.5, mgl64.Vec3{0, 1, 0})}
	v.SetPose(target)
	assert.Equal(t, target.Position, v.Pose().Position)
}

func TestVehicle_PositiveYawTurnsRight(t *testing.T) {
	v := NewVehicle(DefaultSpec(1600), core.IdentityPose())
	v.AddRelativeTorque(mgl64.Vec3{0, 1, 0}, dynamics.Acceleration)
	v.Step(0.1)

	assert.Greater(t, v.AngularVelocity().Y(), 0.0)
	assert.Greater(t, v.Forward().X(), 0.0)
	assert.Zero(t, v.AngularVelocity().X())
	assert.Zero(t, v.AngularVelocity().Z())
}

func TestVehicle_SteeredWheelsTurnCar(t *testing.T) {
	v := NewVehicle(DefaultSpec(1600), core.IdentityPose())
	v.SetVelocity(mgl64.Vec3{0, 0, 8})
	w := v.Wheels()
	w.SetSteer([2]float64{15, 15})

	for i := 0; i < 100; i++ {
		v.Step(0.01)
	}
	assert.Greater(t, v.Pose().Position.X(), 0.0, "positive steer turns toward +X")
}

func TestWheel_GroundHit(t *testing.T) {
	v := NewVehicle(DefaultSpec(1600), core.IdentityPose())
	hit, ok := v.fl.GroundHit()
	require.True(t, ok)
	assert.InDelta(t, 0.5, hit.Travel, 1e-9)
	assert.InDelta(t, -0.35, hit.Point.Y(), 1e-9)
	assert.InDelta(t, -0.8, v.fl.Position().X(), 1e-9)
}

// The authority at rest with a 30 km/h cruise target settles inside the
// deadzone without ever braking.
func TestCruiseSettlesWithinDeadzone(t *testing.T) {
	cfg := config.Defaults()
	require.Equal(t, "forceBoost", cfg.Dynamics.AccelMode)

	car := NewVehicle(DefaultSpec(cfg.Dynamics.MassKg), core.IdentityPose())
	ctrl, err := dynamics.NewController(cfg.Dynamics, cfg.Steering, car, car.Wheels())
	require.NoError(t, err)

	const step = 0.01
	target := core.KmhToMs(30)
	deadzone := cfg.Dynamics.SpeedDeadzone

	var outs []dynamics.Output
	for i := 0; i < 1500; i++ {
		outs = append(outs, ctrl.Step(dynamics.Input{TargetSpeed: target}, step))
		car.Step(step)
	}

	for _, out := range outs {
		assert.Zero(t, out.BrakeTorque)
	}
	for _, out := range outs[len(outs)-200:] {
		assert.LessOrEqual(t, math.Abs(target-out.Speed), deadzone+0.05)
	}
	assert.InDelta(t, target, car.Velocity().Len(), deadzone+0.05)
}

func TestVelocitySnapCruise(t *testing.T) {
	cfg := config.Defaults()
	cfg.Dynamics.AccelMode = dynamics.StrategyVelocitySnap

	car := NewVehicle(DefaultSpec(cfg.Dynamics.MassKg), core.IdentityPose())
	ctrl, err := dynamics.NewController(cfg.Dynamics, cfg.Steering, car, car.Wheels())
	require.NoError(t, err)

	target := core.KmhToMs(30)
	prev := 0.0
	for i := 0; i < 300; i++ {
		out := ctrl.Step(dynamics.Input{TargetSpeed: target}, 0.01)
		fwd := car.Velocity().Dot(car.Forward())
		assert.LessOrEqual(t, fwd-prev, 60*0.01+1e-9)
		if out.Mode == dynamics.ModeAccelerate {
			assert.LessOrEqual(t, fwd, target+1e-9)
		}
		car.Step(0.01)
		prev = car.Velocity().Dot(car.Forward())
	}
	assert.InDelta(t, target, car.Velocity().Len(), cfg.Dynamics.SpeedDeadzone+0.05)
}
