package dynamics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tandemdrive/tandem/internal/config"
	"github.com/tandemdrive/tandem/pkg/core"
)

type appliedForce struct {
	F    mgl64.Vec3
	P    mgl64.Vec3
	Mode ForceMode
	At   bool
}

type fakeBody struct {
	pose      core.Pose
	vel       mgl64.Vec3
	angVel    mgl64.Vec3
	kinematic bool
	forces    []appliedForce
	torques   []appliedForce
}

func newFakeBody() *fakeBody {
	return &fakeBody{pose: core.IdentityPose()}
}

func (b *fakeBody) Pose() core.Pose                 { return b.pose }
func (b *fakeBody) SetPose(p core.Pose)             { b.pose = p }
func (b *fakeBody) Velocity() mgl64.Vec3            { return b.vel }
func (b *fakeBody) SetVelocity(v mgl64.Vec3)        { b.vel = v }
func (b *fakeBody) AngularVelocity() mgl64.Vec3     { return b.angVel }
func (b *fakeBody) SetAngularVelocity(v mgl64.Vec3) { b.angVel = v }
func (b *fakeBody) Forward() mgl64.Vec3             { return b.pose.Orientation.Rotate(mgl64.Vec3{0, 0, 1}) }
func (b *fakeBody) Up() mgl64.Vec3                  { return b.pose.Orientation.Rotate(mgl64.Vec3{0, 1, 0}) }
func (b *fakeBody) Right() mgl64.Vec3               { return b.pose.Orientation.Rotate(mgl64.Vec3{1, 0, 0}) }
func (b *fakeBody) Kinematic() bool                 { return b.kinematic }
func (b *fakeBody) SetKinematic(k bool)             { b.kinematic = k }

func (b *fakeBody) AddForce(f mgl64.Vec3, mode ForceMode) {
	b.forces = append(b.forces, appliedForce{F: f, Mode: mode})
}

func (b *fakeBody) AddForceAtPosition(f, p mgl64.Vec3) {
	b.forces = append(b.forces, appliedForce{F: f, P: p, At: true})
}

func (b *fakeBody) AddRelativeTorque(t mgl64.Vec3, mode ForceMode) {
	b.torques = append(b.torques, appliedForce{F: t, Mode: mode})
}

type fakeWheel struct {
	steer, motor, brake float64
	pos                 mgl64.Vec3
	contact             *Contact
}

func (w *fakeWheel) SteerAngle() float64       { return w.steer }
func (w *fakeWheel) SetSteerAngle(d float64)   { w.steer = d }
func (w *fakeWheel) SetMotorTorque(nm float64) { w.motor = nm }
func (w *fakeWheel) SetBrakeTorque(nm float64) { w.brake = nm }
func (w *fakeWheel) Position() mgl64.Vec3      { return w.pos }

func (w *fakeWheel) GroundHit() (Contact, bool) {
	if w.contact == nil {
		return Contact{}, false
	}
	return *w.contact, true
}

type rig struct {
	body           *fakeBody
	fl, fr, rl, rr *fakeWheel
	wheels         Wheels
}

func newRig() *rig {
	r := &rig{
		body: newFakeBody(),
		fl:   &fakeWheel{pos: mgl64.Vec3{-0.8, 0, 1.3}},
		fr:   &fakeWheel{pos: mgl64.Vec3{0.8, 0, 1.3}},
		rl:   &fakeWheel{pos: mgl64.Vec3{-0.8, 0, -1.3}},
		rr:   &fakeWheel{pos: mgl64.Vec3{0.8, 0, -1.3}},
	}
	r.wheels = Wheels{FrontLeft: r.fl, FrontRight: r.fr, RearLeft: r.rl, RearRight: r.rr}
	return r
}

// driveOnly disables every assist so tests see drive forces only.
func driveOnly() config.DynamicsConfig {
	cfg := config.Defaults().Dynamics
	cfg.YawAssist = false
	cfg.EnhancedHandling = false
	cfg.UseAntiRoll = false
	cfg.UseDownforce = false
	cfg.UseRollDamping = false
	return cfg
}

func newController(t *testing.T, cfg config.DynamicsConfig, r *rig) *Controller {
	t.Helper()
	c, err := NewController(cfg, config.Defaults().Steering, r.body, r.wheels)
	require.NoError(t, err)
	return c
}

const dt = 0.01

func TestClassifyToe(t *testing.T) {
	tests := []struct {
		left, right float64
		want        Toe
	}{
		{10, -10, ToeIn},
		{-10, 10, ToeOut},
		{3, -10, ToeNone},
		{10, -3, ToeNone},
		{3.01, -3.01, ToeIn},
		{10, 10, ToeNone},
		{-10, -10, ToeNone},
		{0, 0, ToeNone},
	}
	for _, tt := range tests {
		got := ClassifyToe([2]float64{tt.left, tt.right}, 3)
		assert.Equal(t, tt.want, got, "left=%v right=%v", tt.left, tt.right)
	}
}

func TestNewController_UnknownStrategy(t *testing.T) {
	cfg := driveOnly()
	cfg.AccelMode = "warp"
	_, err := NewController(cfg, config.Defaults().Steering, newFakeBody(), Wheels{})
	assert.Error(t, err)
}

func TestStep_ManualBrakeArcade(t *testing.T) {
	r := newRig()
	r.body.vel = mgl64.Vec3{2, 0, 10}
	c := newController(t, driveOnly(), r)

	out := c.Step(Input{ManualBrake: true, TargetSpeed: 8}, dt)

	assert.Equal(t, ModeManualBrake, out.Mode)
	assert.Zero(t, out.MotorTorque)
	assert.InDelta(t, 2500*2, out.BrakeTorque, 1e-9)
	for _, w := range []*fakeWheel{r.fl, r.fr, r.rl, r.rr} {
		assert.InDelta(t, 5000, w.brake, 1e-9)
		assert.Zero(t, w.motor)
	}
	// forward snapped toward zero by 80*dt, lateral untouched
	assert.InDelta(t, 10-0.8, r.body.vel.Z(), 1e-9)
	assert.InDelta(t, 2, r.body.vel.X(), 1e-9)
	require.Len(t, r.body.forces, 1)
	assert.InDelta(t, -50, r.body.forces[0].F.Z(), 1e-9)
	assert.Equal(t, Acceleration, r.body.forces[0].Mode)
}

func TestStep_ManualBrakeNonArcade(t *testing.T) {
	r := newRig()
	r.body.vel = mgl64.Vec3{0, 0, 10}
	cfg := driveOnly()
	cfg.ArcadeBraking = false
	c := newController(t, cfg, r)

	out := c.Step(Input{ManualBrake: true}, dt)

	assert.InDelta(t, 2500, out.BrakeTorque, 1e-9)
	assert.Empty(t, r.body.forces)
	assert.InDelta(t, 10, r.body.vel.Z(), 1e-9)
}

func TestStep_ToeOutBrakes(t *testing.T) {
	r := newRig()
	r.body.vel = mgl64.Vec3{0, 0, 5}
	c := newController(t, driveOnly(), r)

	out := c.Step(Input{SteerAngle: [2]float64{-10, 10}, TargetSpeed: 8}, dt)

	assert.Equal(t, ToeOut, out.Toe)
	assert.Equal(t, ModeToeOutBrake, out.Mode)
	assert.InDelta(t, 5000, out.BrakeTorque, 1e-9)
	assert.InDelta(t, 5-0.8, r.body.vel.Z(), 1e-9)
}

func TestStep_ToeInBrakesWhileRolling(t *testing.T) {
	r := newRig()
	r.body.vel = mgl64.Vec3{0, 0, 5}
	c := newController(t, driveOnly(), r)

	out := c.Step(Input{SteerAngle: [2]float64{10, -10}, TargetSpeed: 8}, dt)

	assert.Equal(t, ToeIn, out.Toe)
	assert.Equal(t, ModeReverseBrake, out.Mode)
	assert.InDelta(t, 5000, out.BrakeTorque, 1e-9)
	assert.Zero(t, out.MotorTorque)
	require.Len(t, r.body.forces, 1)
	assert.InDelta(t, 5, r.body.vel.Z(), 1e-9, "no velocity snap before reversing")
}

func TestStep_ToeInReversesForceBoost(t *testing.T) {
	r := newRig()
	c := newController(t, driveOnly(), r)

	out := c.Step(Input{SteerAngle: [2]float64{10, -10}, TargetSpeed: 8}, dt)

	assert.Equal(t, ModeReverse, out.Mode)
	assert.InDelta(t, -300*1.2*1.5, out.MotorTorque, 1e-9)
	assert.InDelta(t, -300*1.2*1.5, r.rl.motor, 1e-9)
	assert.Zero(t, r.fl.motor, "front axle is not driven by default")
	require.Len(t, r.body.forces, 1)
	assert.InDelta(t, -35, r.body.forces[0].F.Z(), 1e-9)
}

func TestStep_ToeInSimpleReverse(t *testing.T) {
	r := newRig()
	cfg := driveOnly()
	cfg.ArcadeAcceleration = false
	c := newController(t, cfg, r)

	out := c.Step(Input{SteerAngle: [2]float64{10, -10}}, dt)
	assert.Equal(t, ModeReverse, out.Mode)
	assert.InDelta(t, -300*1.2, out.MotorTorque, 1e-9)

	// reversing faster than target: brake proportionally
	r.body.vel = mgl64.Vec3{0, 0, -0.9}
	cfg.ReverseTargetSpeedKmh = 1.8 // 0.5 m/s
	cfg.ReverseEnableSpeedThreshold = 1
	c = newController(t, cfg, r)
	out = c.Step(Input{SteerAngle: [2]float64{10, -10}}, dt)
	assert.Equal(t, ModeReverseBrake, out.Mode)
	assert.Zero(t, out.MotorTorque)
	assert.InDelta(t, core.Clamp(0.4*200*10, 0, 2500)*2, out.BrakeTorque, 1e-6)
}

func TestStep_OverReverseBrakesWithArcade(t *testing.T) {
	r := newRig()
	r.body.vel = mgl64.Vec3{0, 0, -0.95}
	cfg := driveOnly()
	cfg.ReverseTargetSpeedKmh = 0.9 // 0.25 m/s, dz 0.3 => brake below -0.55
	cfg.ReverseEnableSpeedThreshold = 1
	c := newController(t, cfg, r)

	out := c.Step(Input{SteerAngle: [2]float64{10, -10}}, dt)

	assert.Equal(t, ModeReverseBrake, out.Mode)
	assert.Zero(t, out.MotorTorque)
	assert.InDelta(t, core.Clamp(0.7*200*10, 0, 2500)*2, out.BrakeTorque, 1e-6)
}

func TestStep_ToeInWithoutAutoReverseCruises(t *testing.T) {
	r := newRig()
	cfg := driveOnly()
	cfg.AutoReverseOnToeIn = false
	c := newController(t, cfg, r)

	out := c.Step(Input{SteerAngle: [2]float64{10, -10}, TargetSpeed: 8}, dt)
	assert.Equal(t, ToeIn, out.Toe)
	assert.Equal(t, ModeAccelerate, out.Mode)
}

func TestStep_CruiseStates(t *testing.T) {
	target := core.KmhToMs(30)

	t.Run("accelerate force boost", func(t *testing.T) {
		r := newRig()
		c := newController(t, driveOnly(), r)
		out := c.Step(Input{TargetSpeed: target}, dt)
		assert.Equal(t, ModeAccelerate, out.Mode)
		assert.InDelta(t, 450, out.MotorTorque, 1e-9)
		assert.Zero(t, out.BrakeTorque)
		require.Len(t, r.body.forces, 1)
		assert.InDelta(t, 35, r.body.forces[0].F.Z(), 1e-9)
	})

	t.Run("deadzone coasts", func(t *testing.T) {
		r := newRig()
		r.body.vel = mgl64.Vec3{0, 0, target - 0.2}
		c := newController(t, driveOnly(), r)
		out := c.Step(Input{TargetSpeed: target}, dt)
		assert.Equal(t, ModeCoast, out.Mode)
		assert.Zero(t, out.MotorTorque)
		assert.Zero(t, out.BrakeTorque)
	})

	t.Run("overspeed brakes", func(t *testing.T) {
		r := newRig()
		r.body.vel = mgl64.Vec3{0, 0, target + 0.5}
		c := newController(t, driveOnly(), r)
		out := c.Step(Input{TargetSpeed: target}, dt)
		assert.Equal(t, ModeOverspeedBrake, out.Mode)
		assert.InDelta(t, 1000, out.BrakeTorque, 1e-6)
		assert.InDelta(t, 1000, r.fr.brake, 1e-6)
	})

	t.Run("non arcade proportional", func(t *testing.T) {
		r := newRig()
		r.body.vel = mgl64.Vec3{0, 0, target - 1}
		cfg := driveOnly()
		cfg.ArcadeAcceleration = false
		c := newController(t, cfg, r)
		out := c.Step(Input{TargetSpeed: target}, dt)
		assert.InDelta(t, 200, out.MotorTorque, 1e-6)
	})
}

func TestTorqueStrategy(t *testing.T) {
	d := Drive{Target: 10, Direction: 1, MaxMotor: 300, Kp: 200, TorqueMultiplier: 1.5, FullThrottleUntil: 0.94}

	d.Speed = 5
	assert.InDelta(t, 450, Torque{}.Accelerate(d), 1e-9)

	d.Speed = 9.5
	assert.InDelta(t, core.Clamp(0.5*200, 0, 300)*1.5, Torque{}.Accelerate(d), 1e-9)

	d.Direction = -1
	d.Speed = 0
	assert.InDelta(t, -450, Torque{}.Accelerate(d), 1e-9)
}

func TestForceBoostStopsAtTarget(t *testing.T) {
	body := newFakeBody()
	d := Drive{Body: body, Target: 10, Speed: 10, Direction: 1, MaxMotor: 300, TorqueMultiplier: 1.5, ExtraAcceleration: 35}

	assert.Zero(t, ForceBoost{}.Accelerate(d))
	assert.Empty(t, body.forces)
}

func TestVelocitySnapBounded(t *testing.T) {
	r := newRig()
	r.body.vel = mgl64.Vec3{1, 0, 0}
	cfg := driveOnly()
	cfg.AccelMode = StrategyVelocitySnap
	c := newController(t, cfg, r)
	target := core.KmhToMs(30)

	n := 0
	for i := 0; i < 50; i++ {
		before := r.body.vel.Z()
		out := c.Step(Input{TargetSpeed: target}, dt)
		after := r.body.vel.Z()
		n++
		assert.LessOrEqual(t, after-before, 60*dt+1e-9)
		assert.LessOrEqual(t, after, target+1e-9, "never overshoots")
		assert.LessOrEqual(t, after, float64(n)*dt*60+1e-9)
		if out.Mode == ModeAccelerate {
			assert.InDelta(t, 75, out.MotorTorque, 1e-9)
		}
	}
	assert.InDelta(t, 1, r.body.vel.X(), 1e-9, "lateral preserved")
}

func TestDriveLayout(t *testing.T) {
	r := newRig()
	cfg := driveOnly()
	cfg.DriveFrontWheels = true
	cfg.DriveRearWheels = false
	c := newController(t, cfg, r)

	c.Step(Input{TargetSpeed: 5}, dt)

	assert.InDelta(t, 450, r.fl.motor, 1e-9)
	assert.InDelta(t, 450, r.fr.motor, 1e-9)
	assert.Zero(t, r.rl.motor)
	assert.Zero(t, r.rr.motor)
}

func TestMissingWheelsAreSkipped(t *testing.T) {
	body := newFakeBody()
	cfg := config.Defaults().Dynamics
	c, err := NewController(cfg, config.Defaults().Steering, body, Wheels{RearLeft: &fakeWheel{}})
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		c.Step(Input{TargetSpeed: 5, SteerAngle: [2]float64{5, 5}}, dt)
	})
}

func TestYawAssistTorque(t *testing.T) {
	assert.InDelta(t, 4*0.5, YawAssistTorque([2]float64{25, 25}, 25, 4, 60, 30), 1e-9)
	assert.InDelta(t, -4, YawAssistTorque([2]float64{-50, -50}, 25, 4, 60, 120), 1e-9)
	assert.Zero(t, YawAssistTorque([2]float64{10, 10}, 0, 4, 60, 30))
	assert.Zero(t, YawAssistTorque([2]float64{10, -10}, 25, 4, 60, 30))
}

func TestAssists(t *testing.T) {
	r := newRig()
	r.body.vel = mgl64.Vec3{0, 0, 10}
	r.body.angVel = mgl64.Vec3{0, 0, 0.5}
	r.fl.contact = &Contact{Travel: 0.4}
	r.fr.contact = &Contact{Travel: 0.6}
	cfg := config.Defaults().Dynamics
	cfg.SpeedDeadzone = 100 // coast, only assists act
	c := newController(t, cfg, r)

	c.Step(Input{SteerAngle: [2]float64{12.5, 12.5}, TargetSpeed: 10}, dt)

	// yaw: norm 0.5, strength 4, speed factor 36/60
	require.Len(t, r.body.torques, 2)
	assert.InDelta(t, 0.5*4*0.6, r.body.torques[0].F.Y(), 1e-9)
	// roll damping opposes roll rate
	assert.InDelta(t, -0.5*4, r.body.torques[1].F.Z(), 1e-9)

	var atPos []appliedForce
	var plain []appliedForce
	for _, f := range r.body.forces {
		if f.At {
			atPos = append(atPos, f)
		} else {
			plain = append(plain, f)
		}
	}
	// front axle only: rear wheels have no ground contact
	require.Len(t, atPos, 2)
	assert.InDelta(t, 1200, atPos[0].F.Y(), 1e-6)
	assert.Equal(t, r.fl.pos, atPos[0].P)
	assert.InDelta(t, -1200, atPos[1].F.Y(), 1e-6)

	require.Len(t, plain, 1)
	assert.InDelta(t, -15*36, plain[0].F.Y(), 1e-6)
	assert.Equal(t, Force, plain[0].Mode)
}

func TestLateralDamping(t *testing.T) {
	r := newRig()
	r.body.vel = mgl64.Vec3{3, 0, 10}
	cfg := driveOnly()
	cfg.EnhancedHandling = true
	cfg.SpeedDeadzone = 100
	c := newController(t, cfg, r)

	c.Step(Input{TargetSpeed: 10}, 0.1)
	assert.InDelta(t, 3-0.8, r.body.vel.X(), 1e-9)
	assert.InDelta(t, 10, r.body.vel.Z(), 1e-9)

	for i := 0; i < 10; i++ {
		c.Step(Input{TargetSpeed: 10}, 0.1)
	}
	assert.InDelta(t, 0, r.body.vel.X(), 1e-9, "never reverses direction")
}

func TestWheels_SteerRoundTrip(t *testing.T) {
	r := newRig()
	r.wheels.SetSteer([2]float64{5, -7})
	assert.Equal(t, [2]float64{5, -7}, r.wheels.Steer())

	var empty Wheels
	empty.SetSteer([2]float64{1, 1})
	assert.Equal(t, [2]float64{}, empty.Steer())
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "coast", ModeCoast.String())
	assert.Equal(t, "reverse-brake", ModeReverseBrake.String())
	assert.Equal(t, "unknown", Mode(42).String())
	assert.Equal(t, "toe-in", ToeIn.String())
}
