package dynamics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/tandemdrive/tandem/internal/config"
	"github.com/tandemdrive/tandem/pkg/core"
)

// Mode is the drive state chosen for a tick.
type Mode int

const (
	// ModeCoast: within the cruise deadzone, no torque.
	ModeCoast Mode = iota
	ModeAccelerate
	// ModeOverspeedBrake: cruise brake proportional to overspeed.
	ModeOverspeedBrake
	ModeManualBrake
	ModeToeOutBrake
	ModeReverse
	// ModeReverseBrake: toe-in while still rolling, or reversing too fast.
	ModeReverseBrake
)

var modeNames = [...]string{"coast", "accelerate", "overspeed-brake", "manual-brake", "toe-out-brake", "reverse", "reverse-brake"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "unknown"
	}
	return modeNames[m]
}

// Input is what the controller needs from the rest of the peer each tick.
type Input struct {
	SteerAngle  [2]float64
	ManualBrake bool
	// TargetSpeed is the cruise target in m/s after nitro blending.
	TargetSpeed float64
}

// Output reports the decision taken for the tick.
type Output struct {
	Mode         Mode
	Toe          Toe
	MotorTorque  float64
	BrakeTorque  float64
	Speed        float64
	ForwardSpeed float64
}

// SpeedKmh returns the body speed in km/h.
func (o Output) SpeedKmh() float64 { return core.MsToKmh(o.Speed) }

// Controller runs the arcade dynamics on one body.
type Controller struct {
	cfg          config.DynamicsConfig
	maxSteer     float64
	toeThreshold float64
	strategy     Strategy
	body         Body
	wheels       Wheels
}

// NewController creates a Controller for body and wheels. The acceleration
// strategy is selected by cfg.AccelMode.
func NewController(cfg config.DynamicsConfig, steer config.SteeringConfig, body Body, wheels Wheels) (*Controller, error) {
	strategy, err := ParseStrategy(cfg.AccelMode)
	if err != nil {
		return nil, err
	}
	return &Controller{
		cfg:          cfg,
		maxSteer:     steer.MaxSteerAngle,
		toeThreshold: steer.ToeThreshold,
		strategy:     strategy,
		body:         body,
		wheels:       wheels,
	}, nil
}

// Strategy returns the acceleration strategy in use.
func (c *Controller) Strategy() Strategy { return c.strategy }

// Step classifies the tick, applies drive and brake torque to the wheels,
// then applies the stability assists.
func (c *Controller) Step(in Input, dt float64) Output {
	vel := c.body.Velocity()
	out := Output{
		Speed:        vel.Len(),
		ForwardSpeed: vel.Dot(c.body.Forward()),
		Toe:          ClassifyToe(in.SteerAngle, c.toeThreshold),
	}

	switch {
	case in.ManualBrake:
		out.Mode = ModeManualBrake
		out.BrakeTorque = c.hardBrake(dt)
	case c.cfg.AutoReverseOnToeIn && out.Toe == ToeIn:
		out.Mode, out.MotorTorque, out.BrakeTorque = c.reverse(out.Speed, out.ForwardSpeed, dt)
	case out.Toe == ToeOut:
		out.Mode = ModeToeOutBrake
		out.BrakeTorque = c.hardBrake(dt)
	default:
		out.Mode, out.MotorTorque, out.BrakeTorque = c.cruise(in.TargetSpeed, out.Speed, dt)
	}

	c.applyDriveAndBrakes(out.MotorTorque, out.BrakeTorque)
	c.applyAssists(in.SteerAngle, dt)
	return out
}

func (c *Controller) brakeMultiplier() float64 {
	if c.cfg.ArcadeBraking {
		return c.cfg.ArcadeBrakeMultiplier
	}
	return 1
}

// hardBrake is the manual and toe-out brake. With arcade braking it also
// decelerates the body and pulls the forward velocity toward zero.
func (c *Controller) hardBrake(dt float64) float64 {
	if c.cfg.ArcadeBraking {
		fwd := c.body.Forward()
		c.body.AddForce(fwd.Mul(-c.cfg.BrakeExtraDecel), Acceleration)

		along, lateral := decompose(c.body.Velocity(), fwd)
		along = core.MoveTowards(along, 0, c.cfg.SnapBrakePerSecond*dt)
		c.body.SetVelocity(lateral.Add(fwd.Mul(along)))
	}
	return c.cfg.MaxBrakeTorque * c.brakeMultiplier()
}

func (c *Controller) proportionalBrake(over float64) float64 {
	return core.Clamp(over*c.cfg.CruiseKp*10, 0, c.cfg.MaxBrakeTorque)
}

func (c *Controller) cruise(target, speed, dt float64) (Mode, float64, float64) {
	target = math.Max(0, target)
	speedError := target - speed

	switch {
	case speedError > c.cfg.SpeedDeadzone:
		if c.cfg.ArcadeAcceleration && target > 0.1 {
			return ModeAccelerate, c.strategy.Accelerate(Drive{
				Body:              c.body,
				Dt:                dt,
				Target:            target,
				Speed:             speed,
				Direction:         1,
				MaxMotor:          c.cfg.MaxMotorTorque,
				Kp:                c.cfg.CruiseKp,
				TorqueMultiplier:  c.cfg.ArcadeTorqueMultiplier,
				FullThrottleUntil: c.cfg.FullThrottleUntilPercent,
				ExtraAcceleration: c.cfg.ArcadeExtraAcceleration,
				SnapPerSecond:     c.cfg.SnapAccelPerSecond,
			}), 0
		}
		return ModeAccelerate, core.Clamp(speedError*c.cfg.CruiseKp, 0, c.cfg.MaxMotorTorque), 0
	case speedError < -c.cfg.SpeedDeadzone:
		return ModeOverspeedBrake, 0, c.proportionalBrake(-speedError)
	default:
		return ModeCoast, 0, 0
	}
}

func (c *Controller) reverse(speed, forwardSpeed, dt float64) (Mode, float64, float64) {
	if speed >= c.cfg.ReverseEnableSpeedThreshold {
		// still rolling: brake first
		if c.cfg.ArcadeBraking {
			c.body.AddForce(c.body.Forward().Mul(-c.cfg.BrakeExtraDecel), Acceleration)
		}
		return ModeReverseBrake, 0, c.cfg.MaxBrakeTorque * c.brakeMultiplier()
	}

	targetRev := math.Max(0, core.KmhToMs(c.cfg.ReverseTargetSpeedKmh))
	desired := -targetRev
	dz := c.cfg.SpeedDeadzone

	mode, motor, brake := ModeReverse, 0.0, 0.0

	if c.cfg.ArcadeReverseUseSameMode && c.cfg.ArcadeAcceleration && targetRev > 0.1 {
		motor = c.strategy.Accelerate(Drive{
			Body:              c.body,
			Dt:                dt,
			Target:            targetRev,
			Speed:             math.Abs(forwardSpeed),
			Direction:         -1,
			MaxMotor:          c.cfg.MaxMotorTorque,
			Kp:                c.cfg.CruiseKp,
			TorqueMultiplier:  c.cfg.ReverseTorqueMultiplier * c.cfg.ArcadeTorqueMultiplier,
			FullThrottleUntil: c.cfg.ReverseFullThrottleUntilPercent,
			ExtraAcceleration: c.cfg.ReverseExtraAcceleration,
			SnapPerSecond:     c.cfg.ReverseSnapPerSecond,
		})
	} else {
		switch {
		case forwardSpeed > desired+dz:
			motor = -c.cfg.MaxMotorTorque * c.cfg.ReverseTorqueMultiplier
		case forwardSpeed < desired-dz:
			mode = ModeReverseBrake
			brake = c.proportionalBrake(math.Abs(desired-forwardSpeed)) * c.brakeMultiplier()
		}
	}

	if forwardSpeed < -targetRev-dz {
		mode = ModeReverseBrake
		motor = 0
		brake = c.proportionalBrake(math.Abs(-targetRev-forwardSpeed)) * c.brakeMultiplier()
	}
	return mode, motor, brake
}

// applyDriveAndBrakes sends motor torque to the driven axles and brake
// torque to every wheel.
func (c *Controller) applyDriveAndBrakes(motor, brake float64) {
	set := func(w Wheel, m float64) {
		if w != nil {
			w.SetMotorTorque(m)
		}
	}
	rear, front := 0.0, 0.0
	if c.cfg.DriveRearWheels {
		rear = motor
	}
	if c.cfg.DriveFrontWheels {
		front = motor
	}
	set(c.wheels.RearLeft, rear)
	set(c.wheels.RearRight, rear)
	set(c.wheels.FrontLeft, front)
	set(c.wheels.FrontRight, front)

	for _, w := range c.wheels.all() {
		if w != nil {
			w.SetBrakeTorque(brake)
		}
	}
}

// localDirection expresses a world direction in body space.
func localDirection(pose core.Pose, v mgl64.Vec3) mgl64.Vec3 {
	return pose.Orientation.Conjugate().Rotate(v)
}
