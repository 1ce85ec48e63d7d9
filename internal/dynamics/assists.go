package dynamics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/tandemdrive/tandem/pkg/core"
)

// applyAssists runs every enabled stability assist. They are additive and
// independent of the drive state.
func (c *Controller) applyAssists(steer [2]float64, dt float64) {
	if c.cfg.YawAssist {
		c.yawAssist(steer)
	}
	if c.cfg.EnhancedHandling {
		c.lateralDamping(dt)
	}
	if c.cfg.UseAntiRoll {
		c.antiRoll(c.wheels.FrontLeft, c.wheels.FrontRight, c.cfg.AntiRollFront)
		c.antiRoll(c.wheels.RearLeft, c.wheels.RearRight, c.cfg.AntiRollRear)
	}
	if c.cfg.UseDownforce {
		c.downforce()
	}
	if c.cfg.UseRollDamping {
		c.rollDamping()
	}
}

// YawAssistTorque returns the body-space yaw acceleration for the given
// wheel angles and speed.
func YawAssistTorque(steer [2]float64, maxSteer, strength, maxAtKmh, speedKmh float64) float64 {
	if math.Abs(maxSteer) <= 0.001 {
		return 0
	}
	avg := (steer[core.RoleLeft] + steer[core.RoleRight]) * 0.5
	norm := core.Clamp(avg/maxSteer, -1, 1)
	speedFactor := core.Clamp01(speedKmh / math.Max(1, maxAtKmh))
	return norm * strength * speedFactor
}

func (c *Controller) yawAssist(steer [2]float64) {
	kmh := core.MsToKmh(c.body.Velocity().Len())
	assist := YawAssistTorque(steer, c.maxSteer, c.cfg.YawAssistStrength, c.cfg.YawAssistMaxAtKmh, kmh)
	c.body.AddRelativeTorque(mgl64.Vec3{0, assist, 0}, Acceleration)
}

// lateralDamping shrinks sideways velocity by at most lateralGripPerSecond*dt.
func (c *Controller) lateralDamping(dt float64) {
	right := c.body.Right()
	side, rest := decompose(c.body.Velocity(), right)
	side = core.MoveTowards(side, 0, c.cfg.LateralGripPerSecond*dt)
	c.body.SetVelocity(rest.Add(right.Mul(side)))
}

// AntiRollForce returns the force for an axle from the two suspension
// travels. Positive pushes the left wheel down and the right wheel up.
func AntiRollForce(travelLeft, travelRight, stiffness float64) float64 {
	return (travelLeft - travelRight) * stiffness
}

func (c *Controller) antiRoll(left, right Wheel, stiffness float64) {
	if left == nil || right == nil {
		return
	}
	travelL, travelR := 1.0, 1.0
	hitL, groundedL := left.GroundHit()
	hitR, groundedR := right.GroundHit()
	if groundedL {
		travelL = hitL.Travel
	}
	if groundedR {
		travelR = hitR.Travel
	}

	force := AntiRollForce(travelL, travelR, stiffness)
	up := c.body.Up()
	if groundedL {
		c.body.AddForceAtPosition(up.Mul(-force), left.Position())
	}
	if groundedR {
		c.body.AddForceAtPosition(up.Mul(force), right.Position())
	}
}

func (c *Controller) downforce() {
	kmh := core.MsToKmh(c.body.Velocity().Len())
	c.body.AddForce(c.body.Up().Mul(-c.cfg.DownforcePerKmh*kmh), Force)
}

// rollDamping opposes angular velocity about the body's forward axis.
func (c *Controller) rollDamping() {
	local := localDirection(c.body.Pose(), c.body.AngularVelocity())
	c.body.AddRelativeTorque(mgl64.Vec3{0, 0, -local.Z() * c.cfg.RollDamping}, Acceleration)
}
