// Package steering turns directional input into front wheel angles and
// delegates a non-authority participant's wheel to the authority.
package steering

import (
	"math"
	"time"

	"github.com/tandemdrive/tandem/internal/config"
	"github.com/tandemdrive/tandem/pkg/core"
	"golang.org/x/time/rate"
)

// EffectiveMaxSteer returns the steer limit in degrees at the given speed.
// Speed sensitive steering lerps the limit down to maxSteer*minSteerFactor
// between reduceStartKmh and reduceEndKmh; arcade steering boosts the result.
func EffectiveMaxSteer(cfg config.SteeringConfig, speedKmh float64) float64 {
	limit := cfg.MaxSteerAngle
	if cfg.SpeedSensitive {
		switch {
		case speedKmh <= cfg.ReduceStartKmh:
		case speedKmh >= cfg.ReduceEndKmh:
			limit *= cfg.MinSteerFactor
		default:
			t := core.InverseLerp(cfg.ReduceStartKmh, cfg.ReduceEndKmh, speedKmh)
			limit *= core.Lerp(1, cfg.MinSteerFactor, t)
		}
	}
	if cfg.ArcadeSteering {
		limit *= cfg.ArcadeSteerBoost
	}
	return limit
}

// Cap is the absolute bound applied to delegated requests.
func Cap(cfg config.SteeringConfig) float64 {
	if cfg.ArcadeSteering {
		return cfg.MaxSteerAngle * cfg.ArcadeSteerBoost
	}
	return cfg.MaxSteerAngle
}

// Rate returns the slew rate in degrees per second.
func Rate(cfg config.SteeringConfig) float64 {
	if cfg.ArcadeSteering {
		return cfg.ArcadeSteerSnapSpeed
	}
	return cfg.SteerSlewRate
}

// TargetFromAxis scales a directional axis in [-1, 1] by the steer limit.
func TargetFromAxis(axis, effMax float64) float64 {
	return core.Clamp(axis, -1, 1) * effMax
}

// Slew moves current toward target by at most min(rate*dt, maxStep).
// A maxStep <= 0 leaves the step bounded by rate*dt only.
func Slew(current, target, rate, dt, maxStep float64) float64 {
	step := rate * dt
	if maxStep > 0 {
		step = math.Min(step, maxStep)
	}
	if step < 0 {
		step = 0
	}
	return core.MoveTowards(current, target, step)
}

// Roster resolves the wheel a remote sender is allowed to steer. ok is false
// for unknown senders and for the local participant.
type Roster interface {
	RoleOfSender(id core.ParticipantID) (core.Role, bool)
}

// Authority holds both wheel angles on the authority and slews them toward
// their targets once per tick.
type Authority struct {
	cfg    config.SteeringConfig
	angle  [2]float64
	target [2]float64
}

// NewAuthority creates straight wheels with straight targets.
func NewAuthority(cfg config.SteeringConfig) *Authority {
	return &Authority{cfg: cfg}
}

// SetTarget sets the target of a locally controlled wheel.
func (a *Authority) SetTarget(role core.Role, angle float64) {
	if !role.Valid() {
		return
	}
	a.target[role] = angle
}

// Apply stores a delegated request as the target for the sender's wheel.
// The role is taken from the roster, not from the request, and the angle is
// clamped to the cap. It reports whether the request was accepted.
func (a *Authority) Apply(req core.SteerRequest, roster Roster) bool {
	role, ok := roster.RoleOfSender(req.Sender)
	if !ok {
		return false
	}
	if math.IsNaN(req.Angle) {
		return false
	}
	limit := Cap(a.cfg)
	a.target[role] = core.Clamp(req.Angle, -limit, limit)
	return true
}

// Forget straightens the target of a departed participant's wheel.
func (a *Authority) Forget(role core.Role) {
	if !role.Valid() {
		return
	}
	a.target[role] = 0
}

// Step slews both wheels toward their targets and returns the new angles.
func (a *Authority) Step(dt float64) [2]float64 {
	r := Rate(a.cfg)
	for _, role := range core.Roles {
		a.angle[role] = Slew(a.angle[role], a.target[role], r, dt, a.cfg.MaxStepPerTick)
	}
	return a.angle
}

// Angles returns the current wheel angles.
func (a *Authority) Angles() [2]float64 { return a.angle }

// Targets returns the current wheel targets.
func (a *Authority) Targets() [2]float64 { return a.target }

// Seed sets both angles and targets, used when authority is gained so the
// wheels continue from the replicated state.
func (a *Authority) Seed(angles [2]float64) {
	a.angle = angles
	a.target = angles
}

// Requester runs on a non-authority peer. It slews a display angle for the
// local wheel and decides when a SteerRequest is due.
type Requester struct {
	cfg      config.SteeringConfig
	limiter  *rate.Limiter
	display  float64
	lastSent float64
}

// NewRequester creates a Requester limited to one request per SendInterval.
func NewRequester(cfg config.SteeringConfig) *Requester {
	limit := rate.Inf
	if cfg.SendInterval > 0 {
		limit = rate.Every(cfg.SendInterval)
	}
	return &Requester{
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Update advances the display angle toward target and reports whether target
// should be sent now. A send requires both the interval to have elapsed and
// the angle to differ from the last sent one by at least SendMinDelta.
func (r *Requester) Update(now time.Time, target, dt float64) (display float64, send bool) {
	r.display = Slew(r.display, target, Rate(r.cfg), dt, r.cfg.MaxStepPerTick)

	if math.Abs(target-r.lastSent) < r.cfg.SendMinDelta {
		return r.display, false
	}
	if !r.limiter.AllowN(now, 1) {
		return r.display, false
	}
	r.lastSent = target
	return r.display, true
}

// Display returns the local display angle.
func (r *Requester) Display() float64 { return r.display }

// Reset forgets the display and last sent angle. The next non-zero target is
// sent as soon as the limiter allows.
func (r *Requester) Reset() {
	r.display = 0
	r.lastSent = 0
}
