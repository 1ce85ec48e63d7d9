package replication

import (
	"context"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/tandemdrive/tandem/internal/config"
	"github.com/tandemdrive/tandem/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Smoothing selects how the display approaches the sampled target.
type Smoothing string

const (
	SmoothExponential      Smoothing = "exponential"
	SmoothCriticallyDamped Smoothing = "criticallyDamped"
)

// ParseSmoothing validates a smoothing name. Empty selects exponential.
func ParseSmoothing(s string) (Smoothing, error) {
	switch Smoothing(s) {
	case "", SmoothExponential:
		return SmoothExponential, nil
	case SmoothCriticallyDamped:
		return SmoothCriticallyDamped, nil
	default:
		return "", fmt.Errorf("unknown smoothing %q", s)
	}
}

// Display is the reconstructed state shown on a non-authority peer.
type Display struct {
	core.VehicleState
	// Placement of the last sample.
	Placement Placement
}

// Status summarizes the reconstruction pipeline for monitoring.
type Status struct {
	BackTime      float64 `json:"backTime"`
	MeanInterval  float64 `json:"meanInterval"`
	Jitter        float64 `json:"jitter"`
	BufferLen     int     `json:"bufferLen"`
	Snaps         int64   `json:"snaps"`
	Extrapolating bool    `json:"extrapolating"`
}

// Reconstructor buffers received snapshots and advances a smoothed display
// toward the state sampled at now - backTime.
type Reconstructor struct {
	cfg       config.ReplicationConfig
	policy    ExtrapolationPolicy
	smoothing Smoothing

	buffer *Buffer
	stats  *ArrivalStats

	display   Display
	hasShown  bool
	springVel mgl64.Vec3
	backTime  float64
	snaps     int64

	received metric.Int64Counter
	snapped  metric.Int64Counter
}

// NewReconstructor creates an empty Reconstructor.
func NewReconstructor(cfg config.ReplicationConfig) (*Reconstructor, error) {
	policy, err := ParsePolicy(cfg.ExtrapolationPolicy)
	if err != nil {
		return nil, err
	}
	smoothing, err := ParseSmoothing(cfg.Smoothing)
	if err != nil {
		return nil, err
	}

	r := &Reconstructor{
		cfg:       cfg,
		policy:    policy,
		smoothing: smoothing,
		buffer:    NewBuffer(cfg.MaxSnapshots, cfg.MaxHorizon),
		stats:     NewArrivalStats(cfg.ArrivalSmoothing),
		display:   Display{VehicleState: core.VehicleState{Pose: core.IdentityPose()}},
	}

	m := meter()
	r.received, err = m.Int64Counter(
		"replication.snapshots.received",
		metric.WithDescription("Snapshots inserted into the reconstruction buffer"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating received counter: %w", err)
	}
	r.snapped, err = m.Int64Counter(
		"replication.snaps",
		metric.WithDescription("Display corrections applied without smoothing"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating snap counter: %w", err)
	}
	return r, nil
}

// Receive buffers a snapshot that arrived at local session time arrival.
func (r *Reconstructor) Receive(s core.Snapshot, arrival float64) {
	r.buffer.Insert(s)
	r.stats.Observe(arrival)
	r.received.Add(context.Background(), 1)
}

// Reset clears buffered and displayed state. The next sample snaps.
func (r *Reconstructor) Reset() {
	r.buffer.Clear()
	r.stats.Reset()
	r.hasShown = false
	r.springVel = mgl64.Vec3{}
}

// Buffer exposes the snapshot buffer.
func (r *Reconstructor) Buffer() *Buffer { return r.buffer }

// Display returns the current display state.
func (r *Reconstructor) Display() Display { return r.display }

// Update samples the buffer at now - backTime and advances the display by
// dt seconds. It returns false while nothing has been received.
func (r *Reconstructor) Update(now, rtt, dt float64) (Display, bool) {
	r.backTime = BackTime(r.cfg, rtt, r.stats.Jitter())
	target, placement, err := Sample(r.buffer, now-r.backTime, r.cfg.ExtrapolationLimit, r.policy)
	if err != nil {
		return r.display, false
	}

	if !r.hasShown || r.exceedsSnap(target.Pose) {
		r.snap(target, placement)
		return r.display, true
	}

	r.smooth(target, dt)
	r.display.Placement = placement
	return r.display, true
}

func (r *Reconstructor) exceedsSnap(target core.Pose) bool {
	if target.Position.Sub(r.display.Position).Len() > r.cfg.SnapDistance {
		return true
	}
	return angleBetween(r.display.Orientation, target.Orientation) > r.cfg.SnapAngle
}

func (r *Reconstructor) snap(target core.Snapshot, placement Placement) {
	reason := "threshold"
	if !r.hasShown {
		reason = "first"
	}
	r.display = Display{VehicleState: target.VehicleState, Placement: placement}
	r.springVel = mgl64.Vec3{}
	r.hasShown = true
	r.snaps++
	r.snapped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (r *Reconstructor) smooth(target core.Snapshot, dt float64) {
	k := 1 - math.Exp(-r.cfg.SmoothingRate*dt)

	cur := r.display.Position
	var next mgl64.Vec3
	switch r.smoothing {
	case SmoothCriticallyDamped:
		next = r.springStep(cur, target.Position, dt)
	default:
		next = cur.Add(target.Position.Sub(cur).Mul(k))
	}
	if step := next.Sub(cur); r.cfg.MaxStepPerTick > 0 && step.Len() > r.cfg.MaxStepPerTick {
		next = cur.Add(step.Mul(r.cfg.MaxStepPerTick / step.Len()))
	}
	r.display.Position = next
	r.display.Orientation = slerp(r.display.Orientation, target.Orientation, k)

	kv := 1 - math.Exp(-r.cfg.VelocitySmoothing*dt)
	r.display.LinearVelocity = lerpVec(r.display.LinearVelocity, target.LinearVelocity, kv)
	r.display.AngularVelocity = lerpVec(r.display.AngularVelocity, target.AngularVelocity, kv)

	r.display.SteerAngle = target.SteerAngle
	r.display.Nitro = target.Nitro
	r.display.NitroActive = target.NitroActive
}

// springStep advances a critically damped spring with angular frequency
// SmoothingRate toward target.
func (r *Reconstructor) springStep(cur, target mgl64.Vec3, dt float64) mgl64.Vec3 {
	omega := r.cfg.SmoothingRate
	x := cur.Sub(target)
	temp := r.springVel.Add(x.Mul(omega)).Mul(dt)
	decay := math.Exp(-omega * dt)
	r.springVel = r.springVel.Sub(temp.Mul(omega)).Mul(decay)
	return target.Add(x.Add(temp).Mul(decay))
}

// Status returns the pipeline statistics.
func (r *Reconstructor) Status() Status {
	return Status{
		BackTime:      r.backTime,
		MeanInterval:  r.stats.Mean(),
		Jitter:        r.stats.Jitter(),
		BufferLen:     r.buffer.Len(),
		Snaps:         r.snaps,
		Extrapolating: r.display.Placement == Extrapolated || r.display.Placement == Clamped,
	}
}
