package replication

import (
	"math"

	"github.com/tandemdrive/tandem/internal/config"
	"github.com/tandemdrive/tandem/pkg/core"
)

// ArrivalStats tracks an exponential moving average of the snapshot
// inter-arrival interval and of its absolute deviation (jitter).
type ArrivalStats struct {
	alpha   float64
	last    float64
	seen    bool
	samples int
	mean    float64
	jitter  float64
}

// NewArrivalStats creates stats with smoothing factor alpha in (0, 1].
func NewArrivalStats(alpha float64) *ArrivalStats {
	if alpha <= 0 || alpha > 1 {
		alpha = 0.1
	}
	return &ArrivalStats{alpha: alpha}
}

// Observe records an arrival at local time t seconds.
func (a *ArrivalStats) Observe(t float64) {
	if !a.seen {
		a.seen = true
		a.last = t
		return
	}
	interval := t - a.last
	a.last = t
	if interval < 0 {
		return
	}
	if a.samples == 0 {
		a.mean = interval
	} else {
		dev := math.Abs(interval - a.mean)
		a.mean += (interval - a.mean) * a.alpha
		a.jitter += (dev - a.jitter) * a.alpha
	}
	a.samples++
}

// Mean returns the average inter-arrival interval in seconds.
func (a *ArrivalStats) Mean() float64 { return a.mean }

// Jitter returns the average deviation from Mean in seconds.
func (a *ArrivalStats) Jitter() float64 { return a.jitter }

// Reset forgets every observation.
func (a *ArrivalStats) Reset() {
	*a = ArrivalStats{alpha: a.alpha}
}

// BackTime returns the render delay for the given round trip and jitter:
// base + rtt*rttFactor + jitterBuffer + clamp(jitter*scale, 0, maxAdaptive),
// clamped to [minBackTime, maxBackTime].
func BackTime(cfg config.ReplicationConfig, rtt, jitter float64) float64 {
	adaptive := core.Clamp(jitter*cfg.AdaptiveJitterScale, 0, cfg.MaxAdaptiveJitter)
	bt := cfg.BackTimeBase + rtt*cfg.RTTFactor + cfg.JitterBuffer + adaptive
	return core.Clamp(bt, cfg.MinBackTime, cfg.MaxBackTime)
}
