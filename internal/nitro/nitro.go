// Package nitro is the per-role boost resource. The authority owns the
// Machine; other peers only mirror its replicated values.
package nitro

import (
	"github.com/tandemdrive/tandem/internal/config"
	"github.com/tandemdrive/tandem/pkg/core"
)

// Edges reports which roles started or stopped boosting during a tick.
type Edges struct {
	Started [2]bool
	Stopped [2]bool
}

// Any reports whether any role changed.
func (e Edges) Any() bool {
	return e.Started[0] || e.Started[1] || e.Stopped[0] || e.Stopped[1]
}

// Machine holds both nitro resources and the blended cruise target.
type Machine struct {
	cfg       config.NitroConfig
	baseKmh   float64
	enabled   bool
	amount    [2]float64
	requested [2]bool
	active    [2]bool
	targetKmh float64
}

// NewMachine creates full (startAmount) resources around a base cruise
// target in km/h.
func NewMachine(cfg config.NitroConfig, baseKmh float64) *Machine {
	start := core.Clamp01(cfg.StartAmount)
	return &Machine{
		cfg:       cfg,
		baseKmh:   baseKmh,
		enabled:   cfg.Enabled,
		amount:    [2]float64{start, start},
		targetKmh: baseKmh,
	}
}

// SetRequested records whether a role holds its boost input.
func (m *Machine) SetRequested(role core.Role, pressed bool) {
	if !role.Valid() {
		return
	}
	m.requested[role] = pressed
}

// Forget drops the request of a departed participant.
func (m *Machine) Forget(role core.Role) {
	m.SetRequested(role, false)
}

// SetEnabled toggles nitro. Disabling stops both roles and returns the
// target to base immediately.
func (m *Machine) SetEnabled(enabled bool) {
	m.enabled = enabled
	if !enabled {
		m.active = [2]bool{}
		m.targetKmh = m.baseKmh
	}
}

// Enabled reports whether nitro is enabled.
func (m *Machine) Enabled() bool { return m.enabled }

// Seed replaces the resource amounts, used when authority is gained.
func (m *Machine) Seed(amount [2]float64) {
	for _, r := range core.Roles {
		m.amount[r] = core.Clamp01(amount[r])
	}
}

// Tick advances drain, regen and the target blend by dt seconds.
func (m *Machine) Tick(dt float64) Edges {
	prev := m.active
	desired := m.baseKmh

	if m.enabled {
		for _, r := range core.Roles {
			m.active[r] = m.requested[r] && m.amount[r] > core.NitroEpsilon
			if m.active[r] {
				m.amount[r] = core.Clamp01(m.amount[r] - m.cfg.DrainPerSecond*dt)
			} else if m.cfg.RegenPerSecond > 0 {
				m.amount[r] = core.Clamp01(m.amount[r] + m.cfg.RegenPerSecond*dt)
			}
		}
		if m.active[core.RoleLeft] || m.active[core.RoleRight] {
			desired += m.cfg.ExtraKmh
		}
		m.targetKmh = core.MoveTowards(m.targetKmh, desired, m.cfg.TargetLerpSpeed*dt)
	} else {
		m.active = [2]bool{}
		m.targetKmh = m.baseKmh
	}

	var e Edges
	for _, r := range core.Roles {
		e.Started[r] = m.active[r] && !prev[r]
		e.Stopped[r] = !m.active[r] && prev[r]
	}
	return e
}

// Amount returns both resources.
func (m *Machine) Amount() [2]float64 { return m.amount }

// Active returns the boost flags.
func (m *Machine) Active() [2]bool { return m.active }

// TargetKmh returns the blended cruise target in km/h.
func (m *Machine) TargetKmh() float64 { return m.targetKmh }

// TargetSpeed returns the blended cruise target in m/s.
func (m *Machine) TargetSpeed() float64 { return core.KmhToMs(m.targetKmh) }

// Edge turns a held input into edge-triggered requests.
type Edge struct {
	last bool
}

// Changed records pressed and reports whether it differs from the last call.
func (e *Edge) Changed(pressed bool) bool {
	if pressed == e.last {
		return false
	}
	e.last = pressed
	return true
}

// Reset forgets the last state so the next press is sent again.
func (e *Edge) Reset() { e.last = false }
