package peer

import (
	"time"

	"github.com/tandemdrive/tandem/internal/replication"
	"github.com/tandemdrive/tandem/pkg/core"
)

// Status summarizes a peer for the monitor.
type Status struct {
	Participant core.ParticipantID `json:"participant"`
	Role        string             `json:"role"`
	IsAuthority bool               `json:"isAuthority"`
	Connected   bool               `json:"connected"`
	Members     int                `json:"members"`
	Ticks       uint64             `json:"ticks"`
	RTT         float64            `json:"rtt"`
	SpeedKmh    float64            `json:"speedKmh"`
	Mode        string             `json:"mode"`
	Position    [3]float64         `json:"position"`
	Nitro       [2]float64         `json:"nitro"`

	Replication  replication.Status `json:"replication"`
	InboxDropped uint64             `json:"inboxDropped"`
}

func (r *Runtime) buildStatus(isAuthority bool, role core.Role, state core.VehicleState) Status {
	st := Status{
		Participant: r.net.LocalID(),
		Role:        role.String(),
		IsAuthority: isAuthority,
		Connected:   r.net.IsConnected(),
		Ticks:       r.ticks,
		RTT:         r.net.RoundTripTime(),
		SpeedKmh:    state.SpeedKmh(),
		Position:    [3]float64(state.Position),
		Nitro:       state.Nitro,
		Replication: r.reconstructor.Status(),
	}
	if isAuthority {
		st.Mode = r.lastOutput.Mode.String()
	} else {
		st.Mode = "replicated"
	}
	if r.deps.Session != nil {
		st.Members = len(r.deps.Session.Members())
	}
	if r.resolver.Networked {
		st.InboxDropped = r.deps.Transport.Inbox().Dropped()
	}
	return st
}

// Status returns the state of the last update. Safe for concurrent use.
func (r *Runtime) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// NetStats converts the status into a recordable sample.
func (s Status) NetStats(at time.Time) core.NetStats {
	return core.NetStats{
		Time:          at,
		Participant:   s.Participant,
		IsAuthority:   s.IsAuthority,
		RTT:           s.RTT,
		MeanInterval:  s.Replication.MeanInterval,
		Jitter:        s.Replication.Jitter,
		BackTime:      s.Replication.BackTime,
		BufferLen:     s.Replication.BufferLen,
		Snaps:         s.Replication.Snaps,
		Extrapolating: s.Replication.Extrapolating,
		SpeedKmh:      s.SpeedKmh,
	}
}
