// Package authority decides which peer runs the simulation and which front
// wheel each participant controls.
package authority

import (
	"github.com/tandemdrive/tandem/internal/session"
	"github.com/tandemdrive/tandem/pkg/core"
)

// RoleFor returns the role of a participant. The session owner takes Right
// when authorityControlsRight is set, Left otherwise; the other participant
// takes the complement.
func RoleFor(owner, authorityControlsRight bool) core.Role {
	ownerRole := core.RoleLeft
	if authorityControlsRight {
		ownerRole = core.RoleRight
	}
	if owner {
		return ownerRole
	}
	return ownerRole.Other()
}

// Resolver answers authority and role questions from the current network
// state. It holds no cache: every call reads Net.
type Resolver struct {
	// Networked is the coop switch; false runs the car locally.
	Networked              bool
	AuthorityControlsRight bool
	Net                    session.NetworkContext
}

// IsNetworked reports whether coop is enabled and the transport is connected.
func (r Resolver) IsNetworked() bool {
	return r.Networked && r.Net != nil && r.Net.IsConnected()
}

// IsAuthority is true when the peer is not networked or owns the session.
func (r Resolver) IsAuthority() bool {
	if !r.IsNetworked() {
		return true
	}
	return r.Net.IsSessionOwner()
}

// LocalRole returns the wheel the local participant steers. A peer that is
// not networked steers both wheels and reports the authority role.
func (r Resolver) LocalRole() core.Role {
	return RoleFor(r.IsAuthority(), r.AuthorityControlsRight)
}

// Controls reports whether local input drives the given wheel.
func (r Resolver) Controls(role core.Role) bool {
	if !r.IsNetworked() {
		return true
	}
	return role == r.LocalRole()
}

// RoleOf returns the role of a roster member given the current owner.
func (r Resolver) RoleOf(id, owner core.ParticipantID) core.Role {
	return RoleFor(id != core.NoParticipant && id == owner, r.AuthorityControlsRight)
}

// Transition describes a change of the local authority status.
type Transition struct {
	// Initial is set on the first observation.
	Initial bool
	From    bool
	To      bool
}

// Gained reports whether the peer became the authority.
func (t Transition) Gained() bool { return t.To && !t.From }

// Lost reports whether the peer stopped being the authority.
func (t Transition) Lost() bool { return t.From && !t.To }

// Tracker detects authority transitions across ticks.
type Tracker struct {
	seen bool
	last bool
}

// Observe records the current status and reports a transition when it
// differs from the previous tick or is the first observation.
func (t *Tracker) Observe(isAuthority bool) (Transition, bool) {
	if !t.seen {
		t.seen = true
		t.last = isAuthority
		return Transition{Initial: true, From: !isAuthority, To: isAuthority}, true
	}
	if t.last == isAuthority {
		return Transition{}, false
	}
	tr := Transition{From: t.last, To: isAuthority}
	t.last = isAuthority
	return tr, true
}

// Reset forgets the last observation.
func (t *Tracker) Reset() {
	t.seen = false
	t.last = false
}
