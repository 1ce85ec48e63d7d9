// Package transport defines how peers exchange snapshots and remote
// invocations, and the roster election shared by its implementations.
package transport

import (
	"errors"
	"sort"

	"github.com/tandemdrive/tandem/internal/queue"
	"github.com/tandemdrive/tandem/internal/session"
	"github.com/tandemdrive/tandem/pkg/core"
	"github.com/tandemdrive/tandem/pkg/streaming"
)

// ErrNotConnected is returned when sending without a live link.
var ErrNotConnected = errors.New("transport not connected")

// Transport carries messages between the local peer and the session.
type Transport interface {
	// Broadcast sends a snapshot to every other member, unreliably.
	Broadcast(core.Snapshot) error
	// Invoke sends a remote invocation reliably. An envelope without a
	// recipient goes to the session owner.
	Invoke(streaming.Envelope) error
	// Inbox holds received envelopes until the peer drains them.
	Inbox() *queue.Queue[streaming.Envelope]
	Close() error
}

// Roster tracks session members in join order. The earliest member owns
// the session.
type Roster struct {
	members []streaming.RosterMember
}

// Join adds a member. A known id is left in place.
func (r *Roster) Join(m streaming.RosterMember) {
	if r.Has(m.ID) {
		return
	}
	r.members = append(r.members, m)
	sort.SliceStable(r.members, func(i, j int) bool {
		return r.members[i].JoinedAt.Before(r.members[j].JoinedAt)
	})
}

// Leave removes a member and reports whether ownership moved.
func (r *Roster) Leave(id core.ParticipantID) bool {
	before := r.Owner()
	for i, m := range r.members {
		if m.ID == id {
			r.members = append(r.members[:i], r.members[i+1:]...)
			break
		}
	}
	return r.Owner() != before
}

// Has reports whether id is a member.
func (r *Roster) Has(id core.ParticipantID) bool {
	for _, m := range r.members {
		if m.ID == id {
			return true
		}
	}
	return false
}

// Owner returns the elected owner, or NoParticipant when empty.
func (r *Roster) Owner() core.ParticipantID {
	if len(r.members) == 0 {
		return core.NoParticipant
	}
	return r.members[0].ID
}

// Len returns the number of members.
func (r *Roster) Len() int { return len(r.members) }

// IDs returns the member ids in join order.
func (r *Roster) IDs() []core.ParticipantID {
	out := make([]core.ParticipantID, len(r.members))
	for i, m := range r.members {
		out[i] = m.ID
	}
	return out
}

// Payload returns the roster message body.
func (r *Roster) Payload() streaming.RosterPayload {
	members := make([]streaming.RosterMember, len(r.members))
	copy(members, r.members)
	return streaming.RosterPayload{Owner: r.Owner(), Members: members}
}

// Members converts a roster message into session members.
func Members(p streaming.RosterPayload) []session.Member {
	out := make([]session.Member, len(p.Members))
	for i, m := range p.Members {
		out[i] = session.Member{ID: m.ID, Name: m.Name, JoinedAt: m.JoinedAt}
	}
	return out
}
