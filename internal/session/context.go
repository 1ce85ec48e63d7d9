// Package session holds the per-peer view of the shared session: the
// network clock, connection state, round-trip estimate and the roster.
package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tandemdrive/tandem/pkg/core"
)

// NetworkContext is the read side of the session that the core consumes.
type NetworkContext interface {
	// Now returns the session clock in seconds.
	Now() float64
	IsConnected() bool
	// RoundTripTime returns the current RTT estimate in seconds.
	RoundTripTime() float64
	IsSessionOwner() bool
	LocalID() core.ParticipantID
}

// Member is one participant in the roster.
type Member struct {
	ID       core.ParticipantID `json:"id"`
	Name     string             `json:"name"`
	JoinedAt time.Time          `json:"joinedAt"`
}

// clockSmoothing is the weight given to a new clock offset sample.
const clockSmoothing = 0.1

// rttSmoothing is the weight given to a new round-trip sample.
const rttSmoothing = 0.2

// NewID returns a fresh participant id.
func NewID() core.ParticipantID {
	return core.ParticipantID(uuid.NewString())
}

// Context holds the current session state. Transport goroutines write it,
// the peer tick reads it.
type Context struct {
	mu sync.RWMutex

	start      time.Time
	clock      func() time.Time
	offset     float64
	offsetSet  bool
	localID    core.ParticipantID
	owner      core.ParticipantID
	connected  bool
	generation uint64
	rtt        float64
	members    map[core.ParticipantID]Member
	session    *core.Session
}

// NewContext creates a disconnected Context whose clock starts now.
// A nil clock uses time.Now.
func NewContext(localID core.ParticipantID, clock func() time.Time) *Context {
	if clock == nil {
		clock = time.Now
	}
	return &Context{
		start:   clock(),
		clock:   clock,
		localID: localID,
		members: make(map[core.ParticipantID]Member),
		session: &core.Session{Name: "No session joined"},
	}
}

// Now returns the local elapsed time corrected by the synchronized offset.
func (c *Context) Now() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clock().Sub(c.start).Seconds() + c.offset
}

// SyncClock folds a remote clock reading into the offset. remote is the
// sender's session time, rtt the round trip of the exchange that carried it.
func (c *Context) SyncClock(remote, rtt float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	local := c.clock().Sub(c.start).Seconds()
	sample := remote + rtt/2 - local
	if !c.offsetSet {
		c.offset = sample
		c.offsetSet = true
		return
	}
	c.offset += (sample - c.offset) * clockSmoothing
}

// IsConnected reports whether the transport currently has a live link.
func (c *Context) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// SetConnected records the link state. Every transition to connected
// starts a new generation.
func (c *Context) SetConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if connected && !c.connected {
		c.generation++
	}
	if !connected {
		c.owner = core.NoParticipant
		c.members = make(map[core.ParticipantID]Member)
	}
	c.connected = connected
}

// Generation counts connections. A change tells the peer it reconnected.
func (c *Context) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// RoundTripTime returns the smoothed RTT in seconds.
func (c *Context) RoundTripTime() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rtt
}

// ObserveRoundTrip folds a new RTT sample (seconds) into the estimate.
func (c *Context) ObserveRoundTrip(sample float64) {
	if sample < 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rtt == 0 {
		c.rtt = sample
		return
	}
	c.rtt += (sample - c.rtt) * rttSmoothing
}

// IsSessionOwner reports whether the local participant is the elected owner.
func (c *Context) IsSessionOwner() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.localID != core.NoParticipant && c.owner == c.localID
}

// Owner returns the elected owner, or NoParticipant.
func (c *Context) Owner() core.ParticipantID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.owner
}

// LocalID returns the local participant id.
func (c *Context) LocalID() core.ParticipantID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.localID
}

// SetLocalID replaces the local id, used when the relay assigns one.
func (c *Context) SetLocalID(id core.ParticipantID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.localID = id
}

// ApplyRoster replaces the roster and owner and returns the members that left.
func (c *Context) ApplyRoster(members []Member, owner core.ParticipantID) []core.ParticipantID {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := make(map[core.ParticipantID]Member, len(members))
	for _, m := range members {
		next[m.ID] = m
	}

	var departed []core.ParticipantID
	for id := range c.members {
		if _, ok := next[id]; !ok {
			departed = append(departed, id)
		}
	}
	sort.Slice(departed, func(i, j int) bool { return departed[i] < departed[j] })

	c.members = next
	c.owner = owner
	return departed
}

// Member looks up a participant by id.
func (c *Context) Member(id core.ParticipantID) (Member, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.members[id]
	return m, ok
}

// Members returns the roster ordered by join time.
func (c *Context) Members() []Member {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Member, 0, len(c.members))
	for _, m := range c.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}

// GetSession returns the current recorded session.
func (c *Context) GetSession() *core.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// SetSession sets the current recorded session.
func (c *Context) SetSession(s *core.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

// Offline is the NetworkContext of a peer running without a transport.
// It is never connected and always owns its session.
type Offline struct {
	ID    core.ParticipantID
	start time.Time
	clock func() time.Time
}

// NewOffline creates an Offline context whose clock starts now.
func NewOffline(id core.ParticipantID, clock func() time.Time) *Offline {
	if clock == nil {
		clock = time.Now
	}
	return &Offline{ID: id, start: clock(), clock: clock}
}

func (o *Offline) Now() float64                { return o.clock().Sub(o.start).Seconds() }
func (o *Offline) IsConnected() bool           { return false }
func (o *Offline) RoundTripTime() float64      { return 0 }
func (o *Offline) IsSessionOwner() bool        { return true }
func (o *Offline) LocalID() core.ParticipantID { return o.ID }
