// Package memory connects peers in one process through a shared Hub.
package memory

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/tandemdrive/tandem/internal/queue"
	"github.com/tandemdrive/tandem/internal/session"
	"github.com/tandemdrive/tandem/internal/transport"
	"github.com/tandemdrive/tandem/pkg/core"
	"github.com/tandemdrive/tandem/pkg/streaming"
)

// Options shape delivery between endpoints. The zero value delivers
// everything immediately and in order.
type Options struct {
	// Latency delays every delivery.
	Latency time.Duration
	// Jitter adds a random extra delay up to this value to snapshots,
	// which reorders them.
	Jitter time.Duration
	// Loss is the probability in [0, 1] that a snapshot is dropped.
	Loss float64
	// Seed makes loss and jitter reproducible.
	Seed uint64
	// InboxSize bounds each endpoint inbox; zero is unbounded.
	InboxSize int
}

// Hub is an in-process session. The earliest joined endpoint owns it.
type Hub struct {
	mu        sync.Mutex
	opts      Options
	rng       *rand.Rand
	start     time.Time
	roster    transport.Roster
	endpoints map[core.ParticipantID]*Endpoint
	logger    *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(opts Options, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		opts:      opts,
		rng:       rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
		start:     time.Now(),
		endpoints: make(map[core.ParticipantID]*Endpoint),
		logger:    logger,
	}
}

// Now returns the hub session clock in seconds.
func (h *Hub) Now() float64 { return time.Since(h.start).Seconds() }

// Join connects a peer whose session state is ctx. The context's local id
// is kept when set, otherwise a new one is assigned.
func (h *Hub) Join(name string, ctx *session.Context) (*Endpoint, error) {
	id := ctx.LocalID()
	if id == core.NoParticipant {
		id = session.NewID()
		ctx.SetLocalID(id)
	}

	h.mu.Lock()
	if _, ok := h.endpoints[id]; ok {
		h.mu.Unlock()
		return nil, fmt.Errorf("participant %s already joined", id)
	}
	e := &Endpoint{
		hub:   h,
		id:    id,
		ctx:   ctx,
		inbox: queue.NewBounded[streaming.Envelope](h.opts.InboxSize),
	}
	h.endpoints[id] = e
	h.roster.Join(streaming.RosterMember{ID: id, Name: name, JoinedAt: time.Now()})
	h.mu.Unlock()

	ctx.SetConnected(true)
	ctx.SyncClock(h.Now(), 0)
	ctx.ObserveRoundTrip(2 * h.opts.Latency.Seconds())

	h.logger.Info("Peer joined hub", "participant", id, "name", name)
	h.publishRoster()
	return e, nil
}

func (h *Hub) leave(id core.ParticipantID) {
	h.mu.Lock()
	if _, ok := h.endpoints[id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.endpoints, id)
	migrated := h.roster.Leave(id)
	owner := h.roster.Owner()
	h.mu.Unlock()

	h.logger.Info("Peer left hub", "participant", id)
	if migrated {
		h.logger.Info("Session ownership migrated", "owner", owner)
	}
	h.publishRoster()
}

// Owner returns the current session owner.
func (h *Hub) Owner() core.ParticipantID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.roster.Owner()
}

func (h *Hub) publishRoster() {
	h.mu.Lock()
	payload := h.roster.Payload()
	targets := make([]*Endpoint, 0, len(h.endpoints))
	for _, e := range h.endpoints {
		targets = append(targets, e)
	}
	h.mu.Unlock()

	env, err := streaming.NewEnvelope(streaming.TypeRoster, core.NoParticipant, payload)
	if err != nil {
		h.logger.Error("Failed to build roster", "error", err)
		return
	}
	for _, e := range targets {
		e.inbox.Push(env)
	}
}

// deliver hands env to the recipient after the configured delay.
// Unreliable messages are subject to loss and jitter.
func (h *Hub) deliver(to *Endpoint, env streaming.Envelope, reliable bool) {
	delay := h.opts.Latency
	if !reliable {
		h.mu.Lock()
		drop := h.opts.Loss > 0 && h.rng.Float64() < h.opts.Loss
		if h.opts.Jitter > 0 {
			delay += time.Duration(h.rng.Int64N(int64(h.opts.Jitter)))
		}
		h.mu.Unlock()
		if drop {
			return
		}
	}
	if delay <= 0 {
		to.inbox.Push(env)
		return
	}
	time.AfterFunc(delay, func() { to.inbox.Push(env) })
}

func (h *Hub) others(id core.ParticipantID) []*Endpoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Endpoint, 0, len(h.endpoints))
	for other, e := range h.endpoints {
		if other != id {
			out = append(out, e)
		}
	}
	return out
}

func (h *Hub) endpoint(id core.ParticipantID) (*Endpoint, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.endpoints[id]
	return e, ok
}

// Endpoint is one peer's Transport on a Hub.
type Endpoint struct {
	hub   *Hub
	id    core.ParticipantID
	ctx   *session.Context
	inbox *queue.Queue[streaming.Envelope]

	mu     sync.Mutex
	closed bool
}

// ID returns the participant id of the endpoint.
func (e *Endpoint) ID() core.ParticipantID { return e.id }

// Inbox returns the received envelopes.
func (e *Endpoint) Inbox() *queue.Queue[streaming.Envelope] { return e.inbox }

// Broadcast sends s to every other endpoint.
func (e *Endpoint) Broadcast(s core.Snapshot) error {
	if e.isClosed() {
		return transport.ErrNotConnected
	}
	env, err := streaming.NewEnvelope(streaming.TypeSnapshot, e.id, s)
	if err != nil {
		return err
	}
	for _, other := range e.hub.others(e.id) {
		e.hub.deliver(other, env, false)
	}
	return nil
}

// Invoke delivers env to its recipient, or to the owner when To is empty.
func (e *Endpoint) Invoke(env streaming.Envelope) error {
	if e.isClosed() {
		return transport.ErrNotConnected
	}
	env.From = e.id
	to := env.To
	if to == core.NoParticipant {
		to = e.hub.Owner()
	}
	target, ok := e.hub.endpoint(to)
	if !ok {
		return fmt.Errorf("invoking %s: no participant %q", env.Type, to)
	}
	e.hub.deliver(target, env, true)
	return nil
}

// Close leaves the hub. Ownership migrates to the next member.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.hub.leave(e.id)
	e.ctx.SetConnected(false)
	return nil
}

func (e *Endpoint) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}
