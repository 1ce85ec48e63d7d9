// Package peer runs one participant: input, authority resolution, the
// authoritative simulation or the replicated reconstruction, and the
// presentation outputs, all from a single update goroutine.
package peer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tandemdrive/tandem/internal/authority"
	"github.com/tandemdrive/tandem/internal/config"
	"github.com/tandemdrive/tandem/internal/dispatcher"
	"github.com/tandemdrive/tandem/internal/dynamics"
	"github.com/tandemdrive/tandem/internal/nitro"
	"github.com/tandemdrive/tandem/internal/physics"
	"github.com/tandemdrive/tandem/internal/replication"
	"github.com/tandemdrive/tandem/internal/session"
	"github.com/tandemdrive/tandem/internal/steering"
	"github.com/tandemdrive/tandem/internal/storage"
	"github.com/tandemdrive/tandem/internal/transport"
	"github.com/tandemdrive/tandem/pkg/core"
	"github.com/tandemdrive/tandem/pkg/streaming"
)

// Dependencies holds everything a Runtime is wired to. Session and
// Transport are nil for a peer driving alone.
type Dependencies struct {
	Session   *session.Context
	Transport transport.Transport
	Input     Input
	// Recorder receives snapshots, events and net stats. Optional.
	Recorder storage.Backend
	Logger   *slog.Logger
	// DispatchLogger logs remote invocations. Defaults to Logger.
	DispatchLogger dispatcher.Logger
	Clock          func() time.Time
	Spawn          core.Pose
}

// Runtime is one peer. Update must be called from a single goroutine.
type Runtime struct {
	cfg    config.Config
	deps   Dependencies
	net    session.NetworkContext
	clock  func() time.Time
	logger *slog.Logger

	resolver   authority.Resolver
	tracker    authority.Tracker
	dispatcher *dispatcher.Dispatcher
	generation uint64

	vehicle    *physics.Vehicle
	controller *dynamics.Controller
	nitro      *nitro.Machine
	steer      *steering.Authority
	requester  *steering.Requester
	nitroEdge  nitro.Edge
	physics    Accumulator
	recordTick *Timer

	reconstructor *replication.Reconstructor
	broadcaster   *replication.Broadcaster

	lastOutput    dynamics.Output
	rosterChanged bool
	ticks         uint64

	mu           sync.RWMutex
	presentation Presentation
	status       Status
	shown        core.Snapshot
}

// New wires a Runtime from cfg and deps.
func New(cfg config.Config, deps Dependencies) (*Runtime, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Input == nil {
		deps.Input = Idle
	}
	if deps.Spawn.Orientation.W == 0 && deps.Spawn.Orientation.V.Len() == 0 {
		deps.Spawn.Orientation = core.IdentityPose().Orientation
	}
	if deps.DispatchLogger == nil {
		deps.DispatchLogger = deps.Logger
	}

	r := &Runtime{
		cfg:    cfg,
		deps:   deps,
		clock:  deps.Clock,
		logger: deps.Logger,
		physics: Accumulator{
			Step:     cfg.Peer.PhysicsStep.Seconds(),
			MaxFrame: cfg.Peer.MaxFrameTime.Seconds(),
		},
		recordTick: NewTimer(cfg.Storage.SnapshotEvery),
	}

	networked := cfg.Peer.CoopNetwork && deps.Session != nil && deps.Transport != nil
	if networked {
		r.net = deps.Session
	} else {
		id := core.ParticipantID("local")
		if deps.Session != nil && deps.Session.LocalID() != core.NoParticipant {
			id = deps.Session.LocalID()
		}
		r.net = session.NewOffline(id, deps.Clock)
	}
	r.resolver = authority.Resolver{
		Networked:              networked,
		AuthorityControlsRight: cfg.Peer.AuthorityControlsRight,
		Net:                    r.net,
	}

	r.vehicle = physics.NewVehicle(physics.DefaultSpec(cfg.Dynamics.MassKg), deps.Spawn)
	controller, err := dynamics.NewController(cfg.Dynamics, cfg.Steering, r.vehicle, r.vehicle.Wheels())
	if err != nil {
		return nil, fmt.Errorf("creating dynamics controller: %w", err)
	}
	r.controller = controller
	r.nitro = nitro.NewMachine(cfg.Nitro, cfg.Dynamics.TargetSpeedKmh)
	r.steer = steering.NewAuthority(cfg.Steering)
	r.requester = steering.NewRequester(cfg.Steering)

	r.reconstructor, err = replication.NewReconstructor(cfg.Replication)
	if err != nil {
		return nil, fmt.Errorf("creating reconstructor: %w", err)
	}
	if networked {
		r.broadcaster, err = replication.NewBroadcaster(float64(cfg.Peer.SendRate), deps.Transport)
		if err != nil {
			return nil, fmt.Errorf("creating broadcaster: %w", err)
		}
	}

	r.dispatcher, err = dispatcher.New(deps.DispatchLogger)
	if err != nil {
		return nil, fmt.Errorf("creating dispatcher: %w", err)
	}
	r.registerHandlers()
	if networked {
		r.dispatcher.ObserveQueue("inbox", deps.Transport.Inbox().Len)
	}

	return r, nil
}

// Run calls Update at cfg.Peer.UpdateRate until ctx is cancelled.
func (r *Runtime) Run(ctx context.Context) error {
	rate := r.cfg.Peer.UpdateRate
	if rate <= 0 {
		rate = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	last := r.clock()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			now := r.clock()
			r.Update(now.Sub(last).Seconds())
			last = now
		}
	}
}

// Update runs one frame of frameDt seconds.
func (r *Runtime) Update(frameDt float64) {
	r.drainInbox()
	r.checkReconnect()

	isAuthority := r.resolver.IsAuthority()
	if tr, changed := r.tracker.Observe(isAuthority); changed {
		r.onTransition(tr)
	}
	if r.rosterChanged && isAuthority {
		r.forgetUncontrolled()
	}
	r.rosterChanged = false

	in := r.deps.Input.Read(r.net.Now())
	if isAuthority {
		r.updateAuthority(in, frameDt)
	} else {
		r.updateRemote(in, frameDt)
	}
	r.ticks++
	r.publish(isAuthority)
}

func (r *Runtime) drainInbox() {
	if !r.resolver.Networked {
		return
	}
	for _, env := range r.deps.Transport.Inbox().GetAndEmpty() {
		switch env.Type {
		case streaming.TypeRoster:
			r.applyRoster(env)
		case streaming.TypeSnapshot:
			if r.resolver.IsAuthority() {
				continue
			}
			var s core.Snapshot
			if err := env.Decode(&s); err != nil {
				r.logger.Debug("Dropping snapshot", "error", err)
				continue
			}
			r.reconstructor.Receive(s, r.net.Now())
		default:
			err := r.dispatcher.Dispatch(dispatcher.Invocation{
				Method:   env.Type,
				Sender:   env.From,
				Payload:  env.Payload,
				Received: r.clock(),
			})
			if err != nil {
				r.logger.Debug("Invocation not handled", "method", env.Type, "sender", env.From, "error", err)
			}
		}
	}
}

func (r *Runtime) applyRoster(env streaming.Envelope) {
	var p streaming.RosterPayload
	if err := env.Decode(&p); err != nil {
		r.logger.Warn("Invalid roster", "error", err)
		return
	}
	sess := r.deps.Session
	known := make(map[core.ParticipantID]bool)
	for _, m := range sess.Members() {
		known[m.ID] = true
	}

	departed := sess.ApplyRoster(transport.Members(p), p.Owner)
	for _, m := range p.Members {
		if !known[m.ID] {
			r.event(core.EventJoin, m.ID, m.Name)
		}
	}
	for _, id := range departed {
		r.event(core.EventLeave, id, "")
	}
	r.rosterChanged = true
	r.logger.Debug("Roster applied", "owner", p.Owner, "members", len(p.Members), "departed", len(departed))
}

// forgetUncontrolled straightens and releases every wheel no member steers.
func (r *Runtime) forgetUncontrolled() {
	var controlled [2]bool
	controlled[r.resolver.LocalRole()] = true
	owner := r.deps.Session.Owner()
	for _, m := range r.deps.Session.Members() {
		if m.ID == r.net.LocalID() {
			continue
		}
		controlled[r.resolver.RoleOf(m.ID, owner)] = true
	}
	for _, role := range core.Roles {
		if !controlled[role] {
			r.steer.Forget(role)
			r.nitro.Forget(role)
		}
	}
}

func (r *Runtime) checkReconnect() {
	if r.deps.Session == nil || !r.resolver.Networked {
		return
	}
	gen := r.deps.Session.Generation()
	if gen == r.generation {
		return
	}
	first := r.generation == 0
	r.generation = gen
	if first {
		return
	}
	r.reconstructor.Reset()
	r.requester.Reset()
	r.nitroEdge.Reset()
	r.logger.Info("Reconnected to session", "generation", gen)
	r.event(core.EventReconnect, r.net.LocalID(), fmt.Sprintf("generation %d", gen))
}

func (r *Runtime) onTransition(tr authority.Transition) {
	if tr.Gained() && !tr.Initial {
		shown := r.reconstructor.Display()
		r.steer.Seed(shown.SteerAngle)
		r.nitro.Seed(shown.Nitro)
	}

	r.vehicle.SetKinematic(!tr.To)
	r.reconstructor.Reset()
	r.physics.Reset()
	if r.broadcaster != nil {
		r.broadcaster.Reset()
	}
	if tr.Lost() {
		r.requester.Reset()
		r.nitroEdge.Reset()
	}

	role := r.resolver.LocalRole()
	r.logger.Info("Authority changed", "authority", tr.To, "role", role.String(), "initial", tr.Initial)
	r.event(core.EventAuthorityChange, r.net.LocalID(), fmt.Sprintf("authority=%t role=%s", tr.To, role))
}

func (r *Runtime) updateAuthority(in InputState, frameDt float64) {
	effMax := steering.EffectiveMaxSteer(r.cfg.Steering, core.MsToKmh(r.vehicle.Velocity().Len()))
	for _, role := range core.Roles {
		if !r.resolver.Controls(role) {
			continue
		}
		r.steer.SetTarget(role, steering.TargetFromAxis(in.Steer[role], effMax))
		r.nitro.SetRequested(role, in.Nitro[role])
	}

	step := r.physics.Step
	for range r.physics.Advance(frameDt) {
		edges := r.nitro.Tick(step)
		angles := r.steer.Step(step)
		r.vehicle.Wheels().SetSteer(angles)
		r.lastOutput = r.controller.Step(dynamics.Input{
			SteerAngle:  angles,
			ManualBrake: in.Brake,
			TargetSpeed: r.nitro.TargetSpeed(),
		}, step)
		r.vehicle.Step(step)
		r.nitroEvents(edges)
	}

	state := r.State()
	now := r.net.Now()
	if r.broadcaster != nil && r.resolver.IsNetworked() {
		if _, err := r.broadcaster.Emit(now, state); err != nil {
			r.logger.Debug("Snapshot not sent", "error", err)
		}
	}
	if r.deps.Recorder != nil && r.recordTick.Tick() {
		snap := core.NewSnapshot(now, state)
		if err := r.deps.Recorder.RecordSnapshot(&snap); err != nil {
			r.logger.Debug("Failed to record snapshot", "error", err)
		}
	}
}

func (r *Runtime) nitroEvents(e nitro.Edges) {
	if !e.Any() {
		return
	}
	for _, role := range core.Roles {
		if e.Started[role] {
			r.event(core.EventNitroStart, core.NoParticipant, role.String())
		}
		if e.Stopped[role] {
			r.event(core.EventNitroStop, core.NoParticipant, role.String())
		}
	}
}

func (r *Runtime) updateRemote(in InputState, frameDt float64) {
	role := r.resolver.LocalRole()
	shown := r.reconstructor.Display()

	effMax := steering.EffectiveMaxSteer(r.cfg.Steering, shown.SpeedKmh())
	target := steering.TargetFromAxis(in.Steer[role], effMax)
	if _, send := r.requester.Update(r.clock(), target, frameDt); send {
		r.invoke(streaming.TypeSteerRequest, core.SteerRequest{Role: role, Angle: target, Sender: r.net.LocalID()})
	}
	if pressed := in.Nitro[role]; r.nitroEdge.Changed(pressed) {
		r.invoke(streaming.TypeNitroRequest, core.NitroRequest{Role: role, Pressed: pressed, Sender: r.net.LocalID()})
	}

	snaps := r.reconstructor.Status().Snaps
	d, ok := r.reconstructor.Update(r.net.Now(), r.net.RoundTripTime(), frameDt)
	if !ok {
		return
	}
	r.vehicle.SetPose(d.Pose)
	r.vehicle.SetVelocity(d.LinearVelocity)
	r.vehicle.SetAngularVelocity(d.AngularVelocity)
	r.vehicle.Wheels().SetSteer(d.SteerAngle)
	if r.reconstructor.Status().Snaps > snaps && snaps > 0 {
		r.event(core.EventSnap, r.net.LocalID(), d.Placement.String())
	}
}

// invoke sends a fire-and-forget request to the authority.
func (r *Runtime) invoke(method string, payload any) {
	env, err := streaming.NewEnvelope(method, r.net.LocalID(), payload)
	if err != nil {
		r.logger.Error("Failed to build request", "method", method, "error", err)
		return
	}
	if err := r.deps.Transport.Invoke(env); err != nil {
		r.logger.Debug("Request not sent", "method", method, "error", err)
	}
}

// State returns the vehicle state this peer currently shows: the
// simulated state on the authority, the reconstruction elsewhere.
func (r *Runtime) State() core.VehicleState {
	if r.resolver.IsAuthority() {
		return core.VehicleState{
			Pose:            r.vehicle.Pose(),
			LinearVelocity:  r.vehicle.Velocity(),
			AngularVelocity: r.vehicle.AngularVelocity(),
			SteerAngle:      r.steer.Angles(),
			Nitro:           r.nitro.Amount(),
			NitroActive:     r.nitro.Active(),
		}
	}
	return r.reconstructor.Display().VehicleState
}

func (r *Runtime) publish(isAuthority bool) {
	state := r.State()
	role := r.resolver.LocalRole()
	toe := r.lastOutput.Toe
	if !isAuthority {
		state.SteerAngle[role] = r.requester.Display()
		toe = dynamics.ClassifyToe(state.SteerAngle, r.cfg.Steering.ToeThreshold)
	}
	p := newPresentation(state, toe, isAuthority, role)
	st := r.buildStatus(isAuthority, role, state)

	r.mu.Lock()
	r.presentation = p
	r.status = st
	r.shown = core.NewSnapshot(r.net.Now(), state)
	r.mu.Unlock()
}

// Presentation returns the outputs of the last update. Safe for
// concurrent use.
func (r *Runtime) Presentation() Presentation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.presentation
}

// Shown returns the vehicle state published by the last update, stamped
// with session time. Safe for concurrent use.
func (r *Runtime) Shown() core.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.shown
}

// Resolver exposes the authority model of this peer.
func (r *Runtime) Resolver() authority.Resolver { return r.resolver }

// Vehicle exposes the simulated body.
func (r *Runtime) Vehicle() *physics.Vehicle { return r.vehicle }

// SetNitroEnabled toggles nitro on the authority.
func (r *Runtime) SetNitroEnabled(enabled bool) { r.nitro.SetEnabled(enabled) }

func (r *Runtime) event(kind core.EventKind, who core.ParticipantID, detail string) {
	if r.deps.Recorder == nil {
		return
	}
	e := core.SessionEvent{
		Time:        r.clock(),
		SessionTime: r.net.Now(),
		Kind:        kind,
		Participant: who,
		Role:        r.resolver.LocalRole().String(),
		Detail:      detail,
	}
	if err := r.deps.Recorder.RecordEvent(&e); err != nil {
		r.logger.Debug("Failed to record event", "kind", kind, "error", err)
	}
}
