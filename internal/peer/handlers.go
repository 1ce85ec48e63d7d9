package peer

import (
	"github.com/tandemdrive/tandem/internal/dispatcher"
	"github.com/tandemdrive/tandem/pkg/core"
	"github.com/tandemdrive/tandem/pkg/streaming"
)

// registerHandlers wires the remote invocations. Both are no-ops unless
// this peer is the authority.
func (r *Runtime) registerHandlers() {
	authorityOnly := dispatcher.Guarded(r.resolver.IsAuthority)

	r.dispatcher.Register(streaming.TypeSteerRequest, r.handleSteerRequest, authorityOnly, dispatcher.Logged())
	r.dispatcher.Register(streaming.TypeNitroRequest, r.handleNitroRequest, authorityOnly, dispatcher.Logged())
}

func (r *Runtime) handleSteerRequest(inv dispatcher.Invocation) error {
	var req core.SteerRequest
	if err := inv.Decode(&req); err != nil {
		return err
	}
	req.Sender = inv.Sender
	if !r.steer.Apply(req, r) {
		r.reject(inv)
	}
	return nil
}

func (r *Runtime) handleNitroRequest(inv dispatcher.Invocation) error {
	var req core.NitroRequest
	if err := inv.Decode(&req); err != nil {
		return err
	}
	role, ok := r.RoleOfSender(inv.Sender)
	if !ok {
		r.reject(inv)
		return nil
	}
	r.nitro.SetRequested(role, req.Pressed)
	return nil
}

func (r *Runtime) reject(inv dispatcher.Invocation) {
	r.logger.Debug("Ignoring request from unknown sender", "method", inv.Method, "sender", inv.Sender)
	r.event(core.EventRejectedRequest, inv.Sender, inv.Method)
}

// RoleOfSender returns the wheel a remote member steers. The local peer,
// unknown ids and departed members have none.
func (r *Runtime) RoleOfSender(id core.ParticipantID) (core.Role, bool) {
	if id == core.NoParticipant || id == r.net.LocalID() || r.deps.Session == nil {
		return 0, false
	}
	if _, ok := r.deps.Session.Member(id); !ok {
		return 0, false
	}
	return r.resolver.RoleOf(id, r.deps.Session.Owner()), true
}
