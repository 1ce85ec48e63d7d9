// Package streaming defines the messages exchanged between peers and the relay.
package streaming

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tandemdrive/tandem/pkg/core"
)

// Message type constants of the peer protocol.
const (
	TypeHello        = "hello"
	TypeWelcome      = "welcome"
	TypeRoster       = "roster"
	TypeSnapshot     = "snapshot"
	TypeSteerRequest = "steer_request"
	TypeNitroRequest = "nitro_request"
	TypePing         = "ping"
	TypePong         = "pong"
)

// Envelope wraps every message. To is empty for broadcasts and for
// messages addressed to the relay.
type Envelope struct {
	Type    string             `json:"type"`
	From    core.ParticipantID `json:"from,omitempty"`
	To      core.ParticipantID `json:"to,omitempty"`
	Payload json.RawMessage    `json:"payload,omitempty"`
}

// NewEnvelope marshals payload into an envelope of the given type.
func NewEnvelope(typ string, from core.ParticipantID, payload any) (Envelope, error) {
	env := Envelope{Type: typ, From: from}
	if payload == nil {
		return env, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshaling %s payload: %w", typ, err)
	}
	env.Payload = raw
	return env, nil
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s message has no payload", e.Type)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decoding %s payload: %w", e.Type, err)
	}
	return nil
}

// HelloPayload is sent by a peer right after connecting. ID is set when
// rejoining so the relay can keep the previous participant id.
type HelloPayload struct {
	ID      core.ParticipantID `json:"id,omitempty"`
	Name    string             `json:"name"`
	Session string             `json:"session"`
}

// WelcomePayload answers a hello with the assigned participant id.
type WelcomePayload struct {
	ID         core.ParticipantID `json:"id"`
	Session    string             `json:"session"`
	ServerTime float64            `json:"serverTime"`
}

// RosterMember is one connected participant.
type RosterMember struct {
	ID       core.ParticipantID `json:"id"`
	Name     string             `json:"name"`
	JoinedAt time.Time          `json:"joinedAt"`
}

// RosterPayload lists the session members and the current owner.
type RosterPayload struct {
	Owner   core.ParticipantID `json:"owner"`
	Members []RosterMember     `json:"members"`
}

// PingPayload carries the sender's clock in seconds.
type PingPayload struct {
	Sent float64 `json:"sent"`
}

// PongPayload echoes a ping together with the session clock.
type PongPayload struct {
	Sent       float64 `json:"sent"`
	ServerTime float64 `json:"serverTime"`
}

// Encode marshals an envelope as JSON.
func Encode(env Envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encoding %s envelope: %w", env.Type, err)
	}
	return data, nil
}

// Decode unmarshals a JSON envelope.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decoding envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("envelope has no type")
	}
	return env, nil
}
