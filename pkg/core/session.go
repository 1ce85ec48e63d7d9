package core

import "time"

// Session describes one recorded drive.
type Session struct {
	ID                     uint          `json:"id"`
	SessionID              string        `json:"sessionId"`
	Name                   string        `json:"name"`
	Tag                    string        `json:"tag"`
	StartTime              time.Time     `json:"startTime"`
	EndTime                time.Time     `json:"endTime"`
	AuthorityControlsRight bool          `json:"authorityControlsRight"`
	Recorder               ParticipantID `json:"recorder"`
}

// EventKind classifies a SessionEvent.
type EventKind string

const (
	EventJoin            EventKind = "join"
	EventLeave           EventKind = "leave"
	EventAuthorityChange EventKind = "authority_change"
	EventReconnect       EventKind = "reconnect"
	EventSnap            EventKind = "snap"
	EventNitroStart      EventKind = "nitro_start"
	EventNitroStop       EventKind = "nitro_stop"
	EventRejectedRequest EventKind = "rejected_request"
)

// SessionEvent is a discrete occurrence during a session.
type SessionEvent struct {
	Time        time.Time     `json:"time"`
	SessionTime float64       `json:"sessionTime"`
	Kind        EventKind     `json:"kind"`
	Participant ParticipantID `json:"participant,omitempty"`
	Role        string        `json:"role,omitempty"`
	Detail      string        `json:"detail,omitempty"`
}

// NetStats is a periodic sample of replication health on one peer.
type NetStats struct {
	Time          time.Time     `json:"time"`
	Participant   ParticipantID `json:"participant"`
	IsAuthority   bool          `json:"isAuthority"`
	RTT           float64       `json:"rtt"`
	MeanInterval  float64       `json:"meanInterval"`
	Jitter        float64       `json:"jitter"`
	BackTime      float64       `json:"backTime"`
	BufferLen     int           `json:"bufferLen"`
	Snaps         int64         `json:"snaps"`
	Extrapolating bool          `json:"extrapolating"`
	SpeedKmh      float64       `json:"speedKmh"`
}

// UploadMetadata describes an exported session file for upload.
type UploadMetadata struct {
	SessionName string
	Tag         string
	Duration    float64
}

// Recording is everything captured for one session, in time order.
type Recording struct {
	Session   Session        `json:"session"`
	Snapshots []Snapshot     `json:"snapshots"`
	Events    []SessionEvent `json:"events"`
	NetStats  []NetStats     `json:"netStats"`
}

// Duration returns the session length, falling back to the snapshot span
// for sessions that never ended.
func (r Recording) Duration() time.Duration {
	if !r.Session.EndTime.IsZero() && r.Session.EndTime.After(r.Session.StartTime) {
		return r.Session.EndTime.Sub(r.Session.StartTime)
	}
	if n := len(r.Snapshots); n > 1 {
		span := r.Snapshots[n-1].Timestamp - r.Snapshots[0].Timestamp
		return time.Duration(span * float64(time.Second))
	}
	return 0
}

// UploadMetadata describes the recording for an upload.
func (r Recording) UploadMetadata() UploadMetadata {
	return UploadMetadata{
		SessionName: r.Session.Name,
		Tag:         r.Session.Tag,
		Duration:    r.Duration().Seconds(),
	}
}
