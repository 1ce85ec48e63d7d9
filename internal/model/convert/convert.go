// Package convert maps core session types to their GORM models and back.
package convert

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/tandemdrive/tandem/internal/geo"
	"github.com/tandemdrive/tandem/internal/model"
	"github.com/tandemdrive/tandem/pkg/core"
)

// CoreToSession converts a core.Session. The database ID is kept when set.
func CoreToSession(s core.Session) model.Session {
	m := model.Session{
		SessionID:              s.SessionID,
		Name:                   s.Name,
		Tag:                    s.Tag,
		StartTime:              s.StartTime,
		AuthorityControlsRight: s.AuthorityControlsRight,
		Recorder:               string(s.Recorder),
	}
	m.ID = s.ID
	if !s.EndTime.IsZero() {
		m.EndTime = sql.NullTime{Time: s.EndTime, Valid: true}
	}
	return m
}

// SessionToCore converts a GORM Session.
func SessionToCore(m model.Session) core.Session {
	s := core.Session{
		ID:                     m.ID,
		SessionID:              m.SessionID,
		Name:                   m.Name,
		Tag:                    m.Tag,
		StartTime:              m.StartTime,
		AuthorityControlsRight: m.AuthorityControlsRight,
		Recorder:               core.ParticipantID(m.Recorder),
	}
	if m.EndTime.Valid {
		s.EndTime = m.EndTime.Time
	}
	return s
}

// CoreToSnapshot converts a snapshot recorded at wall time at.
func CoreToSnapshot(s core.Snapshot, at time.Time) (model.Snapshot, error) {
	pos, err := geo.PointFromVec(s.Position)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("snapshot position: %w", err)
	}
	q := s.Orientation
	return model.Snapshot{
		Time:        at,
		SessionTime: s.Timestamp,
		Position:    pos,
		RotationW:   q.W,
		RotationX:   q.V.X(),
		RotationY:   q.V.Y(),
		RotationZ:   q.V.Z(),
		VelocityX:   s.LinearVelocity.X(),
		VelocityY:   s.LinearVelocity.Y(),
		VelocityZ:   s.LinearVelocity.Z(),
		AngularX:    s.AngularVelocity.X(),
		AngularY:    s.AngularVelocity.Y(),
		AngularZ:    s.AngularVelocity.Z(),
		SpeedKmh:    float32(s.SpeedKmh()),
		SteerLeft:   float32(s.SteerAngle[core.RoleLeft]),
		SteerRight:  float32(s.SteerAngle[core.RoleRight]),
		NitroLeft:   float32(s.Nitro[core.RoleLeft]),
		NitroRight:  float32(s.Nitro[core.RoleRight]),
		BoostLeft:   s.NitroActive[core.RoleLeft],
		BoostRight:  s.NitroActive[core.RoleRight],
	}, nil
}

// SnapshotToCore converts a GORM Snapshot.
func SnapshotToCore(m model.Snapshot) core.Snapshot {
	var s core.Snapshot
	s.Timestamp = m.SessionTime
	s.Position = geo.VecFromPoint(m.Position)
	s.Orientation = mgl64.Quat{W: m.RotationW, V: mgl64.Vec3{m.RotationX, m.RotationY, m.RotationZ}}
	s.LinearVelocity = mgl64.Vec3{m.VelocityX, m.VelocityY, m.VelocityZ}
	s.AngularVelocity = mgl64.Vec3{m.AngularX, m.AngularY, m.AngularZ}
	s.SteerAngle = [2]float64{float64(m.SteerLeft), float64(m.SteerRight)}
	s.Nitro = [2]float64{float64(m.NitroLeft), float64(m.NitroRight)}
	s.NitroActive = [2]bool{m.BoostLeft, m.BoostRight}
	return s
}

// CoreToEvent converts a session event.
func CoreToEvent(e core.SessionEvent) model.Event {
	return model.Event{
		Time:        e.Time,
		SessionTime: e.SessionTime,
		Kind:        string(e.Kind),
		Participant: string(e.Participant),
		Role:        e.Role,
		Detail:      e.Detail,
	}
}

// EventToCore converts a GORM Event.
func EventToCore(m model.Event) core.SessionEvent {
	return core.SessionEvent{
		Time:        m.Time,
		SessionTime: m.SessionTime,
		Kind:        core.EventKind(m.Kind),
		Participant: core.ParticipantID(m.Participant),
		Role:        m.Role,
		Detail:      m.Detail,
	}
}

// CoreToNetStat converts a net stats sample.
func CoreToNetStat(n core.NetStats) model.NetStat {
	bufferLen := n.BufferLen
	if bufferLen > 65535 {
		bufferLen = 65535
	}
	return model.NetStat{
		Time:          n.Time,
		Participant:   string(n.Participant),
		IsAuthority:   n.IsAuthority,
		RTT:           float32(n.RTT),
		MeanInterval:  float32(n.MeanInterval),
		Jitter:        float32(n.Jitter),
		BackTime:      float32(n.BackTime),
		BufferLen:     uint16(bufferLen),
		Snaps:         n.Snaps,
		Extrapolating: n.Extrapolating,
		SpeedKmh:      float32(n.SpeedKmh),
	}
}

// NetStatToCore converts a GORM NetStat.
func NetStatToCore(m model.NetStat) core.NetStats {
	return core.NetStats{
		Time:          m.Time,
		Participant:   core.ParticipantID(m.Participant),
		IsAuthority:   m.IsAuthority,
		RTT:           float64(m.RTT),
		MeanInterval:  float64(m.MeanInterval),
		Jitter:        float64(m.Jitter),
		BackTime:      float64(m.BackTime),
		BufferLen:     int(m.BufferLen),
		Snaps:         m.Snaps,
		Extrapolating: m.Extrapolating,
		SpeedKmh:      float64(m.SpeedKmh),
	}
}
