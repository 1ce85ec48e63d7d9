package model

import (
	"database/sql"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Session{},
	&Snapshot{},
	&Event{},
	&NetStat{},
}

// Session is one recorded drive.
type Session struct {
	gorm.Model
	SessionID              string       `json:"sessionId" gorm:"size:64;uniqueIndex"`
	Name                   string       `json:"name" gorm:"size:127"`
	Tag                    string       `json:"tag" gorm:"size:127"`
	StartTime              time.Time    `json:"startTime"`
	EndTime                sql.NullTime `json:"endTime"`
	AuthorityControlsRight bool         `json:"authorityControlsRight"`
	Recorder               string       `json:"recorder" gorm:"size:64"`
	// Summary is filled when the session ends: counts and trajectory length.
	Summary datatypes.JSON `json:"summary" gorm:"default:'{}'"`
}

func (*Session) TableName() string {
	return "sessions"
}

// Snapshot is one authoritative vehicle state.
type Snapshot struct {
	ID          uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time        time.Time `json:"time"`
	SessionID   uint      `json:"sessionId" gorm:"index:idx_snapshot_session_id"`
	Session     Session   `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	SessionTime float64   `json:"sessionTime" gorm:"index:idx_snapshot_session_time"`

	Position   geom.Point `json:"position"` // ground X/Z as point X/Y, height as Z
	RotationW  float64    `json:"rotationW"`
	RotationX  float64    `json:"rotationX"`
	RotationY  float64    `json:"rotationY"`
	RotationZ  float64    `json:"rotationZ"`
	VelocityX  float64    `json:"velocityX"`
	VelocityY  float64    `json:"velocityY"`
	VelocityZ  float64    `json:"velocityZ"`
	AngularX   float64    `json:"angularX"`
	AngularY   float64    `json:"angularY"`
	AngularZ   float64    `json:"angularZ"`
	SpeedKmh   float32    `json:"speedKmh"`
	SteerLeft  float32    `json:"steerLeft"`
	SteerRight float32    `json:"steerRight"`
	NitroLeft  float32    `json:"nitroLeft"`
	NitroRight float32    `json:"nitroRight"`
	BoostLeft  bool       `json:"boostLeft" gorm:"default:false"`
	BoostRight bool       `json:"boostRight" gorm:"default:false"`
}

func (*Snapshot) TableName() string {
	return "snapshots"
}

// Event is a discrete session occurrence.
type Event struct {
	ID          uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time        time.Time `json:"time"`
	SessionID   uint      `json:"sessionId" gorm:"index:idx_event_session_id"`
	Session     Session   `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	SessionTime float64   `json:"sessionTime"`
	Kind        string    `json:"kind" gorm:"size:32;index:idx_event_kind"`
	Participant string    `json:"participant" gorm:"size:64"`
	Role        string    `json:"role" gorm:"size:16"`
	Detail      string    `json:"detail" gorm:"size:255"`
}

func (*Event) TableName() string {
	return "events"
}

// NetStat is a periodic replication health sample from one peer.
type NetStat struct {
	ID            uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time          time.Time `json:"time" gorm:"index:idx_netstat_time"`
	SessionID     uint      `json:"sessionId" gorm:"index:idx_netstat_session_id"`
	Session       Session   `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Participant   string    `json:"participant" gorm:"size:64"`
	IsAuthority   bool      `json:"isAuthority"`
	RTT           float32   `json:"rtt"`
	MeanInterval  float32   `json:"meanInterval"`
	Jitter        float32   `json:"jitter"`
	BackTime      float32   `json:"backTime"`
	BufferLen     uint16    `json:"bufferLen"`
	Snaps         int64     `json:"snaps"`
	Extrapolating bool      `json:"extrapolating"`
	SpeedKmh      float32   `json:"speedKmh"`
}

func (*NetStat) TableName() string {
	return "net_stats"
}
