// Package v1 contains the v1 export format for recorded sessions.
package v1

// Version is written into every export.
const Version = 1

// Export is the root JSON structure for v1 format.
// Frames and Events use positional arrays to keep long sessions small:
//
//	frame: [t, [x, y, z], [w, x, y, z], [vx, vy, vz], [steerLeft, steerRight], [nitroLeft, nitroRight], boostMask]
//	event: [sessionTime, kind, participant, role, detail]
type Export struct {
	Version                int       `json:"version"`
	SessionID              string    `json:"sessionId"`
	Name                   string    `json:"name"`
	Tag                    string    `json:"tag"`
	StartTime              string    `json:"startTime"`
	EndTime                string    `json:"endTime,omitempty"`
	Duration               float64   `json:"duration"`
	AuthorityControlsRight bool      `json:"authorityControlsRight"`
	Recorder               string    `json:"recorder"`
	DistanceM              float64   `json:"distanceM"`
	Trajectory             string    `json:"trajectory,omitempty"` // WKT LINESTRING ZM
	Frames                 [][]any   `json:"frames"`
	Events                 [][]any   `json:"events"`
	NetStats               []NetStat `json:"netStats"`
}

// NetStat is one replication health sample.
type NetStat struct {
	Time         string  `json:"time"`
	Participant  string  `json:"participant"`
	IsAuthority  bool    `json:"isAuthority"`
	RTT          float64 `json:"rtt"`
	Jitter       float64 `json:"jitter"`
	BackTime     float64 `json:"backTime"`
	BufferLen    int     `json:"bufferLen"`
	Snaps        int64   `json:"snaps"`
	Extrapolated bool    `json:"extrapolated"`
}
