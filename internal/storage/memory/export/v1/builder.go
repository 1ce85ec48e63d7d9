package v1

import (
	"time"

	"github.com/tandemdrive/tandem/internal/geo"
	"github.com/tandemdrive/tandem/internal/util"
	"github.com/tandemdrive/tandem/pkg/core"
)

// Build creates an Export from a recording.
func Build(rec core.Recording) Export {
	s := rec.Session
	export := Export{
		Version:                Version,
		SessionID:              s.SessionID,
		Name:                   s.Name,
		Tag:                    s.Tag,
		StartTime:              s.StartTime.UTC().Format(time.RFC3339Nano),
		Duration:               util.Round(rec.Duration().Seconds(), 3),
		AuthorityControlsRight: s.AuthorityControlsRight,
		Recorder:               string(s.Recorder),
		Frames:                 make([][]any, 0, len(rec.Snapshots)),
		Events:                 make([][]any, 0, len(rec.Events)),
		NetStats:               make([]NetStat, 0, len(rec.NetStats)),
	}
	if !s.EndTime.IsZero() {
		export.EndTime = s.EndTime.UTC().Format(time.RFC3339Nano)
	}

	if ls, err := geo.Trajectory(rec.Snapshots); err == nil {
		export.Trajectory = ls.AsText()
		export.DistanceM = util.Round(geo.Distance(ls), 3)
	}

	for _, snap := range rec.Snapshots {
		export.Frames = append(export.Frames, frame(snap))
	}

	for _, e := range rec.Events {
		export.Events = append(export.Events, []any{
			util.Round(e.SessionTime, 3),
			string(e.Kind),
			string(e.Participant),
			e.Role,
			e.Detail,
		})
	}

	for _, n := range rec.NetStats {
		export.NetStats = append(export.NetStats, NetStat{
			Time:         n.Time.UTC().Format(time.RFC3339Nano),
			Participant:  string(n.Participant),
			IsAuthority:  n.IsAuthority,
			RTT:          util.Round(n.RTT, 4),
			Jitter:       util.Round(n.Jitter, 4),
			BackTime:     util.Round(n.BackTime, 4),
			BufferLen:    n.BufferLen,
			Snaps:        n.Snaps,
			Extrapolated: n.Extrapolating,
		})
	}

	return export
}

func frame(s core.Snapshot) []any {
	q := s.Orientation
	boost := 0
	for _, r := range core.Roles {
		if s.NitroActive[r] {
			boost |= 1 << r
		}
	}
	return []any{
		util.Round(s.Timestamp, 3),
		util.Round3(s.Position[:]),
		util.Round3([]float64{q.W, q.V.X(), q.V.Y(), q.V.Z()}),
		util.Round3(s.LinearVelocity[:]),
		util.Round3(s.SteerAngle[:]),
		util.Round3(s.Nitro[:]),
		boost,
	}
}
