package v1

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tandemdrive/tandem/pkg/core"
)

func TestBuild(t *testing.T) {
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	state := core.VehicleState{Pose: core.IdentityPose()}
	state.Position = mgl64.Vec3{1.23456, 0.5, 2}
	state.SteerAngle = [2]float64{-3.14159, 2.5}
	state.Nitro = [2]float64{1, 0.5}
	state.NitroActive = [2]bool{true, true}
	second := state
	second.Position = mgl64.Vec3{1.23456, 0.5, 12}
	second.NitroActive = [2]bool{false, true}

	rec := core.Recording{
		Session: core.Session{
			SessionID:              "abc",
			Name:                   "Drive",
			StartTime:              start,
			EndTime:                start.Add(5 * time.Second),
			AuthorityControlsRight: true,
			Recorder:               "alice",
		},
		Snapshots: []core.Snapshot{core.NewSnapshot(0.5, state), core.NewSnapshot(1.5, second)},
		Events: []core.SessionEvent{
			{SessionTime: 1.23456, Kind: core.EventNitroStart, Participant: "bob", Role: "left"},
		},
		NetStats: []core.NetStats{{Time: start, Participant: "bob", RTT: 0.123456, Extrapolating: true}},
	}

	export := Build(rec)

	assert.Equal(t, Version, export.Version)
	assert.Equal(t, "abc", export.SessionID)
	assert.Equal(t, "2026-03-14T09:00:00Z", export.StartTime)
	assert.Equal(t, "2026-03-14T09:00:05Z", export.EndTime)
	assert.Equal(t, 5.0, export.Duration)
	assert.Equal(t, "alice", export.Recorder)
	assert.InDelta(t, 10.0, export.DistanceM, 1e-9)
	assert.Contains(t, export.Trajectory, "LINESTRING ZM")

	require.Len(t, export.Frames, 2)
	f := export.Frames[0]
	assert.Equal(t, 0.5, f[0])
	assert.Equal(t, []float64{1.235, 0.5, 2}, f[1])
	assert.Equal(t, []float64{1, 0, 0, 0}, f[2])
	assert.Equal(t, []float64{-3.142, 2.5}, f[4])
	assert.Equal(t, 3, f[6])
	assert.Equal(t, 2, export.Frames[1][6])

	require.Len(t, export.Events, 1)
	assert.Equal(t, []any{1.235, "nitro_start", "bob", "left", ""}, export.Events[0])

	require.Len(t, export.NetStats, 1)
	assert.Equal(t, 0.1235, export.NetStats[0].RTT)
	assert.True(t, export.NetStats[0].Extrapolated)
}

func TestBuildEmpty(t *testing.T) {
	export := Build(core.Recording{})

	assert.NotNil(t, export.Frames)
	assert.NotNil(t, export.Events)
	assert.NotNil(t, export.NetStats)
	assert.Empty(t, export.EndTime)
	assert.Empty(t, export.Trajectory)
	assert.Zero(t, export.DistanceM)
}
