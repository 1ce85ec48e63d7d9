package memory

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tandemdrive/tandem/internal/config"
	"github.com/tandemdrive/tandem/pkg/core"
)

var start = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func snapshot(t float64, z float64) *core.Snapshot {
	state := core.VehicleState{Pose: core.IdentityPose()}
	state.Position = mgl64.Vec3{0, 0.5, z}
	state.LinearVelocity = mgl64.Vec3{0, 0, 8.3333}
	state.Nitro = [2]float64{1, 0.75}
	state.NitroActive = [2]bool{false, true}
	s := core.NewSnapshot(t, state)
	return &s
}

func record(t *testing.T, b *Backend) {
	t.Helper()
	require.NoError(t, b.StartSession(&core.Session{
		SessionID:              "s-1",
		Name:                   "Coop Drive",
		Tag:                    "coop",
		StartTime:              start,
		AuthorityControlsRight: true,
		Recorder:               "alice",
	}))
	require.NoError(t, b.RecordSnapshot(snapshot(0, 0)))
	require.NoError(t, b.RecordSnapshot(snapshot(1, 10)))
	require.NoError(t, b.RecordSnapshot(snapshot(2, 20)))
	require.NoError(t, b.RecordEvent(&core.SessionEvent{
		Time:        start,
		SessionTime: 0,
		Kind:        core.EventJoin,
		Participant: "bob",
		Role:        "left",
	}))
	require.NoError(t, b.RecordNetStats(&core.NetStats{
		Time:        start.Add(time.Second),
		Participant: "bob",
		RTT:         0.04,
		BufferLen:   3,
		Snaps:       20,
	}))
}

func TestRecordingBeforeStartFails(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})

	assert.ErrorIs(t, b.RecordSnapshot(snapshot(0, 0)), ErrNoSession)
	assert.ErrorIs(t, b.RecordEvent(&core.SessionEvent{}), ErrNoSession)
	assert.ErrorIs(t, b.RecordNetStats(&core.NetStats{}), ErrNoSession)
	assert.ErrorIs(t, b.EndSession(), ErrNoSession)
}

func TestStartSessionResets(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	record(t, b)
	require.Len(t, b.Recording().Snapshots, 3)

	s := &core.Session{Name: "second", StartTime: start}
	require.NoError(t, b.StartSession(s))
	assert.Equal(t, uint(1), s.ID)

	rec := b.Recording()
	assert.Empty(t, rec.Snapshots)
	assert.Empty(t, rec.Events)
	assert.Empty(t, rec.NetStats)
	assert.Equal(t, "second", rec.Session.Name)
}

func TestRecordingIsCopied(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	record(t, b)

	rec := b.Recording()
	rec.Snapshots[0].Timestamp = 99

	assert.Equal(t, 0.0, b.Recording().Snapshots[0].Timestamp)
}

func TestEndSessionExports(t *testing.T) {
	for _, compress := range []bool{false, true} {
		dir := t.TempDir()
		b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: compress})
		record(t, b)
		require.NoError(t, b.EndSession())

		path := b.GetExportedFilePath()
		require.NotEmpty(t, path)
		assert.Equal(t, dir, filepath.Dir(path))
		if compress {
			assert.Equal(t, "Coop_Drive_20260314_092653.json.gz", filepath.Base(path))
		} else {
			assert.Equal(t, "Coop_Drive_20260314_092653.json", filepath.Base(path))
		}

		export, err := ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "s-1", export.SessionID)
		assert.Len(t, export.Frames, 3)
		assert.Len(t, export.Events, 1)
		assert.Len(t, export.NetStats, 1)
		assert.InDelta(t, 20.0, export.DistanceM, 1e-9)
		assert.NotEmpty(t, export.EndTime)
	}
}

func TestExportMetadata(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	record(t, b)
	require.NoError(t, b.EndSession())

	meta := b.GetExportMetadata()
	assert.Equal(t, "Coop Drive", meta.SessionName)
	assert.Equal(t, "coop", meta.Tag)
	assert.InDelta(t, 2.0, meta.Duration, 1e-9)
}

func TestExportWithoutSnapshots(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	require.NoError(t, b.StartSession(&core.Session{Name: "empty", StartTime: start}))
	require.NoError(t, b.EndSession())

	export, err := ReadFile(b.GetExportedFilePath())
	require.NoError(t, err)
	assert.Empty(t, export.Frames)
	assert.Empty(t, export.Trajectory)
	assert.Empty(t, export.EndTime)
}
