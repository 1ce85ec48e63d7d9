package monitor

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tandemdrive/tandem/internal/influx"
	"github.com/tandemdrive/tandem/internal/peer"
	"github.com/tandemdrive/tandem/internal/replication"
	"github.com/tandemdrive/tandem/pkg/core"
)

type fakeSource struct {
	status peer.Status
}

func (f fakeSource) Status() peer.Status { return f.status }
func (f fakeSource) Shown() core.Snapshot {
	return core.NewSnapshot(3, core.VehicleState{Pose: core.IdentityPose()})
}

type fakeRecorder struct {
	mu    sync.Mutex
	stats []core.NetStats
	err   error
}

func (f *fakeRecorder) Init() error                          { return nil }
func (f *fakeRecorder) Close() error                         { return nil }
func (f *fakeRecorder) StartSession(*core.Session) error     { return nil }
func (f *fakeRecorder) EndSession() error                    { return nil }
func (f *fakeRecorder) RecordSnapshot(*core.Snapshot) error  { return nil }
func (f *fakeRecorder) RecordEvent(*core.SessionEvent) error { return nil }
func (f *fakeRecorder) RecordNetStats(n *core.NetStats) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats = append(f.stats, *n)
	return f.err
}

func (f *fakeRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stats)
}

type fakePoints struct {
	mu      sync.Mutex
	buckets []string
}

func (f *fakePoints) WritePoint(bucket string, _ *influxdb2_write.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buckets = append(f.buckets, bucket)
	return nil
}

var now = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

func status(authority bool) peer.Status {
	return peer.Status{
		Participant: "bob",
		Role:        "left",
		IsAuthority: authority,
		RTT:         0.06,
		SpeedKmh:    29.5,
		Replication: replication.Status{BackTime: 0.05, BufferLen: 4, Snaps: 12},
	}
}

func TestSample(t *testing.T) {
	file := filepath.Join(t.TempDir(), "status.json")
	rec := &fakeRecorder{}
	points := &fakePoints{}
	s := NewService(Dependencies{
		Source:     fakeSource{status(false)},
		Recorder:   rec,
		Points:     points,
		SessionID:  "s-1",
		StatusFile: file,
		Clock:      func() time.Time { return now },
	})

	require.NoError(t, s.Sample())
	require.NoError(t, s.Sample())

	report, err := ReadReport(file)
	require.NoError(t, err)
	assert.Equal(t, "s-1", report.SessionID)
	assert.Equal(t, uint64(2), report.Samples)
	assert.Equal(t, core.ParticipantID("bob"), report.Status.Participant)
	assert.True(t, report.Time.Equal(now))

	require.Equal(t, 2, rec.count())
	assert.Equal(t, 0.05, rec.stats[0].BackTime)
	assert.Equal(t, 4, rec.stats[0].BufferLen)
	assert.Equal(t, now, rec.stats[0].Time)

	assert.Equal(t, []string{influx.BucketNet, influx.BucketNet}, points.buckets)
}

func TestSampleAuthorityWritesVehiclePoint(t *testing.T) {
	points := &fakePoints{}
	s := NewService(Dependencies{Source: fakeSource{status(true)}, Points: points})

	require.NoError(t, s.Sample())
	assert.Equal(t, []string{influx.BucketNet, influx.BucketVehicle}, points.buckets)
}

func TestSampleReturnsRecorderError(t *testing.T) {
	boom := errors.New("boom")
	s := NewService(Dependencies{Source: fakeSource{status(false)}, Recorder: &fakeRecorder{err: boom}})

	assert.ErrorIs(t, s.Sample(), boom)
	assert.Equal(t, uint64(1), s.Samples())
}

func TestStartStop(t *testing.T) {
	rec := &fakeRecorder{}
	s := NewService(Dependencies{
		Source:   fakeSource{status(false)},
		Recorder: rec,
		Interval: 5 * time.Millisecond,
	})

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())

	assert.Eventually(t, func() bool { return rec.count() >= 3 }, 2*time.Second, 5*time.Millisecond)

	s.Stop()
	assert.False(t, s.IsRunning())
	n := rec.count()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, rec.count())

	s.Stop()
}

func TestReadReportMissing(t *testing.T) {
	_, err := ReadReport(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
