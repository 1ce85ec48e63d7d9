package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordingDuration(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	snaps := []Snapshot{{Timestamp: 1.5}, {Timestamp: 4}}

	tests := []struct {
		name string
		rec  Recording
		want time.Duration
	}{
		{"ended", Recording{Session: Session{StartTime: start, EndTime: start.Add(90 * time.Second)}, Snapshots: snaps}, 90 * time.Second},
		{"snapshot span", Recording{Session: Session{StartTime: start}, Snapshots: snaps}, 2500 * time.Millisecond},
		{"end before start", Recording{Session: Session{StartTime: start, EndTime: start.Add(-time.Second)}}, 0},
		{"single snapshot", Recording{Snapshots: snaps[:1]}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rec.Duration())
		})
	}
}

func TestRecordingUploadMetadata(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := Recording{Session: Session{Name: "Coop", Tag: "weekly", StartTime: start, EndTime: start.Add(61 * time.Second)}}

	assert.Equal(t, UploadMetadata{SessionName: "Coop", Tag: "weekly", Duration: 61}, rec.UploadMetadata())
}
