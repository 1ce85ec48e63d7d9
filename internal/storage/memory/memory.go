// Package memory buffers a whole session in memory and exports it as JSON
// when the session ends.
package memory

import (
	"errors"
	"sync"

	"github.com/tandemdrive/tandem/internal/config"
	"github.com/tandemdrive/tandem/pkg/core"
)

// ErrNoSession is returned when recording before StartSession.
var ErrNoSession = errors.New("no active session")

// Backend stores session data in memory and exports to JSON
type Backend struct {
	cfg            config.MemoryConfig
	rec            core.Recording
	active         bool
	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartSession begins recording a new session and drops anything buffered.
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s.ID = 1
	b.rec = core.Recording{Session: *s}
	b.active = true
	return nil
}

// EndSession stamps the end time when missing and writes the export file.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.active {
		return ErrNoSession
	}
	b.active = false
	if b.rec.Session.EndTime.IsZero() && len(b.rec.Snapshots) > 0 {
		b.rec.Session.EndTime = b.rec.Session.StartTime.Add(b.rec.Duration())
	}

	path, err := WriteFile(b.cfg.OutputDir, b.cfg.CompressOutput, b.rec)
	if err != nil {
		return err
	}
	b.lastExportPath = path
	return nil
}

// RecordSnapshot appends a vehicle snapshot.
func (b *Backend) RecordSnapshot(s *core.Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.active {
		return ErrNoSession
	}
	b.rec.Snapshots = append(b.rec.Snapshots, *s)
	return nil
}

// RecordEvent appends a session event.
func (b *Backend) RecordEvent(e *core.SessionEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.active {
		return ErrNoSession
	}
	b.rec.Events = append(b.rec.Events, *e)
	return nil
}

// RecordNetStats appends a replication health sample.
func (b *Backend) RecordNetStats(n *core.NetStats) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.active {
		return ErrNoSession
	}
	b.rec.NetStats = append(b.rec.NetStats, *n)
	return nil
}

// Recording returns a copy of everything buffered so far.
func (b *Backend) Recording() core.Recording {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec := b.rec
	rec.Snapshots = append([]core.Snapshot(nil), b.rec.Snapshots...)
	rec.Events = append([]core.SessionEvent(nil), b.rec.Events...)
	rec.NetStats = append([]core.NetStats(nil), b.rec.NetStats...)
	return rec
}

// GetExportedFilePath returns the path to the last exported file
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata returns metadata about the last export
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.rec.UploadMetadata()
}
