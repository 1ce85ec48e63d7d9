// Package storage defines the session recording backends.
package storage

import (
	"errors"

	"github.com/tandemdrive/tandem/pkg/core"
)

// ErrUnknownBackend is returned by NewBackend for an unsupported storage.type.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Backend is the interface all storage implementations must satisfy.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(s *core.Session) error
	EndSession() error

	// Recording
	RecordSnapshot(s *core.Snapshot) error
	RecordEvent(e *core.SessionEvent) error
	RecordNetStats(n *core.NetStats) error
}

// Uploadable is an optional interface for backends that produce files
// suitable for upload.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}
