package logging

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"
)

// LogFilePath builds a log file path using OS-appropriate path separators.
func LogFilePath(logsDir, name string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", name, sessionStart.Format("20060102_150405")),
	)
}

// PeerAttrs returns a ContextProvider reporting the live peer identity.
// Each getter is called per record.
func PeerAttrs(id func() string, role func() string, authority func() bool) ContextProvider {
	return func() []slog.Attr {
		return []slog.Attr{
			slog.String("peer", id()),
			slog.String("role", role()),
			slog.Bool("authority", authority()),
		}
	}
}
