// Package monitor periodically samples a running peer: it rewrites a
// status file, records net stats and writes telemetry points.
package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/tandemdrive/tandem/internal/influx"
	"github.com/tandemdrive/tandem/internal/peer"
	"github.com/tandemdrive/tandem/internal/storage"
	"github.com/tandemdrive/tandem/pkg/core"
)

// DefaultInterval is used when Dependencies.Interval is zero.
const DefaultInterval = time.Second

// Source is the sampled peer.
type Source interface {
	Status() peer.Status
	Shown() core.Snapshot
}

// PointWriter receives telemetry points. *influx.Manager implements it.
type PointWriter interface {
	WritePoint(bucket string, point *influxdb2_write.Point) error
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Source    Source
	Recorder  storage.Backend
	Points    PointWriter
	SessionID string
	// StatusFile is rewritten on every sample. Empty disables it.
	StatusFile string
	Interval   time.Duration
	Logger     *slog.Logger
	Clock      func() time.Time
}

// Report is the status file content.
type Report struct {
	Time      time.Time   `json:"time"`
	SessionID string      `json:"sessionId"`
	Status    peer.Status `json:"status"`
	Samples   uint64      `json:"samples"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	samples   uint64
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Samples returns how many samples have been taken.
func (s *Service) Samples() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.samples
}

// Sample takes one sample. Failures are logged; the last one is returned.
func (s *Service) Sample() error {
	now := s.deps.Clock()
	st := s.deps.Source.Status()

	s.mu.Lock()
	s.samples++
	report := Report{Time: now, SessionID: s.deps.SessionID, Status: st, Samples: s.samples}
	s.mu.Unlock()

	var last error
	fail := func(msg string, err error) {
		s.deps.Logger.Error(msg, "error", err)
		last = err
	}

	if s.deps.StatusFile != "" {
		if err := writeReport(s.deps.StatusFile, report); err != nil {
			fail("Error writing status file", err)
		}
	}

	stats := st.NetStats(now)
	if s.deps.Recorder != nil {
		if err := s.deps.Recorder.RecordNetStats(&stats); err != nil {
			fail("Error recording net stats", err)
		}
	}

	if s.deps.Points != nil {
		if err := s.deps.Points.WritePoint(influx.BucketNet, influx.NetPoint(s.deps.SessionID, stats)); err != nil {
			fail("Error writing net point", err)
		}
		if st.IsAuthority {
			point := influx.VehiclePoint(s.deps.SessionID, s.deps.Source.Shown(), now)
			if err := s.deps.Points.WritePoint(influx.BucketVehicle, point); err != nil {
				fail("Error writing vehicle point", err)
			}
		}
	}
	return last
}

func writeReport(path string, r Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ReadReport reads a status file written by the monitor.
func ReadReport(path string) (Report, error) {
	var r Report
	data, err := os.ReadFile(path)
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return r, fmt.Errorf("decode status: %w", err)
	}
	return r, nil
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		s.deps.Logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval)
		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				_ = s.Sample()
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for the goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.isRunning = false
	s.mu.Unlock()
	<-done
}
