package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/tandemdrive/tandem/internal/api"
	"github.com/tandemdrive/tandem/internal/config"
	"github.com/tandemdrive/tandem/internal/influx"
	"github.com/tandemdrive/tandem/internal/logging"
	"github.com/tandemdrive/tandem/internal/monitor"
	"github.com/tandemdrive/tandem/internal/storage"
	"github.com/tandemdrive/tandem/internal/storage/memory"
	"github.com/tandemdrive/tandem/pkg/core"
)

// recording bundles the storage backend and telemetry of one session.
type recording struct {
	backend storage.Backend
	session *core.Session
	influx  *influx.Manager
	monitor *monitor.Service
}

// startRecording opens the configured backend and starts the session.
// A backend that fails to initialize is replaced by the memory backend.
func startRecording(cfg config.Config, recorder core.ParticipantID) (*recording, error) {
	if cfg.Storage.Type == "sqlite" && cfg.Storage.SQLite.DumpPath == "" {
		cfg.Storage.SQLite.DumpPath = filepath.Join(cfg.Storage.Memory.OutputDir,
			fmt.Sprintf("%s_%s.db", AppName, SessionStartTime.Format("20060102_150405")))
	}

	backend, err := storage.NewBackend(cfg, SlogManager.Component("storage"))
	if err == nil {
		err = backend.Init()
	}
	if err != nil {
		Logger.Error("Failed to initialize storage backend, falling back to memory", "type", cfg.Storage.Type, "error", err)
		backend = memory.New(cfg.Storage.Memory)
		if err := backend.Init(); err != nil {
			return nil, err
		}
	}
	Logger.Info("Storage backend initialized", "type", fmt.Sprintf("%T", backend))

	s := &core.Session{
		SessionID:              uuid.NewString(),
		Name:                   cfg.Peer.SessionName,
		Tag:                    cfg.Peer.Tag,
		StartTime:              SessionStartTime,
		AuthorityControlsRight: cfg.Peer.AuthorityControlsRight,
		Recorder:               recorder,
	}
	if err := backend.StartSession(s); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("starting session: %w", err)
	}
	return &recording{backend: backend, session: s}, nil
}

// startTelemetry connects influx when enabled and starts the status monitor.
func (r *recording) startTelemetry(ctx context.Context, cfg config.Config, source monitor.Source) {
	deps := monitor.Dependencies{
		Source:    source,
		Recorder:  r.backend,
		SessionID: r.session.SessionID,
		Interval:  cfg.Monitor.Interval,
		Logger:    SlogManager.Component("monitor"),
	}
	if cfg.Monitor.StatusFile != "" {
		deps.StatusFile = filepath.Join(cfg.LogsDir, cfg.Monitor.StatusFile)
	}

	if cfg.Influx.Enabled {
		backup := filepath.Join(cfg.LogsDir, fmt.Sprintf("influx_backup_%s.lp.gz", SessionStartTime.Format("20060102_150405")))
		m := influx.NewManager(cfg.Influx, logging.NewZerolog(logOutput(), cfg.LogLevel).With().Str("component", "influx").Logger(), backup)
		if err := m.Connect(ctx); err != nil {
			Logger.Error("Failed to connect to InfluxDB", "error", err)
		} else {
			r.influx = m
			deps.Points = m
		}
	}

	if !cfg.Monitor.Enabled {
		return
	}
	r.monitor = monitor.NewService(deps)
	_ = r.monitor.Start()
}

// finish stops telemetry, ends the session and uploads the export when
// requested and the backend produced a file.
func (r *recording) finish(ctx context.Context, cfg config.Config, upload bool) error {
	if r.monitor != nil {
		r.monitor.Stop()
	}
	if r.influx != nil {
		if err := r.influx.Close(); err != nil {
			Logger.Warn("Failed to close InfluxDB", "error", err)
		}
	}

	err := r.backend.EndSession()
	if err != nil {
		Logger.Error("Failed to end session", "error", err)
	}
	if u, ok := r.backend.(storage.Uploadable); ok && err == nil {
		path := u.GetExportedFilePath()
		Logger.Info("Session exported", "path", path)
		if upload {
			// The run context is usually cancelled by now.
			uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Minute)
			uerr := uploadFile(uctx, cfg, path, u.GetExportMetadata())
			cancel()
			if uerr != nil {
				Logger.Error("Upload failed", "error", uerr)
			}
		}
	}
	if cerr := r.backend.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func uploadFile(ctx context.Context, cfg config.Config, path string, meta core.UploadMetadata) error {
	client := api.New(cfg.API.ServerURL, cfg.API.APIKey)
	if err := client.Healthcheck(ctx); err != nil {
		return err
	}
	if err := client.Upload(ctx, path, meta); err != nil {
		return err
	}
	Logger.Info("Uploaded session", "path", path, "server", cfg.API.ServerURL)
	return nil
}
