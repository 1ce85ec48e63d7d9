// Command tandem runs the relay, drives peers and exports recorded sessions.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/tandemdrive/tandem/internal/config"
	"github.com/tandemdrive/tandem/internal/logging"
	intOtel "github.com/tandemdrive/tandem/internal/otel"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.1.0"
	BuildDate      string = "unknown"

	AppName string = "tandem"
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	SessionStartTime time.Time = time.Now()

	logFile *os.File
)

const usage = `usage: tandem <command> [flags]

commands:
  relay    serve the websocket relay
  drive    drive one peer against a relay
  local    run two peers over an in-process hub
  export   export a recorded session from the database
  version  print the version
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "relay":
		err = runRelay(ctx, args)
	case "drive":
		err = runDrive(ctx, args)
	case "local":
		err = runLocal(ctx, args)
	case "export":
		err = runExport(ctx, args)
	case "version":
		fmt.Printf("%s %s (built %s)\n", AppName, CurrentVersion, BuildDate)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	shutdown()
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintf(os.Stderr, "%s: %v\n", cmd, err)
		os.Exit(1)
	}
}

// commonFlags registers the flags every command shares.
func commonFlags(fs *flag.FlagSet) (configDir *string) {
	return fs.String("config", ".", "directory containing "+config.FileName)
}

// setup loads configuration and starts logging. A missing config file is
// not fatal; defaults apply.
func setup(name, configDir string) config.Config {
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, "info", nil)
	Logger = SlogManager.Logger()

	if err := config.Load(configDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config", "dir", configDir)
	}
	cfg, err := config.Get()
	if err != nil {
		Logger.Error("Failed to decode config, using defaults!", "error", err)
		cfg = config.Defaults()
	}

	var file *os.File
	if cfg.LogsDir != "" {
		if err := os.MkdirAll(cfg.LogsDir, 0755); err != nil {
			Logger.Error("Failed to create logs dir", "error", err, "path", cfg.LogsDir)
		} else {
			path := logging.LogFilePath(cfg.LogsDir, AppName+"_"+name, SessionStartTime)
			if _, err := os.Stat(path); err == nil {
				_ = os.Rename(path, path+".old")
			}
			file, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
			if err != nil {
				Logger.Error("Failed to create/open log file!", "error", err, "path", path)
				file = nil
			}
		}
	}

	if cfg.OTel.Enabled {
		logWriter := writerOrNil(file)
		if logWriter == nil {
			logWriter = os.Stdout
		}
		metricFile := filepath.Join(cfg.LogsDir, fmt.Sprintf("%s_%s.metrics.%s.jsonl", AppName, name, SessionStartTime.Format("20060102_150405")))
		metricWriter, err := os.Create(metricFile)
		if err != nil {
			Logger.Warn("Failed to create metric file", "error", err)
		}
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:        true,
			ServiceName:    cfg.OTel.ServiceName,
			BatchTimeout:   cfg.OTel.BatchTimeout,
			LogWriter:      logWriter,
			MetricWriter:   writerOrNil(metricWriter),
			MetricInterval: cfg.OTel.MetricInterval,
			Endpoint:       cfg.OTel.Endpoint,
			Insecure:       cfg.OTel.Insecure,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
		}
	}

	logFile = file
	SlogManager.Setup(writerOrNil(logFile), cfg.LogLevel, otelLogProvider())
	Logger = SlogManager.Logger()
	Logger.Info("Starting", "command", name, "version", CurrentVersion, "build", BuildDate)
	return cfg
}

// setupPeerLogging re-creates the logger so every record carries the live
// peer identity. The provider getters are evaluated per record.
func setupPeerLogging(cfg config.Config, attrs logging.ContextProvider) {
	SlogManager.SetContextProvider(attrs)
	SlogManager.Setup(writerOrNil(logFile), cfg.LogLevel, otelLogProvider())
	Logger = SlogManager.Logger()
}

func otelLogProvider() *sdklog.LoggerProvider {
	if OTelProvider == nil {
		return nil
	}
	return OTelProvider.LoggerProvider()
}

// logOutput is the log file, or stdout when none is open.
func logOutput() io.Writer {
	if logFile == nil {
		return os.Stdout
	}
	return logFile
}

func writerOrNil(f *os.File) io.Writer {
	if f == nil {
		return nil
	}
	return f
}

func shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if SlogManager != nil {
		_ = SlogManager.Flush(ctx)
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "otel shutdown: %v\n", err)
		}
	}
	if logFile != nil {
		_ = logFile.Close()
	}
}
