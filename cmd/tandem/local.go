package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/tandemdrive/tandem/internal/logging"
	"github.com/tandemdrive/tandem/internal/peer"
	"github.com/tandemdrive/tandem/internal/session"
	"github.com/tandemdrive/tandem/internal/transport/memory"
)

func runLocal(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("local", flag.ContinueOnError)
	configDir := commonFlags(fs)
	script := fs.String("script", "weave", "input script for both peers: weave, straight or idle")
	duration := fs.Duration("duration", 30*time.Second, "how long to drive; zero runs until interrupted")
	latency := fs.Duration("latency", 30*time.Millisecond, "one-way delivery latency")
	jitter := fs.Duration("jitter", 10*time.Millisecond, "extra random snapshot delay")
	loss := fs.Float64("loss", 0.02, "snapshot loss probability")
	upload := fs.Bool("upload", false, "upload the exported session when done")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := setup("local", *configDir)
	input, err := scriptInput(*script)
	if err != nil {
		return err
	}

	hub := memory.NewHub(memory.Options{
		Latency:   *latency,
		Jitter:    *jitter,
		Loss:      *loss,
		Seed:      uint64(SessionStartTime.UnixNano()),
		InboxSize: cfg.Net.InboxSize,
	}, SlogManager.Component("hub"))

	var peers [2]*peer.Runtime
	var contexts [2]*session.Context
	var endpoints [2]*memory.Endpoint
	names := [2]string{"driver", "navigator"}
	for i := range 2 {
		contexts[i] = session.NewContext("", nil)
		if endpoints[i], err = hub.Join(names[i], contexts[i]); err != nil {
			return err
		}
	}

	rec, err := startRecording(cfg, contexts[0].LocalID())
	if err != nil {
		return err
	}
	dispatchLog := logging.NewDispatcherLogger(logging.NewZerolog(logOutput(), cfg.LogLevel))
	for i := range 2 {
		peers[i], err = peer.New(cfg, peer.Dependencies{
			Session:        contexts[i],
			Transport:      endpoints[i],
			Input:          input,
			Recorder:       rec.backend,
			Logger:         SlogManager.Component("peer").With("peer", names[i]),
			DispatchLogger: dispatchLog,
		})
		if err != nil {
			_ = rec.finish(ctx, cfg, false)
			return fmt.Errorf("creating %s: %w", names[i], err)
		}
	}
	rec.startTelemetry(ctx, cfg, peers[0])

	runCtx := ctx
	if *duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}
	driveLocal(runCtx, cfg.Peer.UpdateRate, peers[:])

	for i, p := range peers {
		st := p.Status()
		Logger.Info("Peer finished", "peer", names[i], "role", st.Role, "authority", st.IsAuthority,
			"speedKmh", st.SpeedKmh, "backTime", st.Replication.BackTime)
	}
	return rec.finish(ctx, cfg, *upload)
}

// driveLocal updates every peer from one goroutine until ctx ends.
func driveLocal(ctx context.Context, rate int, peers []*peer.Runtime) {
	if rate <= 0 {
		rate = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			for _, p := range peers {
				p.Update(dt)
			}
		}
	}
}
