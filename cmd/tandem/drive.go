package main

import (
	"context"
	"flag"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tandemdrive/tandem/internal/logging"
	"github.com/tandemdrive/tandem/internal/peer"
	"github.com/tandemdrive/tandem/internal/session"
	"github.com/tandemdrive/tandem/internal/transport"
	"github.com/tandemdrive/tandem/internal/transport/websocket"
	"github.com/tandemdrive/tandem/pkg/streaming"
)

type driveFlags struct {
	configDir *string
	name      *string
	script    *string
	duration  *time.Duration
	upload    *bool
	offline   *bool
}

func runDrive(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("drive", flag.ContinueOnError)
	f := driveFlags{
		configDir: commonFlags(fs),
		name:      fs.String("name", "", "display name, overrides peer.name"),
		script:    fs.String("script", "weave", "input script: weave, straight or idle"),
		duration:  fs.Duration("duration", 0, "stop after this long; zero runs until interrupted"),
		upload:    fs.Bool("upload", false, "upload the exported session when done"),
		offline:   fs.Bool("offline", false, "drive alone without a relay"),
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := setup("drive", *f.configDir)
	if *f.name != "" {
		cfg.Peer.Name = *f.name
	}
	if *f.offline {
		cfg.Peer.CoopNetwork = false
	}
	input, err := scriptInput(*f.script)
	if err != nil {
		return err
	}

	sess := session.NewContext("", nil)
	var conn transport.Transport
	if cfg.Peer.CoopNetwork {
		hello := streaming.HelloPayload{Name: cfg.Peer.Name, Session: cfg.Peer.SessionName}
		client, err := websocket.Dial(cfg.Net, hello, sess, SlogManager.Component("transport"))
		if err != nil {
			return fmt.Errorf("joining relay: %w", err)
		}
		defer client.Close()
		conn = client
	}

	var current atomic.Pointer[peer.Runtime]
	setupPeerLogging(cfg, peerAttrs(sess, &current))

	rec, err := startRecording(cfg, sess.LocalID())
	if err != nil {
		return err
	}

	rt, err := peer.New(cfg, peer.Dependencies{
		Session:        sess,
		Transport:      conn,
		Input:          input,
		Recorder:       rec.backend,
		Logger:         SlogManager.Component("peer"),
		DispatchLogger: logging.NewDispatcherLogger(logging.NewZerolog(logOutput(), cfg.LogLevel)),
	})
	if err != nil {
		_ = rec.finish(ctx, cfg, false)
		return err
	}
	current.Store(rt)
	rec.startTelemetry(ctx, cfg, rt)

	runCtx := ctx
	if *f.duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, *f.duration)
		defer cancel()
	}
	Logger.Info("Driving", "script", *f.script, "networked", rt.Resolver().Networked)
	if err := rt.Run(runCtx); err != nil {
		Logger.Error("Peer stopped", "error", err)
	}

	st := rt.Status()
	Logger.Info("Drive finished", "ticks", st.Ticks, "speedKmh", st.SpeedKmh, "authority", st.IsAuthority)
	return rec.finish(ctx, cfg, *f.upload)
}

// scriptInput returns the scripted driver named s.
func scriptInput(s string) (peer.Input, error) {
	switch s {
	case "weave":
		return peer.Weave{Amplitude: 0.6, Period: 8, NitroEvery: 12, NitroFor: 2}, nil
	case "straight":
		return peer.Weave{NitroEvery: 12, NitroFor: 2}, nil
	case "idle":
		return peer.Idle, nil
	default:
		return nil, fmt.Errorf("unknown script %q", s)
	}
}

// peerAttrs reports the live identity of the peer stored in rt once it exists.
func peerAttrs(sess *session.Context, rt *atomic.Pointer[peer.Runtime]) logging.ContextProvider {
	return logging.PeerAttrs(
		func() string { return string(sess.LocalID()) },
		func() string {
			if r := rt.Load(); r != nil {
				return r.Resolver().LocalRole().String()
			}
			return ""
		},
		func() bool {
			r := rt.Load()
			return r != nil && r.Resolver().IsAuthority()
		},
	)
}
