package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"time"

	"github.com/tandemdrive/tandem/internal/transport/websocket"
)

func runRelay(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("relay", flag.ContinueOnError)
	configDir := commonFlags(fs)
	listen := fs.String("listen", "", "listen address, overrides net.listenAddr")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := setup("relay", *configDir)
	if *listen != "" {
		cfg.Net.ListenAddr = *listen
	}

	relay := websocket.NewRelay(cfg.Net, SlogManager.Component("relay"))
	server := &http.Server{
		Addr:              cfg.Net.ListenAddr,
		Handler:           relayMux(relay),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		Logger.Info("Relay listening", "addr", cfg.Net.ListenAddr, "secret", cfg.Net.Secret != "")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		_ = relay.Close()
		return err
	case <-ctx.Done():
	}

	Logger.Info("Shutting down relay")
	_ = relay.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// relayMux serves the relay at /ws next to a healthcheck.
func relayMux(relay *websocket.Relay) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", relay)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
