// cmd/darkauthd is the DarkAuth server binary. Grounded on the teacher's
// api/cmd/main.go: a serverBuilder indirection around bootstrap.NewServer()
// so Run() stays unit-testable, signal-driven graceful shutdown, zerolog
// for startup/shutdown logging.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/darkauth/server/internal/bootstrap"
	"github.com/darkauth/server/internal/logger"
	"github.com/darkauth/server/internal/opaqueengine"
)

// httpServer defines the minimal surface Run() needs from an HTTP server.
type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
	Close() error
	Addr() string
}

type realServer struct{ *http.Server }

func (r realServer) Addr() string { return r.Server.Addr }

type serverBuilder func() (httpServer, func(), error)

func Run(build serverBuilder, sigCh <-chan os.Signal, lg zerolog.Logger) int {
	srv, cleanup, err := build()
	if err != nil {
		lg.Error().Err(err).Msg("bootstrap failed")
		return 1
	}
	defer cleanup()

	errCh := make(chan error, 1)
	go func() {
		lg.Info().Str("addr", srv.Addr()).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case sig := <-sigCh:
		lg.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		lg.Error().Err(err).Msg("server crashed")
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		lg.Error().Err(err).Msg("graceful shutdown failed")
		_ = srv.Close()
	}

	lg.Info().Msg("shutdown complete")
	return 0
}

func buildFromBootstrap() (httpServer, func(), error) {
	srv, cleanup, err := bootstrap.NewServer()
	if err != nil {
		return nil, nil, err
	}
	return realServer{srv}, cleanup, nil
}

func main() {
	logger.Init()

	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "serve":
		runServe()
	case "bootstrap-admin":
		runBootstrapAdmin()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (want: serve, bootstrap-admin)\n", cmd)
		os.Exit(2)
	}
}

func runServe() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	code := Run(buildFromBootstrap, sigCh, zlog.Logger)
	os.Exit(code)
}

// runBootstrapAdmin mints the OPAQUE server's long-term key material
// (identity keypair + OPRF seed) for an operator to copy into
// OPAQUE_SERVER_SECRET_KEY / OPAQUE_SERVER_PUBLIC_KEY / OPAQUE_OPRF_SEED
// before the first production boot (internal/config.Config requires the
// secret key and OPRF seed outside APP_ENV=dev). This key material is never derived at runtime and
// never stored by darkauthd itself — losing it invalidates every existing
// OPAQUE envelope.
func runBootstrapAdmin() {
	cfg, err := opaqueengine.GenerateServerKeyMaterial()
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap-admin: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("# Generated OPAQUE server key material. Store these secrets securely")
	fmt.Println("# (e.g. a secrets manager) and set them before the first production boot:")
	fmt.Printf("OPAQUE_SERVER_IDENTITY=%s\n", hex.EncodeToString(cfg.ServerIdentity))
	fmt.Printf("OPAQUE_SERVER_SECRET_KEY=%s\n", hex.EncodeToString(cfg.ServerSecretKey))
	fmt.Printf("OPAQUE_SERVER_PUBLIC_KEY=%s\n", hex.EncodeToString(cfg.ServerPublicKey))
	fmt.Printf("OPAQUE_OPRF_SEED=%s\n", hex.EncodeToString(cfg.OPRFSeed))
}
