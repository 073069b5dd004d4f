package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/orchestrate/internal/api"
	"github.com/gyaneshwarpardhi/orchestrate/internal/config"
	"github.com/gyaneshwarpardhi/orchestrate/internal/engine"
	"github.com/gyaneshwarpardhi/orchestrate/internal/scheduler"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API, reloading the policy file on change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), g.configPath, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")
	return cmd
}

// serve runs until ctx is cancelled.
func serve(ctx context.Context, configPath, addr string) error {
	reg := newRegistry(configPath)
	loader, snap, err := loadSnapshot(configPath, reg)
	if err != nil {
		return err
	}
	cfg := loader.Config()
	slog.Info("policy loaded", "path", loader.Path(), "routines", snap.Graph.Len())

	engCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eng := engine.New(engCtx, snap, reg, cfg.Engine)

	sched := scheduler.New(eng)
	if err := sched.Set(cfg.Schedule); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	// ── Hot reload ────────────────────────────────────────────────────────────
	loader.OnChange(func(next *config.Policy) {
		s, err := engine.NewSnapshot(next, reg)
		if err != nil {
			// The loader already ran the same checks; keep the old graph.
			slog.Error("hot-reload skipped: graph rebuild failed", "err", err)
			return
		}
		eng.SwapSnapshot(s)
		if err := sched.Set(next.Schedule); err != nil {
			slog.Warn("schedule not updated", "err", err)
		}
		slog.Info("policy hot-reloaded", "routines", s.Graph.Len())
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:         addr,
		Handler:      api.New(eng, loader),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: time.Duration(cfg.Engine.RunTimeoutMs)*time.Millisecond + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	errC := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errC <- err
		}
	}()

	select {
	case err := <-errC:
		return err
	case <-ctx.Done():
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutting down")
	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	cancel()
	eng.Shutdown()
	slog.Info("goodbye")
	return nil
}
