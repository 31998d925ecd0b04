package cli

import (
	"budget-server/src/api"
	"budget-server/src/syncer"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the sync scheduler",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	svc, err := a.newService()
	if err != nil {
		return err
	}
	sched := syncer.NewScheduler(svc, a.cfg.Sync.CheckInterval, a.cfg.Sync.StaleAfter)

	router := api.NewRouter(a.pool, svc, sched, a.log, api.RouterConfig{
		JWTSecret:      a.cfg.JWTSecret,
		AllowedOrigins: a.cfg.AllowedOrigins,
		DemoMode:       a.cfg.DemoMode,
	})
	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	// The scheduler outlives gctx so Shutdown can give it the grace period.
	if err := sched.Start(a.context(context.WithoutCancel(gctx))); err != nil {
		return err
	}

	g.Go(func() error {
		a.log.Info().Str("port", a.cfg.Port).Msg("API server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.log.Info().Dur("grace", a.cfg.ShutdownGrace).Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownGrace)
		defer cancel()

		if err := sched.Shutdown(shutdownCtx); err != nil {
			a.log.Warn().Err(err).Msg("Sync cycle cancelled at shutdown")
		}
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
