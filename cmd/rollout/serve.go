package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/roackb2/rollout/config"
	"github.com/roackb2/rollout/internal/app/controllers"
	"github.com/roackb2/rollout/internal/pkg/manager"
	"github.com/roackb2/rollout/internal/pkg/utils"
	"github.com/roackb2/rollout/internal/pkg/ws"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand() *cobra.Command {
	var workers, timesteps int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Collect continuously and serve stats, reports and a websocket feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := config.Config
			b, err := newBackends(cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			var actionCount, spaceType int
			m := manager.NewBatchedAgentManager(
				managerConfig(cfg.Collector),
				linearPolicy(cfg.Policy.Seed, &actionCount, &spaceType),
				newSpawner(cfg.Worker),
				b.sinks...,
			)
			defer m.Cleanup()

			hub := ws.NewHub(b.pubsub, cfg.Kafka.Topic)
			if err := hub.Start(ctx); err != nil {
				return fmt.Errorf("subscribe to reports: %w", err)
			}
			defer hub.Stop()

			srv := &http.Server{
				Addr: ":" + utils.GetOrDefault(cfg.Server.Port, "8080"),
				Handler: controllers.NewRouter(controllers.RouterDeps{
					Stats:   m,
					Storage: b.storage,
					Hub:     hub,
				}),
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				slog.Info("Serve: listening", "addr", srv.Addr, "run_id", m.RunID())
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				shapes, err := m.InitProcesses(gctx, utils.GetOrDefault(workers, cfg.Worker.Count), initPayload(cfg.Worker))
				if err != nil {
					return fmt.Errorf("init processes: %w", err)
				}
				actionCount, spaceType = shapes.ActionShape, shapes.ActionSpaceType
				return runCollection(gctx, m, timesteps)
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "Number of workers (default from config)")
	cmd.Flags().IntVar(&timesteps, "timesteps", 1000, "Timesteps per collection call")
	return cmd
}
