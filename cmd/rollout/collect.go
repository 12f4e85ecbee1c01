package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/roackb2/rollout/config"
	"github.com/roackb2/rollout/internal/pkg/manager"
	"github.com/roackb2/rollout/internal/pkg/utils"
	"github.com/spf13/cobra"
)

func newCollectCommand() *cobra.Command {
	var workers, timesteps, iterations int
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect a fixed number of iterations and print a summary",
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

			shapes, err := m.InitProcesses(ctx, utils.GetOrDefault(workers, cfg.Worker.Count), initPayload(cfg.Worker))
			if err != nil {
				return fmt.Errorf("init processes: %w", err)
			}
			actionCount, spaceType = shapes.ActionShape, shapes.ActionSpaceType

			for i := 0; i < iterations; i++ {
				if _, _, _, err := m.CollectTimesteps(ctx, timesteps); err != nil {
					return fmt.Errorf("iteration %d: %w", i+1, err)
				}
			}
			utils.PrintStruct(cmd.OutOrStdout(), m.Stats())
			return nil
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "Number of workers (default from config)")
	cmd.Flags().IntVar(&timesteps, "timesteps", 1000, "Timesteps per iteration")
	cmd.Flags().IntVar(&iterations, "iterations", 10, "Number of iterations")
	return cmd
}

// runCollection collects until ctx ends.
func runCollection(ctx context.Context, m *manager.BatchedAgentManager, timesteps int) error {
	for ctx.Err() == nil {
		if _, _, _, err := m.CollectTimesteps(ctx, timesteps); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
	return nil
}
