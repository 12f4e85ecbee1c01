package main

import (
	"fmt"

	"github.com/roackb2/rollout/config"
	"github.com/roackb2/rollout/internal/pkg/manager"
	"github.com/roackb2/rollout/internal/pkg/policy"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

// noPolicy is never asked to infer: shapes only spawns and queries.
type noPolicy struct{}

func (noPolicy) Infer(*mat.Dense) (*mat.Dense, []float64, error) {
	return nil, nil, fmt.Errorf("shapes command does not run inference")
}

var _ policy.Policy = noPolicy{}

func newShapesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shapes",
		Short: "Spawn one worker and print its environment shapes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Config
			m := manager.NewBatchedAgentManager(managerConfig(cfg.Collector), noPolicy{}, newSpawner(cfg.Worker))
			defer m.Cleanup()

			shapes, err := m.InitProcesses(cmd.Context(), 1, initPayload(cfg.Worker))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "obs_shape=%d action_shape=%d action_space_type=%d\n",
				shapes.ObsShape, shapes.ActionShape, shapes.ActionSpaceType)
			return nil
		},
	}
}
