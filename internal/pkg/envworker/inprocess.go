package envworker

import (
	"context"
	"io"

	"github.com/roackb2/rollout/internal/pkg/worker"
)

// InProcess adapts Run to a worker.InProcessSpawner body.
func InProcess(builders Builders) worker.RunFunc {
	return func(ctx context.Context, conn io.ReadWriter, opts worker.SpawnOptions) error {
		return Run(ctx, conn, Options{
			ID:          opts.ID,
			Seed:        opts.Seed,
			Render:      opts.Render,
			RenderDelay: opts.RenderDelay,
		}, builders)
	}
}
