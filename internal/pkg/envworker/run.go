package envworker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/roackb2/rollout/internal/pkg/protocol"
)

var ErrUnknownEnv = errors.New("unknown environment")

type runner struct {
	conn io.ReadWriter
	env  Env
	opts Options
}

// Run serves one environment over conn until the parent sends a stop message
// or closes the stream. The first frame must be the JSON init payload.
func Run(ctx context.Context, conn io.ReadWriter, opts Options, builders Builders) error {
	raw, err := protocol.ReadFrame(conn)
	if err != nil {
		return fmt.Errorf("read init payload: %w", err)
	}
	init, err := protocol.DecodeInit(raw)
	if err != nil {
		return err
	}
	build, ok := builders[init.Env]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEnv, init.Env)
	}
	env, err := build(init, rand.New(rand.NewSource(opts.Seed)))
	if err != nil {
		return fmt.Errorf("build %s environment: %w", init.Env, err)
	}
	r := &runner{conn: conn, env: env, opts: opts}
	slog.Info("EnvWorker: environment ready", "worker_id", opts.ID, "env", init.Env, "agents", init.Agents, "seed", opts.Seed)

	obs := env.Reset()
	if err := r.send(protocol.ResetState{Shape: obs.Shape, State: obs}); err != nil {
		return err
	}
	return r.loop(ctx)
}

func (r *runner) loop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := protocol.ReadFrame(r.conn)
		if err != nil {
			if parentGone(err) {
				slog.Info("EnvWorker: parent closed the channel", "worker_id", r.opts.ID)
				return nil
			}
			return fmt.Errorf("read message: %w", err)
		}
		msg, err := protocol.Decode(raw)
		if err != nil {
			slog.Warn("EnvWorker: discarding malformed message", "worker_id", r.opts.ID, "error", err)
			continue
		}

		switch m := msg.(type) {
		case protocol.PolicyActions:
			if err := r.step(ctx, m.Actions); err != nil {
				if parentGone(err) {
					slog.Info("EnvWorker: parent closed the channel mid-step", "worker_id", r.opts.ID)
					return nil
				}
				return err
			}
		case protocol.ShapesRequest:
			err := r.send(protocol.Shapes{
				ObsShape:        r.env.ObservationSize(),
				ActionShape:     r.env.ActionSize(),
				ActionSpaceType: r.env.ActionSpaceType(),
			})
			if err != nil {
				return err
			}
		case protocol.Stop:
			slog.Info("EnvWorker: stop requested", "worker_id", r.opts.ID)
			return nil
		default:
			slog.Warn("EnvWorker: ignoring unexpected message", "worker_id", r.opts.ID, "kind", msg.Kind())
		}
	}
}

// step advances the environment and reports the result. A finished episode
// is reset right away and its first observation is sent as the next state.
func (r *runner) step(ctx context.Context, actions []float32) error {
	next, rewards, done := r.env.Step(actions)
	if done {
		next = r.env.Reset()
	}
	err := r.send(protocol.StepData{
		Done:      done,
		Shape:     next.Shape,
		Rewards:   rewards,
		NextState: next,
	})
	if err != nil {
		return err
	}
	r.render(ctx)
	return nil
}

func (r *runner) render(ctx context.Context) {
	if !r.opts.Render {
		return
	}
	if rd, ok := r.env.(Renderer); ok {
		slog.Info("EnvWorker: render", "worker_id", r.opts.ID, "frame", rd.Render())
	}
	if r.opts.RenderDelay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(r.opts.RenderDelay):
	}
}

func (r *runner) send(msg protocol.Message) error {
	if err := protocol.WriteFrame(r.conn, protocol.Encode(msg)); err != nil {
		return fmt.Errorf("send %s: %w", msg.Kind(), err)
	}
	return nil
}

func parentGone(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.EPIPE)
}
