// Command envworker runs one environment and speaks the rollout protocol over
// stdin and stdout. It is started by the collector, not by hand.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/roackb2/rollout/internal/pkg/envworker"
	"github.com/roackb2/rollout/internal/pkg/utils"
)

type stdio struct{}

func (stdio) Read(b []byte) (int, error)  { return os.Stdin.Read(b) }
func (stdio) Write(b []byte) (int, error) { return os.Stdout.Write(b) }

func main() {
	id := flag.Int("id", 0, "Worker id")
	seed := flag.Int64("seed", 0, "Environment seed")
	render := flag.Bool("render", false, "Log every frame")
	renderDelay := flag.Duration("render-delay", 0, "Pause after each rendered frame")
	flag.Parse()

	// stdout carries the protocol, so logs go to stderr.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)).With("pid", os.Getpid()))
	defer utils.RecoverPanic("EnvWorker")

	// Interrupts are meant for the parent; the worker exits on the stop message
	// or when its stdin closes. A closed stdout surfaces as EPIPE instead of a
	// signal.
	signal.Ignore(syscall.SIGINT, syscall.SIGPIPE)

	opts := envworker.Options{
		ID:          *id,
		Seed:        *seed,
		Render:      *render,
		RenderDelay: *renderDelay,
	}
	start := time.Now()
	if err := envworker.Run(context.Background(), stdio{}, opts, envworker.DefaultBuilders()); err != nil {
		slog.Error("EnvWorker: exiting with error", "worker_id", *id, "error", err)
		os.Exit(1)
	}
	slog.Info("EnvWorker: exited", "worker_id", *id, "uptime", time.Since(start))
}
