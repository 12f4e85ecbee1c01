package main

import (
	"fmt"
	"log/slog"

	"github.com/roackb2/rollout/config"
	"github.com/roackb2/rollout/internal/pkg/envworker"
	"github.com/roackb2/rollout/internal/pkg/manager"
	"github.com/roackb2/rollout/internal/pkg/policy"
	"github.com/roackb2/rollout/internal/pkg/protocol"
	"github.com/roackb2/rollout/internal/pkg/pubsub"
	"github.com/roackb2/rollout/internal/pkg/reporting"
	"github.com/roackb2/rollout/internal/pkg/storage"
	"github.com/roackb2/rollout/internal/pkg/worker"
)

// inProcessBinary selects goroutine workers instead of child processes.
const inProcessBinary = "inprocess"

func newSpawner(cfg config.WorkerConfig) worker.Spawner {
	if cfg.Binary == "" || cfg.Binary == inProcessBinary {
		slog.Info("Setup: running workers in process")
		return &worker.InProcessSpawner{Run: envworker.InProcess(envworker.DefaultBuilders())}
	}
	return &worker.ExecSpawner{Binary: cfg.Binary}
}

func managerConfig(cfg config.CollectorConfig) manager.Config {
	return manager.Config{
		MinInferenceSize:    cfg.MinInferenceSize,
		Seed:                cfg.Seed,
		SpawnDelay:          cfg.SpawnDelay,
		Render:              cfg.Render,
		RenderDelay:         cfg.RenderDelay,
		StartupPollInterval: cfg.StartupPollInterval,
		ShapesPollInterval:  cfg.ShapesPollInterval,
		JoinTimeout:         cfg.JoinTimeout,
		StartupTimeout:      cfg.StartupTimeout,
	}
}

func initPayload(cfg config.WorkerConfig) protocol.InitPayload {
	return protocol.InitPayload{
		Env:      cfg.Env,
		Agents:   cfg.Agents,
		MaxSteps: cfg.MaxSteps,
	}
}

// linearPolicy builds a softmax policy once the first batch reveals the
// observation width. actionCount is read at that point, after InitProcesses
// has filled it in.
func linearPolicy(seed int64, actionCount *int, spaceType *int) policy.Policy {
	return policy.NewLazy(func(obsDim int) (policy.Policy, error) {
		if *spaceType != policy.ActionSpaceDiscrete {
			return nil, fmt.Errorf("linear policy needs a discrete action space, got type %d", *spaceType)
		}
		return policy.NewLinearPolicy(obsDim, *actionCount, seed), nil
	})
}

// backends holds the optional reporting infrastructure.
type backends struct {
	pubsub  pubsub.PubSub
	storage storage.Storage
	sinks   []reporting.Sink
}

func newBackends(cfg config.Configuration) (*backends, error) {
	b := &backends{sinks: []reporting.Sink{reporting.LogSink{}}}

	if cfg.Kafka.Enabled {
		b.pubsub = pubsub.NewKafkaPubSub(cfg.Kafka)
	} else {
		b.pubsub = pubsub.NewChannelPubSub(0)
	}
	b.sinks = append(b.sinks, reporting.NewPubSubSink(b.pubsub, cfg.Kafka.Topic, 0))

	if cfg.Database.Enabled {
		rs, err := storage.NewRelationalStorage(cfg.Database)
		if err != nil {
			b.pubsub.Close()
			return nil, fmt.Errorf("connect storage: %w", err)
		}
		b.storage = rs
	} else {
		b.storage = storage.NewMemoryStorage()
	}
	b.sinks = append(b.sinks, reporting.NewStorageSink(b.storage))
	return b, nil
}

func (b *backends) Close() {
	if err := b.pubsub.Close(); err != nil {
		slog.Warn("Setup: closing pubsub", "error", err)
	}
	if err := b.storage.Close(); err != nil {
		slog.Warn("Setup: closing storage", "error", err)
	}
}
