package manager

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/roackb2/rollout/internal/pkg/protocol"
	"github.com/roackb2/rollout/internal/pkg/worker"
)

const (
	DefaultMinInferenceSize    = 8
	DefaultSeed                = 123
	DefaultStartupPollInterval = 10 * time.Millisecond
	DefaultShapesPollInterval  = 100 * time.Millisecond
)

var (
	ErrStartupTimeout = errors.New("timed out waiting for workers")
	ErrNotInitialized = errors.New("worker processes not initialized")
	ErrAlreadyStarted = errors.New("worker processes already initialized")
	ErrNoWorkers      = errors.New("at least one worker is required")
	ErrWorkerExited   = errors.New("worker channel closed during startup")
)

// Config tunes a BatchedAgentManager. Zero values fall back to the defaults
// above, as does a negative MinInferenceSize. StartupTimeout of zero waits forever.
type Config struct {
	MinInferenceSize    int
	Seed                int64
	SpawnDelay          time.Duration
	Render              bool
	RenderDelay         time.Duration
	StartupPollInterval time.Duration
	ShapesPollInterval  time.Duration
	JoinTimeout         time.Duration
	StartupTimeout      time.Duration
}

// EnvShapes describes the environment served by worker 0.
type EnvShapes = protocol.Shapes

// Stats is a point-in-time view of a manager, safe to read from any
// goroutine.
type Stats struct {
	RunID               uuid.UUID             `json:"run_id"`
	Iterations          int                   `json:"iterations"`
	CumulativeTimesteps int64                 `json:"cumulative_timesteps"`
	AverageReward       *float64              `json:"average_reward,omitempty"`
	Episodes            int                   `json:"episodes"`
	DiscardedMessages   int                   `json:"discarded_messages"`
	Shapes              *EnvShapes            `json:"shapes,omitempty"`
	Workers             []worker.WorkerStatus `json:"workers"`
}
