package worker

import (
	"context"
	"io"
	"time"
)

const (
	StatusSpawned  = "spawned"
	StatusReady    = "ready"
	StatusStopping = "stopping"
	StatusStopped  = "stopped"
	StatusFailed   = "failed"
)

const (
	EventReady = "ready"
	EventStop  = "stop"
	EventExit  = "exit"
	EventFail  = "fail"
)

// Process is the OS-level side of a worker.
type Process interface {
	Pid() int
	// Wait blocks until the process exits.
	Wait() error
	Kill() error
}

type SpawnOptions struct {
	ID          int
	Seed        int64
	Render      bool
	RenderDelay time.Duration
}

// Spawner starts one worker and returns its process together with the parent
// end of the duplex byte channel connected to it.
type Spawner interface {
	Spawn(ctx context.Context, opts SpawnOptions) (Process, io.ReadWriteCloser, error)
}

type RegistryConfig struct {
	SeedBase    int64
	Render      bool
	RenderDelay time.Duration
	SpawnDelay  time.Duration
	JoinTimeout time.Duration
}

// WorkerStatus is a point-in-time view of one worker, safe to hand to other
// goroutines.
type WorkerStatus struct {
	ID     int    `json:"id"`
	Pid    int    `json:"pid"`
	Status string `json:"status"`
	Closed bool   `json:"closed"`
}
