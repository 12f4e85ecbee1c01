// Package reporting publishes a summary after every collection call.
package reporting

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Report summarizes one CollectTimesteps call.
type Report struct {
	RunID      uuid.UUID     `json:"run_id"`
	Iteration  int           `json:"iteration"`
	Collected  int           `json:"collected"`
	Cumulative int64         `json:"cumulative"`
	Elapsed    time.Duration `json:"elapsed"`
	// AverageReward is nil until the first episode finishes.
	AverageReward *float64  `json:"average_reward,omitempty"`
	Episodes      int       `json:"episodes"`
	At            time.Time `json:"at"`
}

type Sink interface {
	Report(ctx context.Context, r Report) error
}

// ReportSaver persists reports. storage.Storage implements it.
type ReportSaver interface {
	SaveReport(ctx context.Context, r Report) error
}
