package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/roackb2/rollout/internal/pkg/reporting"
)

type Storage interface {
	SaveReport(ctx context.Context, r reporting.Report) error
	// ListReports returns the most recent reports of a run, oldest first.
	ListReports(ctx context.Context, runID uuid.UUID, limit int) ([]reporting.Report, error)
	Close() error
}

const DefaultListLimit = 100
