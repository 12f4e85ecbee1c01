package storage

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/roackb2/rollout/internal/pkg/reporting"
	"github.com/roackb2/rollout/internal/pkg/utils"
)

type MemoryStorage struct {
	reports map[uuid.UUID][]reporting.Report
	mu      sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{reports: make(map[uuid.UUID][]reporting.Report)}
}

func (m *MemoryStorage) SaveReport(ctx context.Context, r reporting.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[r.RunID] = append(m.reports[r.RunID], r)
	slog.Debug("MemoryStorage: saved report", "run_id", r.RunID, "iteration", r.Iteration)
	return nil
}

func (m *MemoryStorage) ListReports(ctx context.Context, runID uuid.UUID, limit int) ([]reporting.Report, error) {
	limit = utils.GetOrDefault(limit, DefaultListLimit)
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.reports[runID]
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]reporting.Report, len(all))
	copy(out, all)
	return out, nil
}

func (m *MemoryStorage) Close() error {
	return nil
}
