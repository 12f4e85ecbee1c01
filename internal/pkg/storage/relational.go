package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/roackb2/rollout/config"
	"github.com/roackb2/rollout/internal/pkg/dbaccess"
	"github.com/roackb2/rollout/internal/pkg/reporting"
	"github.com/roackb2/rollout/internal/pkg/utils"
)

// RelationalStorage keeps reports in the run_reports table.
type RelationalStorage struct {
	querier dbaccess.Querier
}

func NewRelationalStorage(cfg config.DatabaseConfig) (*RelationalStorage, error) {
	err := dbaccess.Initialize(cfg)
	if err != nil {
		slog.Error("RelationalStorage: Failed to initialize querier", "error", err)
		return nil, err
	}
	return &RelationalStorage{querier: dbaccess.Default}, nil
}

// NewRelationalStorageWithQuerier wraps an existing querier, e.g. one bound to
// a transaction.
func NewRelationalStorageWithQuerier(q dbaccess.Querier) *RelationalStorage {
	return &RelationalStorage{querier: q}
}

func (m *RelationalStorage) Close() error {
	dbaccess.Close()
	return nil
}

func (m *RelationalStorage) SaveReport(ctx context.Context, r reporting.Report) error {
	at := r.At
	params := dbaccess.CreateRunReportParams{
		RunID:      pgtype.UUID{Bytes: r.RunID, Valid: true},
		Iteration:  int32(r.Iteration),
		Collected:  int32(r.Collected),
		Cumulative: r.Cumulative,
		Elapsed:    utils.ConvertToPgInterval(r.Elapsed),
		Episodes:   int32(r.Episodes),
		ReportedAt: utils.ConvertToPgTimestamp(&at),
	}
	if r.AverageReward != nil {
		params.AverageReward = pgtype.Float8{Float64: *r.AverageReward, Valid: true}
	}
	if err := m.querier.CreateRunReport(ctx, params); err != nil {
		slog.Error("RelationalStorage: Failed to save report", "run_id", r.RunID, "error", err)
		return err
	}
	slog.Debug("RelationalStorage: Saved report", "run_id", r.RunID, "iteration", r.Iteration)
	return nil
}

func (m *RelationalStorage) ListReports(ctx context.Context, runID uuid.UUID, limit int) ([]reporting.Report, error) {
	rows, err := m.querier.ListRunReports(ctx, dbaccess.ListRunReportsParams{
		RunID: pgtype.UUID{Bytes: runID, Valid: true},
		Limit: int32(utils.GetOrDefault(limit, DefaultListLimit)),
	})
	if err != nil {
		slog.Error("RelationalStorage: Failed to list reports", "run_id", runID, "error", err)
		return nil, err
	}
	// Rows come newest first.
	reports := make([]reporting.Report, len(rows))
	for i, row := range rows {
		reports[len(rows)-1-i] = toReport(row)
	}
	return reports, nil
}

func toReport(row dbaccess.RunReport) reporting.Report {
	r := reporting.Report{
		RunID:      uuid.UUID(row.RunID.Bytes),
		Iteration:  int(row.Iteration),
		Collected:  int(row.Collected),
		Cumulative: row.Cumulative,
		Elapsed:    time.Duration(row.Elapsed.Microseconds) * time.Microsecond,
		Episodes:   int(row.Episodes),
		At:         row.ReportedAt.Time,
	}
	if row.AverageReward.Valid {
		avg := row.AverageReward.Float64
		r.AverageReward = &avg
	}
	return r
}
