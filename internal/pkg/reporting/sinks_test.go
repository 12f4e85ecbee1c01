package reporting_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/roackb2/rollout/internal/pkg/pubsub"
	"github.com/roackb2/rollout/internal/pkg/reporting"
	mock_pubsub "github.com/roackb2/rollout/test/_mocks/pubsub"
	mock_storage "github.com/roackb2/rollout/test/_mocks/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func sampleReport() reporting.Report {
	avg := 4.5
	return reporting.Report{
		RunID:         uuid.New(),
		Iteration:     2,
		Collected:     10,
		Cumulative:    20,
		Elapsed:       time.Second,
		AverageReward: &avg,
		Episodes:      3,
		At:            time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestPubSubSinkPublishesJSON(t *testing.T) {
	ctrl := gomock.NewController(t)
	ps := mock_pubsub.NewMockPubSub(ctrl)
	report := sampleReport()

	ps.EXPECT().Publish(gomock.Any(), pubsub.DefaultReportTopic, gomock.Any(), reporting.DefaultPublishTimeout).DoAndReturn(
		func(ctx context.Context, topic, message string, timeout time.Duration) error {
			var got reporting.Report
			require.NoError(t, json.Unmarshal([]byte(message), &got))
			assert.Equal(t, report.RunID, got.RunID)
			assert.Equal(t, 4.5, *got.AverageReward)
			return nil
		})

	sink := reporting.NewPubSubSink(ps, "", 0)
	assert.NoError(t, sink.Report(context.Background(), report))
}

func TestStorageSinkWrapsErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock_storage.NewMockStorage(ctrl)
	report := sampleReport()
	boom := errors.New("boom")

	store.EXPECT().SaveReport(gomock.Any(), report).Return(boom)

	err := reporting.NewStorageSink(store).Report(context.Background(), report)
	assert.ErrorIs(t, err, boom)
}

type countingSink struct {
	calls int
	err   error
}

func (s *countingSink) Report(ctx context.Context, r reporting.Report) error {
	s.calls++
	return s.err
}

func TestNotifyContinuesPastFailures(t *testing.T) {
	failing := &countingSink{err: errors.New("down")}
	ok := &countingSink{}

	reporting.Notify(context.Background(), []reporting.Sink{failing, reporting.LogSink{}, ok}, sampleReport())

	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, ok.calls)
}
