package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/roackb2/rollout/internal/pkg/pubsub"
	"github.com/roackb2/rollout/internal/pkg/utils"
)

const DefaultPublishTimeout = 5 * time.Second

// PubSubSink publishes every report as JSON to a topic.
type PubSubSink struct {
	pubsub  pubsub.PubSub
	topic   string
	timeout time.Duration
}

func NewPubSubSink(ps pubsub.PubSub, topic string, timeout time.Duration) *PubSubSink {
	return &PubSubSink{
		pubsub:  ps,
		topic:   utils.GetOrDefault(topic, pubsub.DefaultReportTopic),
		timeout: utils.GetOrDefault(timeout, DefaultPublishTimeout),
	}
}

func (s *PubSubSink) Report(ctx context.Context, r Report) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := s.pubsub.Publish(ctx, s.topic, string(payload), s.timeout); err != nil {
		return fmt.Errorf("publish report to %s: %w", s.topic, err)
	}
	return nil
}

type StorageSink struct {
	saver ReportSaver
}

func NewStorageSink(saver ReportSaver) *StorageSink {
	return &StorageSink{saver: saver}
}

func (s *StorageSink) Report(ctx context.Context, r Report) error {
	if err := s.saver.SaveReport(ctx, r); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

// LogSink writes reports to the default logger.
type LogSink struct{}

func (LogSink) Report(ctx context.Context, r Report) error {
	args := []any{
		"run_id", r.RunID,
		"iteration", r.Iteration,
		"collected", r.Collected,
		"cumulative", r.Cumulative,
		"elapsed", r.Elapsed,
		"episodes", r.Episodes,
	}
	if r.AverageReward != nil {
		args = append(args, "average_reward", *r.AverageReward)
	}
	slog.InfoContext(ctx, "Reporting: collection finished", args...)
	return nil
}

// Notify delivers r to every sink. Failures are logged and do not stop the
// remaining sinks.
func Notify(ctx context.Context, sinks []Sink, r Report) {
	for _, sink := range sinks {
		if err := sink.Report(ctx, r); err != nil {
			slog.Warn("Reporting: sink failed", "run_id", r.RunID, "iteration", r.Iteration, "error", err)
		}
	}
}
