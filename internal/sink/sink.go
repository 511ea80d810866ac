// Package sink holds the consumers of each evaluation cycle's anomaly records.
package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/miradorstack/flightwatch/internal/metrics"
	"github.com/miradorstack/flightwatch/internal/models"
)

// Sink receives the records produced by one evaluation cycle. Implementations
// must not mutate the records they are given.
type Sink interface {
	Publish(ctx context.Context, records []models.AnomalyRecord) error
	Name() string
}

// Multi fans a cycle out to several sinks. A failing sink does not stop the
// others; failures are counted and joined.
type Multi struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewMulti builds a fan-out over the non-nil sinks.
func NewMulti(logger *slog.Logger, sinks ...Sink) *Multi {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Multi{logger: logger}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Publish delivers records to every sink.
func (m *Multi) Publish(ctx context.Context, records []models.AnomalyRecord) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Publish(ctx, records); err != nil {
			metrics.SinkError(s.Name())
			m.logger.Warn("sink publish failed", slog.String("sink", s.Name()), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Name identifies the fan-out.
func (m *Multi) Name() string { return "multi" }

// Log writes each record to the structured log. Critical and high anomalies
// log at warn level.
type Log struct {
	logger *slog.Logger
}

// NewLog returns a logging sink.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

// Publish logs every record.
func (l *Log) Publish(ctx context.Context, records []models.AnomalyRecord) error {
	for _, rec := range records {
		level := slog.LevelInfo
		if rec.Severity.Rank() >= models.SeverityHigh.Rank() {
			level = slog.LevelWarn
		}
		l.logger.LogAttrs(ctx, level, "anomaly detected",
			slog.String("id", rec.ID),
			slog.String("type", string(rec.Type)),
			slog.String("severity", string(rec.Severity)),
			slog.String("description", rec.Description),
			slog.Time("timestamp", rec.Timestamp),
		)
	}
	return nil
}

// Name identifies the sink.
func (l *Log) Name() string { return "log" }
