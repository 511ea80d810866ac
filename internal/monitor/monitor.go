// Package monitor drives the evaluation cadence: pull a snapshot, evaluate
// it, publish the anomalies.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/miradorstack/flightwatch/internal/metrics"
	"github.com/miradorstack/flightwatch/internal/models"
	"github.com/miradorstack/flightwatch/internal/sink"
	"github.com/miradorstack/flightwatch/internal/source"
)

// Evaluator turns a snapshot into an evaluation.
type Evaluator interface {
	EvaluateSnapshot(ctx context.Context, snap models.FlightSnapshot) (models.Evaluation, error)
}

// Status is the externally visible monitor state.
type Status struct {
	Paused    bool      `json:"paused"`
	Ticks     uint64    `json:"ticks"`
	Schedule  string    `json:"schedule"`
	LastTick  time.Time `json:"lastTick,omitempty"`
	LastError string    `json:"lastError,omitempty"`
}

// Monitor runs one evaluation cycle per schedule tick. A cycle that is still
// running when the next tick fires causes that tick to be skipped.
type Monitor struct {
	source   source.Source
	eval     Evaluator
	sink     sink.Sink
	schedule string
	logger   *slog.Logger
	cron     *cron.Cron

	paused atomic.Bool
	ticks  atomic.Uint64

	mu        sync.Mutex
	lastTick  time.Time
	lastError string
	lastSnap  models.FlightSnapshot
	lastEval  models.Evaluation
	hasSnap   bool
}

// New builds a monitor. The schedule uses cron syntax, including descriptors
// such as "@every 3s".
func New(src source.Source, eval Evaluator, out sink.Sink, schedule string, logger *slog.Logger) (*Monitor, error) {
	if src == nil || eval == nil || out == nil {
		return nil, errors.New("monitor requires a source, an evaluator and a sink")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", schedule, err)
	}
	clog := cronLogger{logger: logger.With(slog.String("component", "monitor"))}
	return &Monitor{
		source:   src,
		eval:     eval,
		sink:     out,
		schedule: schedule,
		logger:   logger,
		cron: cron.New(
			cron.WithLogger(clog),
			cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
		),
	}, nil
}

// Start schedules the cycle. ctx bounds every cycle started afterwards.
func (m *Monitor) Start(ctx context.Context) error {
	if _, err := m.cron.AddFunc(m.schedule, func() { m.Tick(ctx) }); err != nil {
		return fmt.Errorf("schedule monitor: %w", err)
	}
	m.cron.Start()
	m.logger.Info("monitor started", slog.String("schedule", m.schedule))
	return nil
}

// Stop halts scheduling and waits for a running cycle to finish.
func (m *Monitor) Stop() {
	<-m.cron.Stop().Done()
	m.logger.Info("monitor stopped", slog.Uint64("ticks", m.ticks.Load()))
}

// Pause suspends evaluation; ticks still fire but do nothing.
func (m *Monitor) Pause() { m.paused.Store(true) }

// Resume re-enables evaluation.
func (m *Monitor) Resume() { m.paused.Store(false) }

// Status reports the current monitor state.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		Paused:    m.paused.Load(),
		Ticks:     m.ticks.Load(),
		Schedule:  m.schedule,
		LastTick:  m.lastTick,
		LastError: m.lastError,
	}
}

// Tick runs a single cycle and returns its result label.
func (m *Monitor) Tick(ctx context.Context) string {
	result := m.tick(ctx)
	metrics.MonitorTick(result)
	return result
}

func (m *Monitor) tick(ctx context.Context) string {
	if m.paused.Load() {
		return metrics.TickPaused
	}
	m.ticks.Add(1)

	snap, err := m.source.Next(ctx)
	if errors.Is(err, source.ErrNoSnapshot) {
		return metrics.TickEmpty
	}
	if err != nil {
		m.fail("read snapshot", err)
		return metrics.TickFailed
	}

	ev, err := m.evaluate(ctx, snap)
	if err != nil {
		m.fail("evaluate snapshot", err)
		return metrics.TickFailed
	}
	m.retain(snap, ev)

	if err := m.sink.Publish(ctx, ev.Anomalies); err != nil {
		m.fail("publish anomalies", err)
	} else {
		m.record("")
	}
	if len(ev.Anomalies) > 0 {
		m.logger.Debug("cycle complete",
			slog.Int("anomalies", len(ev.Anomalies)),
			slog.String("health", string(ev.SystemHealth)),
			slog.String("phase", snap.Phase.String()),
		)
	}
	return metrics.TickEvaluated
}

func (m *Monitor) retain(snap models.FlightSnapshot, ev models.Evaluation) {
	anomalies := make([]models.AnomalyRecord, len(ev.Anomalies))
	for i, rec := range ev.Anomalies {
		anomalies[i] = rec.Clone()
	}
	ev.Anomalies = anomalies

	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSnap = snap
	m.lastEval = ev
	m.hasSnap = true
}

// Current returns the most recently evaluated snapshot and its evaluation.
// ok is false until a cycle has evaluated a snapshot.
func (m *Monitor) Current() (snap models.FlightSnapshot, ev models.Evaluation, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasSnap {
		return models.FlightSnapshot{}, models.Evaluation{}, false
	}
	ev = m.lastEval
	ev.Anomalies = make([]models.AnomalyRecord, len(m.lastEval.Anomalies))
	for i, rec := range m.lastEval.Anomalies {
		ev.Anomalies[i] = rec.Clone()
	}
	return m.lastSnap, ev, true
}

// evaluate isolates a panicking evaluator so the loop keeps running.
func (m *Monitor) evaluate(ctx context.Context, snap models.FlightSnapshot) (ev models.Evaluation, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluator panic: %v", r)
		}
	}()
	return m.eval.EvaluateSnapshot(ctx, snap)
}

func (m *Monitor) fail(op string, err error) {
	m.logger.Warn("monitor cycle failed", slog.String("op", op), slog.Any("error", err))
	m.record(fmt.Sprintf("%s: %v", op, err))
}

func (m *Monitor) record(lastError string) {
	m.mu.Lock()
	m.lastTick = time.Now().UTC()
	m.lastError = lastError
	m.mu.Unlock()
}

// cronLogger routes cron's logr-style calls into slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{slog.Any("error", err)}, keysAndValues...)...)
}
