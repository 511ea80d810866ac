package sink

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/miradorstack/flightwatch/internal/engine"
	"github.com/miradorstack/flightwatch/internal/models"
)

var (
	// ErrNotFound is returned for an anomaly id the board does not hold.
	ErrNotFound = errors.New("anomaly not found")
	// ErrInvalidTransition is returned when a lifecycle change is not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Entry is a board-owned copy of an anomaly record plus its lifecycle history.
type Entry struct {
	models.AnomalyRecord
	AcknowledgedBy string     `json:"acknowledgedBy,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledgedAt,omitempty"`
	ResolvedAt     *time.Time `json:"resolvedAt,omitempty"`
}

// Filter selects board entries. Zero values match everything.
type Filter struct {
	Status   models.Status
	Severity models.Severity
	Type     models.AnomalyType
	Limit    int
}

// Summary is the manager-level view of the board.
type Summary struct {
	Active       int                 `json:"active"`
	Acknowledged int                 `json:"acknowledged"`
	Resolved     int                 `json:"resolved"`
	Health       models.SystemHealth `json:"systemHealth"`
	LastCycle    int                 `json:"lastCycle"`
}

// Board keeps a bounded, newest-last list of anomalies and applies the
// acknowledge/resolve lifecycle the engine leaves to its consumers.
type Board struct {
	mu        sync.RWMutex
	entries   []*Entry
	index     map[string]*Entry
	capacity  int
	lastCycle int
	now       func() time.Time
}

// NewBoard creates a board holding at most capacity entries.
func NewBoard(capacity int) *Board {
	if capacity <= 0 {
		capacity = 500
	}
	return &Board{
		index:    make(map[string]*Entry),
		capacity: capacity,
		now:      time.Now,
	}
}

// Publish stores copies of the cycle's records as active entries, evicting
// the oldest entries beyond capacity.
func (b *Board) Publish(_ context.Context, records []models.AnomalyRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, rec := range records {
		entry := &Entry{AnomalyRecord: rec.Clone()}
		entry.Status = models.StatusActive
		b.entries = append(b.entries, entry)
		b.index[entry.ID] = entry
	}
	if overflow := len(b.entries) - b.capacity; overflow > 0 {
		for _, evicted := range b.entries[:overflow] {
			delete(b.index, evicted.ID)
		}
		b.entries = append([]*Entry(nil), b.entries[overflow:]...)
	}
	b.lastCycle = len(records)
	return nil
}

// Name identifies the sink.
func (b *Board) Name() string { return "board" }

// List returns entries matching f, newest first.
func (b *Board) List(f Filter) []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Entry, 0)
	for i := len(b.entries) - 1; i >= 0; i-- {
		e := b.entries[i]
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		if f.Severity != "" && e.Severity != f.Severity {
			continue
		}
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		out = append(out, copyEntry(e))
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}

// Get returns a single entry.
func (b *Board) Get(id string) (Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, ok := b.index[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return copyEntry(e), nil
}

// Acknowledge moves an active entry to acknowledged. Acknowledging twice is a
// no-op; acknowledging a resolved entry is rejected.
func (b *Board) Acknowledge(id, by string) (Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.index[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	switch e.Status {
	case models.StatusResolved:
		return Entry{}, ErrInvalidTransition
	case models.StatusActive:
		now := b.now()
		e.Status = models.StatusAcknowledged
		e.AcknowledgedBy = by
		e.AcknowledgedAt = &now
	}
	return copyEntry(e), nil
}

// Resolve closes an active or acknowledged entry.
func (b *Board) Resolve(id string) (Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.index[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	if e.Status == models.StatusResolved {
		return Entry{}, ErrInvalidTransition
	}
	now := b.now()
	e.Status = models.StatusResolved
	e.ResolvedAt = &now
	return copyEntry(e), nil
}

// Summary counts entries by status and grades the unresolved ones.
func (b *Board) Summary() Summary {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s := Summary{LastCycle: b.lastCycle}
	open := make([]models.AnomalyRecord, 0)
	for _, e := range b.entries {
		switch e.Status {
		case models.StatusActive:
			s.Active++
			open = append(open, e.AnomalyRecord)
		case models.StatusAcknowledged:
			s.Acknowledged++
			open = append(open, e.AnomalyRecord)
		case models.StatusResolved:
			s.Resolved++
		}
	}
	s.Health = engine.AssessHealth(open)
	return s
}

func copyEntry(e *Entry) Entry {
	out := *e
	out.AnomalyRecord = e.AnomalyRecord.Clone()
	if e.AcknowledgedAt != nil {
		t := *e.AcknowledgedAt
		out.AcknowledgedAt = &t
	}
	if e.ResolvedAt != nil {
		t := *e.ResolvedAt
		out.ResolvedAt = &t
	}
	return out
}
