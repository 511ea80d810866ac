package sink

import (
	"context"
	"log/slog"
	"time"

	"github.com/miradorstack/flightwatch/internal/cache"
	"github.com/miradorstack/flightwatch/internal/models"
)

// Dedup forwards an anomaly only the first time its type and severity are
// seen within ttl. The claim is a cache SetNX so several instances sharing a
// Redis/Valkey server suppress repeats together.
type Dedup struct {
	next   Sink
	cache  cache.Provider
	ttl    time.Duration
	logger *slog.Logger
}

// NewDedup wraps next with cross-cycle suppression.
func NewDedup(next Sink, provider cache.Provider, ttl time.Duration, logger *slog.Logger) *Dedup {
	if provider == nil {
		provider = cache.NewMemoryProvider()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dedup{next: next, cache: provider, ttl: ttl, logger: logger}
}

// Publish forwards the records not seen within ttl. The cycle is forwarded
// even when nothing is fresh so downstream sinks still observe it. Cache
// failures fail open.
func (d *Dedup) Publish(ctx context.Context, records []models.AnomalyRecord) error {
	fresh := make([]models.AnomalyRecord, 0, len(records))
	for _, rec := range records {
		claimed, err := d.cache.SetNX(ctx, dedupKey(rec), []byte(rec.ID), d.ttl)
		if err != nil {
			d.logger.Warn("dedup cache unavailable, forwarding anomaly", slog.String("type", string(rec.Type)), slog.Any("error", err))
			claimed = true
		}
		if claimed {
			fresh = append(fresh, rec)
		}
	}
	return d.next.Publish(ctx, fresh)
}

// Name identifies the sink.
func (d *Dedup) Name() string { return "dedup" }

func dedupKey(rec models.AnomalyRecord) string {
	return "dedup:" + string(rec.Type) + ":" + string(rec.Severity)
}
