// Package source supplies flight snapshots to the monitor loop.
package source

import (
	"context"
	"errors"

	"github.com/miradorstack/flightwatch/internal/models"
)

// ErrNoSnapshot is returned by Next when no snapshot is ready yet.
var ErrNoSnapshot = errors.New("no snapshot available")

// Source yields the next flight snapshot. Next must not block waiting for
// data; it returns ErrNoSnapshot instead.
type Source interface {
	Next(ctx context.Context) (models.FlightSnapshot, error)
}
