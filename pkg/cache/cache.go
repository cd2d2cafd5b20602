package cache

import (
	"context"

	"github.com/cuemby/tableside/pkg/types"
)

// Key identifies one cached query
type Key string

// ServingReservations is the fixed key of the serving-reservations list
const ServingReservations Key = "servingReservations"

// Adapter is the capability set the mutation coordinator needs from an async
// data cache. Values are always the raw server envelope.
type Adapter interface {
	// GetCurrent returns the cached value, or nil when nothing is cached
	GetCurrent(key Key) *types.Envelope

	// CancelInFlight makes any outstanding fetch for key discard its result.
	// Network I/O is not aborted.
	CancelInFlight(ctx context.Context, key Key) error

	// SetCurrent replaces the cached value
	SetCurrent(key Key, value *types.Envelope)

	// Invalidate marks the value stale and schedules a refetch
	Invalidate(key Key)
}
