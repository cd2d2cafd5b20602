package board

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/tableside/pkg/cache"
	"github.com/cuemby/tableside/pkg/health"
	"github.com/cuemby/tableside/pkg/log"
	"github.com/cuemby/tableside/pkg/merge"
	"github.com/cuemby/tableside/pkg/metrics"
	"github.com/cuemby/tableside/pkg/types"
	"github.com/rs/zerolog"
)

// Source fetches the authoritative serving-reservations snapshot
type Source interface {
	GetServingReservations(ctx context.Context) (*types.Envelope, error)
}

// JournalReader exposes the persisted pending entries
type JournalReader interface {
	Load() types.Journal
}

// Board is the serving-reservations view: the cached snapshot merged with
// the pending journal and projected for display.
type Board struct {
	source  Source
	journal JournalReader
	cache   *cache.QueryCache
	logger  zerolog.Logger
}

var _ health.Checker = (*Board)(nil)

// New creates a board and registers its fetcher on qc
func New(source Source, journal JournalReader, qc *cache.QueryCache) *Board {
	b := &Board{
		source:  source,
		journal: journal,
		cache:   qc,
		logger:  log.WithComponent("board"),
	}
	qc.Register(cache.ServingReservations, b.fetch)
	metrics.RegisterComponent(metrics.ComponentJournal, true, "")
	metrics.RegisterComponent(metrics.ComponentUpstream, false, "not fetched yet")
	return b
}

// fetch loads the snapshot and folds the journal into it. The merged value is
// what the cache holds, so optimistic patches and refetches share one shape.
func (b *Board) fetch(ctx context.Context) (*types.Envelope, error) {
	snapshot, err := b.source.GetServingReservations(ctx)
	if err != nil {
		metrics.UpdateComponent(metrics.ComponentUpstream, false, err.Error())
		b.logger.Warn().Err(err).Msg("failed to fetch serving reservations")
		return nil, err
	}
	metrics.UpdateComponent(metrics.ComponentUpstream, true, "")
	return merge.MergeSnapshotWithJournal(snapshot, b.journal.Load()), nil
}

// View returns the projected reservations, fetching when the cache is empty or stale
func (b *Board) View(ctx context.Context) ([]types.ReservationView, error) {
	env, err := b.cache.Get(ctx, cache.ServingReservations)
	if err != nil {
		return nil, err
	}
	return merge.ProjectToViewModel(env), nil
}

// Refresh forces a fetch and returns the new view
func (b *Board) Refresh(ctx context.Context) ([]types.ReservationView, error) {
	env, err := b.cache.Fetch(ctx, cache.ServingReservations)
	if err != nil {
		return nil, err
	}
	return merge.ProjectToViewModel(env), nil
}

// Current projects whatever the cache holds right now without fetching
func (b *Board) Current() []types.ReservationView {
	return merge.ProjectToViewModel(b.cache.GetCurrent(cache.ServingReservations))
}

// Check reports whether the cached view can be trusted. A view whose last
// fetch failed, or that was invalidated and not refetched, is unhealthy.
func (b *Board) Check(ctx context.Context) health.Result {
	start := time.Now()
	result := health.Result{Healthy: true, Message: "view up to date", CheckedAt: start}

	switch {
	case ctx.Err() != nil:
		result = health.Result{Healthy: false, Message: fmt.Sprintf("check aborted: %v", ctx.Err()), CheckedAt: start}
	case b.cache.LastError(cache.ServingReservations) != nil:
		result.Healthy = false
		result.Message = fmt.Sprintf("last fetch failed: %v", b.cache.LastError(cache.ServingReservations))
	case b.cache.IsStale(cache.ServingReservations):
		result.Healthy = false
		result.Message = "view invalidated, refetch pending"
	}
	result.Duration = time.Since(start)
	return result
}

func (b *Board) Component() string {
	return metrics.ComponentView
}

// Reservation returns one reservation of the view
func (b *Board) Reservation(ctx context.Context, reservationCode string) (types.ReservationView, error) {
	views, err := b.View(ctx)
	if err != nil {
		return types.ReservationView{}, err
	}
	for _, v := range views {
		if v.ReservationCode == reservationCode {
			return v, nil
		}
	}
	return types.ReservationView{}, fmt.Errorf("reservation %s is not being served", reservationCode)
}

// StatusText summarises the unconfirmed orders of a reservation
func StatusText(v types.ReservationView) string {
	switch n := len(merge.PendingOrders(v.Orders)); n {
	case 0:
		return "No new dishes"
	case 1:
		return "1 new dish"
	default:
		return fmt.Sprintf("%d new dishes", n)
	}
}
