package reconciler

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/cuemby/tableside/pkg/cache"
	"github.com/cuemby/tableside/pkg/events"
	"github.com/cuemby/tableside/pkg/log"
	"github.com/cuemby/tableside/pkg/metrics"
	"github.com/cuemby/tableside/pkg/types"
	"github.com/rs/zerolog"
)

// DefaultInterval is used when no interval is configured
const DefaultInterval = 30 * time.Second

// Refresher refetches the serving reservations view
type Refresher interface {
	Refresh(ctx context.Context) ([]types.ReservationView, error)
}

// Reconciler periodically refetches the serving reservations so the cached
// view converges on the server's state.
type Reconciler struct {
	refresher Refresher
	broker    *events.Broker
	interval  time.Duration
	logger    zerolog.Logger

	mu       sync.Mutex
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewReconciler creates a reconciler. broker may be nil.
func NewReconciler(refresher Refresher, broker *events.Broker, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reconciler{
		refresher: refresher,
		broker:    broker,
		interval:  interval,
		logger:    log.WithComponent("reconciler"),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the reconciliation loop
func (r *Reconciler) Start() {
	go r.run()
}

// Stop stops the loop and waits for the current cycle to finish
func (r *Reconciler) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	<-r.doneCh
}

// run is the main reconciliation loop
func (r *Reconciler) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithCancel(context.Background())
			go func() {
				select {
				case <-r.stopCh:
					cancel()
				case <-ctx.Done():
				}
			}()
			if err := r.Reconcile(ctx); err != nil {
				r.logger.Warn().Err(err).Msg("reconciliation cycle failed")
			}
			cancel()
		case <-r.stopCh:
			return
		}
	}
}

// Reconcile performs one refresh cycle
func (r *Reconciler) Reconcile(ctx context.Context) error {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.ReconciliationDuration)
		metrics.ReconciliationCyclesTotal.Inc()
	}()

	r.mu.Lock()
	defer r.mu.Unlock()

	views, err := r.refresher.Refresh(ctx)
	if errors.Is(err, cache.ErrFetchCancelled) {
		// A mutation started while we were fetching; its own settle decides
		// whether to refetch.
		r.logger.Debug().Msg("refresh superseded by a mutation")
		return nil
	}
	if err != nil {
		r.publish(events.EventRefreshFailed, "Could not refresh reservations", map[string]string{
			"error": err.Error(),
		})
		return err
	}

	pending := 0
	for _, v := range views {
		for _, o := range v.Orders {
			if !o.Confirmed {
				pending++
			}
		}
	}
	r.logger.Debug().
		Int("reservations", len(views)).
		Int("pending", pending).
		Dur("took", timer.Duration()).
		Msg("reservations refreshed")

	r.publish(events.EventCacheRefreshed, "Reservations refreshed", map[string]string{
		"reservations": strconv.Itoa(len(views)),
		"pending":      strconv.Itoa(pending),
	})
	return nil
}

func (r *Reconciler) publish(t events.EventType, msg string, meta map[string]string) {
	if r.broker == nil {
		return
	}
	r.broker.Publish(&events.Event{Type: t, Message: msg, Metadata: meta})
}
