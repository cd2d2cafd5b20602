package coordinator

import (
	"context"
	"errors"
	"fmt"

	"github.com/cuemby/tableside/pkg/cache"
	"github.com/cuemby/tableside/pkg/log"
	"github.com/cuemby/tableside/pkg/merge"
	"github.com/cuemby/tableside/pkg/metrics"
	"github.com/cuemby/tableside/pkg/types"
)

// ErrNoSelection is returned by AddDish when no selection has a positive quantity
var ErrNoSelection = errors.New("no dish selected")

// User-facing notification messages
const (
	MsgDishesAdded    = "Dishes added"
	MsgAddFailed      = "Could not add dishes"
	MsgOrderConfirmed = "Order confirmed"
	MsgConfirmFailed  = "Could not confirm order"
	MsgOrderCancelled = "Order cancelled"
	MsgCancelFailed   = "Could not cancel order"
)

// JournalWriter is the part of the pending-write journal the coordinator mutates
type JournalWriter interface {
	Append(reservationCode string, selections []types.DishSelection) []types.PendingEntry
	Remove(reservationCode string, entryID types.LineID)
}

// Requester performs the request that settles each mutation
type Requester interface {
	AddDish(ctx context.Context, reservationCode string, entries []types.PendingEntry) error
	ConfirmOrder(ctx context.Context, reservationCode string, orderID types.LineID) error
	CancelOrder(ctx context.Context, reservationCode string, orderID types.LineID) error
}

// Notifier surfaces mutation outcomes to the user
type Notifier interface {
	Succeeded(kind merge.MutationKind, reservationCode, message string)
	Failed(kind merge.MutationKind, reservationCode, message string, err error)
}

// ImmediateRequester settles every mutation successfully without any I/O
type ImmediateRequester struct{}

func (ImmediateRequester) AddDish(ctx context.Context, reservationCode string, entries []types.PendingEntry) error {
	return ctx.Err()
}

func (ImmediateRequester) ConfirmOrder(ctx context.Context, reservationCode string, orderID types.LineID) error {
	return ctx.Err()
}

func (ImmediateRequester) CancelOrder(ctx context.Context, reservationCode string, orderID types.LineID) error {
	return ctx.Err()
}

type nopNotifier struct{}

func (nopNotifier) Succeeded(merge.MutationKind, string, string) {}
func (nopNotifier) Failed(merge.MutationKind, string, string, error) {}

// Coordinator applies optimistic mutations to the journal and the cache
// together and settles them against the Requester.
type Coordinator struct {
	cache     cache.Adapter
	journal   JournalWriter
	requester Requester
	notifier  Notifier
	key       cache.Key
}

// New creates a Coordinator working on the serving-reservations cache key.
// A nil requester settles immediately; a nil notifier drops notifications.
func New(adapter cache.Adapter, journal JournalWriter, requester Requester, notifier Notifier) *Coordinator {
	if requester == nil {
		requester = ImmediateRequester{}
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Coordinator{
		cache:     adapter,
		journal:   journal,
		requester: requester,
		notifier:  notifier,
		key:       cache.ServingReservations,
	}
}

// AddDish records the selections as pending entries and appends them to the
// cached reservation.
func (c *Coordinator) AddDish(ctx context.Context, reservationCode string, selections []types.DishSelection) (*Mutation, error) {
	m := newMutation(merge.MutationAdd, reservationCode, "")
	if !hasQuantity(selections) {
		return m, ErrNoSelection
	}

	if err := c.cache.CancelInFlight(ctx, c.key); err != nil {
		return m, fmt.Errorf("failed to cancel in-flight fetch: %w", err)
	}
	previous := c.cache.GetCurrent(c.key)

	m.Entries = c.journal.Append(reservationCode, selections)
	c.cache.SetCurrent(c.key, merge.ApplyPatch(previous, merge.AddPatch(reservationCode, m.Entries)))
	m.transition(StateOptimistic)

	if err := c.requester.AddDish(ctx, reservationCode, m.Entries); err != nil {
		// Only the cache is restored. The entries appended to the journal
		// above stay and show up again on the next merge.
		c.rollback(m, previous, err)
		c.notifier.Failed(m.Kind, reservationCode, MsgAddFailed, err)
		return m, err
	}

	c.commit(m)
	c.notifier.Succeeded(m.Kind, reservationCode, MsgDishesAdded)
	// No invalidation: the patched value stays until something else refetches.
	return m, nil
}

// ConfirmOrder drops the pending marker of an order and marks it confirmed in
// the cache. The cache key is invalidated once the request settles, whatever
// the outcome.
func (c *Coordinator) ConfirmOrder(ctx context.Context, reservationCode string, orderID types.LineID) (*Mutation, error) {
	m := newMutation(merge.MutationConfirm, reservationCode, orderID)

	if err := c.cache.CancelInFlight(ctx, c.key); err != nil {
		return m, fmt.Errorf("failed to cancel in-flight fetch: %w", err)
	}
	previous := c.cache.GetCurrent(c.key)

	c.journal.Remove(reservationCode, orderID)
	c.cache.SetCurrent(c.key, merge.ApplyPatch(previous, merge.ConfirmPatch(reservationCode, orderID)))
	m.transition(StateOptimistic)

	err := c.requester.ConfirmOrder(ctx, reservationCode, orderID)
	defer c.cache.Invalidate(c.key)

	if err != nil {
		// The journal removal is not undone; the refetch after invalidation
		// decides what the view shows.
		c.rollback(m, previous, err)
		c.notifier.Failed(m.Kind, reservationCode, MsgConfirmFailed, err)
		return m, err
	}

	c.commit(m)
	c.notifier.Succeeded(m.Kind, reservationCode, MsgOrderConfirmed)
	return m, nil
}

// CancelOrder drops the pending marker of an order and deletes its line from
// the cache. Unlike ConfirmOrder, nothing is invalidated on settle.
func (c *Coordinator) CancelOrder(ctx context.Context, reservationCode string, orderID types.LineID) (*Mutation, error) {
	m := newMutation(merge.MutationCancel, reservationCode, orderID)

	if err := c.cache.CancelInFlight(ctx, c.key); err != nil {
		return m, fmt.Errorf("failed to cancel in-flight fetch: %w", err)
	}
	previous := c.cache.GetCurrent(c.key)

	c.journal.Remove(reservationCode, orderID)
	c.cache.SetCurrent(c.key, merge.ApplyPatch(previous, merge.CancelPatch(reservationCode, orderID)))
	m.transition(StateOptimistic)

	if err := c.requester.CancelOrder(ctx, reservationCode, orderID); err != nil {
		// The journal entry is already gone and is not restored.
		c.rollback(m, previous, err)
		c.notifier.Failed(m.Kind, reservationCode, MsgCancelFailed, err)
		return m, err
	}

	c.commit(m)
	c.notifier.Succeeded(m.Kind, reservationCode, MsgOrderCancelled)
	return m, nil
}

// rollback restores the raw envelope captured before the optimistic patch
func (c *Coordinator) rollback(m *Mutation, previous *types.Envelope, err error) {
	c.cache.SetCurrent(c.key, previous)
	m.Err = err
	m.transition(StateRolledBack)

	metrics.RollbacksTotal.WithLabelValues(m.Kind.String()).Inc()
	metrics.MutationsTotal.WithLabelValues(m.Kind.String(), "rolled_back").Inc()
	m.timer.ObserveDurationVec(metrics.MutationDuration, m.Kind.String())

	logger := log.WithReservation("coordinator", m.ReservationCode)
	logger.Warn().
		Err(err).
		Str("kind", m.Kind.String()).
		Str("order_id", string(m.OrderID)).
		Msg("mutation rolled back")
}

func (c *Coordinator) commit(m *Mutation) {
	m.transition(StateCommitted)

	metrics.MutationsTotal.WithLabelValues(m.Kind.String(), "committed").Inc()
	m.timer.ObserveDurationVec(metrics.MutationDuration, m.Kind.String())

	logger := log.WithReservation("coordinator", m.ReservationCode)
	logger.Info().
		Str("kind", m.Kind.String()).
		Str("order_id", string(m.OrderID)).
		Int("entries", len(m.Entries)).
		Msg("mutation committed")
}

func hasQuantity(selections []types.DishSelection) bool {
	for _, sel := range selections {
		if sel.Quantity > 0 {
			return true
		}
	}
	return false
}
