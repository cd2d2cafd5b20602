package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cuemby/tableside/pkg/cache"
	"github.com/cuemby/tableside/pkg/journal"
	"github.com/cuemby/tableside/pkg/merge"
	"github.com/cuemby/tableside/pkg/storage"
	"github.com/cuemby/tableside/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream unavailable")

// spyAdapter records the calls made against a QueryCache
type spyAdapter struct {
	*cache.QueryCache
	mu    sync.Mutex
	calls []string
}

func newSpyAdapter() *spyAdapter {
	return &spyAdapter{QueryCache: cache.NewQueryCache()}
}

func (s *spyAdapter) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *spyAdapter) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *spyAdapter) GetCurrent(key cache.Key) *types.Envelope {
	s.record("get")
	return s.QueryCache.GetCurrent(key)
}

func (s *spyAdapter) CancelInFlight(ctx context.Context, key cache.Key) error {
	s.record("cancel")
	return s.QueryCache.CancelInFlight(ctx, key)
}

func (s *spyAdapter) SetCurrent(key cache.Key, value *types.Envelope) {
	s.record("set")
	s.QueryCache.SetCurrent(key, value)
}

func (s *spyAdapter) Invalidate(key cache.Key) {
	s.record("invalidate")
	s.QueryCache.Invalidate(key)
}

// fakeRequester fails every request when err is set
type fakeRequester struct {
	err   error
	calls int
}

func (f *fakeRequester) AddDish(ctx context.Context, code string, entries []types.PendingEntry) error {
	f.calls++
	return f.err
}

func (f *fakeRequester) ConfirmOrder(ctx context.Context, code string, orderID types.LineID) error {
	f.calls++
	return f.err
}

func (f *fakeRequester) CancelOrder(ctx context.Context, code string, orderID types.LineID) error {
	f.calls++
	return f.err
}

type note struct {
	ok      bool
	kind    merge.MutationKind
	code    string
	message string
}

type recordingNotifier struct {
	notes []note
}

func (r *recordingNotifier) Succeeded(kind merge.MutationKind, code, message string) {
	r.notes = append(r.notes, note{ok: true, kind: kind, code: code, message: message})
}

func (r *recordingNotifier) Failed(kind merge.MutationKind, code, message string, err error) {
	r.notes = append(r.notes, note{ok: false, kind: kind, code: code, message: message})
}

type fixture struct {
	adapter   *spyAdapter
	journal   *journal.Journal
	requester *fakeRequester
	notifier  *recordingNotifier
	coord     *Coordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		adapter:   newSpyAdapter(),
		journal:   journal.New(storage.NewMemoryStore()),
		requester: &fakeRequester{},
		notifier:  &recordingNotifier{},
	}
	f.coord = New(f.adapter, f.journal, f.requester, f.notifier)
	t.Cleanup(f.adapter.Close)
	return f
}

func phoBo(qty int) types.DishSelection {
	return types.DishSelection{ID: 1, Name: "Phở Bò", Price: "80000", Quantity: qty}
}

func viewOf(t *testing.T, a cache.Adapter, code string) types.ReservationView {
	t.Helper()
	for _, v := range merge.ProjectToViewModel(a.GetCurrent(cache.ServingReservations)) {
		if v.ReservationCode == code {
			return v
		}
	}
	t.Fatalf("reservation %s not in view", code)
	return types.ReservationView{}
}

func TestAddDishAppendsExactlyOnePendingOrder(t *testing.T) {
	f := newFixture(t)
	f.adapter.SetCurrent(cache.ServingReservations, &types.Envelope{
		Success: true,
		Data:    []types.Reservation{{ReservationCode: "R1", Menus: []types.MenuLine{{ID: "10", Name: "Cơm Gà", Quantity: 1, Price: "60000"}}}},
	})
	before := len(viewOf(t, f.adapter, "R1").Orders)

	m, err := f.coord.AddDish(context.Background(), "R1", []types.DishSelection{phoBo(2)})
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, m.State)
	require.Len(t, m.Entries, 1)

	orders := viewOf(t, f.adapter, "R1").Orders
	require.Len(t, orders, before+1)
	added := orders[len(orders)-1]
	assert.Equal(t, "Phở Bò", added.Dish)
	assert.Equal(t, 2, added.Quantity)
	assert.False(t, added.Confirmed)
	assert.Equal(t, m.Entries[0].ID, added.ID)

	assert.Equal(t, m.Entries, f.journal.Entries("R1"))
	assert.Equal(t, []note{{ok: true, kind: merge.MutationAdd, code: "R1", message: MsgDishesAdded}}, f.notifier.notes)
	assert.NotContains(t, f.adapter.Calls(), "invalidate", "add never invalidates")
}

func TestAddDishFailureRestoresCacheButKeepsJournal(t *testing.T) {
	f := newFixture(t)
	f.requester.err = errUpstream
	previous := &types.Envelope{
		Success: true,
		Data:    []types.Reservation{{ReservationCode: "R1", Menus: []types.MenuLine{}}},
	}
	f.adapter.SetCurrent(cache.ServingReservations, previous)

	m, err := f.coord.AddDish(context.Background(), "R1", []types.DishSelection{phoBo(2)})

	assert.ErrorIs(t, err, errUpstream)
	assert.Equal(t, StateRolledBack, m.State)
	assert.Equal(t, previous, f.adapter.GetCurrent(cache.ServingReservations))
	assert.NotContains(t, f.adapter.Calls(), "invalidate")

	// The journal keeps the entry of the failed add
	pending := f.journal.Entries("R1")
	require.Len(t, pending, 1)
	assert.Equal(t, "Phở Bò", pending[0].Name)

	require.Len(t, f.notifier.notes, 1)
	assert.False(t, f.notifier.notes[0].ok)
	assert.Equal(t, MsgAddFailed, f.notifier.notes[0].message)
}

func TestAddDishNothingSelected(t *testing.T) {
	f := newFixture(t)

	m, err := f.coord.AddDish(context.Background(), "R1", []types.DishSelection{phoBo(0)})

	assert.ErrorIs(t, err, ErrNoSelection)
	assert.Equal(t, StateIdle, m.State)
	assert.Empty(t, f.adapter.Calls())
	assert.Zero(t, f.requester.calls)
	assert.Empty(t, f.journal.Load())
}

func TestMutationsCancelBeforeWriting(t *testing.T) {
	tests := []struct {
		name string
		run  func(f *fixture) error
	}{
		{name: "add", run: func(f *fixture) error {
			_, err := f.coord.AddDish(context.Background(), "R1", []types.DishSelection{phoBo(1)})
			return err
		}},
		{name: "confirm", run: func(f *fixture) error {
			_, err := f.coord.ConfirmOrder(context.Background(), "R1", "5")
			return err
		}},
		{name: "cancel", run: func(f *fixture) error {
			_, err := f.coord.CancelOrder(context.Background(), "R1", "5")
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			require.NoError(t, tt.run(f))

			calls := f.adapter.Calls()
			require.GreaterOrEqual(t, len(calls), 3)
			assert.Equal(t, []string{"cancel", "get", "set"}, calls[:3])
		})
	}
}

func TestMutationsStopWhenContextDone(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m, err := f.coord.ConfirmOrder(ctx, "R1", "5")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateIdle, m.State)
	assert.Equal(t, []string{"cancel"}, f.adapter.Calls())
}

func seedPending(t *testing.T, f *fixture) {
	t.Helper()
	f.journal.Persist(types.Journal{
		"R1": {{ID: "5", DishID: 4, Name: "Phở", Quantity: 2, Price: "80000", IsNew: true}},
	})
	f.adapter.SetCurrent(cache.ServingReservations, merge.MergeSnapshotWithJournal(&types.Envelope{
		Success: true,
		Data:    []types.Reservation{{ReservationCode: "R1", Menus: []types.MenuLine{{ID: "10", Name: "Cơm Gà", Quantity: 1, Price: "60000"}}}},
	}, f.journal.Load()))
}

func TestConfirmOrderFlipsOnlyConfirmedFlag(t *testing.T) {
	f := newFixture(t)
	seedPending(t, f)

	m, err := f.coord.ConfirmOrder(context.Background(), "R1", "5")
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, m.State)

	orders := viewOf(t, f.adapter, "R1").Orders
	require.Len(t, orders, 2, "confirm keeps the line")
	assert.Equal(t, types.OrderView{ID: "5", Dish: "Phở", Quantity: 2, Price: "80000", Confirmed: true}, orders[1])

	assert.NotContains(t, f.journal.Load(), "R1")
	assert.Contains(t, f.adapter.Calls(), "invalidate", "confirm invalidates on settle")
	assert.Equal(t, MsgOrderConfirmed, f.notifier.notes[0].message)
}

func TestConfirmOrderFailureRestoresRawEnvelope(t *testing.T) {
	f := newFixture(t)
	seedPending(t, f)
	f.requester.err = errUpstream
	previous := f.adapter.GetCurrent(cache.ServingReservations)

	m, err := f.coord.ConfirmOrder(context.Background(), "R1", "5")

	assert.ErrorIs(t, err, errUpstream)
	assert.Equal(t, StateRolledBack, m.State)
	assert.Equal(t, previous, f.adapter.GetCurrent(cache.ServingReservations))
	assert.Empty(t, f.journal.Entries("R1"), "journal removal is not undone")
	assert.Contains(t, f.adapter.Calls(), "invalidate", "confirm invalidates on failure too")
	assert.Equal(t, MsgConfirmFailed, f.notifier.notes[0].message)
}

func TestCancelOrderDeletesLine(t *testing.T) {
	f := newFixture(t)
	seedPending(t, f)

	m, err := f.coord.CancelOrder(context.Background(), "R1", "5")
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, m.State)

	orders := viewOf(t, f.adapter, "R1").Orders
	require.Len(t, orders, 1)
	assert.Equal(t, types.LineID("10"), orders[0].ID)
	assert.NotContains(t, f.journal.Load(), "R1")
	assert.NotContains(t, f.adapter.Calls(), "invalidate", "cancel never invalidates")
	assert.Equal(t, MsgOrderCancelled, f.notifier.notes[0].message)
}

func TestCancelOrderFailureRestoresCache(t *testing.T) {
	f := newFixture(t)
	seedPending(t, f)
	f.requester.err = errUpstream
	previous := f.adapter.GetCurrent(cache.ServingReservations)

	m, err := f.coord.CancelOrder(context.Background(), "R1", "5")

	assert.ErrorIs(t, err, errUpstream)
	assert.Equal(t, StateRolledBack, m.State)
	assert.Equal(t, previous, f.adapter.GetCurrent(cache.ServingReservations))
	assert.Empty(t, f.journal.Entries("R1"))
	assert.NotContains(t, f.adapter.Calls(), "invalidate")
}

func TestConfirmOrderReconcilesWithServer(t *testing.T) {
	f := newFixture(t)
	seedPending(t, f)

	server := &types.Envelope{
		Success: true,
		Data: []types.Reservation{{ReservationCode: "R1", Menus: []types.MenuLine{
			{ID: "10", Name: "Cơm Gà", Quantity: 1, Price: "60000"},
			{ID: "11", Name: "Phở", Quantity: 2, Price: "80000"},
		}}},
	}
	f.adapter.Register(cache.ServingReservations, func(ctx context.Context) (*types.Envelope, error) {
		return merge.MergeSnapshotWithJournal(server, f.journal.Load()), nil
	})

	_, err := f.coord.ConfirmOrder(context.Background(), "R1", "5")
	require.NoError(t, err)
	f.adapter.Wait()

	assert.Equal(t, server, f.adapter.GetCurrent(cache.ServingReservations))
}

func TestMutationWithEmptyCache(t *testing.T) {
	f := newFixture(t)

	m, err := f.coord.AddDish(context.Background(), "R1", []types.DishSelection{phoBo(1)})

	require.NoError(t, err)
	assert.Equal(t, StateCommitted, m.State)
	assert.Nil(t, f.adapter.GetCurrent(cache.ServingReservations))
	assert.Len(t, f.journal.Entries("R1"), 1)
}

func TestNewDefaults(t *testing.T) {
	adapter := cache.NewQueryCache()
	defer adapter.Close()
	c := New(adapter, journal.New(storage.NewMemoryStore()), nil, nil)

	_, err := c.CancelOrder(context.Background(), "R1", "5")
	assert.NoError(t, err)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "rolled-back", StateRolledBack.String())
	assert.True(t, StateCommitted.Settled())
	assert.False(t, StateOptimistic.Settled())
}
