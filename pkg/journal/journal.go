package journal

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cuemby/tableside/pkg/log"
	"github.com/cuemby/tableside/pkg/metrics"
	"github.com/cuemby/tableside/pkg/storage"
	"github.com/cuemby/tableside/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// StorageKey is the fixed durable-storage key holding the whole journal blob
const StorageKey = "pendingDishes"

// Journal is the durable record of pending order entries, keyed by reservation code.
//
// Every mutating operation loads the entire mapping, changes one reservation's
// list and writes the entire mapping back. Without WithSerializedWrites two
// concurrent operations on different reservations can overwrite each other:
// the later Persist wins and the earlier change is lost.
type Journal struct {
	store     storage.Store
	now       func() time.Time
	suffix    func() string
	serialize bool
	mu        sync.Mutex
	logger    zerolog.Logger
}

// Option configures a Journal
type Option func(*Journal)

// WithSerializedWrites makes each read-modify-write sequence exclusive within
// this process. Off by default.
func WithSerializedWrites() Option {
	return func(j *Journal) {
		j.serialize = true
	}
}

// WithClock overrides the time source used for synthetic ids
func WithClock(now func() time.Time) Option {
	return func(j *Journal) {
		j.now = now
	}
}

// WithSuffix overrides the random suffix generator used for synthetic ids
func WithSuffix(suffix func() string) Option {
	return func(j *Journal) {
		j.suffix = suffix
	}
}

// New creates a Journal persisting to store
func New(store storage.Store, opts ...Option) *Journal {
	j := &Journal{
		store:  store,
		now:    time.Now,
		suffix: randomSuffix,
		logger: log.WithComponent("journal"),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Load returns the full mapping. Read or decode failures degrade to an empty mapping.
func (j *Journal) Load() types.Journal {
	data, err := j.store.Get(StorageKey)
	if err != nil {
		metrics.JournalErrorsTotal.WithLabelValues("load").Inc()
		metrics.UpdateComponent(metrics.ComponentJournal, false, err.Error())
		j.logger.Warn().Err(err).Msg("failed to read journal, using empty journal")
		return types.Journal{}
	}
	if len(data) == 0 {
		return types.Journal{}
	}

	var m types.Journal
	if err := json.Unmarshal(data, &m); err != nil {
		metrics.JournalErrorsTotal.WithLabelValues("decode").Inc()
		j.logger.Warn().Err(err).Msg("failed to decode journal, using empty journal")
		return types.Journal{}
	}
	if m == nil {
		m = types.Journal{}
	}
	return m
}

// Persist writes the full mapping. Failures are logged and swallowed, so the
// write can be lost.
func (j *Journal) Persist(m types.Journal) {
	data, err := json.Marshal(m)
	if err != nil {
		metrics.JournalErrorsTotal.WithLabelValues("encode").Inc()
		j.logger.Warn().Err(err).Msg("failed to encode journal, write dropped")
		return
	}
	if err := j.store.Put(StorageKey, data); err != nil {
		metrics.JournalErrorsTotal.WithLabelValues("persist").Inc()
		metrics.UpdateComponent(metrics.ComponentJournal, false, err.Error())
		j.logger.Warn().Err(err).Msg("failed to persist journal, write dropped")
		return
	}
	metrics.UpdateComponent(metrics.ComponentJournal, true, "")

	entries := 0
	for _, list := range m {
		entries += len(list)
	}
	metrics.JournalEntries.Set(float64(entries))
	metrics.JournalReservations.Set(float64(len(m)))
}

// Append records one pending entry per selection with a positive quantity and
// returns the created entries in selection order.
func (j *Journal) Append(reservationCode string, selections []types.DishSelection) []types.PendingEntry {
	if j.serialize {
		j.mu.Lock()
		defer j.mu.Unlock()
	}

	m := j.Load()

	created := make([]types.PendingEntry, 0, len(selections))
	for _, sel := range selections {
		if sel.Quantity <= 0 {
			continue
		}
		created = append(created, types.PendingEntry{
			ID:       j.newID(sel.ID),
			DishID:   sel.ID,
			Name:     sel.Name,
			Quantity: sel.Quantity,
			Price:    sel.Price,
			IsNew:    true,
		})
	}
	if len(created) == 0 {
		return created
	}

	m[reservationCode] = append(m[reservationCode], created...)
	j.Persist(m)

	logger := log.WithReservation("journal", reservationCode)
	logger.Debug().
		Int("entries", len(created)).
		Msg("appended pending entries")

	return created
}

// Remove drops one entry from a reservation's list. An emptied list removes the
// reservation key. The mapping is persisted either way.
func (j *Journal) Remove(reservationCode string, entryID types.LineID) {
	if j.serialize {
		j.mu.Lock()
		defer j.mu.Unlock()
	}

	m := j.Load()

	kept := make([]types.PendingEntry, 0, len(m[reservationCode]))
	for _, entry := range m[reservationCode] {
		if entry.ID != entryID {
			kept = append(kept, entry)
		}
	}
	if len(kept) == 0 {
		delete(m, reservationCode)
	} else {
		m[reservationCode] = kept
	}
	j.Persist(m)

	logger := log.WithReservation("journal", reservationCode)
	logger.Debug().
		Str("entry_id", string(entryID)).
		Msg("removed pending entry")
}

// Entries returns the pending entries of one reservation
func (j *Journal) Entries(reservationCode string) []types.PendingEntry {
	return j.Load()[reservationCode]
}

// newID builds <dishId>-<unix millis>-<suffix>. The dash separators keep it
// from ever parsing as a server-issued integer id.
func (j *Journal) newID(dishID int) types.LineID {
	return types.LineID(fmt.Sprintf("%d-%d-%s", dishID, j.now().UnixMilli(), j.suffix()))
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}
