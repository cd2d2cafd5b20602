package journal

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cuemby/tableside/pkg/storage"
	"github.com/cuemby/tableside/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.UnixMilli(1700000000000)

func newTestJournal(store storage.Store, opts ...Option) *Journal {
	var n atomic.Int64
	opts = append([]Option{
		WithClock(func() time.Time { return fixedNow }),
		WithSuffix(func() string { return fmt.Sprintf("s%d", n.Add(1)) }),
	}, opts...)
	return New(store, opts...)
}

func phoBo(qty int) types.DishSelection {
	return types.DishSelection{ID: 1, Name: "Phở Bò", Price: "80000", Quantity: qty}
}

// hookStore wraps a MemoryStore with optional callbacks around Get and Put
type hookStore struct {
	*storage.MemoryStore
	afterGet  func()
	beforePut func(data []byte)
	afterPut  func(data []byte)
	getErr    error
	putErr    error
}

func (s *hookStore) Get(key string) ([]byte, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	data, err := s.MemoryStore.Get(key)
	if s.afterGet != nil {
		s.afterGet()
	}
	return data, err
}

func (s *hookStore) Put(key string, data []byte) error {
	if s.putErr != nil {
		return s.putErr
	}
	if s.beforePut != nil {
		s.beforePut(data)
	}
	err := s.MemoryStore.Put(key, data)
	if s.afterPut != nil {
		s.afterPut(data)
	}
	return err
}

func TestAppend(t *testing.T) {
	j := newTestJournal(storage.NewMemoryStore())

	created := j.Append("R1", []types.DishSelection{
		phoBo(2),
		{ID: 2, Name: "Bún Bò", Price: "70000", Quantity: 0},
		{ID: 8, Name: "Nước ngọt", Price: "15000", Quantity: 3},
	})

	require.Len(t, created, 2, "zero-quantity selections are skipped")
	assert.Equal(t, types.PendingEntry{
		ID:       "1-1700000000000-s1",
		DishID:   1,
		Name:     "Phở Bò",
		Quantity: 2,
		Price:    "80000",
		IsNew:    true,
	}, created[0])
	assert.Equal(t, types.LineID("8-1700000000000-s2"), created[1].ID)
	assert.True(t, created[1].ID.IsSynthetic())

	assert.Equal(t, created, j.Entries("R1"))

	more := j.Append("R1", []types.DishSelection{phoBo(1)})
	assert.Equal(t, append(created, more...), j.Entries("R1"), "entries keep append order")
}

func TestAppendNothingSelected(t *testing.T) {
	store := storage.NewMemoryStore()
	j := newTestJournal(store)

	created := j.Append("R1", []types.DishSelection{phoBo(0)})

	assert.Empty(t, created)
	data, err := store.Get(StorageKey)
	require.NoError(t, err)
	assert.Nil(t, data, "no write when nothing was created")
	assert.NotContains(t, j.Load(), "R1")
}

func TestAppendRemoveRoundTrip(t *testing.T) {
	j := newTestJournal(storage.NewMemoryStore())

	j.Append("R1", []types.DishSelection{phoBo(1), phoBo(2)})
	before := j.Entries("R1")

	added := j.Append("R1", []types.DishSelection{phoBo(5)})
	require.Len(t, added, 1)
	j.Remove("R1", added[0].ID)

	assert.Equal(t, before, j.Entries("R1"))
}

func TestRemoveDropsEmptyKey(t *testing.T) {
	j := newTestJournal(storage.NewMemoryStore())

	added := j.Append("R1", []types.DishSelection{phoBo(1)})
	j.Append("R2", []types.DishSelection{phoBo(1)})

	j.Remove("R1", added[0].ID)

	m := j.Load()
	assert.NotContains(t, m, "R1")
	assert.Contains(t, m, "R2")
}

func TestRemoveUnknownEntry(t *testing.T) {
	j := newTestJournal(storage.NewMemoryStore())
	j.Append("R1", []types.DishSelection{phoBo(1)})

	j.Remove("R1", "missing")
	j.Remove("R9", "missing")

	m := j.Load()
	assert.Len(t, m["R1"], 1)
	assert.NotContains(t, m, "R9", "removing from an absent reservation must not create a key")
}

func TestLoadDegradesToEmpty(t *testing.T) {
	tests := []struct {
		name  string
		store *hookStore
	}{
		{
			name:  "corrupt blob",
			store: &hookStore{MemoryStore: storage.NewMemoryStore()},
		},
		{
			name:  "read error",
			store: &hookStore{MemoryStore: storage.NewMemoryStore(), getErr: errors.New("disk gone")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.store.MemoryStore.Put(StorageKey, []byte("{not json")))

			m := New(tt.store).Load()
			assert.NotNil(t, m)
			assert.Empty(t, m)
		})
	}
}

func TestLoadNullBlob(t *testing.T) {
	store := storage.NewMemoryStore()
	require.NoError(t, store.Put(StorageKey, []byte("null")))

	m := New(store).Load()
	require.NotNil(t, m)
	m["R1"] = nil
}

func TestPersistSwallowsErrors(t *testing.T) {
	store := &hookStore{MemoryStore: storage.NewMemoryStore(), putErr: errors.New("quota exceeded")}
	j := newTestJournal(store)

	var created []types.PendingEntry
	assert.NotPanics(t, func() {
		created = j.Append("R1", []types.DishSelection{phoBo(1)})
	})

	assert.Len(t, created, 1, "caller still receives the entries")
	assert.Empty(t, j.Load(), "the write was lost")
}

func TestPersistedFormat(t *testing.T) {
	store := storage.NewMemoryStore()
	j := newTestJournal(store)
	j.Append("R1", []types.DishSelection{phoBo(2)})

	data, err := store.Get(StorageKey)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"R1":[{"id":"1-1700000000000-s1","dishId":1,"name":"Phở Bò","quantity":2,"price":"80000","_isNew":true}]}`,
		string(data))
}

// The second Append loads before the first one persists, so its whole-mapping
// write discards the first reservation's entry.
func TestConcurrentAppendLastWriterWins(t *testing.T) {
	firstLoaded := make(chan struct{})
	secondLoaded := make(chan struct{})
	firstPersisted := make(chan struct{})

	var gets atomic.Int32
	store := &hookStore{MemoryStore: storage.NewMemoryStore()}
	store.afterGet = func() {
		switch gets.Add(1) {
		case 1:
			close(firstLoaded)
		case 2:
			close(secondLoaded)
		}
	}
	store.beforePut = func(data []byte) {
		switch {
		case bytes.Contains(data, []byte(`"R1"`)):
			<-secondLoaded
		case bytes.Contains(data, []byte(`"R2"`)):
			<-firstPersisted
		}
	}
	store.afterPut = func(data []byte) {
		if bytes.Contains(data, []byte(`"R1"`)) {
			close(firstPersisted)
		}
	}

	j := newTestJournal(store)

	var wg sync.WaitGroup
	var first, second []types.PendingEntry
	wg.Add(2)
	go func() {
		defer wg.Done()
		first = j.Append("R1", []types.DishSelection{phoBo(1)})
	}()
	<-firstLoaded
	go func() {
		defer wg.Done()
		second = j.Append("R2", []types.DishSelection{phoBo(2)})
	}()
	wg.Wait()

	require.Len(t, first, 1)
	require.Len(t, second, 1)

	store.afterGet = nil
	m := j.Load()
	assert.NotContains(t, m, "R1", "first writer's entry is lost")
	assert.Equal(t, second, m["R2"])
}

func TestSerializedWritesKeepEveryReservation(t *testing.T) {
	j := newTestJournal(storage.NewMemoryStore(), WithSerializedWrites())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			j.Append(fmt.Sprintf("R%d", i), []types.DishSelection{phoBo(1)})
		}(i)
	}
	wg.Wait()

	assert.Len(t, j.Load(), 20)
}

func TestRandomSuffix(t *testing.T) {
	a, b := randomSuffix(), randomSuffix()
	assert.Len(t, a, 9)
	assert.NotEqual(t, a, b)
}
