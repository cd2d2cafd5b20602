package health

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/cuemby/tableside/pkg/metrics"
	"github.com/cuemby/tableside/pkg/storage"
)

const probeKey = "healthProbe"

// StoreChecker round-trips a probe record through the journal storage
type StoreChecker struct {
	store storage.Store
}

// NewStoreChecker creates a checker for store
func NewStoreChecker(store storage.Store) *StoreChecker {
	return &StoreChecker{store: store}
}

// Check writes, reads back and deletes the probe record
func (s *StoreChecker) Check(ctx context.Context) Result {
	start := time.Now()
	fail := func(format string, err error) Result {
		return Result{
			Healthy:   false,
			Message:   fmt.Sprintf(format, err),
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}

	if err := ctx.Err(); err != nil {
		return fail("check aborted: %v", err)
	}

	want := []byte(start.UTC().Format(time.RFC3339Nano))
	if err := s.store.Put(probeKey, want); err != nil {
		return fail("write failed: %v", err)
	}
	got, err := s.store.Get(probeKey)
	if err != nil {
		return fail("read failed: %v", err)
	}
	if !bytes.Equal(got, want) {
		return fail("read back mismatch: %v", fmt.Errorf("got %q", got))
	}
	if err := s.store.Delete(probeKey); err != nil {
		return fail("delete failed: %v", err)
	}

	return Result{
		Healthy:   true,
		Message:   "storage ok",
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

func (s *StoreChecker) Component() string {
	return metrics.ComponentJournal
}
