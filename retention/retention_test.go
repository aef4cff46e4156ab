package retention

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"
)

// fakeStore holds message rows as id -> creation time.
type fakeStore struct {
	rows     map[uint64]time.Time
	countErr error
	delErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[uint64]time.Time{}}
}

func (s *fakeStore) add(id uint64, createdAt time.Time) {
	s.rows[id] = createdAt
}

func (s *fakeStore) CountMessages(ctx context.Context) (int64, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	return int64(len(s.rows)), nil
}

func (s *fakeStore) DeleteMessagesCreatedBefore(ctx context.Context, cutoff time.Time) error {
	if s.delErr != nil {
		return s.delErr
	}
	for id, created := range s.rows {
		if created.Before(cutoff) {
			delete(s.rows, id)
		}
	}
	return nil
}

func (s *fakeStore) DeleteAllMessagesExceptNewest(ctx context.Context, keep int) error {
	if s.delErr != nil {
		return s.delErr
	}
	ids := make([]uint64, 0, len(s.rows))
	for id := range s.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	for i, id := range ids {
		if i >= keep {
			delete(s.rows, id)
		}
	}
	return nil
}

func TestEnforceAgeEviction(t *testing.T) {
	store := newFakeStore()
	now := time.Now()
	store.add(1, now.Add(-2*time.Hour))
	store.add(2, now.Add(-90*time.Minute))
	store.add(3, now.Add(-10*time.Minute))

	Enforce(context.Background(), store, time.Hour, 0)

	if len(store.rows) != 1 {
		t.Fatalf("rows = %d; want 1", len(store.rows))
	}
	if _, ok := store.rows[3]; !ok {
		t.Errorf("newest row evicted")
	}
}

func TestEnforceCountEviction(t *testing.T) {
	store := newFakeStore()
	now := time.Now()
	for id := uint64(1); id <= 100; id++ {
		store.add(id, now)
	}

	// At the cap: evict down to 99 so the incoming record settles at 100.
	Enforce(context.Background(), store, 0, 100)

	if len(store.rows) != 99 {
		t.Fatalf("rows = %d; want 99", len(store.rows))
	}
	if _, ok := store.rows[1]; ok {
		t.Errorf("oldest row survived count eviction")
	}
	if _, ok := store.rows[100]; !ok {
		t.Errorf("newest row evicted")
	}
}

func TestEnforceUnderCapNoEviction(t *testing.T) {
	store := newFakeStore()
	now := time.Now()
	for id := uint64(1); id <= 42; id++ {
		store.add(id, now)
	}

	Enforce(context.Background(), store, 0, 100)

	if len(store.rows) != 42 {
		t.Errorf("rows = %d; want 42", len(store.rows))
	}
}

func TestEnforceFailuresAreNonFatal(t *testing.T) {
	store := newFakeStore()
	store.add(1, time.Now().Add(-2*time.Hour))
	store.delErr = errors.New("db down")
	store.countErr = errors.New("db down")

	// Must not panic and must not propagate anything.
	Enforce(context.Background(), store, time.Hour, 10)

	if len(store.rows) != 1 {
		t.Errorf("rows = %d; want 1 untouched", len(store.rows))
	}
}

func TestEnforceDisabledCaps(t *testing.T) {
	store := newFakeStore()
	store.add(1, time.Now().Add(-100*time.Hour))

	Enforce(context.Background(), store, 0, 0)

	if len(store.rows) != 1 {
		t.Errorf("rows = %d; want 1 with caps disabled", len(store.rows))
	}
}
