package preview

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestPutGetRoundTrip(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	store := NewMemoryStore(time.Hour, clock.Now)
	ctx := context.Background()

	id, err := store.Put(ctx, "SELECT * FROM sales", "user-1", "analyst")
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if id == "" {
		t.Fatal("Put() returned empty id")
	}

	entry, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if entry.Query != "SELECT * FROM sales" || entry.UserID != "user-1" || entry.UserRole != "analyst" {
		t.Fatalf("entry = %+v", entry)
	}
	if !entry.CreatedAt.Equal(clock.Now()) {
		t.Fatalf("CreatedAt = %v", entry.CreatedAt)
	}
}

func TestGetUnknownIDIsNotFound(t *testing.T) {
	store := NewMemoryStore(time.Hour, nil)
	if _, err := store.Get(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := NewMemoryStore(time.Hour, nil)
	ctx := context.Background()

	id, err := store.Put(ctx, "SELECT 1", "", "")
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("second Delete() error = %v", err)
	}
	if err := store.Delete(ctx, "never-existed"); err != nil {
		t.Fatalf("Delete(absent) error = %v", err)
	}
}

func TestExpiredEntryIsNotFoundBeforeSweep(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	store := NewMemoryStore(time.Hour, clock.Now)
	ctx := context.Background()

	id, err := store.Put(ctx, "SELECT 1", "", "")
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	clock.Advance(time.Hour + time.Minute)
	if _, err := store.Get(ctx, id); err != ErrNotFound {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestSweepRemovesOnlyExpiredEntries(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	store := NewMemoryStore(time.Hour, clock.Now)
	ctx := context.Background()

	oldID, err := store.Put(ctx, "SELECT 1", "", "")
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	clock.Advance(50 * time.Minute)
	freshID, err := store.Put(ctx, "SELECT 2", "", "")
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	clock.Advance(20 * time.Minute)

	sweeper := &Sweeper{Store: store}
	if removed := sweeper.RunSweepOnce(ctx); removed != 1 {
		t.Fatalf("RunSweepOnce() = %d, want 1", removed)
	}
	if _, err := store.Get(ctx, oldID); err != ErrNotFound {
		t.Fatalf("old entry error = %v, want ErrNotFound", err)
	}
	if _, err := store.Get(ctx, freshID); err != nil {
		t.Fatalf("fresh entry error = %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", store.Len())
	}
}

func TestConcurrentPutReturnsUniqueIDs(t *testing.T) {
	store := NewMemoryStore(time.Hour, nil)
	ctx := context.Background()

	const workers = 32
	const perWorker = 16

	var wg sync.WaitGroup
	ids := make(chan string, workers*perWorker)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				id, err := store.Put(ctx, "SELECT 1", "", "")
				if err != nil {
					t.Errorf("Put() error = %v", err)
					return
				}
				ids <- id
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]struct{}{}
	for id := range ids {
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
	if len(seen) != workers*perWorker {
		t.Fatalf("unique ids = %d, want %d", len(seen), workers*perWorker)
	}
}

func TestConcurrentDeleteAndSweepAreSafe(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	store := NewMemoryStore(time.Minute, clock.Now)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 64; i++ {
		id, err := store.Put(ctx, "SELECT 1", "", "")
		if err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		ids = append(ids, id)
	}
	clock.Advance(2 * time.Minute)

	sweeper := &Sweeper{Store: store}
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		sweeper.RunSweepOnce(ctx)
	}()
	go func() {
		defer wg.Done()
		for _, id := range ids {
			_ = store.Delete(ctx, id)
		}
	}()
	wg.Wait()

	if store.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", store.Len())
	}
}
