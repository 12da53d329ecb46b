package sequence

import (
	"context"
	"sync"
	"testing"

	pkgerrors "github.com/mealrounds/mealrounds-backend/pkg/errors"
)

type fakeNumberStore struct {
	mu        sync.Mutex
	scheduled map[int64]bool
	delivered map[int64]bool

	// existsAlways simulates a racing writer claiming every probed candidate.
	existsAlways bool
}

func newFakeNumberStore() *fakeNumberStore {
	return &fakeNumberStore{
		scheduled: make(map[int64]bool),
		delivered: make(map[int64]bool),
	}
}

func (s *fakeNumberStore) addScheduled(numbers ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range numbers {
		s.scheduled[n] = true
	}
}

func (s *fakeNumberStore) addDelivered(numbers ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range numbers {
		s.delivered[n] = true
	}
}

func (s *fakeNumberStore) MaxScheduledOrderNumber(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maxKey(s.scheduled), nil
}

func (s *fakeNumberStore) MaxDeliveryOrderNumber(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maxKey(s.delivered), nil
}

func (s *fakeNumberStore) ScheduledOrderNumberExists(ctx context.Context, number int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existsAlways {
		return true, nil
	}
	return s.scheduled[number], nil
}

func (s *fakeNumberStore) DeliveryOrderNumberExists(ctx context.Context, number int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delivered[number], nil
}

func maxKey(m map[int64]bool) int64 {
	var max int64
	for k := range m {
		if k > max {
			max = k
		}
	}
	return max
}

func TestAllocateStartsAtFloorWhenEmpty(t *testing.T) {
	alloc, err := NewAllocator(newFakeNumberStore())
	if err != nil {
		t.Fatalf("NewAllocator: %v", err)
	}

	numbers, err := alloc.Allocate(context.Background(), 1)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if numbers[0] != MinOrderNumber {
		t.Fatalf("got %d, want %d", numbers[0], MinOrderNumber)
	}
}

func TestAllocateUsesMaxAcrossBothPartitions(t *testing.T) {
	store := newFakeNumberStore()
	store.addScheduled(100005)
	store.addDelivered(100042)
	alloc, _ := NewAllocator(store)

	numbers, err := alloc.Allocate(context.Background(), 1)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if numbers[0] != 100043 {
		t.Fatalf("got %d, want 100043", numbers[0])
	}
}

func TestAllocateRetriesPastCollision(t *testing.T) {
	store := newFakeNumberStore()
	store.addScheduled(100010)
	// Another writer already claimed the next candidate in the realized
	// partition without raising the scheduled max.
	store.addDelivered(100011)
	alloc, _ := NewAllocator(store)

	numbers, err := alloc.Allocate(context.Background(), 1)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if numbers[0] != 100012 {
		t.Fatalf("got %d, want 100012", numbers[0])
	}
}

func TestAllocateGapScanAfterRetriesExhausted(t *testing.T) {
	store := newFakeNumberStore()
	store.addScheduled(100000)
	// Occupy the retry window plus a stretch of the gap-scan range.
	for n := int64(100001); n <= 100010; n++ {
		store.addDelivered(n)
	}
	alloc, _ := NewAllocator(store)

	numbers, err := alloc.Allocate(context.Background(), 1)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if numbers[0] != 100011 {
		t.Fatalf("got %d, want first free gap 100011", numbers[0])
	}
}

func TestBatchAllocationIsContiguous(t *testing.T) {
	store := newFakeNumberStore()
	store.addDelivered(100100)
	alloc, _ := NewAllocator(store)

	numbers, err := alloc.Allocate(context.Background(), 5)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if len(numbers) != 5 {
		t.Fatalf("got %d numbers", len(numbers))
	}
	for i, n := range numbers {
		if want := int64(100101 + i); n != want {
			t.Fatalf("numbers[%d] = %d, want %d", i, n, want)
		}
	}
}

func TestConcurrentAllocationsAreDistinct(t *testing.T) {
	store := newFakeNumberStore()
	alloc, _ := NewAllocator(store)

	const workers = 32
	results := make(chan int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			numbers, err := alloc.Allocate(context.Background(), 1)
			if err != nil {
				t.Errorf("Allocate: %v", err)
				return
			}
			results <- numbers[0]
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[int64]bool)
	for n := range results {
		if n < MinOrderNumber {
			t.Fatalf("number %d below floor", n)
		}
		if seen[n] {
			t.Fatalf("duplicate number %d", n)
		}
		seen[n] = true
	}
	if len(seen) != workers {
		t.Fatalf("got %d distinct numbers, want %d", len(seen), workers)
	}
}

func TestAllocationExhaustedSurfacesTypedError(t *testing.T) {
	store := newFakeNumberStore()
	// Every candidate the allocator probes is claimed by a racing writer
	// before the double-check, across all fallback tiers.
	store.existsAlways = true
	alloc, _ := NewAllocator(store)

	_, err := alloc.Allocate(context.Background(), 1)
	if err == nil {
		t.Fatal("expected allocation failure")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeAllocation {
		t.Fatalf("expected %s, got %v", pkgerrors.CodeAllocation, err)
	}
}

func TestAllocateRejectsNonPositiveCount(t *testing.T) {
	alloc, _ := NewAllocator(newFakeNumberStore())
	if _, err := alloc.Allocate(context.Background(), 0); err == nil {
		t.Fatal("expected validation error")
	}
}
