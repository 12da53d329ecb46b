package sequence

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	pkgerrors "github.com/mealrounds/mealrounds-backend/pkg/errors"
)

const (
	// MinOrderNumber is the floor of the shared order-number space.
	MinOrderNumber int64 = 100000

	defaultRetries = 3
	gapScanWidth   = 20
	randomSpan     = 900000
	randomAttempts = 5

	// recentCap bounds the in-process reservation set. Reserved numbers are
	// persisted long before the cap is reached, so resetting is safe.
	recentCap = 4096
)

// NumberStore reads the order-number space across both order partitions.
type NumberStore interface {
	MaxScheduledOrderNumber(ctx context.Context) (int64, error)
	MaxDeliveryOrderNumber(ctx context.Context) (int64, error)
	ScheduledOrderNumberExists(ctx context.Context, number int64) (bool, error)
	DeliveryOrderNumberExists(ctx context.Context, number int64) (bool, error)
}

// Allocator issues order numbers that are unique across the scheduled and
// delivered partitions. There is no database-level counter: the allocator
// reads the current maximum, double-checks candidates, and walks a fallback
// ladder on collision. The store's unique index remains the final backstop
// for concurrent writers in other processes.
type Allocator struct {
	store   NumberStore
	min     int64
	retries int
	now     func() time.Time

	mu     sync.Mutex
	recent map[int64]struct{}
}

// Option tunes allocator behavior.
type Option func(*Allocator)

// WithMinNumber overrides the number-space floor.
func WithMinNumber(min int64) Option {
	return func(a *Allocator) {
		if min > 0 {
			a.min = min
		}
	}
}

// WithRetries overrides the double-check retry budget.
func WithRetries(retries int) Option {
	return func(a *Allocator) {
		if retries > 0 {
			a.retries = retries
		}
	}
}

// WithClock overrides the time source used for the random fallback.
func WithClock(now func() time.Time) Option {
	return func(a *Allocator) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAllocator builds an allocator over the provided number store.
func NewAllocator(store NumberStore, opts ...Option) (*Allocator, error) {
	if store == nil {
		return nil, fmt.Errorf("number store required")
	}
	a := &Allocator{
		store:   store,
		min:     MinOrderNumber,
		retries: defaultRetries,
		now:     time.Now,
		recent:  make(map[int64]struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Allocate returns count order numbers. A single allocation double-checks the
// candidate against both partitions and falls back through retry, gap scan and
// a time-seeded random probe. Batch allocations skip the double-check loop and
// return a contiguous block; callers use them only when no concurrent writers
// are expected (bulk import).
func (a *Allocator) Allocate(ctx context.Context, count int) ([]int64, error) {
	if count <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "allocation count must be positive")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	base, err := a.nextBase(ctx)
	if err != nil {
		return nil, err
	}

	if count > 1 {
		numbers := make([]int64, count)
		for i := range numbers {
			numbers[i] = base + int64(i)
			a.reserve(numbers[i])
		}
		return numbers, nil
	}

	number, err := a.allocateOne(ctx, base)
	if err != nil {
		return nil, err
	}
	a.reserve(number)
	return []int64{number}, nil
}

func (a *Allocator) nextBase(ctx context.Context) (int64, error) {
	maxScheduled, err := a.store.MaxScheduledOrderNumber(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read max scheduled order number")
	}
	maxDelivered, err := a.store.MaxDeliveryOrderNumber(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read max delivery order number")
	}

	base := maxScheduled
	if maxDelivered > base {
		base = maxDelivered
	}
	if base < a.min-1 {
		base = a.min - 1
	}
	base++
	for a.isReserved(base) {
		base++
	}
	return base, nil
}

func (a *Allocator) allocateOne(ctx context.Context, base int64) (int64, error) {
	candidate := base
	for attempt := 0; attempt < a.retries; attempt++ {
		free, err := a.isFree(ctx, candidate)
		if err != nil {
			return 0, err
		}
		if free {
			return candidate, nil
		}
		candidate++
	}

	// Linear gap scan past the contested range.
	for i := 0; i < gapScanWidth; i++ {
		free, err := a.isFree(ctx, candidate)
		if err != nil {
			return 0, err
		}
		if free {
			return candidate, nil
		}
		candidate++
	}

	// Last resort: time-seeded random probes into the number space.
	rng := rand.New(rand.NewSource(a.now().UnixNano()))
	for i := 0; i < randomAttempts; i++ {
		probe := a.min + rng.Int63n(randomSpan)
		free, err := a.isFree(ctx, probe)
		if err != nil {
			return 0, err
		}
		if free {
			return probe, nil
		}
	}

	return 0, pkgerrors.New(pkgerrors.CodeAllocation, "could not allocate an order number")
}

func (a *Allocator) isFree(ctx context.Context, candidate int64) (bool, error) {
	if a.isReserved(candidate) {
		return false, nil
	}
	exists, err := a.store.ScheduledOrderNumberExists(ctx, candidate)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check scheduled order number")
	}
	if exists {
		return false, nil
	}
	exists, err = a.store.DeliveryOrderNumberExists(ctx, candidate)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check delivery order number")
	}
	return !exists, nil
}

func (a *Allocator) reserve(number int64) {
	if len(a.recent) >= recentCap {
		a.recent = make(map[int64]struct{})
	}
	a.recent[number] = struct{}{}
}

func (a *Allocator) isReserved(number int64) bool {
	_, ok := a.recent[number]
	return ok
}
