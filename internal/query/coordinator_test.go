package query

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "absstitch/internal/errors"
)

func TestCoordinator_Execute_FetchesAndCaches(t *testing.T) {
	cache := NewCache(time.Minute)
	coord := NewCoordinator[string](cache, 3, time.Millisecond, zap.NewNop())
	params := NewParams("orders")

	fetcher := func(ctx context.Context, p Params) (Page[string], error) {
		return NewPage([]string{"o1"}, 1, p.Page, p.PageSize), nil
	}

	page, err := coord.Execute(context.Background(), &Consumer{}, params, fetcher)

	require.NoError(t, err)
	assert.Equal(t, []string{"o1"}, page.Items)

	cached, ok := CacheGet[string](cache, params.CanonicalKey())
	require.True(t, ok)
	assert.Equal(t, page, cached)
}

func TestCoordinator_Execute_ConcurrentCallsShareOneFetch(t *testing.T) {
	cache := NewCache(time.Minute)
	coord := NewCoordinator[string](cache, 3, time.Millisecond, zap.NewNop())
	params := NewParams("orders")

	var calls atomic.Int32
	release := make(chan struct{})
	fetcher := func(ctx context.Context, p Params) (Page[string], error) {
		calls.Add(1)
		<-release
		return NewPage([]string{"shared"}, 1, p.Page, p.PageSize), nil
	}

	const waiters = 5
	var wg sync.WaitGroup
	results := make([]Page[string], waiters)
	errs := make([]error, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = coord.Execute(context.Background(), &Consumer{}, params, fetcher)
		}(i)
	}

	require.Eventually(t, func() bool {
		return calls.Load() == 1
	}, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := 0; i < waiters; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, []string{"shared"}, results[i].Items)
	}
}

func TestCoordinator_Execute_RetriesTransportErrors(t *testing.T) {
	cache := NewCache(time.Minute)
	coord := NewCoordinator[string](cache, 3, time.Millisecond, zap.NewNop())

	var calls atomic.Int32
	fetcher := func(ctx context.Context, p Params) (Page[string], error) {
		if calls.Add(1) < 3 {
			return Page[string]{}, apperrors.NewTransportError("connection reset", nil)
		}
		return NewPage([]string{"ok"}, 1, p.Page, p.PageSize), nil
	}

	page, err := coord.Execute(context.Background(), &Consumer{}, NewParams("orders"), fetcher)

	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []string{"ok"}, page.Items)
}

func TestCoordinator_Execute_ExhaustedRetriesReturnLastError(t *testing.T) {
	cache := NewCache(time.Minute)
	coord := NewCoordinator[string](cache, 3, time.Millisecond, zap.NewNop())

	var calls atomic.Int32
	fetcher := func(ctx context.Context, p Params) (Page[string], error) {
		calls.Add(1)
		return Page[string]{}, apperrors.NewTransportError("connection reset", nil)
	}

	_, err := coord.Execute(context.Background(), &Consumer{}, NewParams("orders"), fetcher)

	require.Error(t, err)
	_, ok := apperrors.IsTransportError(err)
	assert.True(t, ok)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCoordinator_Execute_NonTransientErrorIsNotRetried(t *testing.T) {
	cache := NewCache(time.Minute)
	coord := NewCoordinator[string](cache, 3, time.Millisecond, zap.NewNop())

	var calls atomic.Int32
	fetcher := func(ctx context.Context, p Params) (Page[string], error) {
		calls.Add(1)
		return Page[string]{}, apperrors.NewValidationError("bad filter")
	}

	_, err := coord.Execute(context.Background(), &Consumer{}, NewParams("orders"), fetcher)

	require.Error(t, err)
	_, ok := apperrors.IsValidationError(err)
	assert.True(t, ok)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCoordinator_Execute_FailedFetchIsNotCached(t *testing.T) {
	cache := NewCache(time.Minute)
	coord := NewCoordinator[string](cache, 1, time.Millisecond, zap.NewNop())
	params := NewParams("orders")

	fetcher := func(ctx context.Context, p Params) (Page[string], error) {
		return Page[string]{}, apperrors.NewTransportError("connection reset", nil)
	}

	_, err := coord.Execute(context.Background(), &Consumer{}, params, fetcher)
	require.Error(t, err)

	_, ok := CacheGet[string](cache, params.CanonicalKey())
	assert.False(t, ok)
}

func TestCoordinator_Execute_SupersededCallerIsCancelled(t *testing.T) {
	cache := NewCache(time.Minute)
	coord := NewCoordinator[string](cache, 3, time.Millisecond, zap.NewNop())
	consumer := &Consumer{}

	first := NewParams("orders")
	second := first.Apply(Patch{Page: intPtr(2)})

	started := make(chan struct{}, 2)
	release := make(chan struct{})
	fetcher := func(ctx context.Context, p Params) (Page[string], error) {
		started <- struct{}{}
		<-release
		return NewPage([]string{"p"}, 1, p.Page, p.PageSize), nil
	}

	firstErr := make(chan error, 1)
	go func() {
		_, err := coord.Execute(context.Background(), consumer, first, fetcher)
		firstErr <- err
	}()
	<-started

	go func() {
		_, _ = coord.Execute(context.Background(), consumer, second, fetcher)
	}()

	select {
	case err := <-firstErr:
		_, ok := apperrors.IsCancelledError(err)
		assert.True(t, ok, "superseded wait resolves with a cancellation error, got %v", err)
	case <-time.After(time.Second):
		t.Fatal("superseded caller was never released")
	}
	close(release)
}

func TestCoordinator_Execute_SupersededFetchStillFillsCache(t *testing.T) {
	cache := NewCache(time.Minute)
	coord := NewCoordinator[string](cache, 3, time.Millisecond, zap.NewNop())
	consumer := &Consumer{}

	first := NewParams("orders")
	second := first.Apply(Patch{Page: intPtr(2)})

	started := make(chan struct{}, 2)
	release := make(chan struct{})
	fetcher := func(ctx context.Context, p Params) (Page[string], error) {
		started <- struct{}{}
		<-release
		return NewPage([]string{"p"}, 1, p.Page, p.PageSize), nil
	}

	go func() {
		_, _ = coord.Execute(context.Background(), consumer, first, fetcher)
	}()
	<-started

	secondDone := make(chan struct{})
	go func() {
		defer close(secondDone)
		_, _ = coord.Execute(context.Background(), consumer, second, fetcher)
	}()
	<-started

	close(release)
	<-secondDone

	// cancellation suppressed the first waiter, not the fetch itself
	require.Eventually(t, func() bool {
		_, ok := CacheGet[string](cache, first.CanonicalKey())
		return ok
	}, time.Second, time.Millisecond)
}
