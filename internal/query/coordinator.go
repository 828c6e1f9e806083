package query

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "absstitch/internal/errors"
)

// Fetcher loads one page of results from the remote store. It fails with
// TransportError on network or store failure; the coordinator retries those.
type Fetcher[T any] func(ctx context.Context, params Params) (Page[T], error)

// Consumer identifies one logical caller of the coordinator. Issuing a
// request for a different key through the same consumer cancels the wait on
// the previous one; the superseded call's eventual result is discarded. The
// zero value is ready to use.
type Consumer struct {
	mu     sync.Mutex
	key    string
	cancel context.CancelFunc
}

func (c *Consumer) supersede(key string, cancel context.CancelFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil && c.key != key {
		c.cancel()
	}
	c.key = key
	c.cancel = cancel
}

// Coordinator de-duplicates in-flight fetches by canonical key, retries
// transient failures with linear backoff, and writes successful pages
// through to the cache before resolving any waiter.
type Coordinator[T any] struct {
	cache       *Cache
	logger      *zap.Logger
	maxAttempts int
	baseDelay   time.Duration

	mu       sync.Mutex
	inflight map[string]*inflightCall[T]
}

type inflightCall[T any] struct {
	done chan struct{}
	page Page[T]
	err  error
}

func NewCoordinator[T any](cache *Cache, maxAttempts int, baseDelay time.Duration, logger *zap.Logger) *Coordinator[T] {
	return &Coordinator[T]{
		cache:       cache,
		logger:      logger,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		inflight:    make(map[string]*inflightCall[T]),
	}
}

// Execute runs (or joins) the fetch for params. Two concurrent calls with
// the same canonical key share one fetch. Cancellation is cooperative: a
// superseded caller stops waiting and gets CancelledError, while the
// underlying fetch runs to completion so other waiters and the cache still
// benefit from it.
func (c *Coordinator[T]) Execute(ctx context.Context, consumer *Consumer, params Params, fetcher Fetcher[T]) (Page[T], error) {
	key := params.CanonicalKey()

	waitCtx, cancelWait := context.WithCancel(ctx)
	defer cancelWait()
	if consumer != nil {
		consumer.supersede(key, cancelWait)
	}

	call, started := c.join(key)
	if started {
		go c.run(context.WithoutCancel(ctx), call, key, params, fetcher)
	}

	select {
	case <-call.done:
		if call.err != nil {
			return Page[T]{}, call.err
		}
		return call.page, nil
	case <-waitCtx.Done():
		return Page[T]{}, apperrors.NewCancelledError("request superseded: " + key)
	}
}

func (c *Coordinator[T]) join(key string) (call *inflightCall[T], started bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.inflight[key]; ok {
		return existing, false
	}
	call = &inflightCall[T]{done: make(chan struct{})}
	c.inflight[key] = call
	return call, true
}

func (c *Coordinator[T]) run(ctx context.Context, call *inflightCall[T], key string, params Params, fetcher Fetcher[T]) {
	page, err := c.fetchWithRetry(ctx, params, fetcher)
	if err == nil {
		c.cache.Set(key, page)
	}

	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()

	call.page = page
	call.err = err
	close(call.done)
}

func (c *Coordinator[T]) fetchWithRetry(ctx context.Context, params Params, fetcher Fetcher[T]) (Page[T], error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		page, err := fetcher(ctx, params)
		if err == nil {
			return page, nil
		}
		if _, ok := apperrors.IsTransportError(err); !ok {
			return Page[T]{}, err
		}
		lastErr = err

		if attempt < c.maxAttempts {
			delay := c.baseDelay * time.Duration(attempt)
			c.logger.Warn("transient fetch failure, retrying",
				zap.String("key", params.CanonicalKey()),
				zap.Int("attempt", attempt),
				zap.Int("maxAttempts", c.maxAttempts),
				zap.Duration("delay", delay),
				zap.Error(err))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return Page[T]{}, apperrors.NewCancelledError("fetch cancelled")
			}
		}
	}
	return Page[T]{}, lastErr
}
