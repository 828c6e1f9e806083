package query

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "absstitch/internal/errors"
)

// Snapshot is the externally visible engine state. Data and Params always
// belong together: a page of results is never paired with params that did
// not produce it.
type Snapshot[T any] struct {
	Data    Page[T] `json:"data"`
	Params  Params  `json:"params"`
	Loading bool    `json:"loading"`
	Error   string  `json:"error,omitempty"`
}

// Engine exposes a stable current-page view over the composer, coordinator
// and cache. Every load is tagged with a generation; only the result of the
// most recent load is allowed to touch state, so a late response from a
// superseded request is discarded. The last successful page is retained
// across errors.
type Engine[T any] struct {
	cache    *Cache
	coord    *Coordinator[T]
	composer *Composer
	fetcher  Fetcher[T]
	logger   *zap.Logger
	consumer Consumer

	ctx       context.Context
	cancelCtx context.CancelFunc
	wg        sync.WaitGroup

	mu         sync.Mutex
	data       Page[T]
	params     Params
	loading    bool
	lastError  string
	generation uint64
}

func NewEngine[T any](
	initial Params,
	cache *Cache,
	coord *Coordinator[T],
	fetcher Fetcher[T],
	quietPeriod time.Duration,
	logger *zap.Logger,
) *Engine[T] {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine[T]{
		cache:     cache,
		coord:     coord,
		composer:  NewComposer(initial, quietPeriod),
		fetcher:   fetcher,
		logger:    logger,
		ctx:       ctx,
		cancelCtx: cancel,
		params:    initial,
	}

	e.wg.Add(1)
	go e.watch()

	// Mount fetch, cache first.
	e.load(initial, false)
	return e
}

// UpdateParams feeds a partial edit through the debounced composer. The
// resulting fetch starts after the quiet period, carrying the merged params.
func (e *Engine[T]) UpdateParams(patch Patch) {
	e.composer.Apply(patch)
}

// Refetch reloads the current params. force bypasses the cache; without it
// a refresh already in progress is left alone.
func (e *Engine[T]) Refetch(force bool) {
	e.mu.Lock()
	if e.loading && !force {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	e.load(e.composer.Current(), force)
}

func (e *Engine[T]) Snapshot() Snapshot[T] {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Snapshot[T]{
		Data:    e.data,
		Params:  e.params,
		Loading: e.loading,
		Error:   e.lastError,
	}
}

// Close stops the composer and discards any in-flight fetch.
func (e *Engine[T]) Close() {
	e.composer.Close()
	e.cancelCtx()
	e.wg.Wait()
}

func (e *Engine[T]) watch() {
	defer e.wg.Done()
	for params := range e.composer.Updates() {
		e.load(params, false)
	}
}

func (e *Engine[T]) load(params Params, force bool) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.loading = true
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.fetch(gen, params, force)
	}()
}

func (e *Engine[T]) fetch(gen uint64, params Params, force bool) {
	if !force {
		if page, ok := CacheGet[T](e.cache, params.CanonicalKey()); ok {
			e.apply(gen, params, page, nil)
			return
		}
	}

	page, err := e.coord.Execute(e.ctx, &e.consumer, params, e.fetcher)
	e.apply(gen, params, page, err)
}

func (e *Engine[T]) apply(gen uint64, params Params, page Page[T], err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.generation {
		// Superseded by a newer load; drop the result.
		return
	}
	if err != nil {
		if _, ok := apperrors.IsCancelledError(err); ok {
			return
		}
		e.logger.Warn("query failed",
			zap.String("key", params.CanonicalKey()),
			zap.Error(err))
		e.loading = false
		e.lastError = err.Error()
		return
	}
	e.data = page
	e.params = params
	e.loading = false
	e.lastError = ""
}
