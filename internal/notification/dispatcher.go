package notification

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Sink interface {
	Notify(ctx context.Context, userID, title, message string, relatedID *string) error
	LogActivity(ctx context.Context, action, resourceType, resourceID string, details *string) error
}

// Dispatcher delivers notifications and audit entries best-effort in the
// background. Failures are logged and never propagated: a sink outage must
// not roll back the state change that triggered it.
type Dispatcher struct {
	sink    Sink
	logger  *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(sink Sink, logger *zap.Logger, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		sink:    sink,
		logger:  logger,
		timeout: timeout,
	}
}

func (d *Dispatcher) Notify(userID, title, message string, relatedID *string) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.sink.Notify(ctx, userID, title, message, relatedID); err != nil {
			d.logger.Warn("notification delivery failed",
				zap.String("userId", userID),
				zap.String("title", title),
				zap.Error(err))
		}
	}()
}

func (d *Dispatcher) LogActivity(action, resourceType, resourceID string, details *string) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.sink.LogActivity(ctx, action, resourceType, resourceID, details); err != nil {
			d.logger.Warn("activity log append failed",
				zap.String("action", action),
				zap.String("resourceId", resourceID),
				zap.Error(err))
		}
	}()
}

// Wait blocks until all in-flight deliveries finish. Used on shutdown and
// in tests.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
