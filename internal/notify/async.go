package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kirinyoku/tix-booking/internal/domain"
)

const defaultAsyncTimeout = 10 * time.Second

// Async runs each dispatch on its own goroutine, detached from the caller's cancellation.
// Failures are logged and dropped.
type Async struct {
	dispatcher Dispatcher
	timeout    time.Duration
	logger     *slog.Logger
	wg         sync.WaitGroup
}

func NewAsync(d Dispatcher, timeout time.Duration, logger *slog.Logger) *Async {
	if timeout <= 0 {
		timeout = defaultAsyncTimeout
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Async{dispatcher: d, timeout: timeout, logger: logger}
}

// Notify returns immediately.
func (a *Async) Notify(ctx context.Context, recipient string, b domain.Booking) {
	ctx = context.WithoutCancel(ctx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		ctx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()

		if err := a.dispatcher.Dispatch(ctx, recipient, b); err != nil {
			a.logger.Error("booking notification failed",
				"booking_id", b.ID, "recipient", recipient, "error", err)
		}
	}()
}

// Wait blocks until in-flight dispatches finish or ctx is done.
func (a *Async) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
