package worker

import (
	"context"
	"time"

	"github.com/secmon-lab/lexiconnect/pkg/usecase"
	"github.com/secmon-lab/lexiconnect/pkg/utils/errutil"
	"github.com/secmon-lab/lexiconnect/pkg/utils/logging"
)

// Poller runs one unread evaluation cycle
type Poller interface {
	Poll(ctx context.Context) (*usecase.PollResult, error)
}

// UnreadPollWorker polls case conversations on a fixed interval and surfaces
// unread activity.
//
// Architecture assumptions:
// - One worker per viewer namespace
// - A cycle never overlaps the next one; a slow cycle delays the following tick
type UnreadPollWorker struct {
	poller   Poller
	interval time.Duration
	timeout  time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewUnreadPollWorker creates a worker. timeout bounds a single cycle; zero
// means the cycle is bounded by interval.
func NewUnreadPollWorker(poller Poller, interval, timeout time.Duration) *UnreadPollWorker {
	if timeout <= 0 {
		timeout = interval
	}
	return &UnreadPollWorker{
		poller:   poller,
		interval: interval,
		timeout:  timeout,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background poll loop. The first cycle runs immediately in
// the background and does not block startup.
func (w *UnreadPollWorker) Start(ctx context.Context) error {
	logging.From(ctx).Info("Unread poll worker starting",
		"interval", w.interval.String(),
		"timeout", w.timeout.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *UnreadPollWorker) Stop() {
	logging.Default().Info("Unread poll worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("Unread poll worker stopped")
}

func (w *UnreadPollWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	w.poll(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.poll(ctx)

		case <-w.stopCh:
			logging.From(ctx).Info("Unread poll worker received stop signal")
			return

		case <-ctx.Done():
			logging.From(ctx).Info("Unread poll worker context cancelled")
			return
		}
	}
}

// poll runs one cycle. Failures are logged and retried on the next tick.
func (w *UnreadPollWorker) poll(ctx context.Context) {
	startTime := time.Now()

	cycleCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	result, err := w.poller.Poll(cycleCtx)
	if err != nil {
		errutil.Handle(ctx, err, "Unread poll failed (will retry next interval)")
		return
	}

	attrs := []any{
		"cases", len(result.Cases),
		"failed", len(result.FailedCaseIDs),
		"deferred", result.Deferred,
		"duration", time.Since(startTime).String(),
	}
	if result.Toast != nil {
		attrs = append(attrs, "toast_case_id", result.Toast.CaseID)
	}
	logging.From(ctx).Debug("Unread poll completed", attrs...)
}
