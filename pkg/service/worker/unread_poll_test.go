package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/secmon-lab/lexiconnect/pkg/domain/model"
	"github.com/secmon-lab/lexiconnect/pkg/service/worker"
	"github.com/secmon-lab/lexiconnect/pkg/usecase"
)

// mockPoller counts poll cycles
type mockPoller struct {
	mu       sync.Mutex
	calls    int
	err      error
	deadline bool
}

func (m *mockPoller) setError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *mockPoller) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockPoller) Poll(ctx context.Context) (*usecase.PollResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	_, m.deadline = ctx.Deadline()
	if m.err != nil {
		return nil, m.err
	}
	return &usecase.PollResult{
		Cases: []*model.Case{{ID: 1}},
		Toast: &model.Toast{CaseID: 1},
	}, nil
}

func TestUnreadPollWorker_ImmediateInitialPoll(t *testing.T) {
	ctx := context.Background()
	poller := &mockPoller{}

	// Interval is long enough that only the initial poll runs
	w := worker.NewUnreadPollWorker(poller, 10*time.Minute, 0)
	if err := w.Start(ctx); err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)

	if n := poller.count(); n != 1 {
		t.Fatalf("expected 1 poll after start, got %d", n)
	}

	poller.mu.Lock()
	hasDeadline := poller.deadline
	poller.mu.Unlock()
	if !hasDeadline {
		t.Error("expected poll context to carry a deadline")
	}
}

func TestUnreadPollWorker_PeriodicPoll(t *testing.T) {
	ctx := context.Background()
	poller := &mockPoller{}

	w := worker.NewUnreadPollWorker(poller, 50*time.Millisecond, time.Second)
	if err := w.Start(ctx); err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}
	defer w.Stop()

	time.Sleep(220 * time.Millisecond)

	if n := poller.count(); n < 3 {
		t.Errorf("expected at least 3 polls, got %d", n)
	}
}

func TestUnreadPollWorker_ContinuesAfterErrors(t *testing.T) {
	ctx := context.Background()
	poller := &mockPoller{}
	poller.setError(errors.New("lexiconnect API error"))

	w := worker.NewUnreadPollWorker(poller, 50*time.Millisecond, time.Second)
	if err := w.Start(ctx); err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}
	defer w.Stop()

	time.Sleep(170 * time.Millisecond)

	if n := poller.count(); n < 2 {
		t.Errorf("expected polling to continue after errors, got %d polls", n)
	}
}

func TestUnreadPollWorker_StopsCleanly(t *testing.T) {
	ctx := context.Background()
	poller := &mockPoller{}

	w := worker.NewUnreadPollWorker(poller, 50*time.Millisecond, 0)
	if err := w.Start(ctx); err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	stopStart := time.Now()
	w.Stop()
	if d := time.Since(stopStart); d > time.Second {
		t.Errorf("Stop() took too long: %v", d)
	}

	calls := poller.count()
	time.Sleep(120 * time.Millisecond)
	if n := poller.count(); n != calls {
		t.Errorf("expected no polls after Stop, got %d more", n-calls)
	}
}

func TestUnreadPollWorker_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	poller := &mockPoller{}

	w := worker.NewUnreadPollWorker(poller, 50*time.Millisecond, 0)
	if err := w.Start(ctx); err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)

	calls := poller.count()
	time.Sleep(120 * time.Millisecond)
	if n := poller.count(); n != calls {
		t.Errorf("expected no polls after cancel, got %d more", n-calls)
	}

	// Stop still returns once the loop has exited
	w.Stop()
}
