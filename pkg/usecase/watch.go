package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/lexiconnect/pkg/domain/model"
	"github.com/secmon-lab/lexiconnect/pkg/service/toast"
	"github.com/secmon-lab/lexiconnect/pkg/utils/logging"
)

// DefaultWatchInterval is the polling interval of the watched conversation
const DefaultWatchInterval = 5 * time.Second

// WatchSnapshot is the last known view of the watched conversation
type WatchSnapshot struct {
	CaseID       int64
	Generation   uint64
	Conversation *model.Conversation
	Signature    string
	// Error is the last fetch failure, cleared by the next successful fetch
	Error     string
	UpdatedAt time.Time
}

// ConversationWatcher polls the conversation the viewer has open and keeps it
// marked read. Selecting another case or stopping the watcher cancels the
// running timer. Results of a fetch that was superseded by a newer selection
// or a manual refresh are discarded.
type ConversationWatcher struct {
	conversations *ConversationUseCase
	store         *UnreadStore
	toaster       toast.Toaster
	interval      time.Duration
	now           func() time.Time

	// selectMu serializes Select and Stop
	selectMu sync.Mutex

	mu         sync.Mutex
	generation uint64
	snapshot   WatchSnapshot
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewConversationWatcher builds a watcher. toaster may be nil; when set, a
// pending toast of the watched case is withdrawn once the case is marked read.
func NewConversationWatcher(conversations *ConversationUseCase, store *UnreadStore, toaster toast.Toaster, interval time.Duration) *ConversationWatcher {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	return &ConversationWatcher{
		conversations: conversations,
		store:         store,
		toaster:       toaster,
		interval:      interval,
		now:           time.Now,
	}
}

// Select starts watching caseID and stops watching the previous case. The
// loop is detached from ctx cancellation and runs until the next Select or
// Stop. A caseID of 0 only stops the current watch.
func (w *ConversationWatcher) Select(ctx context.Context, caseID int64) error {
	if caseID < 0 {
		return goerr.Wrap(ErrInvalidCaseID, "case id must not be negative", goerr.V(CaseIDKey, caseID))
	}

	w.selectMu.Lock()
	defer w.selectMu.Unlock()

	w.stopLoop()

	w.mu.Lock()
	w.generation++
	w.snapshot = WatchSnapshot{CaseID: caseID, Generation: w.generation}
	if caseID == 0 {
		w.mu.Unlock()
		return nil
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	loopCtx = logging.With(loopCtx, logging.From(ctx).With("watched_case_id", caseID))
	done := make(chan struct{})
	w.cancel = cancel
	w.done = done
	w.mu.Unlock()

	go w.run(loopCtx, caseID, done)
	return nil
}

// Refresh fetches the watched conversation right away. Any fetch still in
// flight is superseded and its result dropped.
func (w *ConversationWatcher) Refresh(ctx context.Context) (WatchSnapshot, error) {
	w.mu.Lock()
	caseID := w.snapshot.CaseID
	if caseID == 0 {
		w.mu.Unlock()
		return WatchSnapshot{}, goerr.Wrap(ErrNotWatching, "nothing to refresh")
	}
	w.generation++
	gen := w.generation
	w.snapshot.Generation = gen
	w.mu.Unlock()

	w.fetch(ctx, caseID, gen)
	return w.Snapshot(), nil
}

// Snapshot returns the current view of the watched conversation
func (w *ConversationWatcher) Snapshot() WatchSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot
}

// Stop cancels the running timer and waits for the loop to exit
func (w *ConversationWatcher) Stop() {
	w.selectMu.Lock()
	defer w.selectMu.Unlock()

	w.stopLoop()

	w.mu.Lock()
	w.generation++
	w.snapshot = WatchSnapshot{Generation: w.generation}
	w.mu.Unlock()
}

func (w *ConversationWatcher) stopLoop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (w *ConversationWatcher) run(ctx context.Context, caseID int64, done chan struct{}) {
	defer close(done)

	w.tick(ctx, caseID)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.tick(ctx, caseID)
		case <-ctx.Done():
			return
		}
	}
}

func (w *ConversationWatcher) tick(ctx context.Context, caseID int64) {
	w.mu.Lock()
	gen := w.generation
	w.mu.Unlock()

	w.fetch(ctx, caseID, gen)
}

// fetch loads the conversation and applies it if gen is still current
func (w *ConversationWatcher) fetch(ctx context.Context, caseID int64, gen uint64) {
	conv, err := w.conversations.Conversation(ctx, caseID)
	if ctx.Err() != nil {
		return
	}

	w.mu.Lock()
	if gen != w.generation || caseID != w.snapshot.CaseID {
		w.mu.Unlock()
		logging.From(ctx).Debug("dropping superseded conversation fetch",
			"case_id", caseID,
			"generation", gen,
		)
		return
	}

	if err != nil {
		w.snapshot.Error = err.Error()
		w.snapshot.UpdatedAt = w.now()
		w.mu.Unlock()
		logging.From(ctx).Warn("failed to fetch watched conversation",
			"case_id", caseID,
			"error", err.Error(),
		)
		return
	}

	sig := conv.Signature()
	changed := sig != w.snapshot.Signature
	w.snapshot.Error = ""
	w.snapshot.UpdatedAt = w.now()
	if changed {
		w.snapshot.Conversation = conv
		w.snapshot.Signature = sig
	}
	w.mu.Unlock()

	if !changed {
		return
	}

	if latest, ok := conv.Latest(); ok {
		if err := w.store.MarkRead(ctx, caseID, latest); err != nil {
			logging.From(ctx).Error("failed to mark watched case read",
				"case_id", caseID,
				"error", err.Error(),
			)
			return
		}
		if w.toaster != nil {
			toast.Withdraw(ctx, w.toaster, caseID, latest)
		}
	}
}
