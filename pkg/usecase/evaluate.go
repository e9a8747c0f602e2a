package usecase

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/lexiconnect/pkg/domain/model"
	"github.com/secmon-lab/lexiconnect/pkg/utils/errutil"
)

// Decision is the outcome of evaluating one conversation against the store.
// LatestTimestamp is zero when the conversation had no timestamped items.
type Decision struct {
	UnreadChanged   bool
	ShouldToast     bool
	LatestTimestamp time.Time
}

// ToastCandidate is the case chosen to surface a toast in one evaluation cycle
type ToastCandidate struct {
	CaseID int64
	Latest time.Time
}

// Cycle is the result of evaluating every observed conversation of one poll
type Cycle struct {
	Decisions map[int64]Decision
	// Toast is nil when no case is due for a toast
	Toast *ToastCandidate
}

// Evaluator decides unread flags and toasts from fetched conversations
type Evaluator struct {
	store *UnreadStore
}

// NewEvaluator creates an evaluator backed by store
func NewEvaluator(store *UnreadStore) *Evaluator {
	return &Evaluator{store: store}
}

// Evaluate compares a freshly fetched conversation with the stored read
// position of its case. The first observation of a case only records the
// latest timestamp. Later observations with newer activity flag the case
// unread and report whether a toast is due. Evaluate never records a toast;
// callers do that with RecordNotified once it was shown.
func (e *Evaluator) Evaluate(ctx context.Context, caseID int64, conv *model.Conversation) (Decision, error) {
	if conv == nil {
		return Decision{}, nil
	}
	latest, ok := conv.Latest()
	if !ok {
		return Decision{}, nil
	}

	decision := Decision{LatestTimestamp: latest}
	err := e.store.update(ctx, func(state *model.UnreadState) bool {
		seen, known := state.LastSeen[caseID]
		if !known {
			state.LastSeen[caseID] = latest
			bumpTime(state.LastNotified, caseID, latest)
			return true
		}

		if !latest.After(seen) {
			return false
		}

		changed := false
		if !state.IsUnread(caseID) {
			state.Unread[caseID] = struct{}{}
			decision.UnreadChanged = true
			changed = true
		}
		decision.ShouldToast = shouldNotify(state, caseID, latest)
		return changed
	})
	if err != nil {
		return Decision{LatestTimestamp: latest}, goerr.Wrap(err, "failed to evaluate conversation", goerr.V(CaseIDKey, caseID))
	}

	return decision, nil
}

// EvaluateAll evaluates every conversation and picks at most one toast. The
// candidate with the earliest latest timestamp wins, ties go to the lowest case
// ID, and the others stay due for a later cycle. A case that fails to persist
// is logged and left out of the cycle.
func (e *Evaluator) EvaluateAll(ctx context.Context, convs []*model.Conversation) *Cycle {
	cycle := &Cycle{Decisions: make(map[int64]Decision, len(convs))}

	for _, conv := range convs {
		if conv == nil {
			continue
		}
		decision, err := e.Evaluate(ctx, conv.CaseID, conv)
		if err != nil {
			errutil.Handle(ctx, err, "unread evaluation failed")
			continue
		}
		cycle.Decisions[conv.CaseID] = decision
	}

	var candidates []ToastCandidate
	for caseID, d := range cycle.Decisions {
		if d.ShouldToast {
			candidates = append(candidates, ToastCandidate{CaseID: caseID, Latest: d.LatestTimestamp})
		}
	}
	if len(candidates) == 0 {
		return cycle
	}

	winner := slices.MinFunc(candidates, func(a, b ToastCandidate) int {
		if c := a.Latest.Compare(b.Latest); c != 0 {
			return c
		}
		return cmp.Compare(a.CaseID, b.CaseID)
	})
	cycle.Toast = &winner
	return cycle
}
