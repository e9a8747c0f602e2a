package usecase

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/lexiconnect/pkg/domain/model"
	"github.com/secmon-lab/lexiconnect/pkg/domain/types"
	"github.com/secmon-lab/lexiconnect/pkg/service/lexiconnect"
	"github.com/secmon-lab/lexiconnect/pkg/service/toast"
	"github.com/secmon-lab/lexiconnect/pkg/utils/errutil"
	"github.com/secmon-lab/lexiconnect/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

// DefaultPollConcurrency bounds the number of conversations fetched at once in a poll
const DefaultPollConcurrency = 4

// CaseUnread is the read state of one case as exposed to the rendering layer
type CaseUnread struct {
	CaseID       int64
	State        types.CaseState
	LastSeen     time.Time
	LastNotified time.Time
	Dismissed    bool
}

// UnreadSummary lists every known case and the subset currently unread
type UnreadSummary struct {
	UnreadCaseIDs []int64
	Cases         []CaseUnread
}

// PollResult describes one poll cycle
type PollResult struct {
	Cases []*model.Case
	Cycle *Cycle
	// Toast is the toast delivered in this cycle, if any
	Toast *model.Toast
	// Deferred is true when a toast was due but the toaster was busy
	Deferred bool
	// FailedCaseIDs lists cases whose conversation could not be fetched
	FailedCaseIDs []int64
}

type UnreadUseCase struct {
	api           lexiconnect.Service
	conversations *ConversationUseCase
	store         *UnreadStore
	evaluator     *Evaluator
	toaster       toast.Toaster
	concurrency   int
	now           func() time.Time
}

func NewUnreadUseCase(api lexiconnect.Service, conversations *ConversationUseCase, store *UnreadStore, toaster toast.Toaster, concurrency int) *UnreadUseCase {
	if concurrency <= 0 {
		concurrency = DefaultPollConcurrency
	}
	return &UnreadUseCase{
		api:           api,
		conversations: conversations,
		store:         store,
		evaluator:     NewEvaluator(store),
		toaster:       toaster,
		concurrency:   concurrency,
		now:           time.Now,
	}
}

// Poll fetches every visible case conversation, evaluates them and delivers
// at most one toast. A case whose conversation fails to load is skipped for
// this cycle. RecordNotified is only called for a delivered toast.
func (uc *UnreadUseCase) Poll(ctx context.Context) (*PollResult, error) {
	cases, err := uc.api.ListCases(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list cases")
	}

	result := &PollResult{Cases: cases}
	convs := make([]*model.Conversation, len(cases))

	var (
		mu sync.Mutex
		eg errgroup.Group
	)
	eg.SetLimit(uc.concurrency)
	for i, c := range cases {
		eg.Go(func() error {
			conv, err := uc.conversations.Conversation(ctx, c.ID)
			if err != nil {
				logging.From(ctx).Warn("skipping case in this poll",
					"case_id", c.ID,
					"error", err.Error(),
				)
				mu.Lock()
				result.FailedCaseIDs = append(result.FailedCaseIDs, c.ID)
				mu.Unlock()
				return nil
			}
			convs[i] = conv
			return nil
		})
	}
	_ = eg.Wait()
	slices.Sort(result.FailedCaseIDs)

	result.Cycle = uc.evaluator.EvaluateAll(ctx, convs)
	if result.Cycle.Toast == nil || uc.toaster == nil {
		return result, nil
	}

	candidate := result.Cycle.Toast
	var (
		caseModel *model.Case
		conv      *model.Conversation
	)
	for i, c := range cases {
		if c.ID == candidate.CaseID {
			caseModel, conv = c, convs[i]
			break
		}
	}
	if conv == nil {
		return result, nil
	}

	t := model.NewToast(caseModel, conv, candidate.Latest, uc.now())
	delivered, err := uc.toaster.Deliver(ctx, t)
	if err != nil {
		errutil.Handle(ctx, goerr.Wrap(err, "failed to deliver toast", goerr.V(CaseIDKey, candidate.CaseID)), "toast delivery failed")
		return result, nil
	}
	if !delivered {
		result.Deferred = true
		return result, nil
	}

	if err := uc.store.RecordNotified(ctx, candidate.CaseID, candidate.Latest); err != nil {
		errutil.Handle(ctx, err, "failed to record toast")
	}
	result.Toast = t
	return result, nil
}

// Summary returns the read state of every case observed so far
func (uc *UnreadUseCase) Summary() *UnreadSummary {
	state := uc.store.Snapshot()

	summary := &UnreadSummary{
		UnreadCaseIDs: state.UnreadCaseIDs(),
	}
	for _, id := range state.KnownCaseIDs() {
		summary.Cases = append(summary.Cases, CaseUnread{
			CaseID:       id,
			State:        state.State(id),
			LastSeen:     state.LastSeen[id],
			LastNotified: state.LastNotified[id],
			Dismissed:    state.IsDismissed(id),
		})
	}
	return summary
}

// MarkRead marks the case read up to t. A zero t marks it read up to the
// newest item of its live conversation. It returns the timestamp applied.
func (uc *UnreadUseCase) MarkRead(ctx context.Context, caseID int64, t time.Time) (time.Time, error) {
	if caseID <= 0 {
		return time.Time{}, goerr.Wrap(ErrInvalidCaseID, "case id must be positive", goerr.V(CaseIDKey, caseID))
	}

	if t.IsZero() {
		conv, err := uc.conversations.Conversation(ctx, caseID)
		if err != nil {
			return time.Time{}, err
		}
		latest, ok := conv.Latest()
		if !ok {
			return time.Time{}, goerr.Wrap(ErrEmptyConversation, "nothing to mark read", goerr.V(CaseIDKey, caseID))
		}
		t = latest
	}

	if err := uc.store.MarkRead(ctx, caseID, t); err != nil {
		return time.Time{}, goerr.Wrap(err, "failed to mark case read", goerr.V(CaseIDKey, caseID))
	}
	if uc.toaster != nil {
		toast.Withdraw(ctx, uc.toaster, caseID, t)
	}
	return t, nil
}

// Dismiss mutes toasts for the case
func (uc *UnreadUseCase) Dismiss(ctx context.Context, caseID int64) error {
	if caseID <= 0 {
		return goerr.Wrap(ErrInvalidCaseID, "case id must be positive", goerr.V(CaseIDKey, caseID))
	}
	if err := uc.store.Dismiss(ctx, caseID); err != nil {
		return goerr.Wrap(err, "failed to dismiss case", goerr.V(CaseIDKey, caseID))
	}
	if uc.toaster != nil {
		toast.Withdraw(ctx, uc.toaster, caseID, time.Time{})
	}
	return nil
}

// Undismiss unmutes toasts for the case
func (uc *UnreadUseCase) Undismiss(ctx context.Context, caseID int64) error {
	if caseID <= 0 {
		return goerr.Wrap(ErrInvalidCaseID, "case id must be positive", goerr.V(CaseIDKey, caseID))
	}
	if err := uc.store.Undismiss(ctx, caseID); err != nil {
		return goerr.Wrap(err, "failed to undismiss case", goerr.V(CaseIDKey, caseID))
	}
	return nil
}
