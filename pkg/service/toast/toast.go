package toast

import (
	"context"
	"sync"
	"time"

	"github.com/secmon-lab/lexiconnect/pkg/domain/model"
	"github.com/secmon-lab/lexiconnect/pkg/utils/async"
	"github.com/secmon-lab/lexiconnect/pkg/utils/logging"
)

// Toaster surfaces a toast to the viewer
type Toaster interface {
	// Deliver hands t over. delivered is false when the toaster is still busy
	// with an earlier toast, in which case t was not shown.
	Deliver(ctx context.Context, t *model.Toast) (delivered bool, err error)
}

// Withdrawer is implemented by toasters that can take back a toast not yet shown
type Withdrawer interface {
	// Withdraw drops the pending toast of caseID if its activity is not after
	// upTo. A zero upTo withdraws any pending toast of the case. It reports
	// whether a toast was dropped.
	Withdraw(ctx context.Context, caseID int64, upTo time.Time) bool
}

// Withdraw calls t.Withdraw when t supports it
func Withdraw(ctx context.Context, t Toaster, caseID int64, upTo time.Time) bool {
	w, ok := t.(Withdrawer)
	if !ok {
		return false
	}
	return w.Withdraw(ctx, caseID, upTo)
}

// Slot holds at most one pending toast until the rendering layer takes it
type Slot struct {
	mu      sync.Mutex
	pending *model.Toast
}

// NewSlot creates an empty slot
func NewSlot() *Slot {
	return &Slot{}
}

// Deliver stores t unless another toast is pending
func (s *Slot) Deliver(ctx context.Context, t *model.Toast) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		logging.From(ctx).Debug("toast slot busy, deferring toast",
			"pending_case_id", s.pending.CaseID,
			"case_id", t.CaseID,
		)
		return false, nil
	}
	s.pending = t
	return true, nil
}

// Take returns the pending toast and clears the slot. It returns nil when
// nothing is pending.
func (s *Slot) Take() *model.Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.pending
	s.pending = nil
	return t
}

// Peek returns the pending toast without clearing it
func (s *Slot) Peek() *model.Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Withdraw clears the slot when it holds a stale toast of caseID
func (s *Slot) Withdraw(ctx context.Context, caseID int64, upTo time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil || s.pending.CaseID != caseID {
		return false
	}
	if !upTo.IsZero() && s.pending.Latest.After(upTo) {
		return false
	}
	logging.From(ctx).Debug("withdrawing pending toast",
		"case_id", caseID,
		"toast_id", s.pending.ID,
	)
	s.pending = nil
	return true
}

type tee struct {
	primary Toaster
	mirrors []Toaster
}

// Tee delivers to primary and, once primary accepted a toast, copies it to
// every mirror in the background. Mirror failures are logged and never
// affect the delivery result.
func Tee(primary Toaster, mirrors ...Toaster) Toaster {
	var active []Toaster
	for _, m := range mirrors {
		if m != nil {
			active = append(active, m)
		}
	}
	if len(active) == 0 {
		return primary
	}
	return &tee{primary: primary, mirrors: active}
}

func (x *tee) Deliver(ctx context.Context, t *model.Toast) (bool, error) {
	delivered, err := x.primary.Deliver(ctx, t)
	if err != nil || !delivered {
		return delivered, err
	}

	for _, m := range x.mirrors {
		async.Dispatch(ctx, func(ctx context.Context) error {
			_, err := m.Deliver(ctx, t)
			return err
		})
	}
	return true, nil
}

// Withdraw forwards to the primary. Mirrors already posted cannot be withdrawn.
func (x *tee) Withdraw(ctx context.Context, caseID int64, upTo time.Time) bool {
	return Withdraw(ctx, x.primary, caseID, upTo)
}
