package usecase

import "time"

// SetClock replaces the clock used to stamp toasts
func (uc *UnreadUseCase) SetClock(now func() time.Time) {
	uc.now = now
}

// SetClock replaces the clock used to stamp snapshots
func (w *ConversationWatcher) SetClock(now func() time.Time) {
	w.now = now
}
