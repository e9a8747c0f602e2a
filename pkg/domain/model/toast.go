package model

import (
	"time"

	"github.com/google/uuid"
)

// Toast is a one-shot notification about new activity on a case
type Toast struct {
	ID        string
	CaseID    int64
	CaseTitle string
	Latest    time.Time
	Preview   string
	CreatedAt time.Time
}

const toastPreviewLimit = 140

// NewToast builds a toast for the newest item of a conversation
func NewToast(c *Case, conv *Conversation, latest time.Time, now time.Time) *Toast {
	toast := &Toast{
		ID:        uuid.NewString(),
		CaseID:    conv.CaseID,
		CaseTitle: "Case #" + formatCaseID(conv.CaseID),
		Latest:    latest,
		CreatedAt: now,
	}
	if c != nil {
		toast.CaseTitle = c.DisplayTitle()
	}

	for i := len(conv.Items) - 1; i >= 0; i-- {
		if conv.Items[i].CreatedAt.Equal(latest) {
			toast.Preview = truncate(conv.Items[i].Text, toastPreviewLimit)
			break
		}
	}
	return toast
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
