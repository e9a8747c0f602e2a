package usecase

import (
	"slices"
	"time"

	"github.com/secmon-lab/lexiconnect/pkg/domain/model"
)

// Merge combines notes and review links into a single conversation ordered by
// creation time. Notes come first for equal timestamps, and items keep their
// input order on ties. Items without a parsable timestamp sort at the Unix
// epoch, so they land after anything dated before 1970. Merge has no side
// effects.
func Merge(notes []model.Note, reviews []model.ReviewLink) []model.ConversationItem {
	items := make([]model.ConversationItem, 0, len(notes)+len(reviews))
	for _, n := range notes {
		items = append(items, model.NoteItem(n))
	}
	for _, r := range reviews {
		items = append(items, model.ReviewItem(r))
	}

	slices.SortStableFunc(items, func(a, b model.ConversationItem) int {
		return sortKey(a.CreatedAt).Compare(sortKey(b.CreatedAt))
	})
	return items
}

var unixEpoch = time.Unix(0, 0).UTC()

func sortKey(t time.Time) time.Time {
	if t.IsZero() {
		return unixEpoch
	}
	return t
}
