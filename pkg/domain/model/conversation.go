package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/secmon-lab/lexiconnect/pkg/domain/types"
)

// Note is a free-text case note in canonical form
type Note struct {
	ID         int64
	CaseID     int64
	Text       string
	AuthorName string
	AuthorRole types.Role
	CreatedAt  time.Time // zero when the API timestamp was unparsable
}

// Document is a case document that may carry review links
type Document struct {
	ID     int64
	CaseID int64
	Title  string
}

// ReviewLink is a link to an externally edited document submitted by an apprentice
type ReviewLink struct {
	ID         int64
	DocumentID int64
	DocTitle   string
	Link       string
	Changes    string
	CreatedAt  time.Time
}

// Summary renders the review link as conversation text
func (r *ReviewLink) Summary() string {
	title := r.DocTitle
	if title == "" {
		title = fmt.Sprintf("document #%d", r.DocumentID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Review link submitted for %q: %s", title, r.Link)
	if changes := strings.TrimSpace(r.Changes); changes != "" {
		fmt.Fprintf(&b, "\nChanges: %s", changes)
	}
	return b.String()
}

// ConversationItem is one entry of a merged case conversation.
// Note fields are set when Kind is note, review fields when Kind is review.
type ConversationItem struct {
	Kind      types.ItemKind
	ID        int64 // unique per Kind within one case
	CreatedAt time.Time
	Text      string

	AuthorName string
	AuthorRole types.Role

	DocTitle   string
	ReviewLink string
	Changes    string
}

// Key identifies the item within its conversation
func (x ConversationItem) Key() string {
	return fmt.Sprintf("%s:%d", x.Kind, x.ID)
}

// NoteItem converts a note into a conversation item
func NoteItem(n Note) ConversationItem {
	return ConversationItem{
		Kind:       types.ItemKindNote,
		ID:         n.ID,
		CreatedAt:  n.CreatedAt,
		Text:       n.Text,
		AuthorName: n.AuthorName,
		AuthorRole: n.AuthorRole,
	}
}

// ReviewItem converts a review link into a conversation item
func ReviewItem(r ReviewLink) ConversationItem {
	return ConversationItem{
		Kind:       types.ItemKindReview,
		ID:         r.ID,
		CreatedAt:  r.CreatedAt,
		Text:       r.Summary(),
		DocTitle:   r.DocTitle,
		ReviewLink: r.Link,
		Changes:    r.Changes,
	}
}

// Conversation is the merged, chronologically ordered conversation of a case
type Conversation struct {
	CaseID int64
	Items  []ConversationItem
}

// Latest returns the newest parsable timestamp. ok is false when the
// conversation is empty or no item carries a parsable timestamp.
func (c *Conversation) Latest() (latest time.Time, ok bool) {
	for _, item := range c.Items {
		if item.CreatedAt.IsZero() {
			continue
		}
		if !ok || item.CreatedAt.After(latest) {
			latest = item.CreatedAt
			ok = true
		}
	}
	return latest, ok
}

// Signature summarizes the conversation so that two fetches of an unchanged
// conversation compare equal
func (c *Conversation) Signature() string {
	if len(c.Items) == 0 {
		return "0"
	}
	latest, _ := c.Latest()
	last := c.Items[len(c.Items)-1]
	return fmt.Sprintf("%d|%s|%s", len(c.Items), FormatTimestamp(latest), last.Key())
}
