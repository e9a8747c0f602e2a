package model

import (
	"maps"
	"slices"
	"time"

	"github.com/secmon-lab/lexiconnect/pkg/domain/types"
)

// UnreadState is the viewer's read bookkeeping across cases.
// Timestamps in LastSeen, LastNotified and Marked never move backwards.
type UnreadState struct {
	LastSeen     map[int64]time.Time
	LastNotified map[int64]time.Time
	// Marked is the newest timestamp passed to an explicit mark-read, used to
	// skip redundant writes.
	Marked    map[int64]time.Time
	Unread    map[int64]struct{}
	Dismissed map[int64]struct{}
}

// NewUnreadState returns an empty state, equivalent to a fresh install
func NewUnreadState() *UnreadState {
	return &UnreadState{
		LastSeen:     make(map[int64]time.Time),
		LastNotified: make(map[int64]time.Time),
		Marked:       make(map[int64]time.Time),
		Unread:       make(map[int64]struct{}),
		Dismissed:    make(map[int64]struct{}),
	}
}

// Clone returns a deep copy
func (s *UnreadState) Clone() *UnreadState {
	return &UnreadState{
		LastSeen:     maps.Clone(s.LastSeen),
		LastNotified: maps.Clone(s.LastNotified),
		Marked:       maps.Clone(s.Marked),
		Unread:       maps.Clone(s.Unread),
		Dismissed:    maps.Clone(s.Dismissed),
	}
}

// IsUnread reports whether caseID is flagged unread
func (s *UnreadState) IsUnread(caseID int64) bool {
	_, ok := s.Unread[caseID]
	return ok
}

// IsDismissed reports whether toasts for caseID are muted
func (s *UnreadState) IsDismissed(caseID int64) bool {
	_, ok := s.Dismissed[caseID]
	return ok
}

// State derives the per-case state
func (s *UnreadState) State(caseID int64) types.CaseState {
	seen, ok := s.LastSeen[caseID]
	if !ok {
		return types.CaseStateUnknown
	}
	if !s.IsUnread(caseID) {
		return types.CaseStateSeen
	}
	if notified, ok := s.LastNotified[caseID]; ok && notified.After(seen) {
		return types.CaseStateNotified
	}
	return types.CaseStateUnread
}

// UnreadCaseIDs returns the unread case IDs in ascending order
func (s *UnreadState) UnreadCaseIDs() []int64 {
	return slices.Sorted(maps.Keys(s.Unread))
}

// KnownCaseIDs returns every case with a recorded read position in ascending order
func (s *UnreadState) KnownCaseIDs() []int64 {
	return slices.Sorted(maps.Keys(s.LastSeen))
}
