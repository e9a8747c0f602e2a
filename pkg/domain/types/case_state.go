package types

import (
	"fmt"
	"strings"
)

// CaseState is the read state of a single case as seen by the viewer
type CaseState string

const (
	// CaseStateUnknown means the case conversation was never observed
	CaseStateUnknown CaseState = "UNKNOWN"
	// CaseStateSeen means every observed item has been seen
	CaseStateSeen CaseState = "SEEN"
	// CaseStateUnread means new items exist and no toast was shown for them yet
	CaseStateUnread CaseState = "UNREAD"
	// CaseStateNotified means new items exist and a toast was already shown
	CaseStateNotified CaseState = "NOTIFIED"
)

// AllCaseStates returns all valid case states
func AllCaseStates() []CaseState {
	return []CaseState{
		CaseStateUnknown,
		CaseStateSeen,
		CaseStateUnread,
		CaseStateNotified,
	}
}

// IsValid checks if the case state is valid
func (s CaseState) IsValid() bool {
	switch s {
	case CaseStateUnknown,
		CaseStateSeen,
		CaseStateUnread,
		CaseStateNotified:
		return true
	default:
		return false
	}
}

// HasUnread reports whether the state carries an unread flag
func (s CaseState) HasUnread() bool {
	return s == CaseStateUnread || s == CaseStateNotified
}

func (s CaseState) String() string {
	return string(s)
}

// ParseCaseState parses a string into a CaseState, ignoring case
func ParseCaseState(s string) (CaseState, error) {
	state := CaseState(strings.ToUpper(strings.TrimSpace(s)))
	if !state.IsValid() {
		return "", fmt.Errorf("invalid case state: %s", s)
	}
	return state, nil
}
