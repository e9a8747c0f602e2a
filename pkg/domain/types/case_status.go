package types

import (
	"fmt"
	"strings"
)

// CaseStatus is the lifecycle status of a legal case on the marketplace
type CaseStatus string

const (
	CaseStatusPending  CaseStatus = "pending"
	CaseStatusOpen     CaseStatus = "open"
	CaseStatusResolved CaseStatus = "resolved"
	CaseStatusClosed   CaseStatus = "closed"
)

// AllCaseStatuses returns all valid case statuses
func AllCaseStatuses() []CaseStatus {
	return []CaseStatus{
		CaseStatusPending,
		CaseStatusOpen,
		CaseStatusResolved,
		CaseStatusClosed,
	}
}

// IsValid checks if the case status is valid
func (s CaseStatus) IsValid() bool {
	switch s {
	case CaseStatusPending,
		CaseStatusOpen,
		CaseStatusResolved,
		CaseStatusClosed:
		return true
	default:
		return false
	}
}

// Normalize lower-cases the status and treats empty or unknown values as open,
// so a case is never silently dropped from polling.
func (s CaseStatus) Normalize() CaseStatus {
	n := CaseStatus(strings.ToLower(strings.TrimSpace(string(s))))
	if !n.IsValid() {
		return CaseStatusOpen
	}
	return n
}

// IsActive reports whether new conversation items can still arrive
func (s CaseStatus) IsActive() bool {
	switch s.Normalize() {
	case CaseStatusPending, CaseStatusOpen:
		return true
	default:
		return false
	}
}

func (s CaseStatus) String() string {
	return string(s)
}

// ParseCaseStatus parses a string into a CaseStatus
func ParseCaseStatus(s string) (CaseStatus, error) {
	status := CaseStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid case status: %s", s)
	}
	return status, nil
}
