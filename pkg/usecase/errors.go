package usecase

import "errors"

// Sentinel errors for use case layer
var (
	// Not found errors
	ErrCaseNotFound = errors.New("case not found")

	// State errors
	ErrEmptyConversation = errors.New("conversation has no timestamped items")
	ErrNotWatching       = errors.New("no case is being watched")

	// Input errors
	ErrInvalidCaseID    = errors.New("invalid case id")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
)

// Context keys for error values
const (
	CaseIDKey     = "case_id"
	DocumentIDKey = "document_id"
	NamespaceKey  = "namespace"
	StoreKeyKey   = "key"
)
