package usecase_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/lexiconnect/pkg/usecase"
)

func TestErrors_SentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrCaseNotFound", usecase.ErrCaseNotFound},
		{"ErrEmptyConversation", usecase.ErrEmptyConversation},
		{"ErrNotWatching", usecase.ErrNotWatching},
		{"ErrInvalidCaseID", usecase.ErrInvalidCaseID},
		{"ErrInvalidTimestamp", usecase.ErrInvalidTimestamp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, tt.err).NotNil()
		})
	}
}

func TestErrors_ErrorsAreDistinct(t *testing.T) {
	errs := []error{
		usecase.ErrCaseNotFound,
		usecase.ErrEmptyConversation,
		usecase.ErrNotWatching,
		usecase.ErrInvalidCaseID,
		usecase.ErrInvalidTimestamp,
	}

	for i, a := range errs {
		for j, b := range errs {
			if i == j {
				continue
			}
			gt.Bool(t, errors.Is(a, b)).False()
		}
	}
}
