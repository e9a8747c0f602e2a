package types_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/lexiconnect/pkg/domain/types"
)

func TestCaseStatus_IsValid(t *testing.T) {
	tests := []struct {
		name   string
		status types.CaseStatus
		want   bool
	}{
		{
			name:   "valid open",
			status: types.CaseStatusOpen,
			want:   true,
		},
		{
			name:   "valid closed",
			status: types.CaseStatusClosed,
			want:   true,
		},
		{
			name:   "upper case is not valid before normalization",
			status: types.CaseStatus("OPEN"),
			want:   false,
		},
		{
			name:   "empty status",
			status: types.CaseStatus(""),
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, tt.status.IsValid()).Equal(tt.want)
		})
	}
}

func TestCaseStatus_Normalize(t *testing.T) {
	gt.Value(t, types.CaseStatus("  Closed ").Normalize()).Equal(types.CaseStatusClosed)
	gt.Value(t, types.CaseStatus("").Normalize()).Equal(types.CaseStatusOpen)
	gt.Value(t, types.CaseStatus("archived").Normalize()).Equal(types.CaseStatusOpen)
}

func TestCaseStatus_IsActive(t *testing.T) {
	gt.Bool(t, types.CaseStatusPending.IsActive()).True()
	gt.Bool(t, types.CaseStatus("OPEN").IsActive()).True()
	gt.Bool(t, types.CaseStatusResolved.IsActive()).False()
	gt.Bool(t, types.CaseStatusClosed.IsActive()).False()
}

func TestParseCaseStatus(t *testing.T) {
	status, err := types.ParseCaseStatus("resolved")
	gt.NoError(t, err).Required()
	gt.Value(t, status).Equal(types.CaseStatusResolved)

	_, err = types.ParseCaseStatus("invalid")
	gt.Value(t, err).NotNil()
}
