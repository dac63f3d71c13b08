package remote

import (
	"errors"
	"fmt"
	"testing"

	"github.com/akozlovs/vinotes/internal/common"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Outcome
	}{
		{"nil is success", nil, OutcomeSuccess},
		{"version conflict", common.ErrVersionConflict, OutcomeConflict},
		{"wrapped conflict", fmt.Errorf("push: %w", common.ErrVersionConflict), OutcomeConflict},
		{"validation is permanent", common.ErrorValidation, OutcomePermanent},
		{"not found is retryable", common.ErrorNotFound, OutcomeRetryable},
		{"unknown error is retryable", errors.New("connection reset"), OutcomeRetryable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Classify(tc.err))
		})
	}
}

func TestStatusError_Mapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{409, common.ErrVersionConflict},
		{412, common.ErrVersionConflict},
		{400, common.ErrorValidation},
		{422, common.ErrorValidation},
		{404, common.ErrorNotFound},
	}
	for _, tc := range tests {
		err := statusError(tc.status, "detail")
		require.ErrorIs(t, err, tc.want, "status %d", tc.status)
	}

	err := statusError(503, "service unavailable")
	require.Equal(t, OutcomeRetryable, Classify(err))
}

func TestOutcome_String(t *testing.T) {
	require.Equal(t, "success", OutcomeSuccess.String())
	require.Equal(t, "conflict", OutcomeConflict.String())
	require.Equal(t, "retryable", OutcomeRetryable.String())
	require.Equal(t, "permanent", OutcomePermanent.String())
}
