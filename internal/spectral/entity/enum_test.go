package entity

import "testing"

func TestProcessingStatusTransitions(t *testing.T) {
	cases := []struct {
		from ProcessingStatus
		to   ProcessingStatus
		want bool
	}{
		{ProcessingPending, ProcessingInProgress, true},
		{ProcessingPending, ProcessingCompleted, false},
		{ProcessingPending, ProcessingFailed, false},
		{ProcessingInProgress, ProcessingCompleted, true},
		{ProcessingInProgress, ProcessingFailed, true},
		{ProcessingInProgress, ProcessingPending, false},
		{ProcessingCompleted, ProcessingInProgress, false},
		{ProcessingFailed, ProcessingInProgress, false},
		{ProcessingFailed, ProcessingPending, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
