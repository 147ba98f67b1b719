package roster

import (
	"errors"
	"testing"
)

func TestCanTransition(t *testing.T) {
	legal := [][2]JobStatus{
		{StatusPending, StatusProcessing},
		{StatusProcessing, StatusNeedsReview},
		{StatusProcessing, StatusReady},
		{StatusProcessing, StatusFailed},
		{StatusProcessing, StatusCancelled},
		{StatusNeedsReview, StatusExported},
		{StatusReady, StatusExported},
		{StatusFailed, StatusPending},
		{StatusFailed, StatusProcessing},
	}
	for _, pair := range legal {
		if !CanTransition(pair[0], pair[1]) {
			t.Fatalf("CanTransition(%s, %s) = false", pair[0], pair[1])
		}
	}

	illegal := [][2]JobStatus{
		{StatusPending, StatusReady},
		{StatusExported, StatusPending},
		{StatusCancelled, StatusProcessing},
		{StatusNeedsReview, StatusReady},
	}
	for _, pair := range illegal {
		if CanTransition(pair[0], pair[1]) {
			t.Fatalf("CanTransition(%s, %s) = true", pair[0], pair[1])
		}
	}
}

func TestCheckTransition(t *testing.T) {
	if err := CheckTransition(StatusPending, StatusProcessing); err != nil {
		t.Fatalf("CheckTransition() error = %v", err)
	}
	err := CheckTransition(StatusExported, StatusProcessing)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("CheckTransition() error = %v, want ErrInvalidTransition", err)
	}
}

func TestIsTerminal(t *testing.T) {
	if !IsTerminal(StatusExported) || !IsTerminal(StatusCancelled) {
		t.Fatalf("exported and cancelled must be terminal")
	}
	if IsTerminal(StatusFailed) {
		t.Fatalf("failed is retryable, not terminal")
	}
}
