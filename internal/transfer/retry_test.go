package transfer

import (
	"testing"
	"time"
)

func TestRetryPolicy_BackoffFor(t *testing.T) {
	p := NewRetryPolicy(5, 100)
	cases := map[int]time.Duration{
		1: 0,
		2: 100 * time.Millisecond,
		3: 200 * time.Millisecond,
		4: 300 * time.Millisecond,
	}
	for attempt, want := range cases {
		if got := p.backoffFor(attempt); got != want {
			t.Errorf("backoffFor(%d) = %v, want %v", attempt, got, want)
		}
	}
}

func TestRetryLoop_TransientThenSucceeds(t *testing.T) {
	policy := NewRetryPolicy(3, 1)
	attempts := 0

	err := policy.Run(func(attempt int) *TransferError {
		attempts++
		if attempt == 1 {
			return NewTransferError(WorkerIo, "transient failure")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", attempts)
	}
}

func TestRetryLoop_StopsEarlyOnNonRetriable(t *testing.T) {
	policy := NewRetryPolicy(5, 1)
	attempts := 0

	err := policy.Run(func(attempt int) *TransferError {
		attempts++
		return NewTransferError(AliasNotFound, "not retriable")
	})

	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	if attempts != 1 {
		t.Fatalf("expected exactly 1 attempt, got %d", attempts)
	}
}

func TestRetryLoop_ExhaustsRetriesAndReturnsLastError(t *testing.T) {
	policy := NewRetryPolicy(3, 1)
	attempts := 0

	err := policy.Run(func(attempt int) *TransferError {
		attempts++
		return NewTransferError(WorkerIo, "always fails")
	})

	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	if attempts != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", attempts)
	}
}

func TestRetryPolicy_ClampsRetriesToMinimumOne(t *testing.T) {
	p := NewRetryPolicy(0, 50)
	if p.Retries != 1 {
		t.Fatalf("expected clamped retries of 1, got %d", p.Retries)
	}
	if p.BaseMs != 50 {
		t.Fatalf("expected BaseMs 50, got %d", p.BaseMs)
	}
}
