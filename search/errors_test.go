package search

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsUnavailable(t *testing.T) {
	err := NewUnavailableError("all backend families failed", nil)
	if !IsUnavailable(err) {
		t.Error("Expected IsUnavailable to return true for unavailable error")
	}
	if IsUnavailable(NewTimeoutError("deadline", nil)) {
		t.Error("Expected IsUnavailable to return false for timeout error")
	}
}

func TestIsTimeout(t *testing.T) {
	err := NewTimeoutError("query deadline exceeded", nil)
	if !IsTimeout(err) {
		t.Error("Expected IsTimeout to return true for timeout error")
	}
	if IsTimeout(NewInvalidQueryError("bad limit")) {
		t.Error("Expected IsTimeout to return false for invalid query error")
	}
}

func TestIsInvalidQuery(t *testing.T) {
	err := NewInvalidQueryError("limit must be between 1 and 100")
	if !IsInvalidQuery(err) {
		t.Error("Expected IsInvalidQuery to return true for invalid query error")
	}
	if IsInvalidQuery(errors.New("plain error")) {
		t.Error("Expected IsInvalidQuery to return false for plain error")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(NewUnavailableError("down", nil)) {
		t.Error("Expected unavailable errors to be retryable")
	}
	if !IsRetryable(NewTimeoutError("slow", nil)) {
		t.Error("Expected timeout errors to be retryable")
	}
	if IsRetryable(NewInvalidQueryError("bad request")) {
		t.Error("Expected invalid query errors to not be retryable")
	}
	if IsRetryable(errors.New("plain error")) {
		t.Error("Expected plain errors to not be retryable")
	}
}

func TestErrorUnwrapsThroughWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewUnavailableError("backend failed", cause)

	wrapped := fmt.Errorf("pipeline: %w", err)
	if !IsUnavailable(wrapped) {
		t.Error("Expected IsUnavailable to see through fmt.Errorf wrapping")
	}
	if !errors.Is(wrapped, cause) {
		t.Error("Expected errors.Is to reach the original cause")
	}
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := NewUnavailableError("backend failed", errors.New("EOF"))
	if err.Error() != "backend failed: EOF" {
		t.Errorf("unexpected message: %q", err.Error())
	}
	bare := NewInvalidQueryError("offset must not be negative")
	if bare.Error() != "offset must not be negative" {
		t.Errorf("unexpected message: %q", bare.Error())
	}
}
