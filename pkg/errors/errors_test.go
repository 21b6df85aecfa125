package errors

import (
	"errors"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "basic error without underlying",
			err:      &Error{Code: ExitGeneral, Message: "test error"},
			expected: "test error",
		},
		{
			name:     "error with underlying",
			err:      &Error{Code: ExitGeneral, Message: "bind failed", Underlying: errors.New("address in use")},
			expected: "bind failed: address in use",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.err.Error()
			if result != tt.expected {
				t.Errorf("Error() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := &Error{
		Code:       ExitGeneral,
		Message:    "test error",
		Underlying: underlying,
	}

	if err.Unwrap() != underlying {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), underlying)
	}
}

func TestFatal(t *testing.T) {
	underlying := errors.New("connection refused")
	err := Fatal("connecting to the compositor", underlying)

	if err.Code != ExitGeneral {
		t.Errorf("Code = %d, want %d", err.Code, ExitGeneral)
	}
	if err.Underlying != underlying {
		t.Errorf("Underlying = %v, want %v", err.Underlying, underlying)
	}
}

func TestFatalWithSuggestion(t *testing.T) {
	err := FatalWithSuggestion(
		"zwlr_data_control_manager_v1 not available",
		"check whether your compositor supports ext-data-control-v1",
	)

	if err.Code != ExitGeneral {
		t.Errorf("Code = %d, want %d", err.Code, ExitGeneral)
	}
	if err.Suggestion == "" {
		t.Error("expected a non-empty suggestion")
	}
}

func TestHandleNilDoesNothing(t *testing.T) {
	// Handle(nil) must return without touching os.Exit.
	Handle(nil)
}
