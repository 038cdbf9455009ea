package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestTypeOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorType
	}{
		{name: "not found", err: NotFound("candidate not found", nil), expected: ErrTypeNotFound},
		{name: "wrapped conflict", err: fmt.Errorf("register: %w", Conflict("duplicate email", nil)), expected: ErrTypeConflict},
		{name: "delivery", err: Delivery("email rejected", stderrors.New("smtp 550")), expected: ErrTypeDelivery},
		{name: "foreign error", err: stderrors.New("disk full"), expected: ErrTypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TypeOf(tt.err); got != tt.expected {
				t.Errorf("TypeOf() = %s, expected %s", got, tt.expected)
			}
		})
	}
}

func TestDomainErrorUnwrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Internal("store unavailable", cause)

	if !stderrors.Is(err, cause) {
		t.Error("expected DomainError to unwrap to its cause")
	}
	if err.Error() != "INTERNAL: store unavailable: connection refused" {
		t.Errorf("unexpected message: %q", err.Error())
	}
	if len(err.StackTrace()) == 0 {
		t.Error("expected a captured stack")
	}
}

func TestIsDelivery(t *testing.T) {
	if IsDelivery(nil) {
		t.Error("nil is not a delivery error")
	}
	if !IsDelivery(fmt.Errorf("offer letter: %w", Delivery("rejected", nil))) {
		t.Error("wrapped delivery error not detected")
	}
	if IsDelivery(InvalidInput("bad", nil)) {
		t.Error("validation error reported as delivery")
	}
}
