package orders

import (
	"testing"

	"github.com/suyogshakya/khajaghar-backend/pkg/enums"
	pkgerrors "github.com/suyogshakya/khajaghar-backend/pkg/errors"
)

func TestGuardTransitionAllowed(t *testing.T) {
	allowed := []struct {
		from enums.FulfillmentStatus
		to   enums.FulfillmentStatus
	}{
		{enums.FulfillmentStatusPending, enums.FulfillmentStatusProcessing},
		{enums.FulfillmentStatusPending, enums.FulfillmentStatusCancelled},
		{enums.FulfillmentStatusProcessing, enums.FulfillmentStatusCompleted},
		{enums.FulfillmentStatusProcessing, enums.FulfillmentStatusCancelled},
	}

	for _, tc := range allowed {
		if err := GuardTransition(tc.from, tc.to); err != nil {
			t.Fatalf("expected %s -> %s allowed, got %v", tc.from, tc.to, err)
		}
	}
}

func TestGuardTransitionTerminalStatesAreClosed(t *testing.T) {
	terminals := []enums.FulfillmentStatus{
		enums.FulfillmentStatusCompleted,
		enums.FulfillmentStatusCancelled,
	}
	targets := []enums.FulfillmentStatus{
		enums.FulfillmentStatusPending,
		enums.FulfillmentStatusProcessing,
		enums.FulfillmentStatusCompleted,
		enums.FulfillmentStatusCancelled,
	}

	for _, from := range terminals {
		for _, to := range targets {
			if from == to {
				continue
			}
			err := GuardTransition(from, to)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
				t.Fatalf("expected state conflict for %s -> %s, got %v", from, to, err)
			}
		}
	}
}

func TestGuardTransitionSameStatus(t *testing.T) {
	err := GuardTransition(enums.FulfillmentStatusPending, enums.FulfillmentStatusPending)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for no-op transition, got %v", err)
	}
}

func TestGuardTransitionSkippingProcessing(t *testing.T) {
	err := GuardTransition(enums.FulfillmentStatusPending, enums.FulfillmentStatusCompleted)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for PENDING -> COMPLETED, got %v", err)
	}
}

func TestGuardTransitionInvalidTarget(t *testing.T) {
	err := GuardTransition(enums.FulfillmentStatusPending, enums.FulfillmentStatus("SHIPPED"))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}
}
