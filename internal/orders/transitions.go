package orders

import (
	"github.com/suyogshakya/khajaghar-backend/pkg/enums"
	pkgerrors "github.com/suyogshakya/khajaghar-backend/pkg/errors"
)

var allowedTransitions = map[enums.FulfillmentStatus][]enums.FulfillmentStatus{
	enums.FulfillmentStatusPending: {
		enums.FulfillmentStatusProcessing,
		enums.FulfillmentStatusCancelled,
	},
	enums.FulfillmentStatusProcessing: {
		enums.FulfillmentStatusCompleted,
		enums.FulfillmentStatusCancelled,
	},
	enums.FulfillmentStatusCompleted: {},
	enums.FulfillmentStatusCancelled: {},
}

// CanTransition reports whether the fulfillment status move is allowed.
func CanTransition(from, to enums.FulfillmentStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// GuardTransition returns a state-conflict error when the move is not allowed.
func GuardTransition(from, to enums.FulfillmentStatus) error {
	if !to.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid target status")
	}
	if from == to {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order already in requested status")
	}
	if !CanTransition(from, to) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "status transition disallowed").
			WithDetails(map[string]string{"from": from.String(), "to": to.String()})
	}
	return nil
}
