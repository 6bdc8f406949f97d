package payments

import (
	"context"

	"github.com/suyogshakya/khajaghar-backend/pkg/db/models"
	"github.com/suyogshakya/khajaghar-backend/pkg/enums"
)

// codAdapter handles cash on delivery. There is no external gateway; the
// order stays UNPAID until an operator confirms collection.
type codAdapter struct{}

// NewCashOnDelivery builds the cash adapter.
func NewCashOnDelivery() Adapter {
	return &codAdapter{}
}

func (a *codAdapter) Method() enums.PaymentMethod {
	return enums.PaymentMethodCash
}

func (a *codAdapter) Initiate(_ context.Context, _ *models.Order, transactionRef string) (*InitiateResult, error) {
	return &InitiateResult{TransactionRef: transactionRef}, nil
}

func (a *codAdapter) Verify(_ context.Context, callback Callback) (*VerifyResult, error) {
	// Cash is settled by the operator, never by a callback.
	return failedResult(callback.TransactionRef, "cash payments are confirmed by an operator"), nil
}
