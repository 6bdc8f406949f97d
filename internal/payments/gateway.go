package payments

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/suyogshakya/khajaghar-backend/pkg/db/models"
	"github.com/suyogshakya/khajaghar-backend/pkg/enums"
)

// Adapter is the common surface over the supported payment gateways.
// Initiate prepares a redirect or form payload for the buyer's browser;
// Verify confirms a payment server-side before any state is trusted.
type Adapter interface {
	Method() enums.PaymentMethod
	Initiate(ctx context.Context, order *models.Order, transactionRef string) (*InitiateResult, error)
	Verify(ctx context.Context, callback Callback) (*VerifyResult, error)
}

// InitiateResult carries what the client needs to reach the gateway.
// Redirect gateways fill RedirectURL; form-post gateways fill FormURL and
// FormFields; cash fills neither.
type InitiateResult struct {
	TransactionRef string            `json:"transaction_ref"`
	RedirectURL    string            `json:"redirect_url,omitempty"`
	FormURL        string            `json:"form_url,omitempty"`
	FormFields     map[string]string `json:"form_fields,omitempty"`
}

// Callback is the data arriving on a gateway return URL. TransactionRef is
// the attempt's ref (transaction uuid or pidx); RawData carries any signed
// payload the gateway sends back.
type Callback struct {
	OrderID        uuid.UUID
	TransactionRef string
	RawData        string
}

// VerifyResult is the authenticated outcome of a verification call.
// Succeeded is only true after a signature or lookup check passed.
type VerifyResult struct {
	Succeeded      bool
	TransactionRef string
	Amount         decimal.Decimal
	ProviderRef    *string
	FailureReason  *string
}

func failedResult(ref, reason string) *VerifyResult {
	return &VerifyResult{
		Succeeded:      false,
		TransactionRef: ref,
		FailureReason:  &reason,
	}
}
