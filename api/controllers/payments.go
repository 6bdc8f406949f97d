package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/suyogshakya/khajaghar-backend/api/responses"
	"github.com/suyogshakya/khajaghar-backend/api/validators"
	"github.com/suyogshakya/khajaghar-backend/internal/payments"
	"github.com/suyogshakya/khajaghar-backend/pkg/enums"
	pkgerrors "github.com/suyogshakya/khajaghar-backend/pkg/errors"
	"github.com/suyogshakya/khajaghar-backend/pkg/logger"
)

type initiatePaymentRequest struct {
	OrderID uuid.UUID `json:"order_id" validate:"required"`
}

// PaymentInitiate starts a gateway payment for the caller's order and
// returns the redirect or form payload for the buyer's browser.
func PaymentInitiate(rec payments.Reconciler, method enums.PaymentMethod, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rec == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		userID, _, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload initiatePaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := rec.Initiate(r.Context(), payload.OrderID, userID, method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// EsewaReturn handles the browser redirect back from eSewa. The signed
// payload arrives base64-encoded in the data query parameter; verification
// happens server-side before any state changes.
func EsewaReturn(rec payments.Reconciler, webOrigin string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parsePathUUID(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		data := strings.TrimSpace(r.URL.Query().Get("data"))
		callback := payments.Callback{OrderID: orderID, RawData: data}
		if data != "" {
			ref, err := payments.EsewaTransactionRef(data)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			callback.TransactionRef = ref
		}

		_, err = rec.VerifyCallback(r.Context(), enums.PaymentMethodEsewa, callback)
		redirectAfterPayment(w, r, webOrigin, orderID, err)
	}
}

// KhaltiReturn handles the browser redirect back from Khalti. Only the pidx
// is taken from the query; the outcome comes from the server-side lookup.
func KhaltiReturn(rec payments.Reconciler, webOrigin string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parsePathUUID(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pidx := strings.TrimSpace(r.URL.Query().Get("pidx"))
		if pidx == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "pidx required"))
			return
		}

		_, err = rec.VerifyCallback(r.Context(), enums.PaymentMethodKhalti, payments.Callback{
			OrderID:        orderID,
			TransactionRef: pidx,
		})
		redirectAfterPayment(w, r, webOrigin, orderID, err)
	}
}

// PaymentMarkCashPaid records an operator-confirmed cash payment. Admin only.
func PaymentMarkCashPaid(rec payments.Reconciler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rec == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		orderID, err := parsePathUUID(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := rec.MarkCashPaid(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// redirectAfterPayment sends the buyer back to the storefront order page.
// The query flag is informational only; the order's payment status is the
// source of truth.
func redirectAfterPayment(w http.ResponseWriter, r *http.Request, webOrigin string, orderID uuid.UUID, verifyErr error) {
	outcome := "success"
	if verifyErr != nil {
		outcome = "failed"
	}
	target := fmt.Sprintf("%s/orders/%s?payment=%s", strings.TrimRight(webOrigin, "/"), orderID, outcome)
	http.Redirect(w, r, target, http.StatusSeeOther)
}
