package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/suyogshakya/khajaghar-backend/pkg/config"
	"github.com/suyogshakya/khajaghar-backend/pkg/db/models"
	"github.com/suyogshakya/khajaghar-backend/pkg/enums"
	pkgerrors "github.com/suyogshakya/khajaghar-backend/pkg/errors"
	"github.com/suyogshakya/khajaghar-backend/pkg/metrics"
)

const esewaSuccessStatus = "COMPLETE"

// esewaAdapter implements the redirect-with-shared-secret flow: the buyer
// posts a signed form to the gateway and returns with a signed payload that
// is re-verified server-side.
type esewaAdapter struct {
	cfg     config.EsewaConfig
	baseURL string
	client  *http.Client
	metrics *metrics.GatewayMetrics
}

// NewEsewa builds the eSewa adapter. baseURL is this service's public URL,
// used to construct return URLs.
func NewEsewa(cfg config.EsewaConfig, baseURL string, gm *metrics.GatewayMetrics) (Adapter, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("esewa secret key required")
	}
	if baseURL == "" {
		return nil, fmt.Errorf("base url required")
	}
	return &esewaAdapter{
		cfg:     cfg,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: cfg.HTTPTimeout},
		metrics: gm,
	}, nil
}

func (a *esewaAdapter) Method() enums.PaymentMethod {
	return enums.PaymentMethodEsewa
}

func (a *esewaAdapter) Initiate(_ context.Context, order *models.Order, transactionRef string) (*InitiateResult, error) {
	totalAmount := order.Total.StringFixed(2)

	// The signature covers a fixed ordered field subset; the secret never
	// leaves the server.
	signature := a.sign(fmt.Sprintf(
		"total_amount=%s,transaction_uuid=%s,product_code=%s",
		totalAmount, transactionRef, a.cfg.ProductCode,
	))

	taxAmount := order.TaxAmount.StringFixed(2)
	productAmount := order.Subtotal.StringFixed(2)
	deliveryCharge := order.DeliveryCharge.StringFixed(2)

	fields := map[string]string{
		"amount":                  productAmount,
		"tax_amount":              taxAmount,
		"product_service_charge":  "0",
		"product_delivery_charge": deliveryCharge,
		"total_amount":            totalAmount,
		"transaction_uuid":        transactionRef,
		"product_code":            a.cfg.ProductCode,
		"success_url":             fmt.Sprintf("%s/api/v1/payments/esewa/success/%s", a.baseURL, order.ID),
		"failure_url":             fmt.Sprintf("%s/api/v1/payments/esewa/failure/%s", a.baseURL, order.ID),
		"signed_field_names":      "total_amount,transaction_uuid,product_code",
		"signature":               signature,
	}

	return &InitiateResult{
		TransactionRef: transactionRef,
		FormURL:        a.cfg.FormURL,
		FormFields:     fields,
	}, nil
}

type esewaCallbackPayload struct {
	TransactionCode  string `json:"transaction_code"`
	Status           string `json:"status"`
	TotalAmount      string `json:"total_amount"`
	TransactionUUID  string `json:"transaction_uuid"`
	ProductCode      string `json:"product_code"`
	SignedFieldNames string `json:"signed_field_names"`
	Signature        string `json:"signature"`
}

func (a *esewaAdapter) Verify(ctx context.Context, callback Callback) (*VerifyResult, error) {
	if callback.RawData == "" {
		// No signed payload available (reconciliation path); fall back to
		// the status lookup API.
		return a.lookup(ctx, callback)
	}

	started := time.Now()
	result, err := a.verifyPayload(callback)
	outcome := "failure"
	if err == nil && result.Succeeded {
		outcome = "success"
	}
	a.metrics.ObserveCall("esewa", "verify", outcome, time.Since(started))
	return result, err
}

func (a *esewaAdapter) verifyPayload(callback Callback) (*VerifyResult, error) {
	decoded, err := base64.StdEncoding.DecodeString(callback.RawData)
	if err != nil {
		return failedResult(callback.TransactionRef, "malformed callback payload"), nil
	}

	var payload esewaCallbackPayload
	if err := json.Unmarshal(decoded, &payload); err != nil {
		return failedResult(callback.TransactionRef, "malformed callback payload"), nil
	}
	if payload.TransactionUUID == "" || payload.SignedFieldNames == "" {
		return failedResult(callback.TransactionRef, "callback payload missing signed fields"), nil
	}

	expected := a.sign(canonicalEsewaMessage(payload))
	if subtle.ConstantTimeCompare([]byte(expected), []byte(payload.Signature)) != 1 {
		return failedResult(payload.TransactionUUID, "signature mismatch"), nil
	}

	if payload.Status != esewaSuccessStatus {
		return failedResult(payload.TransactionUUID, fmt.Sprintf("gateway status %q", payload.Status)), nil
	}

	amount, err := parseEsewaAmount(payload.TotalAmount)
	if err != nil {
		return failedResult(payload.TransactionUUID, "unparseable total amount"), nil
	}

	ref := payload.TransactionCode
	return &VerifyResult{
		Succeeded:      true,
		TransactionRef: payload.TransactionUUID,
		Amount:         amount,
		ProviderRef:    &ref,
	}, nil
}

type esewaStatusResponse struct {
	ProductCode     string `json:"product_code"`
	TransactionUUID string `json:"transaction_uuid"`
	TotalAmount     any    `json:"total_amount"`
	Status          string `json:"status"`
	RefID           string `json:"ref_id"`
}

func (a *esewaAdapter) lookup(ctx context.Context, callback Callback) (*VerifyResult, error) {
	if callback.TransactionRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction ref required")
	}

	query := url.Values{}
	query.Set("product_code", a.cfg.ProductCode)
	query.Set("transaction_uuid", callback.TransactionRef)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.StatusURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "build esewa status request")
	}

	started := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		a.metrics.ObserveCall("esewa", "lookup", "error", time.Since(started))
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "esewa status lookup")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.metrics.ObserveCall("esewa", "lookup", "error", time.Since(started))
		return nil, pkgerrors.New(pkgerrors.CodeGateway, fmt.Sprintf("esewa status lookup returned %d", resp.StatusCode))
	}

	var status esewaStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		a.metrics.ObserveCall("esewa", "lookup", "error", time.Since(started))
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "decode esewa status response")
	}

	if status.Status != esewaSuccessStatus {
		a.metrics.ObserveCall("esewa", "lookup", "failure", time.Since(started))
		return failedResult(callback.TransactionRef, fmt.Sprintf("gateway status %q", status.Status)), nil
	}

	amount, err := parseEsewaAmount(fmt.Sprintf("%v", status.TotalAmount))
	if err != nil {
		a.metrics.ObserveCall("esewa", "lookup", "failure", time.Since(started))
		return failedResult(callback.TransactionRef, "unparseable total amount"), nil
	}

	a.metrics.ObserveCall("esewa", "lookup", "success", time.Since(started))
	ref := status.RefID
	return &VerifyResult{
		Succeeded:      true,
		TransactionRef: callback.TransactionRef,
		Amount:         amount,
		ProviderRef:    &ref,
	}, nil
}

// EsewaTransactionRef extracts the transaction uuid from a base64 callback
// payload without verifying it. Callers still have to run Verify before
// trusting anything else in the payload.
func EsewaTransactionRef(data string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed callback payload")
	}
	var payload esewaCallbackPayload
	if err := json.Unmarshal(decoded, &payload); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed callback payload")
	}
	if payload.TransactionUUID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "callback payload missing transaction uuid")
	}
	return payload.TransactionUUID, nil
}

// parseEsewaAmount tolerates the comma-grouped amounts the gateway emits.
func parseEsewaAmount(raw string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(raw), ",", ""))
}

func (a *esewaAdapter) sign(message string) string {
	mac := hmac.New(sha256.New, []byte(a.cfg.SecretKey))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// canonicalEsewaMessage rebuilds the signed message from the payload in the
// exact order declared by signed_field_names.
func canonicalEsewaMessage(payload esewaCallbackPayload) string {
	values := map[string]string{
		"transaction_code":   payload.TransactionCode,
		"status":             payload.Status,
		"total_amount":       payload.TotalAmount,
		"transaction_uuid":   payload.TransactionUUID,
		"product_code":       payload.ProductCode,
		"signed_field_names": payload.SignedFieldNames,
	}

	names := strings.Split(payload.SignedFieldNames, ",")
	parts := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		parts = append(parts, fmt.Sprintf("%s=%s", name, values[name]))
	}
	return strings.Join(parts, ",")
}
