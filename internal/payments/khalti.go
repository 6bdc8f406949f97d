package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/suyogshakya/khajaghar-backend/pkg/config"
	"github.com/suyogshakya/khajaghar-backend/pkg/db/models"
	"github.com/suyogshakya/khajaghar-backend/pkg/enums"
	pkgerrors "github.com/suyogshakya/khajaghar-backend/pkg/errors"
	"github.com/suyogshakya/khajaghar-backend/pkg/metrics"
)

// Khalti reports amounts in paisa and settles only when lookup returns this
// exact status. An HTTP 200 alone proves nothing.
const khaltiSuccessStatus = "Completed"

// khaltiAdapter implements the server-initiated flow: initiation is a
// signed server-to-server call that yields a payment URL and pidx; the
// final status comes from a lookup call, never from return-URL params.
type khaltiAdapter struct {
	cfg     config.KhaltiConfig
	baseURL string
	client  *http.Client
	metrics *metrics.GatewayMetrics
}

// NewKhalti builds the Khalti adapter. baseURL is this service's public
// URL, used to construct return URLs.
func NewKhalti(cfg config.KhaltiConfig, baseURL string, gm *metrics.GatewayMetrics) (Adapter, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("khalti secret key required")
	}
	if baseURL == "" {
		return nil, fmt.Errorf("base url required")
	}
	return &khaltiAdapter{
		cfg:     cfg,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: cfg.HTTPTimeout},
		metrics: gm,
	}, nil
}

func (a *khaltiAdapter) Method() enums.PaymentMethod {
	return enums.PaymentMethodKhalti
}

type khaltiInitiateRequest struct {
	ReturnURL         string `json:"return_url"`
	WebsiteURL        string `json:"website_url"`
	Amount            int64  `json:"amount"`
	PurchaseOrderID   string `json:"purchase_order_id"`
	PurchaseOrderName string `json:"purchase_order_name"`
}

type khaltiInitiateResponse struct {
	Pidx       string `json:"pidx"`
	PaymentURL string `json:"payment_url"`
}

func (a *khaltiAdapter) Initiate(ctx context.Context, order *models.Order, _ string) (*InitiateResult, error) {
	payload := khaltiInitiateRequest{
		ReturnURL:         fmt.Sprintf("%s/api/v1/payments/khalti/success/%s", a.baseURL, order.ID),
		WebsiteURL:        a.baseURL,
		Amount:            toPaisa(order.Total),
		PurchaseOrderID:   order.ID.String(),
		PurchaseOrderName: fmt.Sprintf("order-%s", order.ID),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal khalti initiate payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint("/epayment/initiate/"), bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "build khalti initiate request")
	}
	a.authorize(req)

	started := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		a.metrics.ObserveCall("khalti", "initiate", "error", time.Since(started))
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "khalti initiate")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.metrics.ObserveCall("khalti", "initiate", "error", time.Since(started))
		return nil, pkgerrors.New(pkgerrors.CodeGateway, fmt.Sprintf("khalti initiate returned %d", resp.StatusCode))
	}

	var initiated khaltiInitiateResponse
	if err := json.NewDecoder(resp.Body).Decode(&initiated); err != nil {
		a.metrics.ObserveCall("khalti", "initiate", "error", time.Since(started))
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "decode khalti initiate response")
	}
	if initiated.Pidx == "" || initiated.PaymentURL == "" {
		a.metrics.ObserveCall("khalti", "initiate", "error", time.Since(started))
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "khalti initiate response missing pidx or payment url")
	}

	a.metrics.ObserveCall("khalti", "initiate", "success", time.Since(started))
	return &InitiateResult{
		TransactionRef: initiated.Pidx,
		RedirectURL:    initiated.PaymentURL,
	}, nil
}

type khaltiLookupRequest struct {
	Pidx string `json:"pidx"`
}

type khaltiLookupResponse struct {
	Pidx          string `json:"pidx"`
	TotalAmount   int64  `json:"total_amount"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
	Refunded      bool   `json:"refunded"`
}

func (a *khaltiAdapter) Verify(ctx context.Context, callback Callback) (*VerifyResult, error) {
	if callback.TransactionRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pidx required")
	}

	body, err := json.Marshal(khaltiLookupRequest{Pidx: callback.TransactionRef})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal khalti lookup payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint("/epayment/lookup/"), bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "build khalti lookup request")
	}
	a.authorize(req)

	started := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		a.metrics.ObserveCall("khalti", "lookup", "error", time.Since(started))
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "khalti lookup")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.metrics.ObserveCall("khalti", "lookup", "error", time.Since(started))
		return nil, pkgerrors.New(pkgerrors.CodeGateway, fmt.Sprintf("khalti lookup returned %d", resp.StatusCode))
	}

	var lookup khaltiLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&lookup); err != nil {
		a.metrics.ObserveCall("khalti", "lookup", "error", time.Since(started))
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "decode khalti lookup response")
	}

	// A 200 with a non-Completed status (Pending, Expired, User canceled,
	// Refunded) is a verification failure, not a success.
	if lookup.Status != khaltiSuccessStatus || lookup.Refunded {
		a.metrics.ObserveCall("khalti", "lookup", "failure", time.Since(started))
		return failedResult(callback.TransactionRef, fmt.Sprintf("gateway status %q", lookup.Status)), nil
	}

	a.metrics.ObserveCall("khalti", "lookup", "success", time.Since(started))
	providerRef := lookup.TransactionID
	return &VerifyResult{
		Succeeded:      true,
		TransactionRef: callback.TransactionRef,
		Amount:         fromPaisa(lookup.TotalAmount),
		ProviderRef:    &providerRef,
	}, nil
}

func (a *khaltiAdapter) endpoint(path string) string {
	return strings.TrimRight(a.cfg.BaseURL, "/") + path
}

func (a *khaltiAdapter) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Key "+a.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/json")
}

func toPaisa(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func fromPaisa(paisa int64) decimal.Decimal {
	return decimal.NewFromInt(paisa).Div(decimal.NewFromInt(100))
}
