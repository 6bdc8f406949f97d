package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/suyogshakya/khajaghar-backend/pkg/config"
	"github.com/suyogshakya/khajaghar-backend/pkg/db/models"
	pkgerrors "github.com/suyogshakya/khajaghar-backend/pkg/errors"
)

func khaltiTestConfig(baseURL string) config.KhaltiConfig {
	return config.KhaltiConfig{
		SecretKey:   "test-khalti-key",
		BaseURL:     baseURL,
		HTTPTimeout: 5 * time.Second,
	}
}

func TestKhaltiInitiate(t *testing.T) {
	order := &models.Order{
		ID:    uuid.New(),
		Total: decimal.RequireFromString("25.57"),
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/epayment/initiate/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Key test-khalti-key" {
			t.Errorf("expected key auth header, got %q", got)
		}

		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode initiate payload: %v", err)
		}
		if amount, _ := payload["amount"].(float64); int64(amount) != 2557 {
			t.Errorf("expected amount 2557 paisa, got %v", payload["amount"])
		}

		_ = json.NewEncoder(w).Encode(map[string]string{
			"pidx":        "hT7rsq",
			"payment_url": "https://test-pay.khalti.com/?pidx=hT7rsq",
		})
	}))
	defer server.Close()

	adapter, err := NewKhalti(khaltiTestConfig(server.URL), "https://api.khajaghar.app", nil)
	if err != nil {
		t.Fatalf("build adapter: %v", err)
	}

	result, err := adapter.Initiate(context.Background(), order, uuid.NewString())
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if result.TransactionRef != "hT7rsq" {
		t.Fatalf("expected pidx as transaction ref, got %s", result.TransactionRef)
	}
	if result.RedirectURL == "" {
		t.Fatalf("expected redirect url")
	}
}

func TestKhaltiInitiateMissingPidx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer server.Close()

	adapter, err := NewKhalti(khaltiTestConfig(server.URL), "https://api.khajaghar.app", nil)
	if err != nil {
		t.Fatalf("build adapter: %v", err)
	}

	_, err = adapter.Initiate(context.Background(), &models.Order{ID: uuid.New()}, uuid.NewString())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeGateway {
		t.Fatalf("expected gateway error, got %v", err)
	}
}

func TestKhaltiVerifyCompleted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/epayment/lookup/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"pidx":           "hT7rsq",
			"total_amount":   2557,
			"status":         "Completed",
			"transaction_id": "txn-1",
			"refunded":       false,
		})
	}))
	defer server.Close()

	adapter, err := NewKhalti(khaltiTestConfig(server.URL), "https://api.khajaghar.app", nil)
	if err != nil {
		t.Fatalf("build adapter: %v", err)
	}

	result, err := adapter.Verify(context.Background(), Callback{TransactionRef: "hT7rsq"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !result.Succeeded {
		t.Fatalf("expected success, got failure: %v", result.FailureReason)
	}
	if !result.Amount.Equal(decimal.RequireFromString("25.57")) {
		t.Fatalf("expected amount 25.57, got %s", result.Amount)
	}
	if result.ProviderRef == nil || *result.ProviderRef != "txn-1" {
		t.Fatalf("expected provider ref txn-1, got %v", result.ProviderRef)
	}
}

func TestKhaltiVerifyNonCompletedStatusIsFailure(t *testing.T) {
	for _, status := range []string{"Pending", "Expired", "User canceled", "Initiated"} {
		t.Run(status, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				// A 200 response with a non-Completed status must not settle.
				_ = json.NewEncoder(w).Encode(map[string]any{
					"pidx":         "hT7rsq",
					"total_amount": 2557,
					"status":       status,
				})
			}))
			defer server.Close()

			adapter, err := NewKhalti(khaltiTestConfig(server.URL), "https://api.khajaghar.app", nil)
			if err != nil {
				t.Fatalf("build adapter: %v", err)
			}

			result, err := adapter.Verify(context.Background(), Callback{TransactionRef: "hT7rsq"})
			if err != nil {
				t.Fatalf("verify: %v", err)
			}
			if result.Succeeded {
				t.Fatalf("expected failure for status %q", status)
			}
		})
	}
}

func TestKhaltiVerifyRefundedIsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"pidx":         "hT7rsq",
			"total_amount": 2557,
			"status":       "Completed",
			"refunded":     true,
		})
	}))
	defer server.Close()

	adapter, err := NewKhalti(khaltiTestConfig(server.URL), "https://api.khajaghar.app", nil)
	if err != nil {
		t.Fatalf("build adapter: %v", err)
	}

	result, err := adapter.Verify(context.Background(), Callback{TransactionRef: "hT7rsq"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if result.Succeeded {
		t.Fatalf("expected failure for refunded payment")
	}
}

func TestKhaltiVerifyLookupError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	adapter, err := NewKhalti(khaltiTestConfig(server.URL), "https://api.khajaghar.app", nil)
	if err != nil {
		t.Fatalf("build adapter: %v", err)
	}

	_, err = adapter.Verify(context.Background(), Callback{TransactionRef: "hT7rsq"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeGateway {
		t.Fatalf("expected gateway error, got %v", err)
	}
}
