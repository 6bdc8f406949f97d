package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/suyogshakya/khajaghar-backend/api/responses"
	"github.com/suyogshakya/khajaghar-backend/api/validators"
	ordersvc "github.com/suyogshakya/khajaghar-backend/internal/orders"
	"github.com/suyogshakya/khajaghar-backend/pkg/db/models"
	"github.com/suyogshakya/khajaghar-backend/pkg/enums"
	pkgerrors "github.com/suyogshakya/khajaghar-backend/pkg/errors"
	"github.com/suyogshakya/khajaghar-backend/pkg/logger"
	"github.com/suyogshakya/khajaghar-backend/pkg/pagination"
	"github.com/suyogshakya/khajaghar-backend/pkg/types"
)

type createOrderRequest struct {
	Lines           []createOrderLineRequest `json:"lines" validate:"required,min=1,dive"`
	PaymentMethod   string                   `json:"payment_method" validate:"required"`
	DeliveryDetails types.DeliveryDetails    `json:"delivery_details" validate:"required"`
}

type createOrderLineRequest struct {
	FoodItemID uuid.UUID `json:"food_item_id" validate:"required"`
	Quantity   int       `json:"quantity" validate:"required,min=1"`
}

// OrderCreate places an order. Prices come from the catalog, never the body.
func OrderCreate(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		userID, _, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		lines := make([]ordersvc.CreateLineInput, len(payload.Lines))
		for i, line := range payload.Lines {
			lines[i] = ordersvc.CreateLineInput{
				FoodItemID: line.FoodItemID,
				Quantity:   line.Quantity,
			}
		}

		detail, err := svc.Create(r.Context(), ordersvc.CreateInput{
			UserID:          userID,
			Lines:           lines,
			PaymentMethod:   method,
			DeliveryDetails: payload.DeliveryDetails,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderDetailResponse(detail))
	}
}

// OrderGet returns one order with its lines. Buyers see only their own.
func OrderGet(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		userID, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parsePathUUID(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.Get(r.Context(), orderID, userID, role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderDetailResponse(detail))
	}
}

// OrderStatus returns the lightweight polling shape for one order.
func OrderStatus(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		userID, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parsePathUUID(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := svc.GetStatus(r.Context(), orderID, userID, role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, status)
	}
}

// OrderList pages through orders newest-first. Buyers see only their own;
// admins may filter by user.
func OrderList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		userID, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		filters := ordersvc.ListFilters{}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseFulfillmentStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filters.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("payment_status")); raw != "" {
			status, err := enums.ParsePaymentStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status filter"))
				return
			}
			filters.PaymentStatus = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("user_id")); raw != "" {
			filterUserID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id filter"))
				return
			}
			filters.UserID = &filterUserID
		}

		list, err := svc.List(r.Context(), userID, role, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]orderResponse, 0, len(list.Orders))
		for i := range list.Orders {
			out = append(out, newOrderResponse(&list.Orders[i]))
		}
		responses.WriteSuccess(w, orderListResponse{
			Orders:     out,
			NextCursor: list.NextCursor,
		})
	}
}

type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// OrderUpdateStatus moves an order through the fulfillment lifecycle.
func OrderUpdateStatus(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		userID, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parsePathUUID(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target, err := enums.ParseFulfillmentStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		order, err := svc.UpdateStatus(r.Context(), ordersvc.UpdateStatusInput{
			OrderID:     orderID,
			Target:      target,
			ActorUserID: userID,
			ActorRole:   role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

type orderListResponse struct {
	Orders     []orderResponse `json:"orders"`
	NextCursor *string         `json:"next_cursor,omitempty"`
}

type orderResponse struct {
	ID              uuid.UUID             `json:"id"`
	UserID          uuid.UUID             `json:"user_id"`
	Status          string                `json:"status"`
	PaymentStatus   string                `json:"payment_status"`
	PaymentMethod   string                `json:"payment_method"`
	Subtotal        string                `json:"subtotal"`
	TaxRate         string                `json:"tax_rate"`
	TaxAmount       string                `json:"tax_amount"`
	DeliveryCharge  string                `json:"delivery_charge"`
	Total           string                `json:"total"`
	DeliveryDetails types.DeliveryDetails `json:"delivery_details"`
	PaidAt          *time.Time            `json:"paid_at,omitempty"`
	CancelledAt     *time.Time            `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

type orderDetailResponse struct {
	orderResponse
	Lines []orderLineResponse `json:"lines"`
}

type orderLineResponse struct {
	ID         uuid.UUID  `json:"id"`
	FoodItemID *uuid.UUID `json:"food_item_id,omitempty"`
	Name       string     `json:"name"`
	UnitPrice  string     `json:"unit_price"`
	Quantity   int        `json:"quantity"`
	LineTotal  string     `json:"line_total"`
}

func newOrderResponse(order *models.Order) orderResponse {
	return orderResponse{
		ID:              order.ID,
		UserID:          order.UserID,
		Status:          string(order.Status),
		PaymentStatus:   string(order.PaymentStatus),
		PaymentMethod:   string(order.PaymentMethod),
		Subtotal:        order.Subtotal.StringFixed(2),
		TaxRate:         order.TaxRate.String(),
		TaxAmount:       order.TaxAmount.StringFixed(2),
		DeliveryCharge:  order.DeliveryCharge.StringFixed(2),
		Total:           order.Total.StringFixed(2),
		DeliveryDetails: order.DeliveryDetails,
		PaidAt:          order.PaidAt,
		CancelledAt:     order.CancelledAt,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}

func newOrderDetailResponse(detail *ordersvc.Detail) orderDetailResponse {
	lines := make([]orderLineResponse, 0, len(detail.Lines))
	for _, line := range detail.Lines {
		lines = append(lines, orderLineResponse{
			ID:         line.ID,
			FoodItemID: line.FoodItemID,
			Name:       line.Name,
			UnitPrice:  line.UnitPrice.StringFixed(2),
			Quantity:   line.Quantity,
			LineTotal:  line.LineTotal.StringFixed(2),
		})
	}
	return orderDetailResponse{
		orderResponse: newOrderResponse(&detail.Order),
		Lines:         lines,
	}
}
