package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Omkark04/agency-platform-backend/api/middleware"
	"github.com/Omkark04/agency-platform-backend/api/responses"
	"github.com/Omkark04/agency-platform-backend/api/validators"
	"github.com/Omkark04/agency-platform-backend/internal/history"
	"github.com/Omkark04/agency-platform-backend/internal/workflow"
	"github.com/Omkark04/agency-platform-backend/pkg/enums"
	pkgerrors "github.com/Omkark04/agency-platform-backend/pkg/errors"
	"github.com/Omkark04/agency-platform-backend/pkg/logger"
)

type createOrderRequest struct {
	ClientName  string  `json:"client_name" validate:"required,max=200"`
	ClientEmail string  `json:"client_email" validate:"required,email"`
	ServiceType string  `json:"service_type" validate:"required,max=100"`
	Description *string `json:"description,omitempty"`
	Price       string  `json:"price" validate:"required"`
	Currency    string  `json:"currency,omitempty" validate:"omitempty,len=3"`
}

// CreateOrder handles client intake of a new service order.
func CreateOrder(svc workflow.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := decimal.NewFromString(strings.TrimSpace(body.Price))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "price must be a decimal string"))
			return
		}

		order, err := svc.CreateOrder(r.Context(), workflow.CreateOrderInput{
			ClientName:  body.ClientName,
			ClientEmail: body.ClientEmail,
			ServiceType: body.ServiceType,
			Description: body.Description,
			Price:       price,
			Currency:    body.Currency,
			CreatedBy:   middleware.UserIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// GetOrder returns one order by id.
func GetOrder(svc workflow.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// ListOrders returns orders, optionally filtered by status.
func ListOrders(svc workflow.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := workflow.ListFilter{}

		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status := enums.OrderStatus(raw)
			filter.Status = &status
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.Limit = limit

		orders, err := svc.ListOrders(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders)
	}
}

// WorkflowInfo returns the order's position in the pipeline and the statuses
// it may move to next.
func WorkflowInfo(svc workflow.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		info, err := svc.WorkflowInfo(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, info)
	}
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Notes  string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// UpdateStatus applies one workflow transition to an order.
func UpdateStatus(svc workflow.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.RequestTransition(r.Context(), workflow.TransitionInput{
			OrderID:      orderID,
			TargetStatus: enums.OrderStatus(strings.TrimSpace(body.Status)),
			ChangedBy:    middleware.UserIDFromContext(r.Context()),
			Notes:        body.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// StatusHistory returns the append-only transition ledger for an order.
func StatusHistory(svc history.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entries, err := svc.ListByOrderID(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}
