package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Omkark04/agency-platform-backend/api/middleware"
	"github.com/Omkark04/agency-platform-backend/api/responses"
	"github.com/Omkark04/agency-platform-backend/api/validators"
	"github.com/Omkark04/agency-platform-backend/internal/gateways"
	"github.com/Omkark04/agency-platform-backend/internal/paymentrequests"
	"github.com/Omkark04/agency-platform-backend/internal/settlement"
	"github.com/Omkark04/agency-platform-backend/pkg/enums"
	pkgerrors "github.com/Omkark04/agency-platform-backend/pkg/errors"
	"github.com/Omkark04/agency-platform-backend/pkg/logger"
)

type requestPaymentRequest struct {
	OrderID  string  `json:"order_id" validate:"required,uuid"`
	Amount   string  `json:"amount" validate:"required"`
	Gateway  string  `json:"gateway" validate:"required,oneof=razorpay paypal"`
	Currency string  `json:"currency,omitempty" validate:"omitempty,len=3"`
	Notes    *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// RequestPayment opens a payment request against an order's remaining balance.
func RequestPayment(svc paymentrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body requestPaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := uuid.Parse(body.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(body.Amount))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "amount must be a decimal string"))
			return
		}

		request, err := svc.CreateRequest(r.Context(), paymentrequests.CreateRequestInput{
			OrderID:     orderID,
			Amount:      amount,
			Gateway:     enums.Gateway(body.Gateway),
			Currency:    body.Currency,
			Notes:       body.Notes,
			RequestedBy: middleware.UserIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, request)
	}
}

// ListPaymentRequests returns payment requests filtered by status or order.
func ListPaymentRequests(svc paymentrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := paymentrequests.ListFilter{}

		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status := enums.PaymentRequestStatus(raw)
			if !status.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter"))
				return
			}
			filter.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("order_id")); raw != "" {
			orderID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id filter"))
				return
			}
			filter.OrderID = &orderID
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.Limit = limit

		requests, err := svc.ListRequests(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, requests)
	}
}

// CancelPaymentRequest cancels a pending payment request.
func CancelPaymentRequest(svc paymentrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID, err := validators.ParseUUIDParam(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.CancelRequest(r.Context(), requestID, middleware.UserIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}

type createCheckoutRequest struct {
	OrderID          string  `json:"order_id" validate:"required,uuid"`
	Gateway          string  `json:"gateway" validate:"required,oneof=razorpay paypal"`
	Amount           *string `json:"amount,omitempty"`
	Currency         string  `json:"currency,omitempty" validate:"omitempty,len=3"`
	PaymentRequestID *string `json:"payment_request_id,omitempty" validate:"omitempty,uuid"`
}

// CreateCheckoutOrder opens a gateway checkout session for an order.
func CreateCheckoutOrder(svc gateways.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createCheckoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := uuid.Parse(body.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		input := gateways.CreateSessionInput{
			OrderID:  orderID,
			Gateway:  enums.Gateway(body.Gateway),
			Currency: body.Currency,
		}
		if body.Amount != nil {
			amount, err := decimal.NewFromString(strings.TrimSpace(*body.Amount))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "amount must be a decimal string"))
				return
			}
			input.Amount = &amount
		}
		if body.PaymentRequestID != nil {
			requestID, err := uuid.Parse(*body.PaymentRequestID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment request id"))
				return
			}
			input.PaymentRequestID = &requestID
		}

		descriptor, err := svc.CreateCheckoutSession(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, descriptor)
	}
}

type verifyPaymentRequest struct {
	Gateway        string `json:"gateway" validate:"required,oneof=razorpay paypal"`
	GatewayOrderID string `json:"gateway_order_id,omitempty"`
	PaymentID      string `json:"payment_id,omitempty"`
	Signature      string `json:"signature,omitempty"`
	PayerID        string `json:"payer_id,omitempty"`
}

// VerifyPayment verifies a gateway proof and settles the payment.
func VerifyPayment(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body verifyPaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := svc.VerifyAndSettle(r.Context(), settlement.VerifyInput{
			Gateway: enums.Gateway(body.Gateway),
			Proof: gateways.Proof{
				GatewayOrderID: strings.TrimSpace(body.GatewayOrderID),
				PaymentID:      strings.TrimSpace(body.PaymentID),
				Signature:      strings.TrimSpace(body.Signature),
				PayerID:        strings.TrimSpace(body.PayerID),
			},
		})
		if err != nil {
			// A failed verification still produced a transaction row the
			// client can use to retry.
			if txn != nil {
				typed := pkgerrors.As(err)
				if typed != nil {
					responses.WriteError(r.Context(), logg, w, typed.WithDetails(map[string]any{
						"transaction_id": txn.ID,
						"can_retry":      txn.CanRetry(),
					}))
					return
				}
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, txn)
	}
}

// RetryPayment opens a fresh checkout session for a failed transaction.
func RetryPayment(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		txnID, err := validators.ParseUUIDParam(r, "transaction_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		descriptor, err := svc.RetryPayment(r.Context(), txnID, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, descriptor)
	}
}

// ListOrderTransactions returns the full verification history for an order.
func ListOrderTransactions(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		txns, err := svc.ListTransactions(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, txns)
	}
}

// DownloadReceipt returns the receipt location for a settled transaction.
func DownloadReceipt(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		txnID, err := validators.ParseUUIDParam(r, "transaction_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		url, err := svc.DownloadReceipt(r.Context(), txnID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"receipt_url": url})
	}
}
