package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Omkark04/agency-platform-backend/internal/gateways"
	"github.com/Omkark04/agency-platform-backend/internal/paymentrequests"
	"github.com/Omkark04/agency-platform-backend/pkg/db"
	"github.com/Omkark04/agency-platform-backend/pkg/db/models"
	"github.com/Omkark04/agency-platform-backend/pkg/enums"
	pkgerrors "github.com/Omkark04/agency-platform-backend/pkg/errors"
	"github.com/Omkark04/agency-platform-backend/pkg/logger"
	"github.com/Omkark04/agency-platform-backend/pkg/metrics"
	"github.com/Omkark04/agency-platform-backend/pkg/receipts"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// VerifyInput carries one gateway proof to verify and settle.
type VerifyInput struct {
	Gateway enums.Gateway
	Proof   gateways.Proof
}

// Service is the only writer of Order.total_paid. Every verification attempt
// ends in exactly one Transaction row, success or failure.
type Service interface {
	VerifyAndSettle(ctx context.Context, input VerifyInput) (*models.Transaction, error)
	RetryPayment(ctx context.Context, transactionID uuid.UUID, actor string) (*gateways.SessionDescriptor, error)
	DownloadReceipt(ctx context.Context, transactionID uuid.UUID) (string, error)
	ListTransactions(ctx context.Context, orderID uuid.UUID) ([]models.Transaction, error)
	BackfillReceipts(ctx context.Context, limit int) (int, error)
}

type service struct {
	txns          TransactionRepository
	orders        OrderLedger
	paymentOrders gateways.Repository
	requests      paymentrequests.Repository
	checkouts     gateways.Service
	tx            txRunner
	issuer        receipts.Issuer
	metrics       *metrics.SettlementMetrics
	logg          *logger.Logger
	maxRetries    int
}

// NewService builds the settlement engine with the required collaborators.
func NewService(
	txns TransactionRepository,
	orders OrderLedger,
	paymentOrders gateways.Repository,
	requests paymentrequests.Repository,
	checkouts gateways.Service,
	tx txRunner,
	issuer receipts.Issuer,
	settlementMetrics *metrics.SettlementMetrics,
	logg *logger.Logger,
	maxRetries int,
) (Service, error) {
	if txns == nil {
		return nil, fmt.Errorf("transaction repository required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order ledger required")
	}
	if paymentOrders == nil {
		return nil, fmt.Errorf("payment order repository required")
	}
	if requests == nil {
		return nil, fmt.Errorf("payment request repository required")
	}
	if checkouts == nil {
		return nil, fmt.Errorf("checkout service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if issuer == nil {
		return nil, fmt.Errorf("receipt issuer required")
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &service{
		txns:          txns,
		orders:        orders,
		paymentOrders: paymentOrders,
		requests:      requests,
		checkouts:     checkouts,
		tx:            tx,
		issuer:        issuer,
		metrics:       settlementMetrics,
		logg:          logg,
		maxRetries:    maxRetries,
	}, nil
}

func (s *service) VerifyAndSettle(ctx context.Context, input VerifyInput) (*models.Transaction, error) {
	if !input.Gateway.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown gateway %q", input.Gateway))
	}
	adapter, err := s.checkouts.CheckoutFor(input.Gateway)
	if err != nil {
		return nil, err
	}

	ref := input.Proof.GatewayOrderID
	if ref == "" {
		ref = input.Proof.PaymentID
	}
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway order reference required")
	}

	paymentOrder, err := s.paymentOrders.FindByGatewayRef(ctx, input.Gateway, ref)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no checkout session for this gateway reference")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment order")
	}
	meta := gateways.DecodeSessionMetadata(paymentOrder.Metadata)

	// Replay check ahead of any gateway call: a proof that already settled
	// must return the prior success without re-capturing.
	if input.Proof.PaymentID != "" {
		if txn, found, err := s.replayCheck(ctx, input.Gateway, input.Proof.PaymentID); err != nil || found {
			return txn, err
		}
	}
	// A settled PayPal session stores the capture id, not the order id the
	// client re-sends, so replays must also resolve through the session.
	if txn, err := s.txns.FindSuccessByPaymentOrder(ctx, paymentOrder.ID); err == nil {
		s.metrics.IncAttempt(string(input.Gateway), "replayed")
		return txn, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up settled transaction")
	}

	verified, verifyErr := adapter.VerifyProof(ctx, input.Proof)
	if verifyErr != nil {
		typed := pkgerrors.As(verifyErr)
		if typed != nil && typed.Code() == pkgerrors.CodeValidation {
			return nil, verifyErr
		}
		failed, recordErr := s.recordFailure(ctx, paymentOrder, input.Proof, meta, typed)
		if recordErr != nil {
			return nil, recordErr
		}
		s.metrics.IncAttempt(string(input.Gateway), "failed")
		return failed, verifyErr
	}

	if txn, found, err := s.replayCheck(ctx, input.Gateway, verified.GatewayTransactionID); err != nil || found {
		return txn, err
	}

	txn, err := s.settle(ctx, paymentOrder, input.Proof, verified, meta)
	if err != nil {
		return nil, err
	}
	s.metrics.IncAttempt(string(input.Gateway), "success")
	s.issueReceiptAsync(ctx, txn)
	return txn, nil
}

// replayCheck resolves idempotent re-deliveries of a proof. A prior success
// is returned unchanged; a pending row means another settlement is in flight;
// a failed row stays failed and points the caller at the retry flow.
func (s *service) replayCheck(ctx context.Context, gateway enums.Gateway, gatewayTxnID string) (*models.Transaction, bool, error) {
	existing, err := s.txns.FindByGatewayTxn(ctx, gateway, gatewayTxnID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up transaction")
	}

	switch existing.Status {
	case enums.TransactionStatusSuccess:
		s.metrics.IncAttempt(string(gateway), "replayed")
		return existing, true, nil
	case enums.TransactionStatusPending:
		return existing, true, pkgerrors.New(pkgerrors.CodeConflict, "settlement already in flight for this payment")
	default:
		return existing, true, pkgerrors.New(pkgerrors.CodeVerificationFailed,
			"this payment already failed verification; open a new session via retry")
	}
}

func (s *service) recordFailure(ctx context.Context, paymentOrder *models.PaymentOrder, proof gateways.Proof, meta gateways.SessionMetadata, cause *pkgerrors.Error) (*models.Transaction, error) {
	gatewayTxnID := proof.PaymentID
	if gatewayTxnID == "" {
		// PayPal captures that never completed have no capture id; a
		// timestamped reference keeps the attempt row unique.
		gatewayTxnID = fmt.Sprintf("%s/attempt-%d", paymentOrder.GatewayOrderID, time.Now().UnixNano())
	}

	errCode := string(pkgerrors.CodeVerificationFailed)
	errMessage := "verification failed"
	if cause != nil {
		errCode = string(cause.Code())
		errMessage = cause.Message()
	}

	orderRef := paymentOrder.GatewayOrderID
	txn := &models.Transaction{
		OrderID:              paymentOrder.OrderID,
		PaymentOrderID:       &paymentOrder.ID,
		Gateway:              paymentOrder.Gateway,
		GatewayTransactionID: gatewayTxnID,
		GatewayOrderID:       &orderRef,
		IsVerified:           false,
		Amount:               paymentOrder.Amount,
		Currency:             paymentOrder.Currency,
		Status:               enums.TransactionStatusFailed,
		ErrorCode:            &errCode,
		ErrorMessage:         &errMessage,
		RetryCount:           meta.RetryCount,
		MaxRetries:           s.maxRetries,
	}
	if proof.Signature != "" {
		sig := proof.Signature
		txn.Signature = &sig
	}

	if err := s.txns.Create(ctx, txn); err != nil {
		if db.IsUniqueViolation(err, "") {
			return s.txns.FindByGatewayTxn(ctx, paymentOrder.Gateway, gatewayTxnID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record failed transaction")
	}

	for _, from := range []enums.PaymentOrderStatus{enums.PaymentOrderStatusCreated, enums.PaymentOrderStatusAttempted} {
		affected, err := s.paymentOrders.UpdateStatus(ctx, paymentOrder.ID, from, enums.PaymentOrderStatusFailed)
		if err != nil {
			if s.logg != nil {
				logCtx := s.logg.WithField(ctx, "payment_order_id", paymentOrder.ID.String())
				s.logg.Error(logCtx, "mark payment order failed; expiry sweep will settle it", err)
			}
			break
		}
		if affected > 0 {
			break
		}
	}
	return txn, nil
}

// settle applies the three-write settlement atomically: transaction row,
// clamped total_paid increment, linked payment request closure. A lost
// total_paid race is retried once against fresh state.
func (s *service) settle(ctx context.Context, paymentOrder *models.PaymentOrder, proof gateways.Proof, verified *gateways.VerifiedPayment, meta gateways.SessionMetadata) (*models.Transaction, error) {
	var (
		result   *models.Transaction
		conflict bool
		replayed *models.Transaction
	)

	attempt := func() error {
		conflict = false
		replayed = nil
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			orders := s.orders.WithTx(tx)
			txns := s.txns.WithTx(tx)

			order, err := orders.FindByID(ctx, paymentOrder.OrderID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
			}

			newTotal := order.TotalPaid.Add(paymentOrder.Amount)
			if newTotal.GreaterThan(order.Price) {
				newTotal = order.Price
			}

			now := time.Now().UTC()
			orderRef := verified.GatewayOrderID
			if orderRef == "" {
				orderRef = paymentOrder.GatewayOrderID
			}
			txn := &models.Transaction{
				OrderID:              order.ID,
				PaymentOrderID:       &paymentOrder.ID,
				Gateway:              paymentOrder.Gateway,
				GatewayTransactionID: verified.GatewayTransactionID,
				GatewayOrderID:       &orderRef,
				IsVerified:           true,
				Amount:               paymentOrder.Amount,
				Currency:             paymentOrder.Currency,
				Status:               enums.TransactionStatusSuccess,
				RetryCount:           meta.RetryCount,
				MaxRetries:           s.maxRetries,
				CompletedAt:          &now,
			}
			if proof.Signature != "" {
				sig := proof.Signature
				txn.Signature = &sig
			}

			if err := txns.Create(ctx, txn); err != nil {
				if db.IsUniqueViolation(err, "") {
					prior, findErr := s.txns.FindByGatewayTxn(ctx, paymentOrder.Gateway, verified.GatewayTransactionID)
					if findErr == nil {
						replayed = prior
					}
					return pkgerrors.New(pkgerrors.CodeConflict, "transaction already recorded")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record transaction")
			}

			affected, err := orders.UpdateTotalPaid(ctx, order.ID, order.TotalPaid, newTotal)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order balance")
			}
			if affected == 0 {
				conflict = true
				return pkgerrors.New(pkgerrors.CodeConflict, "order balance changed concurrently")
			}

			if paymentOrder.PaymentRequestID != nil {
				// Zero rows is fine: the request may have expired while the
				// client was mid-checkout; the money still settles.
				if _, err := s.requests.WithTx(tx).MarkPaid(ctx, *paymentOrder.PaymentRequestID, txn.ID, now); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close payment request")
				}
			}

			paymentOrders := s.paymentOrders.WithTx(tx)
			for _, from := range []enums.PaymentOrderStatus{enums.PaymentOrderStatusCreated, enums.PaymentOrderStatusAttempted} {
				if affected, err := paymentOrders.UpdateStatus(ctx, paymentOrder.ID, from, enums.PaymentOrderStatusPaid); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close checkout session")
				} else if affected > 0 {
					break
				}
			}

			result = txn
			return nil
		})
	}

	err := attempt()
	if err != nil && conflict {
		err = attempt()
	}
	if err != nil {
		if replayed != nil && replayed.Status == enums.TransactionStatusSuccess {
			s.metrics.IncAttempt(string(paymentOrder.Gateway), "replayed")
			return replayed, nil
		}
		typed := pkgerrors.As(err)
		if typed != nil && typed.Code() == pkgerrors.CodeConflict {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeVerificationFailed, err, "settlement could not be applied")
	}
	return result, nil
}

func (s *service) issueReceiptAsync(ctx context.Context, txn *models.Transaction) {
	go func() {
		issueCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		url, err := s.issuer.Issue(issueCtx, txn.ID)
		if err == nil {
			err = s.txns.SetReceiptURL(issueCtx, txn.ID, url)
		}
		if err != nil && s.logg != nil {
			logCtx := s.logg.WithField(context.Background(), "transaction_id", txn.ID.String())
			s.logg.Warn(logCtx, "receipt issuance deferred to backfill")
		}
	}()
}

// BackfillReceipts attaches receipts to settled transactions the async path
// missed. Safe to run repeatedly.
func (s *service) BackfillReceipts(ctx context.Context, limit int) (int, error) {
	pending, err := s.txns.ListSettledWithoutReceipt(ctx, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions without receipts")
	}

	issued := 0
	for _, txn := range pending {
		url, err := s.issuer.Issue(ctx, txn.ID)
		if err != nil {
			return issued, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "issue receipt")
		}
		if err := s.txns.SetReceiptURL(ctx, txn.ID, url); err != nil {
			return issued, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach receipt")
		}
		issued++
	}
	return issued, nil
}

func (s *service) RetryPayment(ctx context.Context, transactionID uuid.UUID, actor string) (*gateways.SessionDescriptor, error) {
	if transactionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}
	if strings.TrimSpace(actor) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}

	txn, err := s.txns.FindByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}
	if txn.Status != enums.TransactionStatusFailed {
		return nil, pkgerrors.New(pkgerrors.CodeRetryExhausted,
			fmt.Sprintf("only failed transactions can be retried; this one is %s", txn.Status))
	}
	if !txn.CanRetry() {
		return nil, pkgerrors.New(pkgerrors.CodeRetryExhausted,
			fmt.Sprintf("retry limit of %d reached", txn.MaxRetries))
	}

	var requestID *uuid.UUID
	if txn.PaymentOrderID != nil {
		if prior, err := s.paymentOrders.FindByID(ctx, *txn.PaymentOrderID); err == nil {
			requestID = prior.PaymentRequestID
		}
	}

	amount := txn.Amount
	descriptor, err := s.checkouts.CreateCheckoutSession(ctx, gateways.CreateSessionInput{
		OrderID:          txn.OrderID,
		Gateway:          txn.Gateway,
		Amount:           &amount,
		Currency:         txn.Currency,
		PaymentRequestID: requestID,
		Lineage: &gateways.RetryLineage{
			RetryOf:    txn.ID,
			RetryCount: txn.RetryCount + 1,
		},
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncRetry(string(txn.Gateway))
	return descriptor, nil
}

func (s *service) DownloadReceipt(ctx context.Context, transactionID uuid.UUID) (string, error) {
	if transactionID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}
	txn, err := s.txns.FindByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}
	if txn.Status != enums.TransactionStatusSuccess || txn.ReceiptURL == nil || *txn.ReceiptURL == "" {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "no receipt available for this transaction")
	}
	return *txn.ReceiptURL, nil
}

func (s *service) ListTransactions(ctx context.Context, orderID uuid.UUID) ([]models.Transaction, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	txns, err := s.txns.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	return txns, nil
}
