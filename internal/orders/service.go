package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kasuwa-hq/kasuwa-backend/internal/wallet"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/db/models"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kasuwa-hq/kasuwa-backend/pkg/errors"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/logger"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/outbox"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/outbox/payloads"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/pagination"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/paystack"
)

// PaymentGateway is the slice of the Paystack client the order service
// needs: opening a hosted checkout and verifying a charge reference.
type PaymentGateway interface {
	InitializeTransaction(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializedTransaction, error)
	VerifyTransaction(ctx context.Context, reference string) (*paystack.Transaction, error)
}

// Checkout is the hosted payment handle returned to the storefront.
type Checkout struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// Service exposes seller-scoped order reads and the payment confirmation
// flow that feeds the wallet ledger.
type Service interface {
	GetOrder(ctx context.Context, sellerID, orderID uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Order, error)
	InitializePayment(ctx context.Context, orderID uuid.UUID) (*Checkout, error)
	ConfirmPayment(ctx context.Context, orderID uuid.UUID, reference string) (*models.Order, error)
	ConfirmPaymentByReference(ctx context.Context, reference string) (*models.Order, error)
}

type service struct {
	runner  wallet.TxRunner
	repo    Repository
	gateway PaymentGateway
	events  *outbox.Service
	logg    *logger.Logger
}

// NewService wires the order service. The gateway may be nil when only reads
// are needed; payment operations then report a dependency error.
func NewService(runner wallet.TxRunner, repo Repository, gateway PaymentGateway, events *outbox.Service, logg *logger.Logger) (Service, error) {
	if runner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{runner: runner, repo: repo, gateway: gateway, events: events, logg: logg}, nil
}

// GetOrder returns the order only when the seller has at least one line item
// in it. Orders the seller has no part in read as not found.
func (s *service) GetOrder(ctx context.Context, sellerID, orderID uuid.UUID) (*models.Order, error) {
	if sellerID == uuid.Nil || orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id and order id are required")
	}
	participates, err := s.repo.SellerParticipates(ctx, orderID, sellerID)
	if err != nil {
		return nil, err
	}
	if !participates {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	return order, nil
}

func (s *service) ListOrders(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Order, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	return s.repo.ListForSeller(ctx, sellerID, params)
}

// InitializePayment opens a Paystack charge for a pending order and stores
// the returned reference so the webhook can find the order later.
func (s *service) InitializePayment(ctx context.Context, orderID uuid.UUID) (*Checkout, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway is not configured")
	}
	ctx = s.logg.WithOrderID(ctx, orderID.String())

	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order is not awaiting payment")
	}

	initialized, err := s.gateway.InitializeTransaction(ctx, paystack.InitializeRequest{
		Email:      order.BuyerEmail,
		AmountKobo: order.TotalKobo,
		Currency:   string(order.Currency),
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetPaymentReference(ctx, orderID, initialized.Reference); err != nil {
		return nil, err
	}

	s.logg.Info(ctx, "payment initialized")
	return &Checkout{
		AuthorizationURL: initialized.AuthorizationURL,
		AccessCode:       initialized.AccessCode,
		Reference:        initialized.Reference,
	}, nil
}

// ConfirmPayment verifies the charge with the provider and marks the order
// paid. Confirming an already-paid order is a no-op returning the order.
func (s *service) ConfirmPayment(ctx context.Context, orderID uuid.UUID, reference string) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}
	ctx = s.logg.WithOrderID(ctx, orderID.String())

	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	return s.confirm(ctx, order, reference)
}

// ConfirmPaymentByReference is the webhook entry point: the provider only
// tells us the charge reference.
func (s *service) ConfirmPaymentByReference(ctx context.Context, reference string) (*models.Order, error) {
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}
	order, err := s.repo.GetByPaymentReference(ctx, reference)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no order for payment reference")
		}
		return nil, err
	}
	return s.confirm(s.logg.WithOrderID(ctx, order.ID.String()), order, reference)
}

func (s *service) confirm(ctx context.Context, order *models.Order, reference string) (*models.Order, error) {
	if order.Status == enums.OrderStatusPaid {
		return order, nil
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order is not awaiting payment")
	}
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway is not configured")
	}

	txn, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !txn.Succeeded() {
		return nil, pkgerrors.New(pkgerrors.CodeProviderRejected,
			fmt.Sprintf("charge %s is %s, not successful", reference, txn.Status))
	}
	if txn.AmountKobo != order.TotalKobo {
		return nil, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("charged amount %d does not match order total %d", txn.AmountKobo, order.TotalKobo))
	}

	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		marked, err := repo.MarkPaid(ctx, order.ID, reference)
		if err != nil {
			return err
		}
		if !marked {
			// Another confirmation won; nothing further to emit.
			return nil
		}
		return s.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: payloads.OrderPaidEvent{
				OrderID:          order.ID,
				OrderNumber:      order.OrderNumber,
				PaymentReference: reference,
				AmountKobo:       order.TotalKobo,
				Currency:         string(order.Currency),
				PaidAt:           time.Now().UTC(),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(ctx, "order payment confirmed")
	return s.repo.GetByID(ctx, order.ID)
}
