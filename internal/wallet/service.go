package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kasuwa-hq/kasuwa-backend/internal/splits"
	dbpkg "github.com/kasuwa-hq/kasuwa-backend/pkg/db"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/db/models"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kasuwa-hq/kasuwa-backend/pkg/errors"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/logger"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/outbox"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/outbox/payloads"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/pagination"
)

// TxRunner opens a database transaction for the callback.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service applies payment splits to seller wallets and exposes balance reads.
type Service interface {
	ApplyOrderSplits(ctx context.Context, orderID uuid.UUID) error
	GetFinancialRecord(ctx context.Context, sellerID uuid.UUID) (*models.SellerFinancialRecord, error)
	ListCredits(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.WalletCredit, error)
	ListTransactions(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, error)
}

type service struct {
	runner TxRunner
	repo   Repository
	calc   *splits.Calculator
	events *outbox.Service
	logg   *logger.Logger
}

// NewService wires the wallet service.
func NewService(runner TxRunner, repo Repository, calc *splits.Calculator, events *outbox.Service, logg *logger.Logger) (Service, error) {
	if runner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if calc == nil {
		return nil, fmt.Errorf("split calculator required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{runner: runner, repo: repo, calc: calc, events: events, logg: logg}, nil
}

// ApplyOrderSplits credits every seller represented in a paid order. The whole
// operation runs in one transaction; the unique (order_id, seller_id) split
// index makes re-delivery of the same order a no-op.
func (s *service) ApplyOrderSplits(ctx context.Context, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	ctx = s.logg.WithOrderID(ctx, orderID.String())

	return s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var order models.Order
		if err := tx.WithContext(ctx).Preload("Items").First(&order, "id = ?", orderID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return err
		}

		if order.Status != enums.OrderStatusPaid {
			return pkgerrors.New(pkgerrors.CodeConflict, "order is not paid")
		}
		if order.WalletCreditsProcessed {
			s.logg.Info(ctx, "wallet credits already processed, skipping")
			return nil
		}

		result, err := s.calc.Calculate(order.ID, order.Items, time.Now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "calculating splits")
		}
		for _, itemID := range result.ExcludedItems {
			itemCtx := s.logg.WithField(ctx, "line_item_id", itemID.String())
			s.logg.Warn(itemCtx, "line item has no seller, excluded from settlement")
		}

		credited := make([]uuid.UUID, 0, len(result.Splits))
		var totalCredited int64
		for _, split := range result.Splits {
			applied, err := s.applySplit(ctx, repo, &order, split)
			if err != nil {
				return err
			}
			if applied {
				credited = append(credited, split.SellerID)
				totalCredited += split.SellerAmountKobo
			}
		}

		if err := repo.MarkOrderProcessed(ctx, order.ID); err != nil {
			return err
		}

		if s.events != nil && len(credited) > 0 {
			event := outbox.DomainEvent{
				EventType:     enums.EventWalletCreditsApplied,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Data: payloads.WalletCreditsAppliedEvent{
					OrderID:       order.ID,
					SellerIDs:     credited,
					TotalCredited: totalCredited,
				},
			}
			if err := s.events.EmitIfNotExists(ctx, tx, event); err != nil {
				return err
			}
		}

		return nil
	})
}

// applySplit writes one seller's split. Returns false when the split already
// exists from a previous delivery.
func (s *service) applySplit(ctx context.Context, repo Repository, order *models.Order, split splits.Split) (bool, error) {
	row := &models.PaymentSplit{
		OrderID:          order.ID,
		SellerID:         split.SellerID,
		OrderAmountKobo:  split.OrderAmountKobo,
		PlatformFeeKobo:  split.PlatformFeeKobo,
		SellerAmountKobo: split.SellerAmountKobo,
		TransactionRef:   split.TransactionRef,
		ProcessedAt:      time.Now(),
	}
	if err := repo.CreatePaymentSplit(ctx, row); err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			sellerCtx := s.logg.WithSellerID(ctx, split.SellerID.String())
			s.logg.Info(sellerCtx, "payment split already applied, skipping")
			return false, nil
		}
		return false, err
	}

	if err := repo.EnsureFinancialRecord(ctx, split.SellerID); err != nil {
		return false, err
	}
	if err := repo.ApplyCredit(ctx, split.SellerID, split.OrderAmountKobo, split.SellerAmountKobo); err != nil {
		return false, err
	}

	meta, err := json.Marshal(models.WalletCreditMetadata{
		OrderNumber:     order.OrderNumber,
		BuyerName:       order.BuyerName,
		PlatformFeeKobo: split.PlatformFeeKobo,
		OriginalAmount:  split.OrderAmountKobo,
	})
	if err != nil {
		return false, err
	}

	now := time.Now()
	credit := &models.WalletCredit{
		SellerID:    split.SellerID,
		OrderID:     order.ID,
		AmountKobo:  split.SellerAmountKobo,
		Source:      enums.WalletCreditSourceOrderPayment,
		Status:      enums.WalletCreditStatusCompleted,
		Metadata:    meta,
		ProcessedAt: &now,
	}
	if err := repo.CreateWalletCredit(ctx, credit); err != nil {
		return false, err
	}

	orderID := order.ID
	txn := &models.WalletTransaction{
		SellerID:    split.SellerID,
		OrderID:     &orderID,
		AmountKobo:  split.SellerAmountKobo,
		Type:        enums.TransactionTypeWalletCredit,
		Status:      enums.TransactionStatusCompleted,
		Description: fmt.Sprintf("Sale proceeds for order #%d", order.OrderNumber),
		Metadata:    meta,
	}
	if err := repo.CreateWalletTransaction(ctx, txn); err != nil {
		return false, err
	}

	return true, nil
}

func (s *service) GetFinancialRecord(ctx context.Context, sellerID uuid.UUID) (*models.SellerFinancialRecord, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	record, err := s.repo.GetFinancialRecord(ctx, sellerID)
	if err == gorm.ErrRecordNotFound {
		// Sellers without activity read as all-zero balances.
		return &models.SellerFinancialRecord{SellerID: sellerID}, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *service) ListCredits(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.WalletCredit, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	return s.repo.ListCredits(ctx, sellerID, params)
}

func (s *service) ListTransactions(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	return s.repo.ListTransactions(ctx, sellerID, params)
}
