package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kasuwa-hq/kasuwa-backend/pkg/db/models"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/pagination"
)

// Repository manages persistence for the wallet ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	EnsureFinancialRecord(ctx context.Context, sellerID uuid.UUID) error
	GetFinancialRecord(ctx context.Context, sellerID uuid.UUID) (*models.SellerFinancialRecord, error)
	ApplyCredit(ctx context.Context, sellerID uuid.UUID, grossKobo, netKobo int64) error
	CreatePaymentSplit(ctx context.Context, split *models.PaymentSplit) error
	SplitExists(ctx context.Context, orderID, sellerID uuid.UUID) (bool, error)
	CreateWalletCredit(ctx context.Context, credit *models.WalletCredit) error
	CreateWalletTransaction(ctx context.Context, txn *models.WalletTransaction) error
	MarkOrderProcessed(ctx context.Context, orderID uuid.UUID) error
	ListCredits(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.WalletCredit, error)
	ListTransactions(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) EnsureFinancialRecord(ctx context.Context, sellerID uuid.UUID) error {
	record := models.SellerFinancialRecord{SellerID: sellerID}
	return r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		FirstOrCreate(&record).Error
}

func (r *repository) GetFinancialRecord(ctx context.Context, sellerID uuid.UUID) (*models.SellerFinancialRecord, error) {
	var record models.SellerFinancialRecord
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ApplyCredit increments the seller's balances in a single statement so
// concurrent credits never lose an update.
func (r *repository) ApplyCredit(ctx context.Context, sellerID uuid.UUID, grossKobo, netKobo int64) error {
	res := r.db.WithContext(ctx).Model(&models.SellerFinancialRecord{}).
		Where("seller_id = ?", sellerID).
		Updates(map[string]any{
			"total_revenue_kobo":     gorm.Expr("total_revenue_kobo + ?", grossKobo),
			"actual_received_kobo":   gorm.Expr("actual_received_kobo + ?", netKobo),
			"available_balance_kobo": gorm.Expr("available_balance_kobo + ?", netKobo),
			"last_updated":           time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("financial record not found")
	}
	return nil
}

func (r *repository) CreatePaymentSplit(ctx context.Context, split *models.PaymentSplit) error {
	if split.ID == uuid.Nil {
		split.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(split).Error
}

func (r *repository) SplitExists(ctx context.Context, orderID, sellerID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PaymentSplit{}).
		Where("order_id = ? AND seller_id = ?", orderID, sellerID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) CreateWalletCredit(ctx context.Context, credit *models.WalletCredit) error {
	if credit.ID == uuid.Nil {
		credit.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(credit).Error
}

func (r *repository) CreateWalletTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) MarkOrderProcessed(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("wallet_credits_processed", true).Error
}

func (r *repository) ListCredits(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.WalletCredit, error) {
	query := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var credits []models.WalletCredit
	if err := query.Find(&credits).Error; err != nil {
		return nil, err
	}
	return credits, nil
}

func (r *repository) ListTransactions(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, error) {
	query := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var txns []models.WalletTransaction
	if err := query.Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}
