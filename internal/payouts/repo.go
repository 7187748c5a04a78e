package payouts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kasuwa-hq/kasuwa-backend/pkg/db/models"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/enums"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/pagination"
)

// Repository manages persistence for payout requests and the balance
// reservations they hold.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payout *models.PayoutRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.PayoutRequest, error)
	ListByStatus(ctx context.Context, status enums.PayoutStatus, params pagination.Params) ([]models.PayoutRequest, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.PayoutStatus, updates map[string]any) (bool, error)
	Reserve(ctx context.Context, sellerID uuid.UUID, amountKobo int64) (bool, error)
	ReleaseReservation(ctx context.Context, sellerID uuid.UUID, amountKobo int64) error
	Settle(ctx context.Context, sellerID uuid.UUID, amountKobo int64) (bool, error)
	GetDefaultBankAccount(ctx context.Context, sellerID uuid.UUID) (*models.SellerBankAccount, error)
	CreateWalletTransaction(ctx context.Context, txn *models.WalletTransaction) error
	UpdateTransactionStatusByPayout(ctx context.Context, payoutID uuid.UUID, status enums.TransactionStatus, note string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payout repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payout *models.PayoutRequest) error {
	if payout.ID == uuid.Nil {
		payout.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error) {
	var payout models.PayoutRequest
	if err := r.db.WithContext(ctx).First(&payout, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repository) ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.PayoutRequest, error) {
	query := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("requested_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where("(requested_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var payouts []models.PayoutRequest
	if err := query.Find(&payouts).Error; err != nil {
		return nil, err
	}
	return payouts, nil
}

func (r *repository) ListByStatus(ctx context.Context, status enums.PayoutStatus, params pagination.Params) ([]models.PayoutRequest, error) {
	var payouts []models.PayoutRequest
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("requested_at ASC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&payouts).Error
	if err != nil {
		return nil, err
	}
	return payouts, nil
}

// TransitionStatus moves a payout between lifecycle states with a guarded
// single-statement update. Returns false when the payout was not in the
// expected source state.
func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.PayoutStatus, updates map[string]any) (bool, error) {
	if updates == nil {
		updates = map[string]any{}
	}
	updates["status"] = to
	res := r.db.WithContext(ctx).Model(&models.PayoutRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Reserve holds amountKobo against the seller's spendable balance. The guard
// in the WHERE clause makes over-withdrawal impossible under concurrency.
func (r *repository) Reserve(ctx context.Context, sellerID uuid.UUID, amountKobo int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.SellerFinancialRecord{}).
		Where("seller_id = ? AND available_balance_kobo - pending_withdrawals_kobo >= ?", sellerID, amountKobo).
		Updates(map[string]any{
			"pending_withdrawals_kobo": gorm.Expr("pending_withdrawals_kobo + ?", amountKobo),
			"last_updated":             time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ReleaseReservation(ctx context.Context, sellerID uuid.UUID, amountKobo int64) error {
	return r.db.WithContext(ctx).Model(&models.SellerFinancialRecord{}).
		Where("seller_id = ? AND pending_withdrawals_kobo >= ?", sellerID, amountKobo).
		Updates(map[string]any{
			"pending_withdrawals_kobo": gorm.Expr("pending_withdrawals_kobo - ?", amountKobo),
			"last_updated":             time.Now(),
		}).Error
}

// Settle converts a reservation into a completed withdrawal.
func (r *repository) Settle(ctx context.Context, sellerID uuid.UUID, amountKobo int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.SellerFinancialRecord{}).
		Where("seller_id = ? AND available_balance_kobo >= ? AND pending_withdrawals_kobo >= ?", sellerID, amountKobo, amountKobo).
		Updates(map[string]any{
			"available_balance_kobo":   gorm.Expr("available_balance_kobo - ?", amountKobo),
			"pending_withdrawals_kobo": gorm.Expr("pending_withdrawals_kobo - ?", amountKobo),
			"total_withdrawn_kobo":     gorm.Expr("total_withdrawn_kobo + ?", amountKobo),
			"last_updated":             time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) GetDefaultBankAccount(ctx context.Context, sellerID uuid.UUID) (*models.SellerBankAccount, error) {
	var account models.SellerBankAccount
	err := r.db.WithContext(ctx).
		Where("seller_id = ? AND is_default = ?", sellerID, true).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) CreateWalletTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(txn).Error
}

// UpdateTransactionStatusByPayout moves the payout's paired transaction to the
// given status. A non-empty note is appended to the transaction description so
// the ledger records why the entry left the pending state.
func (r *repository) UpdateTransactionStatusByPayout(ctx context.Context, payoutID uuid.UUID, status enums.TransactionStatus, note string) error {
	updates := map[string]any{"status": status}
	if note != "" {
		updates["description"] = gorm.Expr("description || ?", " ("+note+")")
	}
	return r.db.WithContext(ctx).Model(&models.WalletTransaction{}).
		Where("payout_id = ?", payoutID).
		Updates(updates).Error
}
