package bankaccounts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kasuwa-hq/kasuwa-backend/pkg/db/models"
)

// Repository persists seller bank accounts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, account *models.SellerBankAccount) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.SellerBankAccount, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.SellerBankAccount, error)
	CountBySeller(ctx context.Context, sellerID uuid.UUID) (int64, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	ClearDefault(ctx context.Context, sellerID uuid.UUID) error
	SetDefault(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, account *models.SellerBankAccount) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.SellerBankAccount, error) {
	var account models.SellerBankAccount
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.SellerBankAccount, error) {
	var accounts []models.SellerBankAccount
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("is_default DESC, created_at ASC").
		Find(&accounts).Error
	return accounts, err
}

func (r *repository) CountBySeller(ctx context.Context, sellerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SellerBankAccount{}).
		Where("seller_id = ?", sellerID).
		Count(&count).Error
	return count, err
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.SellerBankAccount{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.SellerBankAccount{}).Error
}

func (r *repository) ClearDefault(ctx context.Context, sellerID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.SellerBankAccount{}).
		Where("seller_id = ? AND is_default = ?", sellerID, true).
		Update("is_default", false).Error
}

func (r *repository) SetDefault(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.SellerBankAccount{}).
		Where("id = ?", id).
		Update("is_default", true).Error
}
