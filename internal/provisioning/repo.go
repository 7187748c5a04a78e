package provisioning

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kasuwa-hq/kasuwa-backend/pkg/db/models"
)

// Candidate pairs a seller awaiting a subaccount with their verified default
// payout destination.
type Candidate struct {
	Seller models.Seller
	Bank   models.SellerBankAccount
}

// Repository reads provisioning candidates and records provisioned
// subaccounts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindCandidates(ctx context.Context, limit int) ([]Candidate, error)
	CountProvisioned(ctx context.Context) (int64, error)
	RecordSubaccount(ctx context.Context, sellerID uuid.UUID, code string, providerID int64) (bool, error)
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

// FindCandidates returns active sellers without a subaccount that have a
// verified default bank account, oldest first.
func (r *repository) FindCandidates(ctx context.Context, limit int) ([]Candidate, error) {
	var sellers []models.Seller
	query := r.db.WithContext(ctx).
		Joins("JOIN seller_bank_accounts ON seller_bank_accounts.seller_id = sellers.id").
		Where("sellers.is_active = ?", true).
		Where("sellers.subaccount_code IS NULL").
		Where("seller_bank_accounts.is_default = ?", true).
		Where("seller_bank_accounts.is_verified = ?", true).
		Order("sellers.created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&sellers).Error; err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(sellers))
	for _, seller := range sellers {
		var bank models.SellerBankAccount
		err := r.db.WithContext(ctx).
			Where("seller_id = ? AND is_default = ? AND is_verified = ?", seller.ID, true, true).
			First(&bank).Error
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, Candidate{Seller: seller, Bank: bank})
	}
	return candidates, nil
}

// CountProvisioned counts the sellers a run would otherwise pick up that
// already carry a subaccount code. They are reported as skipped so a re-run
// over an already-provisioned roster says so instead of reporting an empty
// batch.
func (r *repository) CountProvisioned(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Seller{}).
		Joins("JOIN seller_bank_accounts ON seller_bank_accounts.seller_id = sellers.id").
		Where("sellers.is_active = ?", true).
		Where("sellers.subaccount_code IS NOT NULL").
		Where("seller_bank_accounts.is_default = ?", true).
		Where("seller_bank_accounts.is_verified = ?", true).
		Count(&count).Error
	return count, err
}

// RecordSubaccount stores the provider identifiers. The subaccount_code IS
// NULL guard makes a concurrent double-provision a no-op instead of an
// overwrite.
func (r *repository) RecordSubaccount(ctx context.Context, sellerID uuid.UUID, code string, providerID int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Seller{}).
		Where("id = ? AND subaccount_code IS NULL", sellerID).
		Updates(map[string]any{
			"subaccount_code": code,
			"subaccount_id":   providerID,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
