package payouts

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kasuwa-hq/kasuwa-backend/pkg/config"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/db/models"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kasuwa-hq/kasuwa-backend/pkg/errors"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/logger"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/outbox"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/pagination"
)

func newPayoutService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "payouts-test", Output: io.Discard})
	events := outbox.NewService(outbox.NewRepository(db), logg)
	cfg := config.PayoutConfig{FeeRate: 0.15, MinimumAmount: 1000}
	svc, err := NewService(gormTxRunner{db: db}, NewRepository(db), cfg, events, logg)
	require.NoError(t, err)
	return svc
}

func seedFundedSeller(t *testing.T, db *gorm.DB, availableKobo int64) *models.Seller {
	t.Helper()
	seller := &models.Seller{
		ID:           uuid.New(),
		BusinessName: "Lekki Gadgets",
		ContactName:  "Owner",
		ContactEmail: uuid.NewString() + "@example.com",
		IsActive:     true,
	}
	require.NoError(t, db.Create(seller).Error)
	record := &models.SellerFinancialRecord{
		SellerID:             seller.ID,
		TotalRevenueKobo:     availableKobo,
		ActualReceivedKobo:   availableKobo,
		AvailableBalanceKobo: availableKobo,
	}
	require.NoError(t, db.Create(record).Error)
	return seller
}

func seedBankAccount(t *testing.T, db *gorm.DB, sellerID uuid.UUID, verified bool) *models.SellerBankAccount {
	t.Helper()
	account := &models.SellerBankAccount{
		ID:            uuid.New(),
		SellerID:      sellerID,
		BankName:      "Guaranty Trust Bank",
		BankCode:      "058",
		AccountNumber: "0123456789",
		AccountName:   "LEKKI GADGETS LTD",
		IsDefault:     true,
		IsVerified:    verified,
	}
	if verified {
		account.VerificationStatus = enums.BankVerificationStatusVerified
	} else {
		account.VerificationStatus = enums.BankVerificationStatusPending
	}
	require.NoError(t, db.Create(account).Error)
	return account
}

func financialRecord(t *testing.T, db *gorm.DB, sellerID uuid.UUID) *models.SellerFinancialRecord {
	t.Helper()
	var record models.SellerFinancialRecord
	require.NoError(t, db.Where("seller_id = ?", sellerID).First(&record).Error)
	return &record
}

func TestRequestPayoutReservesBalance(t *testing.T) {
	db := setupPayoutTestDB(t)
	svc := newPayoutService(t, db)
	seller := seedFundedSeller(t, db, 50_000)
	seedBankAccount(t, db, seller.ID, true)

	ctx := context.Background()
	payout, err := svc.RequestPayout(ctx, seller.ID, 20_000)
	require.NoError(t, err)

	assert.Equal(t, enums.PayoutStatusRequested, payout.Status)
	assert.Equal(t, int64(20_000), payout.Amount)
	assert.Equal(t, "058", payout.BankCode)
	assert.Equal(t, "0123456789", payout.AccountNumber)

	record := financialRecord(t, db, seller.ID)
	assert.Equal(t, int64(50_000), record.AvailableBalanceKobo)
	assert.Equal(t, int64(20_000), record.PendingWithdrawalsKobo)
	assert.Equal(t, int64(30_000), record.SpendableKobo())

	var txn models.WalletTransaction
	require.NoError(t, db.Where("payout_id = ?", payout.ID).First(&txn).Error)
	assert.Equal(t, int64(-20_000), txn.AmountKobo)
	assert.Equal(t, enums.TransactionTypeWithdrawal, txn.Type)
	assert.Equal(t, enums.TransactionStatusPending, txn.Status)

	var eventCount int64
	require.NoError(t, db.Table("outbox_events").
		Where("event_type = ?", enums.EventPayoutRequested).Count(&eventCount).Error)
	assert.Equal(t, int64(1), eventCount)
}

func TestRequestPayoutRejectsOverdraw(t *testing.T) {
	db := setupPayoutTestDB(t)
	svc := newPayoutService(t, db)
	seller := seedFundedSeller(t, db, 10_000)
	seedBankAccount(t, db, seller.ID, true)
	ctx := context.Background()

	// First request holds most of the balance.
	_, err := svc.RequestPayout(ctx, seller.ID, 8_000)
	require.NoError(t, err)

	// Spendable is now 2_000, so this must fail even though available is 10_000.
	_, err = svc.RequestPayout(ctx, seller.ID, 5_000)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientBalance))

	record := financialRecord(t, db, seller.ID)
	assert.Equal(t, int64(8_000), record.PendingWithdrawalsKobo)
}

func TestRequestPayoutValidation(t *testing.T) {
	db := setupPayoutTestDB(t)
	svc := newPayoutService(t, db)
	ctx := context.Background()

	funded := seedFundedSeller(t, db, 50_000)
	seedBankAccount(t, db, funded.ID, false)

	noBank := seedFundedSeller(t, db, 50_000)

	tests := []struct {
		name     string
		sellerID uuid.UUID
		amount   int64
		code     pkgerrors.Code
	}{
		{name: "below minimum", sellerID: funded.ID, amount: 500, code: pkgerrors.CodeBelowMinimum},
		{name: "zero amount", sellerID: funded.ID, amount: 0, code: pkgerrors.CodeValidation},
		{name: "negative amount", sellerID: funded.ID, amount: -100, code: pkgerrors.CodeValidation},
		{name: "unverified account", sellerID: funded.ID, amount: 5_000, code: pkgerrors.CodeUnverifiedAccount},
		{name: "no bank account", sellerID: noBank.ID, amount: 5_000, code: pkgerrors.CodeUnverifiedAccount},
		{name: "missing seller id", sellerID: uuid.Nil, amount: 5_000, code: pkgerrors.CodeValidation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RequestPayout(ctx, tc.sellerID, tc.amount)
			require.Error(t, err)
			assert.True(t, pkgerrors.HasCode(err, tc.code), "got %v", err)
		})
	}
}

func TestCancelPayoutRestoresSpendableBalance(t *testing.T) {
	db := setupPayoutTestDB(t)
	svc := newPayoutService(t, db)
	seller := seedFundedSeller(t, db, 30_000)
	seedBankAccount(t, db, seller.ID, true)
	ctx := context.Background()

	payout, err := svc.RequestPayout(ctx, seller.ID, 12_000)
	require.NoError(t, err)

	cancelled, err := svc.CancelPayout(ctx, seller.ID, payout.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusRejected, cancelled.Status)
	require.NotNil(t, cancelled.AdminNotes)
	assert.Equal(t, "Cancelled by seller", *cancelled.AdminNotes)
	assert.NotNil(t, cancelled.RejectedAt)

	record := financialRecord(t, db, seller.ID)
	assert.Equal(t, int64(30_000), record.AvailableBalanceKobo)
	assert.Equal(t, int64(0), record.PendingWithdrawalsKobo)
	assert.Equal(t, int64(30_000), record.SpendableKobo())

	var txn models.WalletTransaction
	require.NoError(t, db.Where("payout_id = ?", payout.ID).First(&txn).Error)
	assert.Equal(t, enums.TransactionStatusFailed, txn.Status)
	// The ledger entry records why it left the pending state.
	assert.Contains(t, txn.Description, "Cancelled by seller")

	// A cancelled payout cannot be cancelled again.
	_, err = svc.CancelPayout(ctx, seller.ID, payout.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
}

func TestConcurrentPayoutRequestsNeverOverReserve(t *testing.T) {
	db := setupPayoutTestDB(t)
	svc := newPayoutService(t, db)
	seller := seedFundedSeller(t, db, 10_000)
	seedBankAccount(t, db, seller.ID, true)
	ctx := context.Background()

	const workers = 5
	const amount = int64(3_000)

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.RequestPayout(ctx, seller.ID, amount)
		}(i)
	}
	wg.Wait()

	granted := 0
	for _, err := range errs {
		if err == nil {
			granted++
			continue
		}
		assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientBalance), "got %v", err)
	}
	// 10_000 of funds holds at most three 3_000 reservations, no matter how
	// the five requests interleave.
	assert.Equal(t, 3, granted)

	record := financialRecord(t, db, seller.ID)
	assert.Equal(t, int64(granted)*amount, record.PendingWithdrawalsKobo)
	assert.LessOrEqual(t, record.PendingWithdrawalsKobo, record.AvailableBalanceKobo)
}

func TestCancelPayoutRequiresOwnership(t *testing.T) {
	db := setupPayoutTestDB(t)
	svc := newPayoutService(t, db)
	seller := seedFundedSeller(t, db, 30_000)
	seedBankAccount(t, db, seller.ID, true)
	other := seedFundedSeller(t, db, 30_000)
	ctx := context.Background()

	payout, err := svc.RequestPayout(ctx, seller.ID, 5_000)
	require.NoError(t, err)

	_, err = svc.CancelPayout(ctx, other.ID, payout.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestPayoutFullLifecycle(t *testing.T) {
	db := setupPayoutTestDB(t)
	svc := newPayoutService(t, db)
	seller := seedFundedSeller(t, db, 40_000)
	seedBankAccount(t, db, seller.ID, true)
	ctx := context.Background()

	payout, err := svc.RequestPayout(ctx, seller.ID, 25_000)
	require.NoError(t, err)

	approved, err := svc.ApprovePayout(ctx, payout.ID, "verified manually")
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusApproved, approved.Status)
	assert.NotNil(t, approved.ApprovedAt)

	// Approving twice must conflict.
	_, err = svc.ApprovePayout(ctx, payout.ID, "")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))

	settled, err := svc.SettlePayout(ctx, payout.ID, "TRF_8c2d91")
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusProcessed, settled.Status)
	require.NotNil(t, settled.TransferReference)
	assert.Equal(t, "TRF_8c2d91", *settled.TransferReference)
	assert.NotNil(t, settled.ProcessedAt)

	record := financialRecord(t, db, seller.ID)
	assert.Equal(t, int64(15_000), record.AvailableBalanceKobo)
	assert.Equal(t, int64(0), record.PendingWithdrawalsKobo)
	assert.Equal(t, int64(25_000), record.TotalWithdrawnKobo)

	var txn models.WalletTransaction
	require.NoError(t, db.Where("payout_id = ?", payout.ID).First(&txn).Error)
	assert.Equal(t, enums.TransactionStatusCompleted, txn.Status)

	var eventCount int64
	require.NoError(t, db.Table("outbox_events").
		Where("event_type = ?", enums.EventPayoutSettled).Count(&eventCount).Error)
	assert.Equal(t, int64(1), eventCount)
}

func TestSettlePayoutRequiresApproval(t *testing.T) {
	db := setupPayoutTestDB(t)
	svc := newPayoutService(t, db)
	seller := seedFundedSeller(t, db, 40_000)
	seedBankAccount(t, db, seller.ID, true)
	ctx := context.Background()

	payout, err := svc.RequestPayout(ctx, seller.ID, 10_000)
	require.NoError(t, err)

	_, err = svc.SettlePayout(ctx, payout.ID, "TRF_early")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
}

func TestRejectPayoutReleasesReservation(t *testing.T) {
	db := setupPayoutTestDB(t)
	svc := newPayoutService(t, db)
	seller := seedFundedSeller(t, db, 40_000)
	seedBankAccount(t, db, seller.ID, true)
	ctx := context.Background()

	payout, err := svc.RequestPayout(ctx, seller.ID, 18_000)
	require.NoError(t, err)

	_, err = svc.ApprovePayout(ctx, payout.ID, "")
	require.NoError(t, err)

	rejected, err := svc.RejectPayout(ctx, payout.ID, "Account name mismatch")
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusRejected, rejected.Status)
	require.NotNil(t, rejected.AdminNotes)
	assert.Equal(t, "Account name mismatch", *rejected.AdminNotes)

	record := financialRecord(t, db, seller.ID)
	assert.Equal(t, int64(40_000), record.AvailableBalanceKobo)
	assert.Equal(t, int64(0), record.PendingWithdrawalsKobo)
	assert.Equal(t, int64(0), record.TotalWithdrawnKobo)

	var txn models.WalletTransaction
	require.NoError(t, db.Where("payout_id = ?", payout.ID).First(&txn).Error)
	assert.Equal(t, enums.TransactionStatusFailed, txn.Status)
	assert.Contains(t, txn.Description, "Account name mismatch")

	var eventCount int64
	require.NoError(t, db.Table("outbox_events").
		Where("event_type = ?", enums.EventPayoutRejected).Count(&eventCount).Error)
	assert.Equal(t, int64(1), eventCount)

	// Rejected payouts are terminal.
	_, err = svc.RejectPayout(ctx, payout.ID, "again")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
}

func TestListPayoutsScopedToSeller(t *testing.T) {
	db := setupPayoutTestDB(t)
	svc := newPayoutService(t, db)
	sellerA := seedFundedSeller(t, db, 100_000)
	seedBankAccount(t, db, sellerA.ID, true)
	sellerB := seedFundedSeller(t, db, 100_000)
	seedBankAccount(t, db, sellerB.ID, true)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.RequestPayout(ctx, sellerA.ID, 5_000)
		require.NoError(t, err)
	}
	_, err := svc.RequestPayout(ctx, sellerB.ID, 5_000)
	require.NoError(t, err)

	listed, err := svc.ListPayouts(ctx, sellerA.ID, pagination.Params{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, listed, 3)
	for _, p := range listed {
		assert.Equal(t, sellerA.ID, p.SellerID)
	}
}
