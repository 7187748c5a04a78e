package payouts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kasuwa-hq/kasuwa-backend/internal/wallet"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/config"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/db/models"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kasuwa-hq/kasuwa-backend/pkg/errors"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/logger"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/outbox"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/outbox/payloads"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/pagination"
)

// Service manages the payout lifecycle: request, cancel, approve, settle,
// reject. Every state change and its balance effect commit in one transaction.
type Service interface {
	RequestPayout(ctx context.Context, sellerID uuid.UUID, amountKobo int64) (*models.PayoutRequest, error)
	CancelPayout(ctx context.Context, sellerID, payoutID uuid.UUID) (*models.PayoutRequest, error)
	ApprovePayout(ctx context.Context, payoutID uuid.UUID, adminNotes string) (*models.PayoutRequest, error)
	SettlePayout(ctx context.Context, payoutID uuid.UUID, transferRef string) (*models.PayoutRequest, error)
	RejectPayout(ctx context.Context, payoutID uuid.UUID, reason string) (*models.PayoutRequest, error)
	GetPayout(ctx context.Context, sellerID, payoutID uuid.UUID) (*models.PayoutRequest, error)
	ListPayouts(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.PayoutRequest, error)
}

type service struct {
	runner wallet.TxRunner
	repo   Repository
	cfg    config.PayoutConfig
	events *outbox.Service
	logg   *logger.Logger
}

// NewService wires the payout service.
func NewService(runner wallet.TxRunner, repo Repository, cfg config.PayoutConfig, events *outbox.Service, logg *logger.Logger) (Service, error) {
	if runner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("payout repository required")
	}
	if cfg.MinimumAmount <= 0 {
		return nil, fmt.Errorf("minimum payout amount must be positive")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{runner: runner, repo: repo, cfg: cfg, events: events, logg: logg}, nil
}

// RequestPayout validates the seller can withdraw amountKobo and reserves it
// against their balance. The destination bank details are snapshotted from
// the seller's verified default account.
func (s *service) RequestPayout(ctx context.Context, sellerID uuid.UUID, amountKobo int64) (*models.PayoutRequest, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	if amountKobo <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout amount must be positive")
	}
	if amountKobo < s.cfg.MinimumAmount {
		return nil, pkgerrors.New(pkgerrors.CodeBelowMinimum,
			fmt.Sprintf("payout amount is below the minimum of %d kobo", s.cfg.MinimumAmount))
	}
	ctx = s.logg.WithSellerID(ctx, sellerID.String())

	var payout *models.PayoutRequest
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		account, err := repo.GetDefaultBankAccount(ctx, sellerID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeUnverifiedAccount, "no default bank account on file")
			}
			return err
		}
		if !account.IsVerified {
			return pkgerrors.New(pkgerrors.CodeUnverifiedAccount, "default bank account is not verified")
		}

		reserved, err := repo.Reserve(ctx, sellerID, amountKobo)
		if err != nil {
			return err
		}
		if !reserved {
			return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "available balance is insufficient for this payout")
		}

		payout = &models.PayoutRequest{
			ID:            uuid.New(),
			SellerID:      sellerID,
			Amount:        amountKobo,
			Currency:      enums.CurrencyNGN,
			Status:        enums.PayoutStatusRequested,
			BankName:      account.BankName,
			BankCode:      account.BankCode,
			AccountNumber: account.AccountNumber,
			AccountName:   account.AccountName,
		}
		if err := repo.Create(ctx, payout); err != nil {
			return err
		}

		payoutID := payout.ID
		txn := &models.WalletTransaction{
			SellerID:    sellerID,
			PayoutID:    &payoutID,
			AmountKobo:  -amountKobo,
			Type:        enums.TransactionTypeWithdrawal,
			Status:      enums.TransactionStatusPending,
			Description: fmt.Sprintf("Withdrawal to %s (%s)", account.BankName, account.AccountNumber),
		}
		if err := repo.CreateWalletTransaction(ctx, txn); err != nil {
			return err
		}

		if s.events != nil {
			return s.events.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventPayoutRequested,
				AggregateType: enums.AggregatePayoutRequest,
				AggregateID:   payout.ID,
				Version:       1,
				Data: payloads.PayoutRequestedEvent{
					PayoutID:   payout.ID,
					SellerID:   sellerID,
					AmountKobo: amountKobo,
					BankCode:   account.BankCode,
				},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(ctx, "payout requested")
	return payout, nil
}

// CancelPayout lets a seller withdraw their own request while it is still in
// the requested state. The reservation is released in full, so cancellation
// restores the exact spendable balance the request had held.
func (s *service) CancelPayout(ctx context.Context, sellerID, payoutID uuid.UUID) (*models.PayoutRequest, error) {
	if sellerID == uuid.Nil || payoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id and payout id are required")
	}
	ctx = s.logg.WithSellerID(ctx, sellerID.String())

	var payout *models.PayoutRequest
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.GetByID(ctx, payoutID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
			}
			return err
		}
		if existing.SellerID != sellerID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
		}
		if !existing.IsCancellable() {
			return pkgerrors.New(pkgerrors.CodeConflict, "only requested payouts can be cancelled")
		}

		now := time.Now()
		notes := "Cancelled by seller"
		moved, err := repo.TransitionStatus(ctx, payoutID, enums.PayoutStatusRequested, enums.PayoutStatusRejected, map[string]any{
			"admin_notes": notes,
			"rejected_at": now,
		})
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeConflict, "payout state changed, retry")
		}

		if err := repo.ReleaseReservation(ctx, sellerID, existing.Amount); err != nil {
			return err
		}
		if err := repo.UpdateTransactionStatusByPayout(ctx, payoutID, enums.TransactionStatusFailed, notes); err != nil {
			return err
		}

		existing.Status = enums.PayoutStatusRejected
		existing.AdminNotes = &notes
		existing.RejectedAt = &now
		payout = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(ctx, "payout cancelled by seller")
	return payout, nil
}

// ApprovePayout moves a requested payout to approved.
func (s *service) ApprovePayout(ctx context.Context, payoutID uuid.UUID, adminNotes string) (*models.PayoutRequest, error) {
	if payoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id is required")
	}

	var payout *models.PayoutRequest
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		now := time.Now()
		updates := map[string]any{"approved_at": now}
		if adminNotes != "" {
			updates["admin_notes"] = adminNotes
		}
		moved, err := repo.TransitionStatus(ctx, payoutID, enums.PayoutStatusRequested, enums.PayoutStatusApproved, updates)
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeConflict, "payout is not in the requested state")
		}

		payout, err = repo.GetByID(ctx, payoutID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return payout, nil
}

// SettlePayout completes an approved payout: the reservation becomes a
// withdrawal and the pending transaction settles.
func (s *service) SettlePayout(ctx context.Context, payoutID uuid.UUID, transferRef string) (*models.PayoutRequest, error) {
	if payoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id is required")
	}

	var payout *models.PayoutRequest
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.GetByID(ctx, payoutID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
			}
			return err
		}
		if existing.Status != enums.PayoutStatusApproved {
			return pkgerrors.New(pkgerrors.CodeConflict, "only approved payouts can be settled")
		}

		now := time.Now()
		updates := map[string]any{"processed_at": now}
		if transferRef != "" {
			updates["transfer_reference"] = transferRef
		}
		moved, err := repo.TransitionStatus(ctx, payoutID, enums.PayoutStatusApproved, enums.PayoutStatusProcessed, updates)
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeConflict, "payout state changed, retry")
		}

		settled, err := repo.Settle(ctx, existing.SellerID, existing.Amount)
		if err != nil {
			return err
		}
		if !settled {
			return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "balance reservation missing for payout")
		}

		if err := repo.UpdateTransactionStatusByPayout(ctx, payoutID, enums.TransactionStatusCompleted, ""); err != nil {
			return err
		}

		if s.events != nil {
			if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventPayoutSettled,
				AggregateType: enums.AggregatePayoutRequest,
				AggregateID:   payoutID,
				Version:       1,
				Data: payloads.PayoutSettledEvent{
					PayoutID:          payoutID,
					SellerID:          existing.SellerID,
					AmountKobo:        existing.Amount,
					TransferReference: transferRef,
					ProcessedAt:       now,
				},
			}); err != nil {
				return err
			}
		}

		payout, err = repo.GetByID(ctx, payoutID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithSellerID(ctx, payout.SellerID.String()), "payout settled")
	return payout, nil
}

// RejectPayout declines a requested or approved payout and releases the hold.
func (s *service) RejectPayout(ctx context.Context, payoutID uuid.UUID, reason string) (*models.PayoutRequest, error) {
	if payoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id is required")
	}
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason is required")
	}

	var payout *models.PayoutRequest
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.GetByID(ctx, payoutID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
			}
			return err
		}
		if existing.Status != enums.PayoutStatusRequested && existing.Status != enums.PayoutStatusApproved {
			return pkgerrors.New(pkgerrors.CodeConflict, "payout is already settled or rejected")
		}

		now := time.Now()
		moved, err := repo.TransitionStatus(ctx, payoutID, existing.Status, enums.PayoutStatusRejected, map[string]any{
			"admin_notes": reason,
			"rejected_at": now,
		})
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeConflict, "payout state changed, retry")
		}

		if err := repo.ReleaseReservation(ctx, existing.SellerID, existing.Amount); err != nil {
			return err
		}
		if err := repo.UpdateTransactionStatusByPayout(ctx, payoutID, enums.TransactionStatusFailed, reason); err != nil {
			return err
		}

		if s.events != nil {
			if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventPayoutRejected,
				AggregateType: enums.AggregatePayoutRequest,
				AggregateID:   payoutID,
				Version:       1,
				Data: payloads.PayoutRejectedEvent{
					PayoutID:   payoutID,
					SellerID:   existing.SellerID,
					AmountKobo: existing.Amount,
					Status:     enums.PayoutStatusRejected,
					Reason:     reason,
				},
			}); err != nil {
				return err
			}
		}

		payout, err = repo.GetByID(ctx, payoutID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return payout, nil
}

func (s *service) GetPayout(ctx context.Context, sellerID, payoutID uuid.UUID) (*models.PayoutRequest, error) {
	if sellerID == uuid.Nil || payoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id and payout id are required")
	}
	payout, err := s.repo.GetByID(ctx, payoutID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
		}
		return nil, err
	}
	if payout.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
	}
	return payout, nil
}

func (s *service) ListPayouts(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.PayoutRequest, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	return s.repo.ListBySeller(ctx, sellerID, params)
}
