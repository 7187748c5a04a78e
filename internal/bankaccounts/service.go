package bankaccounts

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kasuwa-hq/kasuwa-backend/internal/wallet"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/banks"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/db/models"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kasuwa-hq/kasuwa-backend/pkg/errors"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/logger"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/paystack"
)

var nubanPattern = regexp.MustCompile(`^\d{10}$`)

// AccountResolver checks an account number against the bank's records and
// returns the registered holder name. *paystack.Client satisfies it.
type AccountResolver interface {
	ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*paystack.ResolvedAccount, error)
}

// AccountInput carries the seller-supplied fields for creating or editing a
// bank account. Bank may be a bank name, a common alias, or a CBN code.
type AccountInput struct {
	Bank          string
	AccountNumber string
	AccountName   string
}

// Service manages seller payout destinations.
type Service interface {
	AddAccount(ctx context.Context, sellerID uuid.UUID, input AccountInput) (*models.SellerBankAccount, error)
	UpdateAccount(ctx context.Context, sellerID, accountID uuid.UUID, input AccountInput) (*models.SellerBankAccount, error)
	DeleteAccount(ctx context.Context, sellerID, accountID uuid.UUID) error
	ListAccounts(ctx context.Context, sellerID uuid.UUID) ([]models.SellerBankAccount, error)
	SetDefaultAccount(ctx context.Context, sellerID, accountID uuid.UUID) (*models.SellerBankAccount, error)
	VerifyAccount(ctx context.Context, sellerID, accountID uuid.UUID) (*models.SellerBankAccount, error)
}

type service struct {
	runner   wallet.TxRunner
	repo     Repository
	resolver AccountResolver
	logg     *logger.Logger
}

// NewService wires the bank account service. The resolver may be nil, in
// which case VerifyAccount reports a dependency error.
func NewService(runner wallet.TxRunner, repo Repository, resolver AccountResolver, logg *logger.Logger) (Service, error) {
	if runner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("bank account repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{runner: runner, repo: repo, resolver: resolver, logg: logg}, nil
}

// resolveBank maps user input to a directory entry, trying code first so a
// numeric "058" never falls through to substring matching.
func resolveBank(input string) (banks.Bank, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return banks.Bank{}, pkgerrors.New(pkgerrors.CodeValidation, "bank is required")
	}
	if bank, ok := banks.LookupCode(trimmed); ok {
		return bank, nil
	}
	if bank, ok := banks.Lookup(trimmed); ok {
		return bank, nil
	}
	return banks.Bank{}, pkgerrors.New(pkgerrors.CodeValidation,
		fmt.Sprintf("unrecognized bank %q", trimmed))
}

func validateAccountNumber(number string) error {
	if !nubanPattern.MatchString(number) {
		return pkgerrors.New(pkgerrors.CodeValidation, "account number must be exactly 10 digits")
	}
	return nil
}

func (s *service) AddAccount(ctx context.Context, sellerID uuid.UUID, input AccountInput) (*models.SellerBankAccount, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	bank, err := resolveBank(input.Bank)
	if err != nil {
		return nil, err
	}
	if err := validateAccountNumber(input.AccountNumber); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.AccountName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account name is required")
	}
	ctx = s.logg.WithSellerID(ctx, sellerID.String())

	var account *models.SellerBankAccount
	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.CountBySeller(ctx, sellerID)
		if err != nil {
			return err
		}

		account = &models.SellerBankAccount{
			ID:            uuid.New(),
			SellerID:      sellerID,
			BankName:      bank.Name,
			BankCode:      bank.Code,
			AccountNumber: input.AccountNumber,
			AccountName:   strings.TrimSpace(input.AccountName),
			// The first account a seller adds becomes the payout default.
			IsDefault:          existing == 0,
			VerificationStatus: enums.BankVerificationStatusPending,
		}
		return repo.Create(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(ctx, "bank account added")
	return account, nil
}

// UpdateAccount edits an account. Changing the account number or bank
// invalidates any prior verification.
func (s *service) UpdateAccount(ctx context.Context, sellerID, accountID uuid.UUID, input AccountInput) (*models.SellerBankAccount, error) {
	if sellerID == uuid.Nil || accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id and account id are required")
	}
	ctx = s.logg.WithSellerID(ctx, sellerID.String())

	var account *models.SellerBankAccount
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := s.ownedAccount(ctx, repo, sellerID, accountID)
		if err != nil {
			return err
		}

		updates := map[string]any{}
		identityChanged := false

		if input.Bank != "" {
			bank, err := resolveBank(input.Bank)
			if err != nil {
				return err
			}
			if bank.Code != existing.BankCode {
				updates["bank_name"] = bank.Name
				updates["bank_code"] = bank.Code
				identityChanged = true
			}
		}
		if input.AccountNumber != "" {
			if err := validateAccountNumber(input.AccountNumber); err != nil {
				return err
			}
			if input.AccountNumber != existing.AccountNumber {
				updates["account_number"] = input.AccountNumber
				identityChanged = true
			}
		}
		if name := strings.TrimSpace(input.AccountName); name != "" && name != existing.AccountName {
			updates["account_name"] = name
		}
		if identityChanged {
			updates["is_verified"] = false
			updates["verification_status"] = enums.BankVerificationStatusPending
		}
		if len(updates) > 0 {
			if err := repo.Update(ctx, accountID, updates); err != nil {
				return err
			}
		}

		account, err = repo.GetByID(ctx, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (s *service) DeleteAccount(ctx context.Context, sellerID, accountID uuid.UUID) error {
	if sellerID == uuid.Nil || accountID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "seller id and account id are required")
	}
	ctx = s.logg.WithSellerID(ctx, sellerID.String())

	return s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := s.ownedAccount(ctx, repo, sellerID, accountID)
		if err != nil {
			return err
		}
		if existing.IsDefault {
			count, err := repo.CountBySeller(ctx, sellerID)
			if err != nil {
				return err
			}
			if count > 1 {
				return pkgerrors.New(pkgerrors.CodeConflict,
					"set another account as default before deleting this one")
			}
		}
		return repo.Delete(ctx, accountID)
	})
}

func (s *service) ListAccounts(ctx context.Context, sellerID uuid.UUID) ([]models.SellerBankAccount, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	return s.repo.ListBySeller(ctx, sellerID)
}

// SetDefaultAccount switches the payout default. Clear-then-set inside one
// transaction keeps the partial unique index satisfied at commit.
func (s *service) SetDefaultAccount(ctx context.Context, sellerID, accountID uuid.UUID) (*models.SellerBankAccount, error) {
	if sellerID == uuid.Nil || accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id and account id are required")
	}
	ctx = s.logg.WithSellerID(ctx, sellerID.String())

	var account *models.SellerBankAccount
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := s.ownedAccount(ctx, repo, sellerID, accountID); err != nil {
			return err
		}
		if err := repo.ClearDefault(ctx, sellerID); err != nil {
			return err
		}
		if err := repo.SetDefault(ctx, accountID); err != nil {
			return err
		}
		var err error
		account, err = repo.GetByID(ctx, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// VerifyAccount resolves the account against the provider and, on success,
// stores the registered holder name in place of whatever the seller typed.
func (s *service) VerifyAccount(ctx context.Context, sellerID, accountID uuid.UUID) (*models.SellerBankAccount, error) {
	if sellerID == uuid.Nil || accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id and account id are required")
	}
	if s.resolver == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "account resolution is not configured")
	}
	ctx = s.logg.WithSellerID(ctx, sellerID.String())

	account, err := s.ownedAccount(ctx, s.repo, sellerID, accountID)
	if err != nil {
		return nil, err
	}
	if err := validateAccountNumber(account.AccountNumber); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, accountID, map[string]any{
		"verification_status": enums.BankVerificationStatusVerifying,
	}); err != nil {
		return nil, err
	}

	resolved, err := s.resolver.ResolveAccount(ctx, account.AccountNumber, account.BankCode)
	if err != nil {
		status := enums.BankVerificationStatusPending
		if pkgerrors.HasCode(err, pkgerrors.CodeProviderRejected) {
			// The bank says there is no such account; transport errors
			// leave the account retryable instead.
			status = enums.BankVerificationStatusFailed
		}
		if updErr := s.repo.Update(ctx, accountID, map[string]any{
			"is_verified":         false,
			"verification_status": status,
		}); updErr != nil {
			s.logg.Error(ctx, "record verification failure", updErr)
		}
		s.logg.Warn(s.logg.WithField(ctx, "reason", err.Error()), "bank account verification failed")
		return nil, err
	}

	if err := s.repo.Update(ctx, accountID, map[string]any{
		"account_name":        resolved.AccountName,
		"is_verified":         true,
		"verification_status": enums.BankVerificationStatusVerified,
	}); err != nil {
		return nil, err
	}

	s.logg.Info(ctx, "bank account verified")
	return s.repo.GetByID(ctx, accountID)
}

func (s *service) ownedAccount(ctx context.Context, repo Repository, sellerID, accountID uuid.UUID) (*models.SellerBankAccount, error) {
	account, err := repo.GetByID(ctx, accountID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bank account not found")
		}
		return nil, err
	}
	if account.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bank account not found")
	}
	return account, nil
}
