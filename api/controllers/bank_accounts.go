package controllers

import (
	"net/http"

	"github.com/kasuwa-hq/kasuwa-backend/api/responses"
	"github.com/kasuwa-hq/kasuwa-backend/api/validators"
	banksvc "github.com/kasuwa-hq/kasuwa-backend/internal/bankaccounts"
	pkgerrors "github.com/kasuwa-hq/kasuwa-backend/pkg/errors"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/logger"
)

type bankAccountRequest struct {
	Bank          string `json:"bank" validate:"required,max=64"`
	AccountNumber string `json:"account_number" validate:"required,len=10,numeric"`
	AccountName   string `json:"account_name" validate:"required,max=128"`
}

func (b bankAccountRequest) toInput() banksvc.AccountInput {
	return banksvc.AccountInput{
		Bank:          validators.SanitizeString(b.Bank, 64),
		AccountNumber: validators.SanitizeString(b.AccountNumber, 10),
		AccountName:   validators.SanitizeString(b.AccountName, 128),
	}
}

// ListBankAccounts returns the seller's payout destinations, default first.
func ListBankAccounts(svc banksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := sellerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		accounts, err := svc.ListAccounts(r.Context(), sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, accounts)
	}
}

// AddBankAccount registers a new payout destination for the seller.
func AddBankAccount(svc banksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bank account service unavailable"))
			return
		}

		sellerID, err := sellerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload bankAccountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := svc.AddAccount(r.Context(), sellerID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, account)
	}
}

// UpdateBankAccount edits a payout destination. Changing the bank or number
// resets verification.
func UpdateBankAccount(svc banksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := sellerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		accountID, err := pathUUID(r, "accountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload bankAccountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := svc.UpdateAccount(r.Context(), sellerID, accountID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, account)
	}
}

// DeleteBankAccount removes a payout destination.
func DeleteBankAccount(svc banksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := sellerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		accountID, err := pathUUID(r, "accountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteAccount(r.Context(), sellerID, accountID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// VerifyBankAccount resolves the account against the payment provider.
func VerifyBankAccount(svc banksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := sellerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		accountID, err := pathUUID(r, "accountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := svc.VerifyAccount(r.Context(), sellerID, accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, account)
	}
}

// SetDefaultBankAccount marks an account as the payout destination.
func SetDefaultBankAccount(svc banksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := sellerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		accountID, err := pathUUID(r, "accountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := svc.SetDefaultAccount(r.Context(), sellerID, accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, account)
	}
}
