package controllers

import (
	"net/http"

	"github.com/kasuwa-hq/kasuwa-backend/api/responses"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/banks"
)

// ListBanks returns the supported Nigerian bank directory.
func ListBanks() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, banks.All())
	}
}
