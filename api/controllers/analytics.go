package controllers

import (
	"net/http"

	"github.com/kasuwa-hq/kasuwa-backend/api/responses"
	analyticsvc "github.com/kasuwa-hq/kasuwa-backend/internal/analytics"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/logger"
)

// AnalyticsSummary returns the seller dashboard headline numbers.
func AnalyticsSummary(svc analyticsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := sellerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.GetSummary(r.Context(), sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}
