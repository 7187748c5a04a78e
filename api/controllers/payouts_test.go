package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kasuwa-hq/kasuwa-backend/api/middleware"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/db/models"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kasuwa-hq/kasuwa-backend/pkg/errors"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/logger"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/pagination"
)

type stubPayoutService struct {
	requested    []int64
	requestErr   error
	cancelCalls  int
	lastSellerID uuid.UUID
}

func (s *stubPayoutService) RequestPayout(_ context.Context, sellerID uuid.UUID, amountKobo int64) (*models.PayoutRequest, error) {
	s.lastSellerID = sellerID
	s.requested = append(s.requested, amountKobo)
	if s.requestErr != nil {
		return nil, s.requestErr
	}
	return &models.PayoutRequest{ID: uuid.New(), SellerID: sellerID, Amount: amountKobo, Status: enums.PayoutStatusRequested}, nil
}

func (s *stubPayoutService) CancelPayout(_ context.Context, sellerID, payoutID uuid.UUID) (*models.PayoutRequest, error) {
	s.cancelCalls++
	s.lastSellerID = sellerID
	return &models.PayoutRequest{ID: payoutID, SellerID: sellerID, Status: enums.PayoutStatusRejected}, nil
}

func (s *stubPayoutService) ApprovePayout(_ context.Context, payoutID uuid.UUID, _ string) (*models.PayoutRequest, error) {
	return &models.PayoutRequest{ID: payoutID, Status: enums.PayoutStatusApproved}, nil
}

func (s *stubPayoutService) SettlePayout(_ context.Context, payoutID uuid.UUID, _ string) (*models.PayoutRequest, error) {
	return &models.PayoutRequest{ID: payoutID, Status: enums.PayoutStatusProcessed}, nil
}

func (s *stubPayoutService) RejectPayout(_ context.Context, payoutID uuid.UUID, _ string) (*models.PayoutRequest, error) {
	return &models.PayoutRequest{ID: payoutID, Status: enums.PayoutStatusRejected}, nil
}

func (s *stubPayoutService) GetPayout(_ context.Context, sellerID, payoutID uuid.UUID) (*models.PayoutRequest, error) {
	return &models.PayoutRequest{ID: payoutID, SellerID: sellerID}, nil
}

func (s *stubPayoutService) ListPayouts(_ context.Context, sellerID uuid.UUID, _ pagination.Params) ([]models.PayoutRequest, error) {
	s.lastSellerID = sellerID
	return []models.PayoutRequest{}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func TestRequestPayout(t *testing.T) {
	logg := testLogger()
	sellerID := uuid.New()

	makeRequest := func(ctx context.Context, body string, svc *stubPayoutService) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payouts", strings.NewReader(body))
		req = req.WithContext(ctx)
		rec := httptest.NewRecorder()
		RequestPayout(svc, logg).ServeHTTP(rec, req)
		return rec
	}

	t.Run("creates payout", func(t *testing.T) {
		svc := &stubPayoutService{}
		ctx := middleware.WithSellerID(context.Background(), sellerID.String())
		rec := makeRequest(ctx, `{"amount_kobo":25000}`, svc)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
		}
		if len(svc.requested) != 1 || svc.requested[0] != 25000 {
			t.Fatalf("unexpected request amounts %v", svc.requested)
		}
		if svc.lastSellerID != sellerID {
			t.Fatalf("seller id not propagated")
		}

		var envelope struct {
			Data models.PayoutRequest `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if envelope.Data.Status != enums.PayoutStatusRequested {
			t.Fatalf("expected requested status, got %s", envelope.Data.Status)
		}
	})

	t.Run("missing seller context", func(t *testing.T) {
		svc := &stubPayoutService{}
		rec := makeRequest(context.Background(), `{"amount_kobo":25000}`, svc)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 without seller context, got %d", rec.Code)
		}
		if len(svc.requested) != 0 {
			t.Fatalf("service should not be invoked")
		}
	})

	t.Run("rejects zero amount", func(t *testing.T) {
		svc := &stubPayoutService{}
		ctx := middleware.WithSellerID(context.Background(), sellerID.String())
		rec := makeRequest(ctx, `{"amount_kobo":0}`, svc)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for zero amount, got %d", rec.Code)
		}
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		svc := &stubPayoutService{}
		ctx := middleware.WithSellerID(context.Background(), sellerID.String())
		rec := makeRequest(ctx, `{"amount_kobo":25000,"bank":"GTBank"}`, svc)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
		}
	})

	t.Run("maps below minimum to 422", func(t *testing.T) {
		svc := &stubPayoutService{requestErr: pkgerrors.New(pkgerrors.CodeBelowMinimum, "amount is below the minimum payout")}
		ctx := middleware.WithSellerID(context.Background(), sellerID.String())
		rec := makeRequest(ctx, `{"amount_kobo":500}`, svc)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422 for below minimum, got %d", rec.Code)
		}
	})

	t.Run("maps insufficient balance to 422", func(t *testing.T) {
		svc := &stubPayoutService{requestErr: pkgerrors.New(pkgerrors.CodeInsufficientBalance, "spendable balance is too low")}
		ctx := middleware.WithSellerID(context.Background(), sellerID.String())
		rec := makeRequest(ctx, `{"amount_kobo":900000}`, svc)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422 for insufficient balance, got %d", rec.Code)
		}

		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("decode error envelope: %v", err)
		}
		if envelope.Error.Code != string(pkgerrors.CodeInsufficientBalance) {
			t.Fatalf("unexpected error code %q", envelope.Error.Code)
		}
		if envelope.Error.Message != "spendable balance is too low" {
			t.Fatalf("unexpected error message %q", envelope.Error.Message)
		}
	})
}

func TestCancelPayout(t *testing.T) {
	logg := testLogger()
	sellerID := uuid.New()
	payoutID := uuid.New()

	makeRequest := func(ctx context.Context, rawID string, svc *stubPayoutService) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/payouts/"+rawID, nil)
		routeCtx := chi.NewRouteContext()
		routeCtx.URLParams.Add("payoutId", rawID)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
		req = req.WithContext(ctx)
		rec := httptest.NewRecorder()
		CancelPayout(svc, logg).ServeHTTP(rec, req)
		return rec
	}

	t.Run("cancels payout", func(t *testing.T) {
		svc := &stubPayoutService{}
		ctx := middleware.WithSellerID(context.Background(), sellerID.String())
		rec := makeRequest(ctx, payoutID.String(), svc)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
		}
		if svc.cancelCalls != 1 {
			t.Fatalf("expected one cancel call, got %d", svc.cancelCalls)
		}
	})

	t.Run("invalid payout id", func(t *testing.T) {
		svc := &stubPayoutService{}
		ctx := middleware.WithSellerID(context.Background(), sellerID.String())
		rec := makeRequest(ctx, "not-a-uuid", svc)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for bad id, got %d", rec.Code)
		}
		if svc.cancelCalls != 0 {
			t.Fatalf("service should not be invoked for bad id")
		}
	})
}

func TestAdminSettlePayout(t *testing.T) {
	logg := testLogger()
	payoutID := uuid.New()

	makeRequest := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/payouts/"+payoutID.String()+"/settle", strings.NewReader(body))
		routeCtx := chi.NewRouteContext()
		routeCtx.URLParams.Add("payoutId", payoutID.String())
		req = req.WithContext(context.WithValue(context.Background(), chi.RouteCtxKey, routeCtx))
		rec := httptest.NewRecorder()
		AdminSettlePayout(&stubPayoutService{}, logg).ServeHTTP(rec, req)
		return rec
	}

	t.Run("settles with transfer reference", func(t *testing.T) {
		rec := makeRequest(`{"transfer_reference":"TRF-2024-0001"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
		}

		var envelope struct {
			Data models.PayoutRequest `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if envelope.Data.Status != enums.PayoutStatusProcessed {
			t.Fatalf("expected processed status, got %s", envelope.Data.Status)
		}
	})

	t.Run("requires transfer reference", func(t *testing.T) {
		rec := makeRequest(`{}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 without transfer reference, got %d", rec.Code)
		}
	})
}
