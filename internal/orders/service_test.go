package orders

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kasuwa-hq/kasuwa-backend/pkg/db/models"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kasuwa-hq/kasuwa-backend/pkg/errors"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/logger"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/outbox"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/pagination"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/paystack"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// fakeGateway scripts charge verification per reference.
type fakeGateway struct {
	initCalls    int
	verifyCalls  int
	transactions map[string]*paystack.Transaction
}

func (f *fakeGateway) InitializeTransaction(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializedTransaction, error) {
	f.initCalls++
	ref := "PSK_" + uuid.NewString()[:8]
	return &paystack.InitializedTransaction{
		AuthorizationURL: "https://checkout.paystack.com/" + ref,
		AccessCode:       "AC_" + ref,
		Reference:        ref,
	}, nil
}

func (f *fakeGateway) VerifyTransaction(ctx context.Context, reference string) (*paystack.Transaction, error) {
	f.verifyCalls++
	txn, ok := f.transactions[reference]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeProviderRejected, "transaction reference not found")
	}
	return txn, nil
}

func setupOrderTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number INTEGER NOT NULL UNIQUE,
  buyer_id TEXT NOT NULL,
  buyer_name TEXT NOT NULL,
  buyer_email TEXT NOT NULL,
  total_kobo INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'NGN',
  status TEXT NOT NULL DEFAULT 'pending',
  payment_reference TEXT UNIQUE,
  wallet_credits_processed INTEGER NOT NULL DEFAULT 0,
  paid_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_line_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT,
  seller_id TEXT,
  name TEXT NOT NULL,
  unit_price_kobo INTEGER NOT NULL,
  qty INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT,
  UNIQUE (event_type, aggregate_type, aggregate_id)
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newOrderService(t *testing.T, db *gorm.DB, gateway PaymentGateway) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "orders-test", Output: io.Discard})
	events := outbox.NewService(outbox.NewRepository(db), logg)
	svc, err := NewService(gormTxRunner{db: db}, NewRepository(db), gateway, events, logg)
	require.NoError(t, err)
	return svc
}

func seedOrder(t *testing.T, db *gorm.DB, number int64, status enums.OrderStatus, items []models.OrderLineItem) *models.Order {
	t.Helper()
	var total int64
	for i := range items {
		items[i].ID = uuid.New()
		total += items[i].LineTotal()
	}
	order := &models.Order{
		ID:          uuid.New(),
		OrderNumber: number,
		BuyerID:     uuid.New(),
		BuyerName:   "Chinwe Obi",
		BuyerEmail:  "chinwe@example.com",
		TotalKobo:   total,
		Currency:    enums.CurrencyNGN,
		Status:      status,
		Items:       items,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestConfirmPaymentMarksOrderPaid(t *testing.T) {
	db := setupOrderTestDB(t)
	sellerID := uuid.New()
	order := seedOrder(t, db, 2001, enums.OrderStatusPending, []models.OrderLineItem{
		{SellerID: sellerID, Name: "Aso oke", UnitPriceKobo: 12_000, Qty: 1},
	})

	ref := "PSK_abc123"
	gateway := &fakeGateway{transactions: map[string]*paystack.Transaction{
		ref: {Status: "success", Reference: ref, AmountKobo: order.TotalKobo},
	}}
	svc := newOrderService(t, db, gateway)

	confirmed, err := svc.ConfirmPayment(context.Background(), order.ID, ref)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, confirmed.Status)
	require.NotNil(t, confirmed.PaymentReference)
	assert.Equal(t, ref, *confirmed.PaymentReference)
	assert.NotNil(t, confirmed.PaidAt)

	var eventCount int64
	require.NoError(t, db.Table("outbox_events").
		Where("event_type = ? AND aggregate_id = ?", enums.EventOrderPaid, order.ID).
		Count(&eventCount).Error)
	assert.Equal(t, int64(1), eventCount)

	// Replayed confirmation is a quiet no-op.
	again, err := svc.ConfirmPayment(context.Background(), order.ID, ref)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, again.Status)
	assert.Equal(t, 1, gateway.verifyCalls)
}

func TestConfirmPaymentAmountMismatch(t *testing.T) {
	db := setupOrderTestDB(t)
	order := seedOrder(t, db, 2002, enums.OrderStatusPending, []models.OrderLineItem{
		{SellerID: uuid.New(), Name: "Shea butter", UnitPriceKobo: 4_000, Qty: 2},
	})

	ref := "PSK_short"
	gateway := &fakeGateway{transactions: map[string]*paystack.Transaction{
		ref: {Status: "success", Reference: ref, AmountKobo: order.TotalKobo - 1},
	}}
	svc := newOrderService(t, db, gateway)

	_, err := svc.ConfirmPayment(context.Background(), order.ID, ref)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))

	var stored models.Order
	require.NoError(t, db.Where("id = ?", order.ID).First(&stored).Error)
	assert.Equal(t, enums.OrderStatusPending, stored.Status)
}

func TestConfirmPaymentFailedCharge(t *testing.T) {
	db := setupOrderTestDB(t)
	order := seedOrder(t, db, 2003, enums.OrderStatusPending, []models.OrderLineItem{
		{SellerID: uuid.New(), Name: "Kente strip", UnitPriceKobo: 9_000, Qty: 1},
	})

	ref := "PSK_failed"
	gateway := &fakeGateway{transactions: map[string]*paystack.Transaction{
		ref: {Status: "failed", Reference: ref, AmountKobo: order.TotalKobo},
	}}
	svc := newOrderService(t, db, gateway)

	_, err := svc.ConfirmPayment(context.Background(), order.ID, ref)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeProviderRejected))
}

func TestConfirmPaymentByReference(t *testing.T) {
	db := setupOrderTestDB(t)
	order := seedOrder(t, db, 2004, enums.OrderStatusPending, []models.OrderLineItem{
		{SellerID: uuid.New(), Name: "Raffia basket", UnitPriceKobo: 3_500, Qty: 2},
	})
	ref := "PSK_webhook"
	require.NoError(t, db.Model(&models.Order{}).
		Where("id = ?", order.ID).
		Update("payment_reference", ref).Error)

	gateway := &fakeGateway{transactions: map[string]*paystack.Transaction{
		ref: {Status: "success", Reference: ref, AmountKobo: order.TotalKobo},
	}}
	svc := newOrderService(t, db, gateway)

	confirmed, err := svc.ConfirmPaymentByReference(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, order.ID, confirmed.ID)
	assert.Equal(t, enums.OrderStatusPaid, confirmed.Status)

	_, err = svc.ConfirmPaymentByReference(context.Background(), "PSK_unknown")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestInitializePaymentStoresReference(t *testing.T) {
	db := setupOrderTestDB(t)
	order := seedOrder(t, db, 2005, enums.OrderStatusPending, []models.OrderLineItem{
		{SellerID: uuid.New(), Name: "Ankara bolt", UnitPriceKobo: 20_000, Qty: 1},
	})
	gateway := &fakeGateway{}
	svc := newOrderService(t, db, gateway)

	checkout, err := svc.InitializePayment(context.Background(), order.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, checkout.AuthorizationURL)
	assert.NotEmpty(t, checkout.Reference)

	var stored models.Order
	require.NoError(t, db.Where("id = ?", order.ID).First(&stored).Error)
	require.NotNil(t, stored.PaymentReference)
	assert.Equal(t, checkout.Reference, *stored.PaymentReference)

	// A paid order cannot be re-initialized.
	require.NoError(t, db.Model(&models.Order{}).
		Where("id = ?", order.ID).
		Update("status", enums.OrderStatusPaid).Error)
	_, err = svc.InitializePayment(context.Background(), order.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
}

func TestOrderReadsAreSellerScoped(t *testing.T) {
	db := setupOrderTestDB(t)
	svc := newOrderService(t, db, nil)
	sellerA := uuid.New()
	sellerB := uuid.New()
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := int64(0); i < 3; i++ {
		order := seedOrder(t, db, 3000+i, enums.OrderStatusPending, []models.OrderLineItem{
			{SellerID: sellerA, Name: "Item", UnitPriceKobo: 1_000, Qty: 1},
		})
		// Spread creation times so cursor ordering is deterministic.
		require.NoError(t, db.Model(&models.Order{}).
			Where("id = ?", order.ID).
			Update("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
	}
	shared := seedOrder(t, db, 3003, enums.OrderStatusPending, []models.OrderLineItem{
		{SellerID: sellerA, Name: "Shared", UnitPriceKobo: 1_000, Qty: 1},
		{SellerID: sellerB, Name: "Shared", UnitPriceKobo: 2_000, Qty: 1},
	})
	foreign := seedOrder(t, db, 3004, enums.OrderStatusPending, []models.OrderLineItem{
		{SellerID: sellerB, Name: "Foreign", UnitPriceKobo: 5_000, Qty: 1},
	})

	listed, err := svc.ListOrders(ctx, sellerA, pagination.Params{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, listed, 4)

	// Shared orders are visible to both sellers.
	got, err := svc.GetOrder(ctx, sellerB, shared.ID)
	require.NoError(t, err)
	assert.Equal(t, shared.ID, got.ID)

	// Orders without the seller's items read as not found.
	_, err = svc.GetOrder(ctx, sellerA, foreign.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}
