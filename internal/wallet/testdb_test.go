package wallet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// gormTxRunner satisfies TxRunner directly over a gorm handle for tests.
type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupWalletTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// _txlock=immediate takes the write lock at BEGIN so concurrent
	// transactions queue instead of failing with SQLITE_BUSY mid-commit.
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_busy_timeout=5000&_txlock=immediate"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS sellers (
  id TEXT PRIMARY KEY,
  business_name TEXT NOT NULL,
  contact_name TEXT NOT NULL,
  contact_email TEXT NOT NULL UNIQUE,
  phone TEXT,
  subaccount_code TEXT UNIQUE,
  subaccount_id INTEGER,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
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
		`CREATE TABLE IF NOT EXISTS payment_splits (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  order_amount_kobo INTEGER NOT NULL,
  platform_fee_kobo INTEGER NOT NULL,
  seller_amount_kobo INTEGER NOT NULL,
  transaction_ref TEXT NOT NULL,
  processed_at DATETIME,
  created_at DATETIME,
  UNIQUE (order_id, seller_id)
);`,
		`CREATE TABLE IF NOT EXISTS seller_financial_records (
  seller_id TEXT PRIMARY KEY,
  total_revenue_kobo INTEGER NOT NULL DEFAULT 0,
  actual_received_kobo INTEGER NOT NULL DEFAULT 0,
  available_balance_kobo INTEGER NOT NULL DEFAULT 0,
  total_withdrawn_kobo INTEGER NOT NULL DEFAULT 0,
  pending_withdrawals_kobo INTEGER NOT NULL DEFAULT 0,
  last_updated DATETIME,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS wallet_credits (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  amount_kobo INTEGER NOT NULL,
  source TEXT NOT NULL,
  status TEXT NOT NULL,
  metadata TEXT,
  processed_at DATETIME,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS wallet_transactions (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL,
  order_id TEXT,
  payout_id TEXT,
  amount_kobo INTEGER NOT NULL,
  type TEXT NOT NULL,
  status TEXT NOT NULL,
  description TEXT,
  metadata TEXT,
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
