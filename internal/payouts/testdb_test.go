package payouts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupPayoutTestDB(t *testing.T) *gorm.DB {
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
		`CREATE TABLE IF NOT EXISTS seller_bank_accounts (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL,
  bank_name TEXT NOT NULL,
  bank_code TEXT NOT NULL,
  account_number TEXT NOT NULL,
  account_name TEXT NOT NULL,
  is_default INTEGER NOT NULL DEFAULT 0,
  is_verified INTEGER NOT NULL DEFAULT 0,
  verification_status TEXT NOT NULL DEFAULT 'pending',
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS payout_requests (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL,
  amount_kobo INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'NGN',
  status TEXT NOT NULL,
  bank_name TEXT NOT NULL,
  bank_code TEXT NOT NULL,
  account_number TEXT NOT NULL,
  account_name TEXT NOT NULL,
  transfer_reference TEXT,
  admin_notes TEXT,
  requested_at DATETIME,
  approved_at DATETIME,
  processed_at DATETIME,
  rejected_at DATETIME,
  updated_at DATETIME
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
