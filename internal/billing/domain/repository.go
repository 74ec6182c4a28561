package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindBill(ctx context.Context, db *gorm.DB, customerID snowflake.ID, month string) (*Bill, error)
	FindBillByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Bill, error)
	ListBills(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]Bill, error)
	ListBillsForMonth(ctx context.Context, db *gorm.DB, month string) ([]Bill, error)
	InsertBill(ctx context.Context, db *gorm.DB, bill *Bill) error

	// UpdateBillCAS rewrites the bill's totals guarded by the expected
	// version and UNPAID status; it reports whether a row matched.
	UpdateBillCAS(ctx context.Context, db *gorm.DB, bill *Bill, expectedVersion int64) (bool, error)

	// MarkPaidCAS flips an UNPAID bill to PAID; it reports whether a
	// row matched.
	MarkPaidCAS(ctx context.Context, db *gorm.DB, billID snowflake.ID, paidAt time.Time) (bool, error)
}
