package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/smallbiznis/dairyos/internal/billing/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() billingdomain.Repository {
	return &repo{}
}

const billColumns = `id, customer_id, month, total_quantity_milli, unit_price_paise, total_amount_paise,
	 currency, status, version, generated_at, paid_at, created_at, updated_at`

func (r *repo) FindBill(ctx context.Context, db *gorm.DB, customerID snowflake.ID, month string) (*billingdomain.Bill, error) {
	var bill billingdomain.Bill
	err := db.WithContext(ctx).Raw(
		`SELECT `+billColumns+` FROM bills WHERE customer_id = ? AND month = ?`,
		customerID,
		month,
	).Scan(&bill).Error
	if err != nil {
		return nil, err
	}
	if bill.ID == 0 {
		return nil, nil
	}
	return &bill, nil
}

func (r *repo) FindBillByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*billingdomain.Bill, error) {
	var bill billingdomain.Bill
	err := db.WithContext(ctx).Raw(
		`SELECT `+billColumns+` FROM bills WHERE id = ?`,
		id,
	).Scan(&bill).Error
	if err != nil {
		return nil, err
	}
	if bill.ID == 0 {
		return nil, nil
	}
	return &bill, nil
}

func (r *repo) ListBills(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]billingdomain.Bill, error) {
	var bills []billingdomain.Bill
	err := db.WithContext(ctx).Raw(
		`SELECT `+billColumns+` FROM bills WHERE customer_id = ? ORDER BY month DESC`,
		customerID,
	).Scan(&bills).Error
	if err != nil {
		return nil, err
	}
	return bills, nil
}

func (r *repo) ListBillsForMonth(ctx context.Context, db *gorm.DB, month string) ([]billingdomain.Bill, error) {
	var bills []billingdomain.Bill
	err := db.WithContext(ctx).Raw(
		`SELECT `+billColumns+` FROM bills WHERE month = ? ORDER BY customer_id`,
		month,
	).Scan(&bills).Error
	if err != nil {
		return nil, err
	}
	return bills, nil
}

func (r *repo) InsertBill(ctx context.Context, db *gorm.DB, b *billingdomain.Bill) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO bills (id, customer_id, month, total_quantity_milli, unit_price_paise, total_amount_paise,
		 currency, status, version, generated_at, paid_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID,
		b.CustomerID,
		b.Month,
		b.TotalQuantityMilli,
		b.UnitPricePaise,
		b.TotalAmountPaise,
		b.Currency,
		b.Status,
		b.Version,
		b.GeneratedAt,
		b.PaidAt,
		b.CreatedAt,
		b.UpdatedAt,
	).Error
}

func (r *repo) UpdateBillCAS(ctx context.Context, db *gorm.DB, b *billingdomain.Bill, expectedVersion int64) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE bills
		 SET total_quantity_milli = ?, unit_price_paise = ?, total_amount_paise = ?,
		     version = version + 1, generated_at = ?, updated_at = ?
		 WHERE id = ? AND version = ? AND status = ?`,
		b.TotalQuantityMilli,
		b.UnitPricePaise,
		b.TotalAmountPaise,
		b.GeneratedAt,
		b.UpdatedAt,
		b.ID,
		expectedVersion,
		billingdomain.StatusUnpaid,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) MarkPaidCAS(ctx context.Context, db *gorm.DB, billID snowflake.ID, paidAt time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE bills
		 SET status = ?, paid_at = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND status = ?`,
		billingdomain.StatusPaid,
		paidAt,
		paidAt,
		billID,
		billingdomain.StatusUnpaid,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
