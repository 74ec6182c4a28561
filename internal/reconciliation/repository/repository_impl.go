package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	billingdomain "github.com/smallbiznis/dairyos/internal/billing/domain"
	paymentdomain "github.com/smallbiznis/dairyos/internal/payment/domain"
	recondomain "github.com/smallbiznis/dairyos/internal/reconciliation/domain"
)

type repo struct{}

func Provide() recondomain.Repository {
	return &repo{}
}

func (r *repo) ListPaidBillsUpdatedBetween(ctx context.Context, db *gorm.DB, from, to time.Time) ([]billingdomain.Bill, error) {
	var bills []billingdomain.Bill
	err := db.WithContext(ctx).Raw(
		`SELECT id, customer_id, month, total_quantity_milli, unit_price_paise, total_amount_paise,
		 currency, status, version, generated_at, paid_at, created_at, updated_at
		 FROM bills
		 WHERE status = ? AND updated_at >= ? AND updated_at < ?
		 ORDER BY id`,
		billingdomain.StatusPaid,
		from,
		to,
	).Scan(&bills).Error
	if err != nil {
		return nil, err
	}
	return bills, nil
}

func (r *repo) ListPaymentsReceivedBetween(ctx context.Context, db *gorm.DB, from, to time.Time) ([]paymentdomain.Payment, error) {
	var payments []paymentdomain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT id, bill_id, customer_id, provider, provider_event_id, provider_payment_id,
		 amount_paise, currency, status, raw_payload, received_at, created_at
		 FROM payments
		 WHERE received_at >= ? AND received_at < ?
		 ORDER BY received_at`,
		from,
		to,
	).Scan(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repo) InsertReport(ctx context.Context, db *gorm.DB, report *recondomain.Report) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO reconciliation_reports (id, run_date, generated_at, issue_count, error_count, warning_count, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ID,
		report.RunDate,
		report.GeneratedAt,
		report.IssueCount,
		report.ErrorCount,
		report.WarningCount,
		report.Payload,
		report.CreatedAt,
	).Error
}

func (r *repo) ListReports(ctx context.Context, db *gorm.DB, limit int) ([]recondomain.Report, error) {
	var reports []recondomain.Report
	err := db.WithContext(ctx).Raw(
		`SELECT id, run_date, generated_at, issue_count, error_count, warning_count, payload, created_at
		 FROM reconciliation_reports
		 ORDER BY generated_at DESC
		 LIMIT ?`,
		limit,
	).Scan(&reports).Error
	if err != nil {
		return nil, err
	}
	return reports, nil
}
