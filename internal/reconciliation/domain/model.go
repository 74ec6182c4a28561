package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	billingdomain "github.com/smallbiznis/dairyos/internal/billing/domain"
	paymentdomain "github.com/smallbiznis/dairyos/internal/payment/domain"
)

// Report is one persisted reconciliation run. Payload holds the
// issue list as JSON so a stored report replays exactly what the run
// saw, independent of later data changes.
type Report struct {
	ID           snowflake.ID   `json:"id" gorm:"primaryKey"`
	RunDate      time.Time      `json:"run_date" gorm:"type:date;not null;index:idx_reconciliation_reports_run_date"`
	GeneratedAt  time.Time      `json:"generated_at" gorm:"not null"`
	IssueCount   int            `json:"issue_count" gorm:"not null;default:0"`
	ErrorCount   int            `json:"error_count" gorm:"not null;default:0"`
	WarningCount int            `json:"warning_count" gorm:"not null;default:0"`
	Payload      datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	CreatedAt    time.Time      `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Report) TableName() string { return "reconciliation_reports" }

const (
	IssueBillWithoutPayment = "bill_without_payment"
	IssueAmountMismatch     = "amount_mismatch"
	IssuePaymentWithoutBill = "payment_without_bill"
)

const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Issue is one discrepancy found by a run. Reconciliation never
// mutates billing state; issues are for human follow-up.
type Issue struct {
	Kind      string `json:"kind"`
	Severity  string `json:"severity"`
	BillID    string `json:"bill_id,omitempty"`
	PaymentID string `json:"payment_id,omitempty"`
	Details   string `json:"details"`
}

type ReportResponse struct {
	ID           string    `json:"id"`
	RunDate      string    `json:"run_date"`
	GeneratedAt  time.Time `json:"generated_at"`
	BillsChecked int       `json:"bills_checked"`
	Payments     int       `json:"payments_checked"`
	IssueCount   int       `json:"issue_count"`
	ErrorCount   int       `json:"error_count"`
	WarningCount int       `json:"warning_count"`
	Issues       []Issue   `json:"issues"`
}

type Service interface {
	// RunReconciliation cross-checks paid bills against recorded
	// payments for one calendar day and persists the resulting report.
	RunReconciliation(ctx context.Context, forDate string) (*ReportResponse, error)
	ListReports(ctx context.Context, limit int) ([]Report, error)
}

type Repository interface {
	ListPaidBillsUpdatedBetween(ctx context.Context, db *gorm.DB, from, to time.Time) ([]billingdomain.Bill, error)
	ListPaymentsReceivedBetween(ctx context.Context, db *gorm.DB, from, to time.Time) ([]paymentdomain.Payment, error)
	InsertReport(ctx context.Context, db *gorm.DB, report *Report) error
	ListReports(ctx context.Context, db *gorm.DB, limit int) ([]Report, error)
}

var ErrInvalidDate = errors.New("invalid_date")
