package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	billingdomain "github.com/smallbiznis/dairyos/internal/billing/domain"
	"github.com/smallbiznis/dairyos/internal/clock"
	"github.com/smallbiznis/dairyos/internal/config"
	"github.com/smallbiznis/dairyos/internal/money"
	"github.com/smallbiznis/dairyos/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/dairyos/internal/payment/domain"
	"github.com/smallbiznis/dairyos/internal/reconciliation/domain"
)

const (
	dateLayout       = "2006-01-02"
	defaultListLimit = 30
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Policy  *config.BillingPolicyHolder
	Metrics *metrics.Metrics `optional:"true"`

	Repo     domain.Repository
	BillRepo billingdomain.Repository
	PayRepo  paymentdomain.Repository
}

type reconService struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	policy  *config.BillingPolicyHolder
	metrics *metrics.Metrics

	repo     domain.Repository
	billRepo billingdomain.Repository
	payRepo  paymentdomain.Repository
}

func New(p Params) domain.Service {
	return &reconService{
		db:       p.DB,
		log:      p.Log.Named("reconciliation.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		policy:   p.Policy,
		metrics:  p.Metrics,
		repo:     p.Repo,
		billRepo: p.BillRepo,
		payRepo:  p.PayRepo,
	}
}

// RunReconciliation is a read-only audit pass over one day of
// settlement activity. Discrepancies are report data; the run never
// touches bills or payments.
func (s *reconService) RunReconciliation(ctx context.Context, forDate string) (*domain.ReportResponse, error) {
	day := clock.Today(s.clock)
	if forDate != "" {
		parsed, err := time.ParseInLocation(dateLayout, forDate, time.UTC)
		if err != nil {
			return nil, domain.ErrInvalidDate
		}
		day = parsed
	}
	from := day
	to := day.AddDate(0, 0, 1)

	report, err := s.runDay(ctx, day, from, to)
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	s.metrics.RecordReconciliationRun(result)
	return report, err
}

func (s *reconService) runDay(ctx context.Context, day, from, to time.Time) (*domain.ReportResponse, error) {
	issues := make([]domain.Issue, 0)

	bills, err := s.repo.ListPaidBillsUpdatedBetween(ctx, s.db, from, to)
	if err != nil {
		return nil, err
	}
	for i := range bills {
		issue, err := s.checkPaidBill(ctx, &bills[i])
		if err != nil {
			return nil, err
		}
		if issue != nil {
			issues = append(issues, *issue)
		}
	}

	payments, err := s.repo.ListPaymentsReceivedBetween(ctx, s.db, from, to)
	if err != nil {
		return nil, err
	}
	for i := range payments {
		issue, err := s.checkPayment(ctx, &payments[i])
		if err != nil {
			return nil, err
		}
		if issue != nil {
			issues = append(issues, *issue)
		}
	}

	errorCount, warningCount := 0, 0
	for _, issue := range issues {
		s.metrics.RecordReconciliationIssue(issue.Kind)
		if issue.Severity == domain.SeverityError {
			errorCount++
		} else {
			warningCount++
		}
	}

	payload, err := json.Marshal(issues)
	if err != nil {
		return nil, err
	}
	record := &domain.Report{
		ID:           s.genID.Generate(),
		RunDate:      day,
		GeneratedAt:  s.clock.Now(),
		IssueCount:   len(issues),
		ErrorCount:   errorCount,
		WarningCount: warningCount,
		Payload:      datatypes.JSON(payload),
		CreatedAt:    s.clock.Now(),
	}
	if err := s.repo.InsertReport(ctx, s.db, record); err != nil {
		return nil, err
	}

	s.log.Info("reconciliation run complete",
		zap.String("run_date", day.Format(dateLayout)),
		zap.Int("bills_checked", len(bills)),
		zap.Int("payments_checked", len(payments)),
		zap.Int("errors", errorCount),
		zap.Int("warnings", warningCount))

	return &domain.ReportResponse{
		ID:           record.ID.String(),
		RunDate:      day.Format(dateLayout),
		GeneratedAt:  record.GeneratedAt,
		BillsChecked: len(bills),
		Payments:     len(payments),
		IssueCount:   len(issues),
		ErrorCount:   errorCount,
		WarningCount: warningCount,
		Issues:       issues,
	}, nil
}

func (s *reconService) checkPaidBill(ctx context.Context, bill *billingdomain.Bill) (*domain.Issue, error) {
	payments, err := s.payRepo.ListByBill(ctx, s.db, bill.ID)
	if err != nil {
		return nil, err
	}

	captured := int64(0)
	capturedCount := 0
	for _, p := range payments {
		if p.Status == paymentdomain.StatusCaptured {
			captured += p.AmountPaise
			capturedCount++
		}
	}

	if capturedCount == 0 {
		// A paid bill with no payment record usually means a missed
		// webhook or an operator override.
		return &domain.Issue{
			Kind:     domain.IssueBillWithoutPayment,
			Severity: domain.SeverityError,
			BillID:   bill.ID.String(),
			Details:  fmt.Sprintf("bill %s is PAID with no captured payment on record", bill.Month),
		}, nil
	}

	diff := captured - bill.TotalAmountPaise
	if diff < 0 {
		diff = -diff
	}
	if diff > s.policy.Get().ReconcileTolerance {
		return &domain.Issue{
			Kind:     domain.IssueAmountMismatch,
			Severity: domain.SeverityError,
			BillID:   bill.ID.String(),
			Details: fmt.Sprintf("captured %s against bill total %s",
				money.FormatAmount(captured), money.FormatAmount(bill.TotalAmountPaise)),
		}, nil
	}
	return nil, nil
}

func (s *reconService) checkPayment(ctx context.Context, payment *paymentdomain.Payment) (*domain.Issue, error) {
	if payment.BillID == nil {
		return &domain.Issue{
			Kind:      domain.IssuePaymentWithoutBill,
			Severity:  domain.SeverityWarning,
			PaymentID: payment.ID.String(),
			Details:   "payment carries no bill reference",
		}, nil
	}

	bill, err := s.billRepo.FindBillByID(ctx, s.db, *payment.BillID)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return &domain.Issue{
			Kind:      domain.IssuePaymentWithoutBill,
			Severity:  domain.SeverityWarning,
			BillID:    payment.BillID.String(),
			PaymentID: payment.ID.String(),
			Details:   "payment references a bill that no longer exists",
		}, nil
	}
	return nil, nil
}

func (s *reconService) ListReports(ctx context.Context, limit int) ([]domain.Report, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.repo.ListReports(ctx, s.db, limit)
}
