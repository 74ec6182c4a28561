package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	billingdomain "github.com/smallbiznis/dairyos/internal/billing/domain"
	billingrepo "github.com/smallbiznis/dairyos/internal/billing/repository"
	"github.com/smallbiznis/dairyos/internal/clock"
	"github.com/smallbiznis/dairyos/internal/config"
	paymentdomain "github.com/smallbiznis/dairyos/internal/payment/domain"
	paymentrepo "github.com/smallbiznis/dairyos/internal/payment/repository"
	"github.com/smallbiznis/dairyos/internal/reconciliation/domain"
	reconrepo "github.com/smallbiznis/dairyos/internal/reconciliation/repository"
)

type fixture struct {
	svc  domain.Service
	db   *gorm.DB
	fake *clock.FakeClock
	node *snowflake.Node
}

func setup(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:recon_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&billingdomain.Bill{},
		&paymentdomain.Payment{},
		&domain.Report{},
	))

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2026, 3, 6, 2, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fake,
		Policy:   config.NewStaticBillingPolicyHolder(config.DefaultBillingPolicy()),
		Repo:     reconrepo.Provide(),
		BillRepo: billingrepo.Provide(),
		PayRepo:  paymentrepo.Provide(),
	})

	return &fixture{svc: svc, db: db, fake: fake, node: node}
}

func (f *fixture) seedPaidBill(t *testing.T, amountPaise int64, updatedAt time.Time) *billingdomain.Bill {
	t.Helper()

	paidAt := updatedAt
	bill := &billingdomain.Bill{
		ID:                 f.node.Generate(),
		CustomerID:         f.node.Generate(),
		Month:              "2026-02",
		TotalQuantityMilli: 280000,
		UnitPricePaise:     6000,
		TotalAmountPaise:   amountPaise,
		Currency:           "INR",
		Status:             billingdomain.StatusPaid,
		Version:            1,
		GeneratedAt:        updatedAt,
		PaidAt:             &paidAt,
		CreatedAt:          updatedAt,
		UpdatedAt:          updatedAt,
	}
	require.NoError(t, f.db.Create(bill).Error)
	return bill
}

func (f *fixture) seedPayment(t *testing.T, billID *snowflake.ID, amountPaise int64, status string, receivedAt time.Time) *paymentdomain.Payment {
	t.Helper()

	pay := &paymentdomain.Payment{
		ID:              f.node.Generate(),
		BillID:          billID,
		CustomerID:      f.node.Generate(),
		Provider:        "razorpay",
		ProviderEventID: f.node.Generate().String(),
		AmountPaise:     amountPaise,
		Currency:        "INR",
		Status:          status,
		ReceivedAt:      receivedAt,
		CreatedAt:       receivedAt,
	}
	require.NoError(t, f.db.Create(pay).Error)
	return pay
}

func TestCleanDayProducesEmptyReport(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	day := time.Date(2026, 3, 5, 14, 0, 0, 0, time.UTC)
	bill := f.seedPaidBill(t, 1680000, day)
	f.seedPayment(t, &bill.ID, 1680000, paymentdomain.StatusCaptured, day)

	report, err := f.svc.RunReconciliation(ctx, "2026-03-05")
	require.NoError(t, err)
	assert.Equal(t, 1, report.BillsChecked)
	assert.Equal(t, 1, report.Payments)
	assert.Zero(t, report.IssueCount)
	assert.Empty(t, report.Issues)
}

func TestPaidBillWithoutPayment(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	day := time.Date(2026, 3, 5, 14, 0, 0, 0, time.UTC)
	bill := f.seedPaidBill(t, 1680000, day)

	report, err := f.svc.RunReconciliation(ctx, "2026-03-05")
	require.NoError(t, err)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, domain.IssueBillWithoutPayment, report.Issues[0].Kind)
	assert.Equal(t, domain.SeverityError, report.Issues[0].Severity)
	assert.Equal(t, bill.ID.String(), report.Issues[0].BillID)
	assert.Equal(t, 1, report.ErrorCount)
}

func TestFailedPaymentDoesNotSettleBill(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	day := time.Date(2026, 3, 5, 14, 0, 0, 0, time.UTC)
	bill := f.seedPaidBill(t, 1680000, day)
	f.seedPayment(t, &bill.ID, 0, paymentdomain.StatusFailed, day)

	report, err := f.svc.RunReconciliation(ctx, "2026-03-05")
	require.NoError(t, err)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, domain.IssueBillWithoutPayment, report.Issues[0].Kind)
}

func TestAmountMismatch(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	day := time.Date(2026, 3, 5, 14, 0, 0, 0, time.UTC)
	bill := f.seedPaidBill(t, 1680000, day)
	f.seedPayment(t, &bill.ID, 1670000, paymentdomain.StatusCaptured, day)

	report, err := f.svc.RunReconciliation(ctx, "2026-03-05")
	require.NoError(t, err)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, domain.IssueAmountMismatch, report.Issues[0].Kind)
	assert.Equal(t, domain.SeverityError, report.Issues[0].Severity)
	assert.Contains(t, report.Issues[0].Details, "16700.00")
	assert.Contains(t, report.Issues[0].Details, "16800.00")
}

func TestMismatchWithinToleranceIgnored(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	day := time.Date(2026, 3, 5, 14, 0, 0, 0, time.UTC)
	bill := f.seedPaidBill(t, 1680000, day)
	// One paisa off is inside the default tolerance.
	f.seedPayment(t, &bill.ID, 1679999, paymentdomain.StatusCaptured, day)

	report, err := f.svc.RunReconciliation(ctx, "2026-03-05")
	require.NoError(t, err)
	assert.Zero(t, report.IssueCount)
}

func TestPaymentWithoutBill(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	day := time.Date(2026, 3, 5, 14, 0, 0, 0, time.UTC)
	danglingBill := f.node.Generate()
	pay := f.seedPayment(t, &danglingBill, 1680000, paymentdomain.StatusCaptured, day)

	report, err := f.svc.RunReconciliation(ctx, "2026-03-05")
	require.NoError(t, err)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, domain.IssuePaymentWithoutBill, report.Issues[0].Kind)
	assert.Equal(t, domain.SeverityWarning, report.Issues[0].Severity)
	assert.Equal(t, pay.ID.String(), report.Issues[0].PaymentID)
	assert.Equal(t, 1, report.WarningCount)
}

func TestRunScopedToRequestedDay(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	// A discrepancy from another day must not leak into this run.
	f.seedPaidBill(t, 1680000, time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC))

	report, err := f.svc.RunReconciliation(ctx, "2026-03-05")
	require.NoError(t, err)
	assert.Zero(t, report.BillsChecked)
	assert.Zero(t, report.IssueCount)
}

func TestRunPersistsReport(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	day := time.Date(2026, 3, 5, 14, 0, 0, 0, time.UTC)
	f.seedPaidBill(t, 1680000, day)

	_, err := f.svc.RunReconciliation(ctx, "2026-03-05")
	require.NoError(t, err)
	_, err = f.svc.RunReconciliation(ctx, "2026-03-05")
	require.NoError(t, err)

	reports, err := f.svc.ListReports(ctx, 10)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, 1, reports[0].IssueCount)
	assert.Equal(t, 1, reports[0].ErrorCount)
	assert.Contains(t, string(reports[0].Payload), domain.IssueBillWithoutPayment)
}

func TestInvalidDate(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.svc.RunReconciliation(ctx, "05-03-2026")
	assert.ErrorIs(t, err, domain.ErrInvalidDate)
}
