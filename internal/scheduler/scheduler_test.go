package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	billingdomain "github.com/smallbiznis/dairyos/internal/billing/domain"
	"github.com/smallbiznis/dairyos/internal/clock"
	"github.com/smallbiznis/dairyos/internal/locks"
	recondomain "github.com/smallbiznis/dairyos/internal/reconciliation/domain"
)

type mockBillingSvc struct {
	months []string
}

func (m *mockBillingSvc) Generate(ctx context.Context, req billingdomain.GenerateRequest) (*billingdomain.BillResponse, error) {
	return nil, nil
}

func (m *mockBillingSvc) GenerateAll(ctx context.Context, month string) (*billingdomain.BatchResponse, error) {
	m.months = append(m.months, month)
	return &billingdomain.BatchResponse{Month: month}, nil
}

func (m *mockBillingSvc) GetBill(ctx context.Context, customerID, month string) (*billingdomain.BillResponse, error) {
	return nil, nil
}

func (m *mockBillingSvc) ListBills(ctx context.Context, customerID string) ([]billingdomain.BillResponse, error) {
	return nil, nil
}

type mockReconSvc struct {
	dates []string
	fail  error
}

func (m *mockReconSvc) RunReconciliation(ctx context.Context, forDate string) (*recondomain.ReportResponse, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	m.dates = append(m.dates, forDate)
	return &recondomain.ReportResponse{RunDate: forDate}, nil
}

func (m *mockReconSvc) ListReports(ctx context.Context, limit int) ([]recondomain.Report, error) {
	return nil, nil
}

func newScheduler(t *testing.T, start time.Time) (*Scheduler, *clock.FakeClock, *mockBillingSvc, *mockReconSvc) {
	t.Helper()

	fake := clock.NewFakeClock(start)
	billing := &mockBillingSvc{}
	recon := &mockReconSvc{}

	sched, err := New(Params{
		Log:        zap.NewNop(),
		Clock:      fake,
		Locker:     locks.NewMemoryLocker(fake),
		BillingSvc: billing,
		ReconSvc:   recon,
	})
	require.NoError(t, err)
	return sched, fake, billing, recon
}

func TestGenerateRunsOnFirstOfMonth(t *testing.T) {
	ctx := context.Background()
	sched, _, billing, _ := newScheduler(t, time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC))

	require.NoError(t, sched.RunOnce(ctx))
	assert.Equal(t, []string{"2026-02"}, billing.months)
}

func TestGenerateSkipsOtherDays(t *testing.T) {
	ctx := context.Background()
	sched, _, billing, _ := newScheduler(t, time.Date(2026, 3, 15, 3, 0, 0, 0, time.UTC))

	require.NoError(t, sched.RunOnce(ctx))
	assert.Empty(t, billing.months)
}

func TestGenerateRunsOncePerDay(t *testing.T) {
	ctx := context.Background()
	sched, fake, billing, _ := newScheduler(t, time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC))

	// Hourly ticks through the day must not regenerate the month.
	for i := 0; i < 5; i++ {
		require.NoError(t, sched.RunOnce(ctx))
		fake.Advance(time.Hour)
	}
	assert.Equal(t, []string{"2026-02"}, billing.months)
}

func TestReconcileRunsDaily(t *testing.T) {
	ctx := context.Background()
	sched, fake, _, recon := newScheduler(t, time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC))

	for day := 0; day < 3; day++ {
		for hour := 0; hour < 24; hour++ {
			require.NoError(t, sched.RunOnce(ctx))
			fake.Advance(time.Hour)
		}
	}
	assert.Equal(t, []string{"2026-03-09", "2026-03-10", "2026-03-11"}, recon.dates)
}

func TestReconcileRetriesAfterFailure(t *testing.T) {
	ctx := context.Background()
	sched, _, _, recon := newScheduler(t, time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC))

	recon.fail = assert.AnError
	err := sched.RunOnce(ctx)
	require.Error(t, err)

	// The lease was released on failure, so the next tick retries.
	recon.fail = nil
	require.NoError(t, sched.RunOnce(ctx))
	assert.Equal(t, []string{"2026-03-09"}, recon.dates)
}

func TestEnabledJobsFilter(t *testing.T) {
	ctx := context.Background()
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC))
	billing := &mockBillingSvc{}
	recon := &mockReconSvc{}

	sched, err := New(Params{
		Log:        zap.NewNop(),
		Clock:      fake,
		Locker:     locks.NewMemoryLocker(fake),
		BillingSvc: billing,
		ReconSvc:   recon,
		Config:     Config{EnabledJobs: []string{jobReconcile}},
	})
	require.NoError(t, err)

	require.NoError(t, sched.RunOnce(ctx))
	assert.Empty(t, billing.months)
	assert.Len(t, recon.dates, 1)
}

func TestNewRejectsMissingDeps(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
