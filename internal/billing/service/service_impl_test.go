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
	consumptiondomain "github.com/smallbiznis/dairyos/internal/consumption/domain"
	consumptionrepo "github.com/smallbiznis/dairyos/internal/consumption/repository"
	consumptionservice "github.com/smallbiznis/dairyos/internal/consumption/service"
	"github.com/smallbiznis/dairyos/internal/locks"
	pricedomain "github.com/smallbiznis/dairyos/internal/pricecatalog/domain"
	pricerepo "github.com/smallbiznis/dairyos/internal/pricecatalog/repository"
	priceservice "github.com/smallbiznis/dairyos/internal/pricecatalog/service"
)

type fixture struct {
	svc    *Service
	db     *gorm.DB
	fake   *clock.FakeClock
	node   *snowflake.Node
	locker *locks.MemoryLocker
	policy *config.BillingPolicyHolder
}

func setup(t *testing.T, policy config.BillingPolicy) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:billing_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&pricedomain.Customer{},
		&pricedomain.CustomerPrice{},
		&consumptiondomain.Entry{},
		&consumptiondomain.Audit{},
		&billingdomain.Bill{},
	))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC))
	holder := config.NewStaticBillingPolicyHolder(policy)
	locker := locks.NewMemoryLocker(fake)

	catalogSvc := priceservice.New(priceservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  pricerepo.Provide(),
	})
	consumptionSvc := consumptionservice.New(consumptionservice.Params{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   fake,
		Policy:  holder,
		Repo:    consumptionrepo.Provide(),
		Catalog: pricerepo.Provide(),
	})

	svc := New(Params{
		DB:             db,
		Log:            zap.NewNop(),
		GenID:          node,
		Clock:          fake,
		Cfg:            config.Config{BillLockTTLSeconds: 300},
		Policy:         holder,
		Locker:         locker,
		Repo:           billingrepo.Provide(),
		ConsumptionSvc: consumptionSvc,
		CatalogSvc:     catalogSvc,
	}).(*Service)

	return &fixture{svc: svc, db: db, fake: fake, node: node, locker: locker, policy: holder}
}

func (f *fixture) seedCustomer(t *testing.T, pricePaise int64) snowflake.ID {
	t.Helper()

	now := f.fake.Now()
	id := f.node.Generate()
	require.NoError(t, f.db.Create(&pricedomain.Customer{
		ID:        id,
		Name:      "Ravi Tea House",
		Status:    pricedomain.CustomerActive,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error)
	require.NoError(t, f.db.Create(&pricedomain.CustomerPrice{
		ID:             f.node.Generate(),
		CustomerID:     id,
		UnitPricePaise: pricePaise,
		EffectiveFrom:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:      now,
	}).Error)
	return id
}

func (f *fixture) seedFebruary(t *testing.T, customerID snowflake.ID, dailyMilli int64) {
	t.Helper()

	now := f.fake.Now()
	for day := 1; day <= 28; day++ {
		require.NoError(t, f.db.Create(&consumptiondomain.Entry{
			ID:            f.node.Generate(),
			CustomerID:    customerID,
			EntryDate:     time.Date(2026, 2, day, 0, 0, 0, 0, time.UTC),
			QuantityMilli: dailyMilli,
			CreatedAt:     now,
			UpdatedAt:     now,
		}).Error)
	}
}

func TestGenerateMonthlyBill(t *testing.T) {
	ctx := context.Background()
	f := setup(t, config.DefaultBillingPolicy())

	// 28 days of 10 litres at Rs 60.00 per litre.
	customerID := f.seedCustomer(t, 6000)
	f.seedFebruary(t, customerID, 10000)

	bill, err := f.svc.Generate(ctx, billingdomain.GenerateRequest{
		CustomerID: customerID.String(),
		Month:      "2026-02",
	})
	require.NoError(t, err)

	assert.Equal(t, "280.000", bill.TotalQuantity)
	assert.Equal(t, "60.00", bill.UnitPrice)
	assert.Equal(t, "16800.00", bill.TotalAmount)
	assert.Equal(t, "INR", bill.Currency)
	assert.Equal(t, billingdomain.StatusUnpaid, bill.Status)
	assert.Equal(t, int64(1), bill.Version)
}

func TestRegenerateBumpsVersion(t *testing.T) {
	ctx := context.Background()
	f := setup(t, config.DefaultBillingPolicy())

	customerID := f.seedCustomer(t, 6000)
	f.seedFebruary(t, customerID, 10000)

	first, err := f.svc.Generate(ctx, billingdomain.GenerateRequest{
		CustomerID: customerID.String(),
		Month:      "2026-02",
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), first.Version)

	// A correction lands after the first run.
	require.NoError(t, f.db.Exec(
		`UPDATE consumption_entries SET quantity_milli = 12000 WHERE customer_id = ? AND entry_date = ?`,
		customerID,
		time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
	).Error)

	second, err := f.svc.Generate(ctx, billingdomain.GenerateRequest{
		CustomerID: customerID.String(),
		Month:      "2026-02",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Version)
	assert.Equal(t, "282.000", second.TotalQuantity)
	assert.Equal(t, "16920.00", second.TotalAmount)
	assert.Equal(t, first.ID, second.ID)
	assertCount(t, f.db, "SELECT COUNT(1) FROM bills", 1)
}

func TestPaidBillIsFrozen(t *testing.T) {
	ctx := context.Background()
	f := setup(t, config.DefaultBillingPolicy())

	customerID := f.seedCustomer(t, 6000)
	f.seedFebruary(t, customerID, 10000)

	bill, err := f.svc.Generate(ctx, billingdomain.GenerateRequest{
		CustomerID: customerID.String(),
		Month:      "2026-02",
	})
	require.NoError(t, err)

	require.NoError(t, f.db.Exec(
		`UPDATE bills SET status = ?, paid_at = ? WHERE customer_id = ?`,
		billingdomain.StatusPaid,
		f.fake.Now(),
		customerID,
	).Error)

	// New consumption data must not alter a settled bill.
	require.NoError(t, f.db.Exec(
		`UPDATE consumption_entries SET quantity_milli = 20000 WHERE customer_id = ?`,
		customerID,
	).Error)

	frozen, err := f.svc.Generate(ctx, billingdomain.GenerateRequest{
		CustomerID: customerID.String(),
		Month:      "2026-02",
	})
	require.NoError(t, err)
	assert.Equal(t, billingdomain.StatusPaid, frozen.Status)
	assert.Equal(t, bill.TotalAmount, frozen.TotalAmount)
	assert.Equal(t, bill.TotalQuantity, frozen.TotalQuantity)
}

func TestGenerateLockContended(t *testing.T) {
	ctx := context.Background()
	policy := config.DefaultBillingPolicy()
	policy.WaitOnContendedLocks = false
	f := setup(t, policy)

	customerID := f.seedCustomer(t, 6000)

	_, ok, err := f.locker.TryAcquire(ctx, fmt.Sprintf("bill:generate:%s:2026-02", customerID), 5*time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.svc.Generate(ctx, billingdomain.GenerateRequest{
		CustomerID: customerID.String(),
		Month:      "2026-02",
	})
	assert.ErrorIs(t, err, billingdomain.ErrGenerationInProgress)
}

func TestGenerateWaitFlagOverridesPolicy(t *testing.T) {
	ctx := context.Background()
	policy := config.DefaultBillingPolicy()
	policy.WaitOnContendedLocks = true
	f := setup(t, policy)

	customerID := f.seedCustomer(t, 6000)
	f.seedFebruary(t, customerID, 10000)

	key := fmt.Sprintf("bill:generate:%s:2026-02", customerID)
	token, ok, err := f.locker.TryAcquire(ctx, key, 5*time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// The request opts out of waiting even though policy would wait.
	noWait := false
	_, err = f.svc.Generate(ctx, billingdomain.GenerateRequest{
		CustomerID: customerID.String(),
		Month:      "2026-02",
		Wait:       &noWait,
	})
	assert.ErrorIs(t, err, billingdomain.ErrGenerationInProgress)

	_ = f.locker.Release(ctx, key, token)
}

func TestGenerateWaitFlagParksUntilRelease(t *testing.T) {
	ctx := context.Background()
	policy := config.DefaultBillingPolicy()
	policy.WaitOnContendedLocks = false
	f := setup(t, policy)

	customerID := f.seedCustomer(t, 6000)
	f.seedFebruary(t, customerID, 10000)

	key := fmt.Sprintf("bill:generate:%s:2026-02", customerID)
	token, ok, err := f.locker.TryAcquire(ctx, key, 5*time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	go func() {
		time.Sleep(300 * time.Millisecond)
		_ = f.locker.Release(ctx, key, token)
	}()

	// The request opts into waiting even though policy would fail fast.
	wait := true
	bill, err := f.svc.Generate(ctx, billingdomain.GenerateRequest{
		CustomerID: customerID.String(),
		Month:      "2026-02",
		Wait:       &wait,
	})
	require.NoError(t, err)
	assert.Equal(t, "16800.00", bill.TotalAmount)
}

func TestGenerateAllSkipsContendedCustomer(t *testing.T) {
	ctx := context.Background()
	f := setup(t, config.DefaultBillingPolicy())

	busyCustomer := f.seedCustomer(t, 6000)
	openCustomer := f.seedCustomer(t, 5500)
	f.seedFebruary(t, busyCustomer, 10000)
	f.seedFebruary(t, openCustomer, 5000)

	_, ok, err := f.locker.TryAcquire(ctx,
		fmt.Sprintf("bill:generate:%s:2026-02", busyCustomer), 5*time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	batch, err := f.svc.GenerateAll(ctx, "2026-02")
	require.NoError(t, err)
	assert.Equal(t, 1, batch.Generated)
	assert.Equal(t, 1, batch.Skipped)
	assert.Equal(t, 0, batch.Failed)
}

type casFailRepo struct {
	billingdomain.Repository
}

func (casFailRepo) UpdateBillCAS(ctx context.Context, db *gorm.DB, bill *billingdomain.Bill, expectedVersion int64) (bool, error) {
	return false, nil
}

func TestGenerateConcurrentModification(t *testing.T) {
	ctx := context.Background()
	f := setup(t, config.DefaultBillingPolicy())

	customerID := f.seedCustomer(t, 6000)
	f.seedFebruary(t, customerID, 10000)

	_, err := f.svc.Generate(ctx, billingdomain.GenerateRequest{
		CustomerID: customerID.String(),
		Month:      "2026-02",
	})
	require.NoError(t, err)

	f.svc.repo = casFailRepo{Repository: billingrepo.Provide()}
	_, err = f.svc.Generate(ctx, billingdomain.GenerateRequest{
		CustomerID: customerID.String(),
		Month:      "2026-02",
	})
	assert.ErrorIs(t, err, billingdomain.ErrConcurrentModification)
}

func TestGenerateWithoutPrice(t *testing.T) {
	ctx := context.Background()
	f := setup(t, config.DefaultBillingPolicy())

	now := f.fake.Now()
	customerID := f.node.Generate()
	require.NoError(t, f.db.Create(&pricedomain.Customer{
		ID:        customerID,
		Name:      "No Price Yet",
		Status:    pricedomain.CustomerActive,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error)

	_, err := f.svc.Generate(ctx, billingdomain.GenerateRequest{
		CustomerID: customerID.String(),
		Month:      "2026-02",
	})
	assert.ErrorIs(t, err, pricedomain.ErrNoPriceConfigured)
}

func TestGenerateValidation(t *testing.T) {
	ctx := context.Background()
	f := setup(t, config.DefaultBillingPolicy())

	_, err := f.svc.Generate(ctx, billingdomain.GenerateRequest{CustomerID: "nope", Month: "2026-02"})
	assert.ErrorIs(t, err, billingdomain.ErrInvalidID)

	_, err = f.svc.Generate(ctx, billingdomain.GenerateRequest{
		CustomerID: f.node.Generate().String(),
		Month:      "Feb 2026",
	})
	assert.ErrorIs(t, err, billingdomain.ErrInvalidMonth)

	_, err = f.svc.Generate(ctx, billingdomain.GenerateRequest{
		CustomerID: f.node.Generate().String(),
		Month:      "2026-02",
	})
	assert.ErrorIs(t, err, billingdomain.ErrCustomerNotFound)
}

func TestGenerateAllSkipsPaid(t *testing.T) {
	ctx := context.Background()
	f := setup(t, config.DefaultBillingPolicy())

	paidCustomer := f.seedCustomer(t, 6000)
	openCustomer := f.seedCustomer(t, 5500)
	f.seedFebruary(t, paidCustomer, 10000)
	f.seedFebruary(t, openCustomer, 5000)

	_, err := f.svc.Generate(ctx, billingdomain.GenerateRequest{
		CustomerID: paidCustomer.String(),
		Month:      "2026-02",
	})
	require.NoError(t, err)
	require.NoError(t, f.db.Exec(
		`UPDATE bills SET status = ?, paid_at = ? WHERE customer_id = ?`,
		billingdomain.StatusPaid,
		f.fake.Now(),
		paidCustomer,
	).Error)

	batch, err := f.svc.GenerateAll(ctx, "2026-02")
	require.NoError(t, err)
	assert.Equal(t, 1, batch.Generated)
	assert.Equal(t, 1, batch.Skipped)
	assert.Equal(t, 0, batch.Failed)
	assert.Len(t, batch.Results, 2)
}

func TestGetBillAndList(t *testing.T) {
	ctx := context.Background()
	f := setup(t, config.DefaultBillingPolicy())

	customerID := f.seedCustomer(t, 6000)
	f.seedFebruary(t, customerID, 10000)

	_, err := f.svc.Generate(ctx, billingdomain.GenerateRequest{
		CustomerID: customerID.String(),
		Month:      "2026-02",
	})
	require.NoError(t, err)

	bill, err := f.svc.GetBill(ctx, customerID.String(), "2026-02")
	require.NoError(t, err)
	assert.Equal(t, "16800.00", bill.TotalAmount)

	_, err = f.svc.GetBill(ctx, customerID.String(), "2026-01")
	assert.ErrorIs(t, err, billingdomain.ErrBillNotFound)

	bills, err := f.svc.ListBills(ctx, customerID.String())
	require.NoError(t, err)
	assert.Len(t, bills, 1)
}

func assertCount(t *testing.T, db *gorm.DB, query string, expected int64) {
	t.Helper()

	var count int64
	require.NoError(t, db.Raw(query).Scan(&count).Error)
	assert.Equal(t, expected, count)
}
