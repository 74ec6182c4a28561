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

	"github.com/smallbiznis/dairyos/internal/clock"
	pricedomain "github.com/smallbiznis/dairyos/internal/pricecatalog/domain"
	pricerepo "github.com/smallbiznis/dairyos/internal/pricecatalog/repository"
)

func setupService(t *testing.T, now time.Time) (*Service, *clock.FakeClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:pricecatalog_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&pricedomain.Customer{},
		&pricedomain.CustomerPrice{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(now)
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  pricerepo.Provide(),
	}).(*Service)

	return svc, fake
}

func createCustomer(t *testing.T, svc *Service, name string) string {
	t.Helper()

	resp, err := svc.CreateCustomer(context.Background(), pricedomain.CreateCustomerRequest{
		Name:  name,
		Phone: "+91 98200 00000",
	})
	require.NoError(t, err)
	return resp.ID
}

func TestCreateAndGetCustomer(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	id := createCustomer(t, svc, "  Asha Dairy Stand  ")

	got, err := svc.GetCustomer(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Asha Dairy Stand", got.Name)
	assert.Equal(t, pricedomain.CustomerActive, got.Status)

	_, err = svc.CreateCustomer(ctx, pricedomain.CreateCustomerRequest{Name: "   "})
	assert.ErrorIs(t, err, pricedomain.ErrInvalidName)

	_, err = svc.GetCustomer(ctx, "not-a-snowflake")
	assert.ErrorIs(t, err, pricedomain.ErrInvalidID)
}

func TestGetCustomerNotFound(t *testing.T) {
	svc, _ := setupService(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	_, err = svc.GetCustomer(context.Background(), node.Generate().String())
	assert.ErrorIs(t, err, pricedomain.ErrCustomerNotFound)
}

func TestListCustomersByStatus(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	createCustomer(t, svc, "Asha Dairy Stand")
	createCustomer(t, svc, "Bharat Tea House")

	all, err := svc.ListCustomers(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := svc.ListCustomers(ctx, pricedomain.CustomerActive)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	inactive, err := svc.ListCustomers(ctx, pricedomain.CustomerInactive)
	require.NoError(t, err)
	assert.Empty(t, inactive)
}

func TestSetPriceValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	id := createCustomer(t, svc, "Asha Dairy Stand")

	cases := []struct {
		name string
		req  pricedomain.SetPriceRequest
		want error
	}{
		{"bad id", pricedomain.SetPriceRequest{CustomerID: "x", UnitPrice: "60.00", EffectiveFrom: "2026-03-01"}, pricedomain.ErrInvalidID},
		{"bad price", pricedomain.SetPriceRequest{CustomerID: id, UnitPrice: "sixty", EffectiveFrom: "2026-03-01"}, pricedomain.ErrInvalidPrice},
		{"zero price", pricedomain.SetPriceRequest{CustomerID: id, UnitPrice: "0", EffectiveFrom: "2026-03-01"}, pricedomain.ErrInvalidPrice},
		{"negative price", pricedomain.SetPriceRequest{CustomerID: id, UnitPrice: "-5.00", EffectiveFrom: "2026-03-01"}, pricedomain.ErrInvalidPrice},
		{"bad date", pricedomain.SetPriceRequest{CustomerID: id, UnitPrice: "60.00", EffectiveFrom: "March 1st"}, pricedomain.ErrInvalidDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SetPrice(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestUnitPriceAsOfPicksNewestEffective(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	rawID := createCustomer(t, svc, "Asha Dairy Stand")
	id, err := pricedomain.ParseID(rawID)
	require.NoError(t, err)

	// 55.00/L from January, raised to 60.00/L mid-March.
	_, err = svc.SetPrice(ctx, pricedomain.SetPriceRequest{
		CustomerID: rawID, UnitPrice: "55.00", EffectiveFrom: "2026-01-01",
	})
	require.NoError(t, err)
	_, err = svc.SetPrice(ctx, pricedomain.SetPriceRequest{
		CustomerID: rawID, UnitPrice: "60.00", EffectiveFrom: "2026-03-15",
	})
	require.NoError(t, err)

	before, err := svc.UnitPriceAsOf(ctx, id, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(5500), before)

	onDay, err := svc.UnitPriceAsOf(ctx, id, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(6000), onDay)

	after, err := svc.UnitPriceAsOf(ctx, id, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(6000), after)

	_, err = svc.UnitPriceAsOf(ctx, id, time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, pricedomain.ErrNoPriceConfigured)
}

func TestListPricesNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	rawID := createCustomer(t, svc, "Asha Dairy Stand")

	for _, p := range []struct{ price, from string }{
		{"55.00", "2026-01-01"},
		{"60.00", "2026-03-15"},
	} {
		_, err := svc.SetPrice(ctx, pricedomain.SetPriceRequest{
			CustomerID: rawID, UnitPrice: p.price, EffectiveFrom: p.from,
		})
		require.NoError(t, err)
	}

	prices, err := svc.ListPrices(ctx, rawID)
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.Equal(t, "60.00", prices[0].UnitPrice)
	assert.Equal(t, "2026-03-15", prices[0].EffectiveFrom)
	assert.Equal(t, "55.00", prices[1].UnitPrice)
}
