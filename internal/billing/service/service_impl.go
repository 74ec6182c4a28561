package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	billingdomain "github.com/smallbiznis/dairyos/internal/billing/domain"
	"github.com/smallbiznis/dairyos/internal/clock"
	"github.com/smallbiznis/dairyos/internal/config"
	consumptiondomain "github.com/smallbiznis/dairyos/internal/consumption/domain"
	"github.com/smallbiznis/dairyos/internal/locks"
	"github.com/smallbiznis/dairyos/internal/money"
	"github.com/smallbiznis/dairyos/internal/observability/metrics"
	pricedomain "github.com/smallbiznis/dairyos/internal/pricecatalog/domain"
	"github.com/smallbiznis/dairyos/pkg/db"
)

const (
	lockKeyFormat    = "bill:generate:%s:%s"
	lockPollInterval = 100 * time.Millisecond
	lockPollBudget   = 20
)

// errRetryGenerate signals a lost race that is safe to replay.
var errRetryGenerate = errors.New("retry_generate")

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	Cfg            config.Config
	Policy         *config.BillingPolicyHolder
	Locker         locks.Locker
	Repo           billingdomain.Repository
	ConsumptionSvc consumptiondomain.Service
	CatalogSvc     pricedomain.Service
	Metrics        *metrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	cfg         config.Config
	policy      *config.BillingPolicyHolder
	locker      locks.Locker
	repo        billingdomain.Repository
	consumption consumptiondomain.Service
	catalog     pricedomain.Service
	metrics     *metrics.Metrics
}

func New(p Params) billingdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("billing.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		cfg:         p.Cfg,
		policy:      p.Policy,
		locker:      p.Locker,
		repo:        p.Repo,
		consumption: p.ConsumptionSvc,
		catalog:     p.CatalogSvc,
		metrics:     p.Metrics,
	}
}

func (s *Service) Generate(ctx context.Context, req billingdomain.GenerateRequest) (*billingdomain.BillResponse, error) {
	started := s.clock.Now()

	customerID, err := billingdomain.ParseID(strings.TrimSpace(req.CustomerID))
	if err != nil {
		return nil, billingdomain.ErrInvalidID
	}
	month, err := parseMonth(req.Month)
	if err != nil {
		return nil, err
	}

	if _, err := s.catalog.GetCustomer(ctx, customerID.String()); err != nil {
		if errors.Is(err, pricedomain.ErrCustomerNotFound) {
			return nil, billingdomain.ErrCustomerNotFound
		}
		return nil, err
	}

	wait := s.policy.Get().WaitOnContendedLocks
	if req.Wait != nil {
		wait = *req.Wait
	}

	token, err := s.acquireGenerateLock(ctx, customerID, month, wait)
	if err != nil {
		s.metrics.ObserveBillGenerate("contended", time.Since(started))
		return nil, err
	}
	defer func() {
		if err := s.locker.Release(ctx, s.lockKey(customerID, month), token); err != nil {
			s.log.Warn("release generate lock failed", zap.Error(err))
		}
	}()

	policy := s.policy.Get()
	for attempt := 0; attempt < policy.GenerateRetryBudget; attempt++ {
		bill, frozen, err := s.generateOnce(ctx, customerID, month, policy)
		if errors.Is(err, errRetryGenerate) {
			continue
		}
		if err != nil {
			s.metrics.ObserveBillGenerate(metrics.ResultError, time.Since(started))
			return nil, err
		}

		result := metrics.ResultSuccess
		if frozen {
			result = "frozen"
		}
		s.metrics.ObserveBillGenerate(result, time.Since(started))
		s.log.Info("bill generated",
			zap.String("customer_id", customerID.String()),
			zap.String("month", month),
			zap.String("total_amount", money.FormatAmount(bill.TotalAmountPaise)),
			zap.Int64("version", bill.Version),
			zap.Bool("frozen", frozen),
		)
		return toBillResponse(bill), nil
	}

	s.metrics.ObserveBillGenerate("conflict", time.Since(started))
	return nil, billingdomain.ErrConcurrentModification
}

func (s *Service) generateOnce(ctx context.Context, customerID snowflake.ID, month string, policy config.BillingPolicy) (*billingdomain.Bill, bool, error) {
	existing, err := s.repo.FindBill(ctx, s.db, customerID, month)
	if err != nil {
		return nil, false, err
	}
	if existing != nil && existing.Status == billingdomain.StatusPaid {
		// Paid bills are immutable; regeneration is a read.
		return existing, true, nil
	}

	total, err := s.consumption.MonthTotal(ctx, customerID, month)
	if err != nil {
		return nil, false, err
	}

	monthStart, _ := time.ParseInLocation("2006-01", month, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)
	unitPrice, err := s.catalog.UnitPriceAsOf(ctx, customerID, monthEnd)
	if err != nil {
		return nil, false, err
	}

	mode, err := money.ParseRoundingMode(policy.RoundingMode)
	if err != nil {
		return nil, false, err
	}
	amount := money.MulUnitPrice(total, unitPrice, mode)

	now := s.clock.Now()
	if existing == nil {
		bill := &billingdomain.Bill{
			ID:                 s.genID.Generate(),
			CustomerID:         customerID,
			Month:              month,
			TotalQuantityMilli: total,
			UnitPricePaise:     unitPrice,
			TotalAmountPaise:   amount,
			Currency:           policy.CurrencyCode,
			Status:             billingdomain.StatusUnpaid,
			Version:            1,
			GeneratedAt:        now,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := s.repo.InsertBill(ctx, s.db, bill); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return nil, false, errRetryGenerate
			}
			return nil, false, err
		}
		return bill, false, nil
	}

	updated := *existing
	updated.TotalQuantityMilli = total
	updated.UnitPricePaise = unitPrice
	updated.TotalAmountPaise = amount
	updated.GeneratedAt = now
	updated.UpdatedAt = now

	ok, err := s.repo.UpdateBillCAS(ctx, s.db, &updated, existing.Version)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, errRetryGenerate
	}
	updated.Version = existing.Version + 1
	return &updated, false, nil
}

func (s *Service) GenerateAll(ctx context.Context, month string) (*billingdomain.BatchResponse, error) {
	if _, err := parseMonth(month); err != nil {
		return nil, err
	}

	customers, err := s.catalog.ListCustomers(ctx, pricedomain.CustomerActive)
	if err != nil {
		return nil, err
	}

	policy := s.policy.Get()
	resp := &billingdomain.BatchResponse{Month: month}
	// The batch never parks on a contended lock: whoever holds it is
	// producing the same bill.
	noWait := false
	for _, customer := range customers {
		if policy.SkipPaidInBatch {
			customerID, err := billingdomain.ParseID(customer.ID)
			if err != nil {
				continue
			}
			existing, err := s.repo.FindBill(ctx, s.db, customerID, month)
			if err == nil && existing != nil && existing.Status == billingdomain.StatusPaid {
				resp.Skipped++
				resp.Results = append(resp.Results, billingdomain.BatchResult{
					CustomerID: customer.ID,
					Status:     billingdomain.BatchSkipped,
				})
				continue
			}
		}

		if _, err := s.Generate(ctx, billingdomain.GenerateRequest{
			CustomerID: customer.ID,
			Month:      month,
			Wait:       &noWait,
		}); err != nil {
			if errors.Is(err, billingdomain.ErrGenerationInProgress) {
				resp.Skipped++
				resp.Results = append(resp.Results, billingdomain.BatchResult{
					CustomerID: customer.ID,
					Status:     billingdomain.BatchSkipped,
				})
				continue
			}
			// One bad customer must not sink the batch.
			resp.Failed++
			resp.Results = append(resp.Results, billingdomain.BatchResult{
				CustomerID: customer.ID,
				Status:     billingdomain.BatchFailed,
				Error:      err.Error(),
			})
			s.log.Warn("batch generate failed",
				zap.String("customer_id", customer.ID),
				zap.String("month", month),
				zap.Error(err),
			)
			continue
		}

		resp.Generated++
		resp.Results = append(resp.Results, billingdomain.BatchResult{
			CustomerID: customer.ID,
			Status:     billingdomain.BatchGenerated,
		})
	}
	return resp, nil
}

func (s *Service) GetBill(ctx context.Context, customerID, month string) (*billingdomain.BillResponse, error) {
	id, err := billingdomain.ParseID(strings.TrimSpace(customerID))
	if err != nil {
		return nil, billingdomain.ErrInvalidID
	}
	normalized, err := parseMonth(month)
	if err != nil {
		return nil, err
	}

	bill, err := s.repo.FindBill(ctx, s.db, id, normalized)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, billingdomain.ErrBillNotFound
	}
	return toBillResponse(bill), nil
}

func (s *Service) ListBills(ctx context.Context, customerID string) ([]billingdomain.BillResponse, error) {
	id, err := billingdomain.ParseID(strings.TrimSpace(customerID))
	if err != nil {
		return nil, billingdomain.ErrInvalidID
	}

	bills, err := s.repo.ListBills(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	resp := make([]billingdomain.BillResponse, 0, len(bills))
	for i := range bills {
		resp = append(resp, *toBillResponse(&bills[i]))
	}
	return resp, nil
}

func (s *Service) lockKey(customerID snowflake.ID, month string) string {
	return fmt.Sprintf(lockKeyFormat, customerID, month)
}

func (s *Service) acquireGenerateLock(ctx context.Context, customerID snowflake.ID, month string, wait bool) (string, error) {
	key := s.lockKey(customerID, month)
	ttl := time.Duration(s.cfg.BillLockTTLSeconds) * time.Second

	token, ok, err := s.locker.TryAcquire(ctx, key, ttl)
	if err != nil {
		return "", err
	}
	if ok {
		return token, nil
	}

	if !wait {
		return "", billingdomain.ErrGenerationInProgress
	}

	for attempt := 0; attempt < lockPollBudget; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(lockPollInterval):
		}

		token, ok, err = s.locker.TryAcquire(ctx, key, ttl)
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}
	}
	return "", billingdomain.ErrGenerationInProgress
}

func parseMonth(month string) (string, error) {
	month = strings.TrimSpace(month)
	if _, err := time.ParseInLocation("2006-01", month, time.UTC); err != nil {
		return "", billingdomain.ErrInvalidMonth
	}
	return month, nil
}

func toBillResponse(b *billingdomain.Bill) *billingdomain.BillResponse {
	return &billingdomain.BillResponse{
		ID:            b.ID.String(),
		CustomerID:    b.CustomerID.String(),
		Month:         b.Month,
		TotalQuantity: money.FormatQuantity(b.TotalQuantityMilli),
		UnitPrice:     money.FormatAmount(b.UnitPricePaise),
		TotalAmount:   money.FormatAmount(b.TotalAmountPaise),
		Currency:      b.Currency,
		Status:        b.Status,
		Version:       b.Version,
		GeneratedAt:   b.GeneratedAt,
		PaidAt:        b.PaidAt,
	}
}
