package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
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
	"github.com/smallbiznis/dairyos/internal/payment/domain"
	razorpay "github.com/smallbiznis/dairyos/internal/providers/razorpay"
)

const orderIdempotencyTTL = 24 * time.Hour

// OrderCreator is the outbound provider surface the service needs to
// open an order. *razorpay.Client satisfies it.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req razorpay.OrderRequest) (razorpay.Order, error)
	Configured() bool
}

// IdempotencyCache remembers order responses keyed by the caller's
// idempotency key so retried requests do not open duplicate orders.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

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
	Orders   OrderCreator     `optional:"true"`
	Cache    IdempotencyCache `optional:"true"`
}

type paymentService struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	policy  *config.BillingPolicyHolder
	metrics *metrics.Metrics

	repo     domain.Repository
	billRepo billingdomain.Repository
	orders   OrderCreator
	cache    IdempotencyCache
}

func New(p Params) domain.Service {
	return &paymentService{
		db:       p.DB,
		log:      p.Log.Named("payment.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		policy:   p.Policy,
		metrics:  p.Metrics,
		repo:     p.Repo,
		billRepo: p.BillRepo,
		orders:   p.Orders,
		cache:    p.Cache,
	}
}

func (s *paymentService) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (*domain.OrderResponse, error) {
	billID, err := domain.ParseID(req.BillID)
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	if s.orders == nil || !s.orders.Configured() {
		return nil, domain.ErrProviderUnavailable
	}

	bill, err := s.billRepo.FindBillByID(ctx, s.db, billID)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, domain.ErrBillNotFound
	}
	if bill.Status == billingdomain.StatusPaid {
		return nil, domain.ErrBillAlreadyPaid
	}

	currency := bill.Currency
	if currency == "" {
		currency = s.policy.Get().CurrencyCode
	}

	orderReq := razorpay.OrderRequest{
		Amount:   bill.TotalAmountPaise,
		Currency: currency,
		Receipt:  bill.ID.String(),
		Notes: map[string]string{
			"bill_id":     bill.ID.String(),
			"customer_id": bill.CustomerID.String(),
			"month":       bill.Month,
		},
	}

	cacheKey := ""
	if req.IdempotencyKey != "" && s.cache != nil {
		cacheKey = idempotencyCacheKey(req.IdempotencyKey, orderReq)
		if cached, ok, err := s.cache.Get(ctx, cacheKey); err != nil {
			s.log.Warn("idempotency cache read failed", zap.Error(err))
		} else if ok {
			var resp domain.OrderResponse
			if err := json.Unmarshal([]byte(cached), &resp); err == nil {
				return &resp, nil
			}
		}
	}

	order, err := s.orders.CreateOrder(ctx, orderReq)
	if err != nil {
		s.log.Error("provider order create failed",
			zap.String("bill_id", bill.ID.String()), zap.Error(err))
		return nil, domain.ErrProviderUnavailable
	}

	resp := &domain.OrderResponse{
		OrderID:  order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		Receipt:  order.Receipt,
		Status:   order.Status,
	}
	if cacheKey != "" {
		if raw, err := json.Marshal(resp); err == nil {
			if err := s.cache.Set(ctx, cacheKey, string(raw), orderIdempotencyTTL); err != nil {
				s.log.Warn("idempotency cache write failed", zap.Error(err))
			}
		}
	}

	s.log.Info("provider order created",
		zap.String("bill_id", bill.ID.String()),
		zap.String("order_id", order.ID))
	return resp, nil
}

// idempotencyCacheKey binds the key to the request body hash so a
// reused key with a different payload misses the cache instead of
// replaying an unrelated order.
func idempotencyCacheKey(key string, req razorpay.OrderRequest) string {
	raw, _ := json.Marshal(req)
	sum := sha256.Sum256(raw)
	return "dairyos:idem:" + key + ":" + hex.EncodeToString(sum[:])
}

func (s *paymentService) ProcessEvent(ctx context.Context, event *domain.PaymentEvent) (*domain.ProcessResult, error) {
	if event == nil {
		return nil, domain.ErrInvalidEvent
	}

	result, err := s.processEvent(ctx, event)
	outcome := "error"
	if err == nil {
		outcome = result.Outcome
	}
	s.metrics.RecordWebhookEvent(event.Provider, outcome)
	return result, err
}

func (s *paymentService) processEvent(ctx context.Context, event *domain.PaymentEvent) (*domain.ProcessResult, error) {
	var result *domain.ProcessResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bill, err := s.billRepo.FindBillByID(ctx, tx, event.BillID)
		if err != nil {
			return err
		}

		state := domain.BillState{}
		if bill != nil {
			state = domain.BillState{
				Exists:      true,
				Paid:        bill.Status == billingdomain.StatusPaid,
				AmountPaise: bill.TotalAmountPaise,
			}
		}

		decision, err := domain.Transition(event.Type, state)
		if err != nil {
			return err
		}
		if !decision.RecordPayment {
			result = &domain.ProcessResult{Outcome: decision.Outcome}
			return nil
		}

		pay := &domain.Payment{
			ID:                s.genID.Generate(),
			BillID:            &bill.ID,
			CustomerID:        bill.CustomerID,
			Provider:          event.Provider,
			ProviderEventID:   event.ProviderEventID,
			ProviderPaymentID: event.ProviderPaymentID,
			AmountPaise:       decision.AmountPaise,
			Currency:          bill.Currency,
			Status:            decision.PaymentStatus,
			RawPayload:        datatypes.JSON(event.RawPayload),
			ReceivedAt:        s.clock.Now(),
			CreatedAt:         s.clock.Now(),
		}
		inserted, err := s.repo.InsertPayment(ctx, tx, pay)
		if err != nil {
			return err
		}
		if !inserted {
			// Redelivery: the first delivery already settled the bill.
			result = &domain.ProcessResult{Outcome: domain.OutcomeDuplicate, BillID: bill.ID.String()}
			return nil
		}

		outcome := decision.Outcome
		if decision.MarkBillPaid {
			marked, err := s.billRepo.MarkPaidCAS(ctx, tx, bill.ID, s.clock.Now())
			if err != nil {
				return err
			}
			if !marked {
				// Another event won the race between our read and the
				// update; the payment row still stands.
				outcome = domain.OutcomeAlreadyPaid
			}
		}

		result = &domain.ProcessResult{
			Outcome:   outcome,
			BillID:    bill.ID.String(),
			PaymentID: pay.ID.String(),
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrBillNotFound) && !errors.Is(err, domain.ErrInvalidEvent) {
			s.log.Error("webhook event processing failed",
				zap.String("provider", event.Provider),
				zap.String("provider_event_id", event.ProviderEventID),
				zap.Error(err))
		}
		return nil, err
	}

	s.log.Info("webhook event processed",
		zap.String("provider", event.Provider),
		zap.String("provider_event_id", event.ProviderEventID),
		zap.String("outcome", result.Outcome))
	return result, nil
}

func (s *paymentService) LastSuccessfulPayment(ctx context.Context, customerID string) (*domain.PaymentResponse, error) {
	id, err := domain.ParseID(customerID)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	pay, err := s.repo.LastSuccessByCustomer(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if pay == nil {
		return nil, domain.ErrPaymentNotFound
	}

	resp := &domain.PaymentResponse{
		ID:                pay.ID.String(),
		Provider:          pay.Provider,
		ProviderPaymentID: pay.ProviderPaymentID,
		Amount:            money.FormatAmount(pay.AmountPaise),
		Currency:          pay.Currency,
		Status:            pay.Status,
		ReceivedAt:        pay.ReceivedAt,
	}
	if pay.BillID != nil {
		resp.BillID = pay.BillID.String()
	}
	return resp, nil
}
