package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/dairyos/internal/clock"
	"github.com/smallbiznis/dairyos/internal/money"
	pricedomain "github.com/smallbiznis/dairyos/internal/pricecatalog/domain"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  pricedomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  pricedomain.Repository
}

func New(p Params) pricedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("pricecatalog.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) CreateCustomer(ctx context.Context, req pricedomain.CreateCustomerRequest) (*pricedomain.CustomerResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pricedomain.ErrInvalidName
	}

	now := s.clock.Now()
	customer := &pricedomain.Customer{
		ID:        s.genID.Generate(),
		Name:      name,
		Phone:     strings.TrimSpace(req.Phone),
		Address:   strings.TrimSpace(req.Address),
		Status:    pricedomain.CustomerActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.InsertCustomer(ctx, s.db, customer); err != nil {
		return nil, err
	}

	s.log.Info("customer created", zap.String("customer_id", customer.ID.String()))
	return toCustomerResponse(customer), nil
}

func (s *Service) GetCustomer(ctx context.Context, id string) (*pricedomain.CustomerResponse, error) {
	customerID, err := pricedomain.ParseID(strings.TrimSpace(id))
	if err != nil {
		return nil, pricedomain.ErrInvalidID
	}

	customer, err := s.repo.FindCustomer(ctx, s.db, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, pricedomain.ErrCustomerNotFound
	}
	return toCustomerResponse(customer), nil
}

func (s *Service) ListCustomers(ctx context.Context, status string) ([]pricedomain.CustomerResponse, error) {
	customers, err := s.repo.ListCustomers(ctx, s.db, strings.TrimSpace(status))
	if err != nil {
		return nil, err
	}

	resp := make([]pricedomain.CustomerResponse, 0, len(customers))
	for i := range customers {
		resp = append(resp, *toCustomerResponse(&customers[i]))
	}
	return resp, nil
}

func (s *Service) SetPrice(ctx context.Context, req pricedomain.SetPriceRequest) (*pricedomain.PriceResponse, error) {
	customerID, err := pricedomain.ParseID(strings.TrimSpace(req.CustomerID))
	if err != nil {
		return nil, pricedomain.ErrInvalidID
	}

	unitPrice, err := money.ParseAmount(req.UnitPrice)
	if err != nil || unitPrice <= 0 {
		return nil, pricedomain.ErrInvalidPrice
	}

	effectiveFrom, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(req.EffectiveFrom), time.UTC)
	if err != nil {
		return nil, pricedomain.ErrInvalidDate
	}

	customer, err := s.repo.FindCustomer(ctx, s.db, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, pricedomain.ErrCustomerNotFound
	}

	price := &pricedomain.CustomerPrice{
		ID:             s.genID.Generate(),
		CustomerID:     customerID,
		UnitPricePaise: unitPrice,
		EffectiveFrom:  effectiveFrom,
		CreatedAt:      s.clock.Now(),
	}

	if err := s.repo.InsertPrice(ctx, s.db, price); err != nil {
		return nil, err
	}

	s.log.Info("price set",
		zap.String("customer_id", customerID.String()),
		zap.String("unit_price", money.FormatAmount(unitPrice)),
		zap.String("effective_from", effectiveFrom.Format("2006-01-02")),
	)
	return toPriceResponse(price), nil
}

func (s *Service) ListPrices(ctx context.Context, customerID string) ([]pricedomain.PriceResponse, error) {
	id, err := pricedomain.ParseID(strings.TrimSpace(customerID))
	if err != nil {
		return nil, pricedomain.ErrInvalidID
	}

	prices, err := s.repo.ListPrices(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	resp := make([]pricedomain.PriceResponse, 0, len(prices))
	for i := range prices {
		resp = append(resp, *toPriceResponse(&prices[i]))
	}
	return resp, nil
}

func (s *Service) UnitPriceAsOf(ctx context.Context, customerID snowflake.ID, asOf time.Time) (int64, error) {
	price, err := s.repo.FindPriceAsOf(ctx, s.db, customerID, asOf)
	if err != nil {
		return 0, err
	}
	if price == nil {
		return 0, pricedomain.ErrNoPriceConfigured
	}
	return price.UnitPricePaise, nil
}

func toCustomerResponse(c *pricedomain.Customer) *pricedomain.CustomerResponse {
	return &pricedomain.CustomerResponse{
		ID:        c.ID.String(),
		Name:      c.Name,
		Phone:     c.Phone,
		Address:   c.Address,
		Status:    c.Status,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func toPriceResponse(p *pricedomain.CustomerPrice) *pricedomain.PriceResponse {
	return &pricedomain.PriceResponse{
		ID:            p.ID.String(),
		CustomerID:    p.CustomerID.String(),
		UnitPrice:     money.FormatAmount(p.UnitPricePaise),
		EffectiveFrom: p.EffectiveFrom.Format("2006-01-02"),
		CreatedAt:     p.CreatedAt,
	}
}
