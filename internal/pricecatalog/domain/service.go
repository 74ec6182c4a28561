package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*CustomerResponse, error)
	GetCustomer(ctx context.Context, id string) (*CustomerResponse, error)
	ListCustomers(ctx context.Context, status string) ([]CustomerResponse, error)

	SetPrice(ctx context.Context, req SetPriceRequest) (*PriceResponse, error)
	ListPrices(ctx context.Context, customerID string) ([]PriceResponse, error)

	// UnitPriceAsOf resolves the per-litre price in paise in force for
	// the customer on the given date.
	UnitPriceAsOf(ctx context.Context, customerID snowflake.ID, asOf time.Time) (int64, error)
}

type CreateCustomerRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type CustomerResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SetPriceRequest struct {
	CustomerID    string `json:"customer_id"`
	UnitPrice     string `json:"unit_price"`
	EffectiveFrom string `json:"effective_from"`
}

type PriceResponse struct {
	ID            string    `json:"id"`
	CustomerID    string    `json:"customer_id"`
	UnitPrice     string    `json:"unit_price"`
	EffectiveFrom string    `json:"effective_from"`
	CreatedAt     time.Time `json:"created_at"`
}

var (
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidPrice      = errors.New("invalid_price")
	ErrInvalidDate       = errors.New("invalid_date")
	ErrCustomerNotFound  = errors.New("customer_not_found")
	ErrNoPriceConfigured = errors.New("no_price_configured")
)

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}
