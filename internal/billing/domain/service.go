package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// Generate computes or recomputes the bill for one customer-month.
	// A PAID bill is frozen: Generate returns it unchanged.
	Generate(ctx context.Context, req GenerateRequest) (*BillResponse, error)
	// GenerateAll runs Generate for every active customer, collecting
	// per-customer outcomes instead of failing the batch.
	GenerateAll(ctx context.Context, month string) (*BatchResponse, error)
	GetBill(ctx context.Context, customerID, month string) (*BillResponse, error)
	ListBills(ctx context.Context, customerID string) ([]BillResponse, error)
}

type GenerateRequest struct {
	CustomerID string `json:"customer_id"`
	Month      string `json:"month"`
	// Wait controls what happens when another generation holds the
	// lock for this customer-month: wait for it or fail fast with
	// ErrGenerationInProgress. Nil falls back to the billing policy.
	Wait *bool `json:"wait,omitempty"`
}

type BillResponse struct {
	ID            string     `json:"id"`
	CustomerID    string     `json:"customer_id"`
	Month         string     `json:"month"`
	TotalQuantity string     `json:"total_quantity"`
	UnitPrice     string     `json:"unit_price"`
	TotalAmount   string     `json:"total_amount"`
	Currency      string     `json:"currency"`
	Status        string     `json:"status"`
	Version       int64      `json:"version"`
	GeneratedAt   time.Time  `json:"generated_at"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

type BatchResponse struct {
	Month     string        `json:"month"`
	Generated int           `json:"generated"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Results   []BatchResult `json:"results"`
}

type BatchResult struct {
	CustomerID string `json:"customer_id"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

const (
	BatchGenerated = "generated"
	BatchSkipped   = "skipped"
	BatchFailed    = "failed"
)

var (
	ErrInvalidID              = errors.New("invalid_id")
	ErrInvalidMonth           = errors.New("invalid_month")
	ErrCustomerNotFound       = errors.New("customer_not_found")
	ErrBillNotFound           = errors.New("bill_not_found")
	ErrGenerationInProgress   = errors.New("generation_in_progress")
	ErrConcurrentModification = errors.New("concurrent_modification")
)

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}
