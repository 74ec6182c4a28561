package domain

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Payment records one provider notification against a bill. The
// unique (provider, provider_event_id) pair doubles as replay
// protection: a redelivered webhook inserts zero rows.
type Payment struct {
	ID                snowflake.ID  `json:"id" gorm:"primaryKey"`
	BillID            *snowflake.ID `json:"bill_id" gorm:"index:idx_payments_bill"`
	CustomerID        snowflake.ID  `json:"customer_id" gorm:"not null"`
	Provider          string        `json:"provider" gorm:"type:text;not null;uniqueIndex:uq_payments_provider_event,priority:1"`
	ProviderEventID   string        `json:"provider_event_id" gorm:"type:text;not null;uniqueIndex:uq_payments_provider_event,priority:2"`
	ProviderPaymentID string        `json:"provider_payment_id" gorm:"type:text;not null;default:''"`
	AmountPaise       int64         `json:"amount_paise" gorm:"not null"`
	Currency          string        `json:"currency" gorm:"type:text;not null;default:'INR'"`
	Status            string        `json:"status" gorm:"type:text;not null"`
	// RawPayload keeps the webhook body verbatim for dispute audits.
	RawPayload datatypes.JSON `json:"raw_payload" gorm:"type:jsonb"`
	ReceivedAt time.Time      `json:"received_at" gorm:"not null"`
	CreatedAt  time.Time      `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Payment) TableName() string { return "payments" }

const (
	StatusCaptured = "CAPTURED"
	StatusFailed   = "FAILED"
)

const (
	EventTypePaymentSucceeded = "payment_succeeded"
	EventTypePaymentFailed    = "payment_failed"
)

// PaymentEvent is the provider-agnostic form of a webhook delivery.
type PaymentEvent struct {
	Provider          string
	ProviderEventID   string
	ProviderPaymentID string
	Type              string
	BillID            snowflake.ID
	AmountPaise       int64
	Currency          string
	OccurredAt        time.Time
	RawPayload        []byte
}

// PaymentAdapter translates one provider's webhook dialect.
type PaymentAdapter interface {
	Provider() string
	// Verify authenticates the raw payload against the request
	// headers. It must not leak why verification failed.
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*PaymentEvent, error)
}

type Service interface {
	// CreateOrder opens a provider order for an unpaid bill. Repeat
	// calls carrying the same idempotency key return the first
	// response.
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResponse, error)
	// ProcessEvent applies a verified, canonical event: the payment
	// row and the bill status change commit atomically.
	ProcessEvent(ctx context.Context, event *PaymentEvent) (*ProcessResult, error)
	LastSuccessfulPayment(ctx context.Context, customerID string) (*PaymentResponse, error)
}

type WebhookService interface {
	IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) (*ProcessResult, error)
}

type CreateOrderRequest struct {
	BillID         string
	IdempotencyKey string
}

type OrderResponse struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type ProcessResult struct {
	Outcome   string `json:"outcome"`
	BillID    string `json:"bill_id,omitempty"`
	PaymentID string `json:"payment_id,omitempty"`
}

type PaymentResponse struct {
	ID                string    `json:"id"`
	BillID            string    `json:"bill_id,omitempty"`
	Provider          string    `json:"provider"`
	ProviderPaymentID string    `json:"provider_payment_id"`
	Amount            string    `json:"amount"`
	Currency          string    `json:"currency"`
	Status            string    `json:"status"`
	ReceivedAt        time.Time `json:"received_at"`
}

type Repository interface {
	// InsertPayment writes the payment unless its (provider,
	// provider_event_id) pair already exists; it reports whether a
	// row was written.
	InsertPayment(ctx context.Context, db *gorm.DB, payment *Payment) (bool, error)
	FindByProviderEvent(ctx context.Context, db *gorm.DB, provider, providerEventID string) (*Payment, error)
	ListByBill(ctx context.Context, db *gorm.DB, billID snowflake.ID) ([]Payment, error)
	LastSuccessByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (*Payment, error)
	ListSuccessForMonth(ctx context.Context, db *gorm.DB, month string) ([]Payment, error)
}

var (
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidSignature    = errors.New("invalid_signature")
	ErrMissingSignature    = errors.New("missing_signature")
	ErrTimestampSkew       = errors.New("timestamp_skew")
	ErrInvalidTimestamp    = errors.New("invalid_timestamp")
	ErrInvalidPayload      = errors.New("invalid_payload")
	ErrInvalidEvent        = errors.New("invalid_event")
	ErrEventIgnored        = errors.New("event_ignored")
	ErrProviderNotFound    = errors.New("provider_not_found")
	ErrBillNotFound        = errors.New("bill_not_found")
	ErrBillAlreadyPaid     = errors.New("bill_already_paid")
	ErrPaymentNotFound     = errors.New("payment_not_found")
	ErrProviderUnavailable = errors.New("provider_unavailable")
)

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}
