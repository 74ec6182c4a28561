package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// Upsert records or corrects the quantity for one customer-day.
	Upsert(ctx context.Context, req UpsertRequest) (*UpsertResponse, error)
	// GetRange returns one value per day in [from, to], zero-filled
	// for days with no entry.
	GetRange(ctx context.Context, req RangeRequest) ([]DayQuantity, error)
	// ListAudits returns corrections recorded in [from, to].
	ListAudits(ctx context.Context, req RangeRequest) ([]AuditResponse, error)
	// MonthTotal sums the customer's quantity for a "YYYY-MM" month,
	// in thousandths of a litre.
	MonthTotal(ctx context.Context, customerID snowflake.ID, month string) (int64, error)
}

type UpsertRequest struct {
	CustomerID string `json:"customer_id"`
	Date       string `json:"date"`
	Quantity   string `json:"quantity"`
	// EditedBy identifies who submitted the write; it is kept on the
	// audit row when the write corrects an existing value.
	EditedBy string `json:"edited_by"`
}

type UpsertResponse struct {
	Status   string `json:"status"`
	EntryID  string `json:"entry_id,omitempty"`
	Date     string `json:"date"`
	Quantity string `json:"quantity"`
}

const (
	UpsertCreated   = "created"
	UpsertUpdated   = "updated"
	UpsertUnchanged = "unchanged"
)

type RangeRequest struct {
	CustomerID string `json:"customer_id"`
	From       string `json:"from"`
	To         string `json:"to"`
}

type DayQuantity struct {
	Date     string `json:"date"`
	Quantity string `json:"quantity"`
}

type AuditResponse struct {
	EntryID     string    `json:"entry_id"`
	Date        string    `json:"date"`
	OldQuantity string    `json:"old_quantity"`
	NewQuantity string    `json:"new_quantity"`
	EditedBy    string    `json:"edited_by"`
	ChangedAt   time.Time `json:"changed_at"`
}

var (
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidDate      = errors.New("invalid_date")
	ErrInvalidQuantity  = errors.New("invalid_quantity")
	ErrInvalidRange     = errors.New("invalid_range")
	ErrEntryLocked      = errors.New("entry_locked")
	ErrCustomerNotFound = errors.New("customer_not_found")
)

// EntryLockedError is the ErrEntryLocked variant that carries the lock
// window, so callers can tell the operator which dates are still
// editable. Cutoff is the oldest editable date.
type EntryLockedError struct {
	Cutoff   time.Time
	LockDays int
}

func (e *EntryLockedError) Error() string {
	return fmt.Sprintf("cannot modify data older than %d days (before %s)",
		e.LockDays, e.Cutoff.Format("2006-01-02"))
}

func (e *EntryLockedError) Unwrap() error { return ErrEntryLocked }

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}
