package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Entry is one customer-day in the consumption ledger. Quantity is
// stored in thousandths of a litre; at most one entry exists per
// customer per date.
type Entry struct {
	ID            snowflake.ID `json:"id" gorm:"primaryKey"`
	CustomerID    snowflake.ID `json:"customer_id" gorm:"not null;uniqueIndex:uq_consumption_customer_date,priority:1"`
	EntryDate     time.Time    `json:"entry_date" gorm:"type:date;not null;uniqueIndex:uq_consumption_customer_date,priority:2"`
	QuantityMilli int64        `json:"quantity_milli" gorm:"not null"`
	CreatedAt     time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Entry) TableName() string { return "consumption_entries" }

// Audit records a correction to an existing entry. The first write of
// a customer-day does not produce an audit row; only subsequent
// changes do.
type Audit struct {
	ID               snowflake.ID `json:"id" gorm:"primaryKey"`
	EntryID          snowflake.ID `json:"entry_id" gorm:"not null;index:idx_consumption_audits_entry,priority:1"`
	CustomerID       snowflake.ID `json:"customer_id" gorm:"not null"`
	EntryDate        time.Time    `json:"entry_date" gorm:"type:date;not null"`
	OldQuantityMilli int64        `json:"old_quantity_milli" gorm:"not null"`
	NewQuantityMilli int64        `json:"new_quantity_milli" gorm:"not null"`
	EditedBy         string       `json:"edited_by" gorm:"type:text;not null;default:''"`
	ChangedAt        time.Time    `json:"changed_at" gorm:"not null;index:idx_consumption_audits_entry,priority:2"`
}

func (Audit) TableName() string { return "consumption_audits" }
