package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Customer is a delivery account that accrues daily consumption.
type Customer struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Name      string       `json:"name" gorm:"type:text;not null"`
	Phone     string       `json:"phone" gorm:"type:text;not null;default:''"`
	Address   string       `json:"address" gorm:"type:text;not null;default:''"`
	Status    string       `json:"status" gorm:"type:text;not null;default:'active'"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Customer) TableName() string { return "customers" }

const (
	CustomerActive   = "active"
	CustomerInactive = "inactive"
)

// CustomerPrice is an effective-dated per-litre price in paise. The
// price in force on a date is the newest row whose EffectiveFrom is on
// or before that date.
type CustomerPrice struct {
	ID             snowflake.ID `json:"id" gorm:"primaryKey"`
	CustomerID     snowflake.ID `json:"customer_id" gorm:"not null;index:idx_customer_prices_lookup,priority:1"`
	UnitPricePaise int64        `json:"unit_price_paise" gorm:"not null"`
	EffectiveFrom  time.Time    `json:"effective_from" gorm:"type:date;not null;index:idx_customer_prices_lookup,priority:2"`
	CreatedAt      time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (CustomerPrice) TableName() string { return "customer_prices" }
