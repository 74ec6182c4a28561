package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Bill is the invoice for one customer-month. TotalQuantityMilli is
// thousandths of a litre, UnitPricePaise and TotalAmountPaise are
// paise; TotalAmount is always re-derivable from the other two plus
// the rounding mode in force when it was generated.
type Bill struct {
	ID                 snowflake.ID `json:"id" gorm:"primaryKey"`
	CustomerID         snowflake.ID `json:"customer_id" gorm:"not null;uniqueIndex:uq_bills_customer_month,priority:1"`
	Month              string       `json:"month" gorm:"type:char(7);not null;uniqueIndex:uq_bills_customer_month,priority:2"`
	TotalQuantityMilli int64        `json:"total_quantity_milli" gorm:"not null"`
	UnitPricePaise     int64        `json:"unit_price_paise" gorm:"not null"`
	TotalAmountPaise   int64        `json:"total_amount_paise" gorm:"not null"`
	Currency           string       `json:"currency" gorm:"type:text;not null;default:'INR'"`
	Status             string       `json:"status" gorm:"type:text;not null;default:'UNPAID'"`
	Version            int64        `json:"version" gorm:"not null;default:1"`
	GeneratedAt        time.Time    `json:"generated_at" gorm:"not null"`
	PaidAt             *time.Time   `json:"paid_at"`
	CreatedAt          time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Bill) TableName() string { return "bills" }

const (
	StatusUnpaid = "UNPAID"
	StatusPaid   = "PAID"
)
