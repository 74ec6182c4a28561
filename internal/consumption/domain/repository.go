package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindEntry(ctx context.Context, db *gorm.DB, customerID snowflake.ID, date time.Time) (*Entry, error)
	InsertEntry(ctx context.Context, db *gorm.DB, entry *Entry) error
	UpdateEntryQuantity(ctx context.Context, db *gorm.DB, entry *Entry) error
	InsertAudit(ctx context.Context, db *gorm.DB, audit *Audit) error

	ListEntries(ctx context.Context, db *gorm.DB, customerID snowflake.ID, from, to time.Time) ([]Entry, error)
	ListAudits(ctx context.Context, db *gorm.DB, customerID snowflake.ID, from, to time.Time) ([]Audit, error)
	SumQuantity(ctx context.Context, db *gorm.DB, customerID snowflake.ID, from, to time.Time) (int64, error)
}
