package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertCustomer(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindCustomer(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Customer, error)
	ListCustomers(ctx context.Context, db *gorm.DB, status string) ([]Customer, error)

	InsertPrice(ctx context.Context, db *gorm.DB, price *CustomerPrice) error
	FindPriceAsOf(ctx context.Context, db *gorm.DB, customerID snowflake.ID, asOf time.Time) (*CustomerPrice, error)
	ListPrices(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]CustomerPrice, error)
}
