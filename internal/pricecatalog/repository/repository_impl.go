package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	pricedomain "github.com/smallbiznis/dairyos/internal/pricecatalog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() pricedomain.Repository {
	return &repo{}
}

func (r *repo) InsertCustomer(ctx context.Context, db *gorm.DB, c *pricedomain.Customer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO customers (id, name, phone, address, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.Name,
		c.Phone,
		c.Address,
		c.Status,
		c.CreatedAt,
		c.UpdatedAt,
	).Error
}

func (r *repo) FindCustomer(ctx context.Context, db *gorm.DB, id snowflake.ID) (*pricedomain.Customer, error) {
	var customer pricedomain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, phone, address, status, created_at, updated_at
		 FROM customers WHERE id = ?`,
		id,
	).Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (r *repo) ListCustomers(ctx context.Context, db *gorm.DB, status string) ([]pricedomain.Customer, error) {
	var customers []pricedomain.Customer
	query := `SELECT id, name, phone, address, status, created_at, updated_at FROM customers`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY id`
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *repo) InsertPrice(ctx context.Context, db *gorm.DB, p *pricedomain.CustomerPrice) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO customer_prices (id, customer_id, unit_price_paise, effective_from, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		p.ID,
		p.CustomerID,
		p.UnitPricePaise,
		p.EffectiveFrom,
		p.CreatedAt,
	).Error
}

func (r *repo) FindPriceAsOf(ctx context.Context, db *gorm.DB, customerID snowflake.ID, asOf time.Time) (*pricedomain.CustomerPrice, error) {
	var price pricedomain.CustomerPrice
	err := db.WithContext(ctx).Raw(
		`SELECT id, customer_id, unit_price_paise, effective_from, created_at
		 FROM customer_prices
		 WHERE customer_id = ? AND effective_from <= ?
		 ORDER BY effective_from DESC, created_at DESC
		 LIMIT 1`,
		customerID,
		asOf,
	).Scan(&price).Error
	if err != nil {
		return nil, err
	}
	if price.ID == 0 {
		return nil, nil
	}
	return &price, nil
}

func (r *repo) ListPrices(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]pricedomain.CustomerPrice, error) {
	var prices []pricedomain.CustomerPrice
	err := db.WithContext(ctx).Raw(
		`SELECT id, customer_id, unit_price_paise, effective_from, created_at
		 FROM customer_prices
		 WHERE customer_id = ?
		 ORDER BY effective_from DESC, created_at DESC`,
		customerID,
	).Scan(&prices).Error
	if err != nil {
		return nil, err
	}
	return prices, nil
}
