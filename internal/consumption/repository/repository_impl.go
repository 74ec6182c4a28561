package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	consumptiondomain "github.com/smallbiznis/dairyos/internal/consumption/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() consumptiondomain.Repository {
	return &repo{}
}

func (r *repo) FindEntry(ctx context.Context, db *gorm.DB, customerID snowflake.ID, date time.Time) (*consumptiondomain.Entry, error) {
	var entry consumptiondomain.Entry
	err := db.WithContext(ctx).Raw(
		`SELECT id, customer_id, entry_date, quantity_milli, created_at, updated_at
		 FROM consumption_entries
		 WHERE customer_id = ? AND entry_date = ?`,
		customerID,
		date,
	).Scan(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.ID == 0 {
		return nil, nil
	}
	return &entry, nil
}

func (r *repo) InsertEntry(ctx context.Context, db *gorm.DB, e *consumptiondomain.Entry) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO consumption_entries (id, customer_id, entry_date, quantity_milli, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.CustomerID,
		e.EntryDate,
		e.QuantityMilli,
		e.CreatedAt,
		e.UpdatedAt,
	).Error
}

func (r *repo) UpdateEntryQuantity(ctx context.Context, db *gorm.DB, e *consumptiondomain.Entry) error {
	return db.WithContext(ctx).Exec(
		`UPDATE consumption_entries
		 SET quantity_milli = ?, updated_at = ?
		 WHERE id = ?`,
		e.QuantityMilli,
		e.UpdatedAt,
		e.ID,
	).Error
}

func (r *repo) InsertAudit(ctx context.Context, db *gorm.DB, a *consumptiondomain.Audit) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO consumption_audits (id, entry_id, customer_id, entry_date, old_quantity_milli, new_quantity_milli, edited_by, changed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.EntryID,
		a.CustomerID,
		a.EntryDate,
		a.OldQuantityMilli,
		a.NewQuantityMilli,
		a.EditedBy,
		a.ChangedAt,
	).Error
}

func (r *repo) ListEntries(ctx context.Context, db *gorm.DB, customerID snowflake.ID, from, to time.Time) ([]consumptiondomain.Entry, error) {
	var entries []consumptiondomain.Entry
	err := db.WithContext(ctx).Raw(
		`SELECT id, customer_id, entry_date, quantity_milli, created_at, updated_at
		 FROM consumption_entries
		 WHERE customer_id = ? AND entry_date >= ? AND entry_date <= ?
		 ORDER BY entry_date`,
		customerID,
		from,
		to,
	).Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) ListAudits(ctx context.Context, db *gorm.DB, customerID snowflake.ID, from, to time.Time) ([]consumptiondomain.Audit, error) {
	var audits []consumptiondomain.Audit
	err := db.WithContext(ctx).Raw(
		`SELECT id, entry_id, customer_id, entry_date, old_quantity_milli, new_quantity_milli, edited_by, changed_at
		 FROM consumption_audits
		 WHERE customer_id = ? AND entry_date >= ? AND entry_date <= ?
		 ORDER BY changed_at DESC`,
		customerID,
		from,
		to,
	).Scan(&audits).Error
	if err != nil {
		return nil, err
	}
	return audits, nil
}

func (r *repo) SumQuantity(ctx context.Context, db *gorm.DB, customerID snowflake.ID, from, to time.Time) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(quantity_milli), 0)
		 FROM consumption_entries
		 WHERE customer_id = ? AND entry_date >= ? AND entry_date <= ?`,
		customerID,
		from,
		to,
	).Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
