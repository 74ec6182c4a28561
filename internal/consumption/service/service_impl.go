package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/dairyos/internal/clock"
	"github.com/smallbiznis/dairyos/internal/config"
	consumptiondomain "github.com/smallbiznis/dairyos/internal/consumption/domain"
	"github.com/smallbiznis/dairyos/internal/money"
	"github.com/smallbiznis/dairyos/internal/observability/metrics"
	pricedomain "github.com/smallbiznis/dairyos/internal/pricecatalog/domain"
)

// maxQuantityMilli caps a single day at 1000 litres.
const maxQuantityMilli = 1000 * money.QuantityScale

const dateLayout = "2006-01-02"

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Policy  *config.BillingPolicyHolder
	Repo    consumptiondomain.Repository
	Catalog pricedomain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	policy  *config.BillingPolicyHolder
	repo    consumptiondomain.Repository
	catalog pricedomain.Repository
	metrics *metrics.Metrics
}

func New(p Params) consumptiondomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("consumption.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		policy:  p.Policy,
		repo:    p.Repo,
		catalog: p.Catalog,
		metrics: p.Metrics,
	}
}

func (s *Service) Upsert(ctx context.Context, req consumptiondomain.UpsertRequest) (*consumptiondomain.UpsertResponse, error) {
	customerID, err := consumptiondomain.ParseID(strings.TrimSpace(req.CustomerID))
	if err != nil {
		return nil, consumptiondomain.ErrInvalidID
	}

	date, err := time.ParseInLocation(dateLayout, strings.TrimSpace(req.Date), time.UTC)
	if err != nil {
		return nil, consumptiondomain.ErrInvalidDate
	}

	quantity, err := money.ParseQuantity(req.Quantity)
	if err != nil || quantity < 0 || quantity > maxQuantityMilli {
		return nil, consumptiondomain.ErrInvalidQuantity
	}

	today := clock.Today(s.clock)
	if date.After(today) {
		return nil, consumptiondomain.ErrInvalidDate
	}

	lockDays := s.policy.Get().LockDays
	cutoff := today.AddDate(0, 0, -lockDays)
	if date.Before(cutoff) {
		s.metrics.RecordConsumptionWrite("locked")
		return nil, &consumptiondomain.EntryLockedError{Cutoff: cutoff, LockDays: lockDays}
	}

	customer, err := s.catalog.FindCustomer(ctx, s.db, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, consumptiondomain.ErrCustomerNotFound
	}

	var resp *consumptiondomain.UpsertResponse
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindEntry(ctx, tx, customerID, date)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if existing == nil {
			entry := &consumptiondomain.Entry{
				ID:            s.genID.Generate(),
				CustomerID:    customerID,
				EntryDate:     date,
				QuantityMilli: quantity,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if err := s.repo.InsertEntry(ctx, tx, entry); err != nil {
				return err
			}
			resp = s.toUpsertResponse(consumptiondomain.UpsertCreated, entry)
			return nil
		}

		if existing.QuantityMilli == quantity {
			resp = s.toUpsertResponse(consumptiondomain.UpsertUnchanged, existing)
			return nil
		}

		oldQuantity := existing.QuantityMilli
		existing.QuantityMilli = quantity
		existing.UpdatedAt = now
		if err := s.repo.UpdateEntryQuantity(ctx, tx, existing); err != nil {
			return err
		}

		// The correction and its audit row commit or roll back together.
		audit := &consumptiondomain.Audit{
			ID:               s.genID.Generate(),
			EntryID:          existing.ID,
			CustomerID:       customerID,
			EntryDate:        date,
			OldQuantityMilli: oldQuantity,
			NewQuantityMilli: quantity,
			EditedBy:         strings.TrimSpace(req.EditedBy),
			ChangedAt:        now,
		}
		if err := s.repo.InsertAudit(ctx, tx, audit); err != nil {
			return err
		}

		resp = s.toUpsertResponse(consumptiondomain.UpsertUpdated, existing)
		return nil
	})
	if err != nil {
		s.metrics.RecordConsumptionWrite(metrics.ResultError)
		return nil, err
	}

	s.metrics.RecordConsumptionWrite(resp.Status)
	s.log.Info("consumption upserted",
		zap.String("customer_id", customerID.String()),
		zap.String("date", date.Format(dateLayout)),
		zap.String("status", resp.Status),
	)
	return resp, nil
}

func (s *Service) GetRange(ctx context.Context, req consumptiondomain.RangeRequest) ([]consumptiondomain.DayQuantity, error) {
	customerID, from, to, err := s.parseRange(req)
	if err != nil {
		return nil, err
	}

	entries, err := s.repo.ListEntries(ctx, s.db, customerID, from, to)
	if err != nil {
		return nil, err
	}

	byDate := make(map[string]int64, len(entries))
	for i := range entries {
		byDate[entries[i].EntryDate.Format(dateLayout)] = entries[i].QuantityMilli
	}

	var days []consumptiondomain.DayQuantity
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		key := d.Format(dateLayout)
		days = append(days, consumptiondomain.DayQuantity{
			Date:     key,
			Quantity: money.FormatQuantity(byDate[key]),
		})
	}
	return days, nil
}

func (s *Service) ListAudits(ctx context.Context, req consumptiondomain.RangeRequest) ([]consumptiondomain.AuditResponse, error) {
	customerID, from, to, err := s.parseRange(req)
	if err != nil {
		return nil, err
	}

	audits, err := s.repo.ListAudits(ctx, s.db, customerID, from, to)
	if err != nil {
		return nil, err
	}

	resp := make([]consumptiondomain.AuditResponse, 0, len(audits))
	for i := range audits {
		resp = append(resp, consumptiondomain.AuditResponse{
			EntryID:     audits[i].EntryID.String(),
			Date:        audits[i].EntryDate.Format(dateLayout),
			OldQuantity: money.FormatQuantity(audits[i].OldQuantityMilli),
			NewQuantity: money.FormatQuantity(audits[i].NewQuantityMilli),
			EditedBy:    audits[i].EditedBy,
			ChangedAt:   audits[i].ChangedAt,
		})
	}
	return resp, nil
}

func (s *Service) MonthTotal(ctx context.Context, customerID snowflake.ID, month string) (int64, error) {
	from, to, err := MonthBounds(month)
	if err != nil {
		return 0, consumptiondomain.ErrInvalidDate
	}
	return s.repo.SumQuantity(ctx, s.db, customerID, from, to)
}

// MonthBounds returns the first and last day of a "YYYY-MM" month.
func MonthBounds(month string) (time.Time, time.Time, error) {
	from, err := time.ParseInLocation("2006-01", strings.TrimSpace(month), time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to := from.AddDate(0, 1, -1)
	return from, to, nil
}

func (s *Service) parseRange(req consumptiondomain.RangeRequest) (snowflake.ID, time.Time, time.Time, error) {
	customerID, err := consumptiondomain.ParseID(strings.TrimSpace(req.CustomerID))
	if err != nil {
		return 0, time.Time{}, time.Time{}, consumptiondomain.ErrInvalidID
	}
	from, err := time.ParseInLocation(dateLayout, strings.TrimSpace(req.From), time.UTC)
	if err != nil {
		return 0, time.Time{}, time.Time{}, consumptiondomain.ErrInvalidDate
	}
	to, err := time.ParseInLocation(dateLayout, strings.TrimSpace(req.To), time.UTC)
	if err != nil {
		return 0, time.Time{}, time.Time{}, consumptiondomain.ErrInvalidDate
	}
	if to.Before(from) {
		return 0, time.Time{}, time.Time{}, consumptiondomain.ErrInvalidRange
	}
	return customerID, from, to, nil
}

func (s *Service) toUpsertResponse(status string, entry *consumptiondomain.Entry) *consumptiondomain.UpsertResponse {
	return &consumptiondomain.UpsertResponse{
		Status:   status,
		EntryID:  entry.ID.String(),
		Date:     entry.EntryDate.Format(dateLayout),
		Quantity: money.FormatQuantity(entry.QuantityMilli),
	}
}
