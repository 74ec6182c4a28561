package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/smallbiznis/dairyos/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() paymentdomain.Repository {
	return &repo{}
}

const paymentColumns = `id, bill_id, customer_id, provider, provider_event_id, provider_payment_id,
	 amount_paise, currency, status, raw_payload, received_at, created_at`

func (r *repo) InsertPayment(ctx context.Context, db *gorm.DB, p *paymentdomain.Payment) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO payments (id, bill_id, customer_id, provider, provider_event_id, provider_payment_id,
		 amount_paise, currency, status, raw_payload, received_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (provider, provider_event_id) DO NOTHING`,
		p.ID,
		p.BillID,
		p.CustomerID,
		p.Provider,
		p.ProviderEventID,
		p.ProviderPaymentID,
		p.AmountPaise,
		p.Currency,
		p.Status,
		p.RawPayload,
		p.ReceivedAt,
		p.CreatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindByProviderEvent(ctx context.Context, db *gorm.DB, provider, providerEventID string) (*paymentdomain.Payment, error) {
	var payment paymentdomain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments WHERE provider = ? AND provider_event_id = ?`,
		provider,
		providerEventID,
	).Scan(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == 0 {
		return nil, nil
	}
	return &payment, nil
}

func (r *repo) ListByBill(ctx context.Context, db *gorm.DB, billID snowflake.ID) ([]paymentdomain.Payment, error) {
	var payments []paymentdomain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments WHERE bill_id = ? ORDER BY received_at`,
		billID,
	).Scan(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repo) LastSuccessByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (*paymentdomain.Payment, error) {
	var payment paymentdomain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments
		 WHERE customer_id = ? AND status = ?
		 ORDER BY received_at DESC
		 LIMIT 1`,
		customerID,
		paymentdomain.StatusCaptured,
	).Scan(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == 0 {
		return nil, nil
	}
	return &payment, nil
}

func (r *repo) ListSuccessForMonth(ctx context.Context, db *gorm.DB, month string) ([]paymentdomain.Payment, error) {
	var payments []paymentdomain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT p.id, p.bill_id, p.customer_id, p.provider, p.provider_event_id, p.provider_payment_id,
		 p.amount_paise, p.currency, p.status, p.received_at, p.created_at
		 FROM payments p
		 JOIN bills b ON b.id = p.bill_id
		 WHERE b.month = ? AND p.status = ?
		 ORDER BY p.received_at`,
		month,
		paymentdomain.StatusCaptured,
	).Scan(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}
