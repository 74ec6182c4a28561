package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/dairyos/internal/clock"
	paymentdomain "github.com/smallbiznis/dairyos/internal/payment/domain"
)

const (
	// HeaderSignature carries the hex HMAC-SHA256 of the raw body.
	HeaderSignature = "X-Razorpay-Signature"
	// HeaderEventID, when present, overrides the entity id as the
	// replay-protection key.
	HeaderEventID = "X-Razorpay-Event-ID"
	// HeaderTimestamp is the delivery time used for the skew gate.
	HeaderTimestamp = "X-Razorpay-Timestamp"
)

type Adapter struct {
	webhookSecret string
	maxSkew       time.Duration
	clock         clock.Clock
}

func New(webhookSecret string, maxSkew time.Duration, clk clock.Clock) *Adapter {
	return &Adapter{
		webhookSecret: strings.TrimSpace(webhookSecret),
		maxSkew:       maxSkew,
		clock:         clk,
	}
}

func (a *Adapter) Provider() string {
	return "razorpay"
}

// Verify checks the hex HMAC-SHA256 of the raw body in constant time,
// then gates on delivery-timestamp skew when the header is present.
func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	if a.webhookSecret == "" {
		return paymentdomain.ErrInvalidSignature
	}

	signature := strings.TrimSpace(headers.Get(HeaderSignature))
	if signature == "" {
		return paymentdomain.ErrMissingSignature
	}

	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	_, _ = mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return paymentdomain.ErrInvalidSignature
	}

	if raw := strings.TrimSpace(headers.Get(HeaderTimestamp)); raw != "" && a.maxSkew > 0 {
		ts, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return paymentdomain.ErrInvalidTimestamp
		}
		skew := a.clock.Now().Sub(time.Unix(ts, 0).UTC())
		if skew < 0 {
			skew = -skew
		}
		if skew > a.maxSkew {
			return paymentdomain.ErrTimestampSkew
		}
	}
	return nil
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (*paymentdomain.PaymentEvent, error) {
	var event razorpayEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}

	var (
		entity    razorpayEntity
		eventType string
	)
	switch strings.TrimSpace(event.Event) {
	case "payment.captured":
		entity = event.Payload.Payment.Entity
		eventType = paymentdomain.EventTypePaymentSucceeded
	case "order.paid":
		entity = event.Payload.Order.Entity
		eventType = paymentdomain.EventTypePaymentSucceeded
	case "payment.failed":
		entity = event.Payload.Payment.Entity
		eventType = paymentdomain.EventTypePaymentFailed
	default:
		return nil, paymentdomain.ErrEventIgnored
	}

	if strings.TrimSpace(entity.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	billRaw := strings.TrimSpace(entity.Notes.BillID)
	if billRaw == "" {
		return nil, paymentdomain.ErrEventIgnored
	}
	billID, err := paymentdomain.ParseID(billRaw)
	if err != nil {
		return nil, paymentdomain.ErrInvalidEvent
	}

	occurredAt := a.clock.Now()
	if event.CreatedAt > 0 {
		occurredAt = time.Unix(event.CreatedAt, 0).UTC()
	}

	return &paymentdomain.PaymentEvent{
		Provider:          "razorpay",
		ProviderEventID:   entity.ID,
		ProviderPaymentID: entity.ID,
		Type:              eventType,
		BillID:            billID,
		AmountPaise:       entity.Amount,
		Currency:          strings.ToUpper(strings.TrimSpace(entity.Currency)),
		OccurredAt:        occurredAt,
		RawPayload:        payload,
	}, nil
}

type razorpayEvent struct {
	Event     string          `json:"event"`
	CreatedAt int64           `json:"created_at"`
	Payload   razorpayPayload `json:"payload"`
}

type razorpayPayload struct {
	Payment razorpayWrapper `json:"payment"`
	Order   razorpayWrapper `json:"order"`
}

type razorpayWrapper struct {
	Entity razorpayEntity `json:"entity"`
}

type razorpayEntity struct {
	ID       string        `json:"id"`
	Amount   int64         `json:"amount"`
	Currency string        `json:"currency"`
	OrderID  string        `json:"order_id"`
	Notes    razorpayNotes `json:"notes"`
}

type razorpayNotes struct {
	BillID     string `json:"bill_id"`
	CustomerID string `json:"customer_id"`
	Month      string `json:"month"`
}
