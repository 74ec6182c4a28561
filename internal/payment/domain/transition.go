package domain

// BillState is the slice of a bill the transition depends on.
type BillState struct {
	Exists      bool
	Paid        bool
	AmountPaise int64
}

// Decision is the full effect of applying one event to one bill.
// Persisting it is the caller's job; computing it has no side effects.
type Decision struct {
	Outcome       string
	RecordPayment bool
	PaymentStatus string
	// AmountPaise is what the payment row records: the bill amount on
	// success, zero on failure.
	AmountPaise  int64
	MarkBillPaid bool
}

const (
	OutcomeBillPaid        = "bill_paid"
	OutcomeAlreadyPaid     = "already_paid"
	OutcomeFailureRecorded = "failure_recorded"
	OutcomeIgnored         = "ignored"
	OutcomeDuplicate       = "duplicate"
)

// Transition decides what a verified event does to a bill. A success
// against an unpaid bill settles it; a success against a paid bill is
// recorded but changes nothing; a failure is recorded against an
// unpaid bill only.
func Transition(eventType string, bill BillState) (Decision, error) {
	switch eventType {
	case EventTypePaymentSucceeded:
		if !bill.Exists {
			return Decision{}, ErrBillNotFound
		}
		if bill.Paid {
			return Decision{
				Outcome:       OutcomeAlreadyPaid,
				RecordPayment: true,
				PaymentStatus: StatusCaptured,
				AmountPaise:   bill.AmountPaise,
			}, nil
		}
		return Decision{
			Outcome:       OutcomeBillPaid,
			RecordPayment: true,
			PaymentStatus: StatusCaptured,
			AmountPaise:   bill.AmountPaise,
			MarkBillPaid:  true,
		}, nil

	case EventTypePaymentFailed:
		if !bill.Exists || bill.Paid {
			return Decision{Outcome: OutcomeIgnored}, nil
		}
		return Decision{
			Outcome:       OutcomeFailureRecorded,
			RecordPayment: true,
			PaymentStatus: StatusFailed,
		}, nil

	default:
		return Decision{}, ErrInvalidEvent
	}
}
