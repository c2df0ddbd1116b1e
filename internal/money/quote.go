package money

import (
	"errors"

	"comanda-system/internal/domain"
)

var (
	ErrTenderedMissing = errors.New("ingresa con cuanto paga en efectivo")
	ErrTenderedShort   = errors.New("el monto en efectivo es menor al total a pagar")
)

// Quote is everything the cashier screen derives from the raw total plus the
// selected tip and method. It is recomputed from scratch on every input
// change, never stored.
//
// TotalWithRoundedTip and FinalRoundedTotal follow different intermediate
// roundings and are not guaranteed equal; both are displayed, so both are
// kept. AmountDue is always TotalWithRoundedTip.
type Quote struct {
	RawTotal            int64
	ExactTip            int64
	RoundedTip          int64
	ExactTotal          int64
	TotalWithRoundedTip int64
	FinalRoundedTotal   int64
	AmountDue           int64
	Change              int64
	Shortfall           int64
}

// Intent is the cashier's current payment selection. Tendered nil means the
// cash amount has not been entered yet.
type Intent struct {
	TipPercent int
	Method     domain.PaymentMethod
	Tendered   *int64
}

// DefaultIntent is the state every fresh comanda load resets to.
func DefaultIntent() Intent {
	return Intent{TipPercent: 0, Method: domain.MethodDebit, Tendered: nil}
}

// Compute derives the full quote for a raw total and intent.
func Compute(rawTotal int64, intent Intent) Quote {
	tip := int64(intent.TipPercent)
	q := Quote{RawTotal: rawTotal}
	q.ExactTip = RoundHalfUp(rawTotal*tip, 100)
	q.RoundedTip = RoundToHundred(q.ExactTip)
	q.ExactTotal = rawTotal + q.ExactTip
	q.TotalWithRoundedTip = rawTotal + q.RoundedTip
	q.FinalRoundedTotal = RoundToHundred(q.ExactTotal)
	q.AmountDue = q.TotalWithRoundedTip

	if intent.Method == domain.MethodCash && intent.Tendered != nil {
		if d := *intent.Tendered - q.AmountDue; d > 0 {
			q.Change = d
		} else {
			q.Shortfall = -d
		}
	}
	return q
}

// ValidateCommit decides whether a commit may leave the station. Cash needs
// an entered tender covering the amount due; cards are always allowed.
func ValidateCommit(q Quote, intent Intent) error {
	if intent.Method != domain.MethodCash {
		return nil
	}
	if intent.Tendered == nil {
		return ErrTenderedMissing
	}
	if q.Shortfall > 0 {
		return ErrTenderedShort
	}
	return nil
}
