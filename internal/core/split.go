package core

import (
	"encoding/json"
	"math"
	"strings"
)

// UserAmount pairs a user with an amount.
type UserAmount struct {
	UserID UserID `json:"userId"`
	Amount Money  `json:"amount"`
}

// Amounts is an ordered user → amount mapping. Order is significant: the
// settlement engine walks users in this order, and rounding residue always
// lands on the first entry.
type Amounts []UserAmount

// Get returns the amount for id, zero when absent.
func (a Amounts) Get(id UserID) Money {
	for _, e := range a {
		if e.UserID == id {
			return e.Amount
		}
	}
	return Money{}
}

// Sum totals every entry.
func (a Amounts) Sum() Money {
	var s Money
	for _, e := range a {
		s = s.Add(e.Amount)
	}
	return s
}

// Users lists the keys in order.
func (a Amounts) Users() []UserID {
	out := make([]UserID, len(a))
	for i, e := range a {
		out[i] = e.UserID
	}
	return out
}

// UnmarshalJSON normalizes the split type to upper case so "percent" and
// "PERCENT" decode alike. Unknown names are kept and fail Validate.
func (s *SplitType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = SplitType(strings.ToUpper(strings.TrimSpace(raw)))
	return nil
}

// NormalizeOwed distributes total across participants according to the
// split type. Participants must already be deduplicated.
//
// The result lists every participant in input order. A non-positive total
// or an empty participant list yields all zeros. Participants without a
// share entry owe zero for Percent, Amount and Share. Whenever rounding
// leaves a residue it is added to the first participant, so the amounts sum
// to total exactly; Percent skips that correction only when no percentage
// was supplied at all.
func NormalizeOwed(splitType SplitType, participants []UserID, shares []ShareInput, total Money) Amounts {
	owed := make(Amounts, len(participants))
	for i, u := range participants {
		owed[i] = UserAmount{UserID: u}
	}
	if len(participants) == 0 || !total.IsPositive() {
		return owed
	}

	switch splitType {
	case SplitEqual:
		each := divRound(total.Cents, int64(len(participants)))
		for i := range owed {
			owed[i].Amount = Cents(each)
		}
		fixResidue(owed, total)
		return owed
	case SplitPercent, SplitAmount, SplitShare:
	default:
		return owed
	}

	values, present := shareValues(participants, shares)

	switch splitType {
	case SplitPercent:
		var pctSum float64
		for _, u := range present {
			pctSum += values[u]
		}
		specified := pctSum > 0
		if !specified {
			pctSum = 100
		}
		for i := range owed {
			if v, ok := values[owed[i].UserID]; ok {
				owed[i].Amount = proportion(total, v, pctSum)
			}
		}
		if specified {
			fixResidue(owed, total)
		}
	case SplitAmount:
		for i := range owed {
			if v, ok := values[owed[i].UserID]; ok {
				owed[i].Amount = MoneyFromFloat(v)
			}
		}
		fixResidue(owed, total)
	case SplitShare:
		var units float64
		for _, u := range present {
			units += values[u]
		}
		if units > 0 {
			for i := range owed {
				if v, ok := values[owed[i].UserID]; ok {
					owed[i].Amount = proportion(total, v, units)
				}
			}
		}
		fixResidue(owed, total)
	}
	return owed
}

// shareValues indexes the share entries of listed participants. A later
// entry for a user overrides an earlier one; entries for unlisted users are
// ignored.
func shareValues(participants []UserID, shares []ShareInput) (map[UserID]float64, []UserID) {
	listed := make(map[UserID]struct{}, len(participants))
	for _, u := range participants {
		listed[u] = struct{}{}
	}
	values := make(map[UserID]float64, len(shares))
	for _, s := range shares {
		if _, ok := listed[s.UserID]; !ok {
			continue
		}
		if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
			continue
		}
		values[s.UserID] = s.Value
	}
	present := make([]UserID, 0, len(values))
	for _, u := range participants {
		if _, ok := values[u]; ok {
			present = append(present, u)
		}
	}
	return values, present
}

// proportion returns total × part / whole rounded to cents.
func proportion(total Money, part, whole float64) Money {
	return Cents(int64(math.Round(float64(total.Cents) * part / whole)))
}

// divRound divides with half-up rounding; d must be positive.
func divRound(n, d int64) int64 {
	if n >= 0 {
		return (2*n + d) / (2 * d)
	}
	return -((-2*n + d) / (2 * d))
}

func fixResidue(owed Amounts, total Money) {
	if len(owed) == 0 {
		return
	}
	if diff := total.Sub(owed.Sum()); !diff.IsZero() {
		owed[0].Amount = owed[0].Amount.Add(diff)
	}
}
