package core

// AggregatePaid sums what each payer contributed, in first-seen order.
// Duplicate payers accumulate. The result is not checked against the
// expense total: over- and under-payment only move net positions.
func AggregatePaid(payers []Payer) Amounts {
	paid := make(Amounts, 0, len(payers))
	index := make(map[UserID]int, len(payers))
	for _, p := range payers {
		if p.UserID == "" {
			continue
		}
		if i, ok := index[p.UserID]; ok {
			paid[i].Amount = paid[i].Amount.Add(p.Amount)
			continue
		}
		index[p.UserID] = len(paid)
		paid = append(paid, UserAmount{UserID: p.UserID, Amount: p.Amount})
	}
	return paid
}
