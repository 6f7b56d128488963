package core

// Settlement is the outcome of netting paid against owed for one
// transaction.
type Settlement struct {
	Transfers []Transfer
	// Nets holds paid minus owed per user, in walk order.
	Nets Amounts
	// Unmatched is what remained on the longer side once the other side was
	// exhausted. It is non-zero only when payments do not add up to the
	// owed total.
	Unmatched Money
}

// Balanced reports whether the nets summed to zero.
func (s Settlement) Balanced() bool {
	return s.Nets.Sum().IsZero()
}

type position struct {
	user UserID
	left int64
}

// Settle nets paid against owed and emits the transfers that bring every
// user back to zero using a two-pointer greedy match.
//
// Users are visited in paid order, then any owed-only users in owed order;
// creditors and debtors keep that order. At most debtors+creditors-1
// transfers are emitted. Settle never fails: an imbalance between the two
// sides is reported in Unmatched.
func Settle(paid, owed Amounts) Settlement {
	users := make([]UserID, 0, len(paid)+len(owed))
	seen := make(map[UserID]struct{}, len(paid)+len(owed))
	for _, src := range []Amounts{paid, owed} {
		for _, e := range src {
			if _, ok := seen[e.UserID]; ok {
				continue
			}
			seen[e.UserID] = struct{}{}
			users = append(users, e.UserID)
		}
	}

	nets := make(Amounts, 0, len(users))
	var creditors, debtors []*position
	for _, u := range users {
		n := paid.Get(u).Sub(owed.Get(u))
		nets = append(nets, UserAmount{UserID: u, Amount: n})
		switch {
		case n.IsPositive():
			creditors = append(creditors, &position{user: u, left: n.Cents})
		case n.IsNegative():
			debtors = append(debtors, &position{user: u, left: -n.Cents})
		}
	}

	var transfers []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		d, c := debtors[i], creditors[j]
		amt := min(d.left, c.left)
		if amt > 0 {
			transfers = append(transfers, Transfer{From: d.user, To: c.user, Amount: Cents(amt)})
			d.left -= amt
			c.left -= amt
		}
		if d.left == 0 {
			i++
		}
		if c.left == 0 {
			j++
		}
	}

	var unmatched int64
	for ; i < len(debtors); i++ {
		unmatched += debtors[i].left
	}
	for ; j < len(creditors); j++ {
		unmatched += creditors[j].left
	}

	return Settlement{Transfers: transfers, Nets: nets, Unmatched: Cents(unmatched)}
}

// NetForUser returns user's signed position in tx from its transfers:
// positive when others owe the user, negative when the user owes.
func NetForUser(tx Transaction, user UserID) Money {
	var net Money
	for _, tr := range tx.Transfers {
		if tr.To == user {
			net = net.Add(tr.Amount)
		}
		if tr.From == user {
			net = net.Sub(tr.Amount)
		}
	}
	return net
}
