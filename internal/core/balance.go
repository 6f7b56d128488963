package core

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultRecentCounterparts  = 5
	DefaultRecentTransactions = 10
)

type (
	// CounterpartAmount is one row of a balance summary.
	CounterpartAmount struct {
		CounterpartID UserID `json:"counterpartId"`
		Amount        Money  `json:"amount"`
	}

	// Totals sums what the viewpoint user will receive and has to pay.
	Totals struct {
		ToReceive Money `json:"toReceive"`
		ToPay     Money `json:"toPay"`
	}

	// LedgerEntry is a signed amount relative to one viewpoint user:
	// positive when the counterparty owes the user, negative when the user
	// owes the counterparty.
	LedgerEntry struct {
		ID             string    `json:"id"`
		BatchID        string    `json:"batchId,omitempty"`
		CounterpartyID UserID    `json:"counterpartyId"`
		GroupID        string    `json:"groupId,omitempty"`
		Amount         Money     `json:"amount"`
		Note           string    `json:"note,omitempty"`
		Category       Category  `json:"category"`
		CreatedAt      time.Time `json:"createdAt"`
	}

	// EqualSplitInput describes a single-payer expense split evenly.
	EqualSplitInput struct {
		Total          Money    `json:"total"`
		PayerID        UserID   `json:"payerId"`
		ParticipantIDs []UserID `json:"participantIds"`
		// ExcludePayer leaves the payer out of the split; by default the
		// payer takes a share too.
		ExcludePayer bool      `json:"excludePayer,omitempty"`
		Note         string    `json:"note,omitempty"`
		Category     Category  `json:"category,omitempty"`
		GroupID      string    `json:"groupId,omitempty"`
		CreatedAt    time.Time `json:"createdAt,omitempty"`
	}
)

// OwedToMe sums, per sender, every transfer addressed to me. Totals under
// one cent are dropped and the rest sorted by amount, largest first; equal
// amounts keep first-seen order.
func OwedToMe(txs []Transaction, me UserID) []CounterpartAmount {
	return summarize(txs, func(tr Transfer) (UserID, bool) {
		return tr.From, tr.To == me
	})
}

// IOwe is the mirror of OwedToMe: transfers sent by me, per receiver.
func IOwe(txs []Transaction, me UserID) []CounterpartAmount {
	return summarize(txs, func(tr Transfer) (UserID, bool) {
		return tr.To, tr.From == me
	})
}

func summarize(txs []Transaction, match func(Transfer) (UserID, bool)) []CounterpartAmount {
	var out []CounterpartAmount
	index := make(map[UserID]int)
	for _, tx := range txs {
		for _, tr := range tx.Transfers {
			who, ok := match(tr)
			if !ok {
				continue
			}
			if i, seen := index[who]; seen {
				out[i].Amount = out[i].Amount.Add(tr.Amount)
				continue
			}
			index[who] = len(out)
			out = append(out, CounterpartAmount{CounterpartID: who, Amount: tr.Amount})
		}
	}
	kept := out[:0]
	for _, row := range out {
		if row.Amount.IsPositive() {
			kept = append(kept, row)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Amount.Cents > kept[j].Amount.Cents
	})
	return kept
}

// EntriesFor flattens one transaction into signed entries relative to me,
// one per counterparty, in the order counterparties first appear in the
// transfers. Transactions that do not involve me yield nothing.
func EntriesFor(tx Transaction, me UserID) []LedgerEntry {
	var entries []LedgerEntry
	index := make(map[UserID]int)
	add := func(who UserID, amt Money) {
		if i, ok := index[who]; ok {
			entries[i].Amount = entries[i].Amount.Add(amt)
			return
		}
		index[who] = len(entries)
		entries = append(entries, LedgerEntry{
			ID:             tx.ID + ":" + string(who),
			BatchID:        tx.ID,
			CounterpartyID: who,
			GroupID:        tx.GroupID,
			Amount:         amt,
			Note:           tx.Title,
			Category:       tx.Category,
			CreatedAt:      tx.CreatedAt,
		})
	}
	for _, tr := range tx.Transfers {
		switch me {
		case tr.To:
			add(tr.From, tr.Amount)
		case tr.From:
			add(tr.To, tr.Amount.Neg())
		}
	}
	kept := entries[:0]
	for _, e := range entries {
		if !e.Amount.IsZero() {
			kept = append(kept, e)
		}
	}
	return kept
}

// Entries flattens a newest-first transaction list, keeping its order.
func Entries(txs []Transaction, me UserID) []LedgerEntry {
	var out []LedgerEntry
	for _, tx := range txs {
		out = append(out, EntriesFor(tx, me)...)
	}
	return out
}

// ExpandEqualSplit turns a single-payer equal split into entries relative
// to me. When I paid, every other participant owes me a share; when someone
// else paid and I took part, I owe the payer one share; otherwise nothing
// involves me and no entries are produced.
func ExpandEqualSplit(in EqualSplitInput, me UserID) []LedgerEntry {
	everyone := DedupeUsers(in.ParticipantIDs)
	if !in.ExcludePayer {
		everyone = DedupeUsers(append(everyone, in.PayerID))
	}
	if len(everyone) == 0 {
		return nil
	}
	share := Cents(divRound(in.Total.Cents, int64(len(everyone))))

	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	batchID := uuid.NewString()
	entry := func(who UserID, amt Money) LedgerEntry {
		return LedgerEntry{
			ID:             uuid.NewString(),
			BatchID:        batchID,
			CounterpartyID: who,
			GroupID:        in.GroupID,
			Amount:         amt,
			Note:           in.Note,
			Category:       in.Category.OrDefault(),
			CreatedAt:      createdAt,
		}
	}

	var entries []LedgerEntry
	if in.PayerID == me {
		for _, u := range everyone {
			if u == me {
				continue
			}
			entries = append(entries, entry(u, share))
		}
		return entries
	}
	for _, u := range everyone {
		if u == me {
			return append(entries, entry(in.PayerID, share.Neg()))
		}
	}
	return nil
}

// Validate rejects an equal split an outer surface should not expand.
func (in EqualSplitInput) Validate() error {
	if in.Total.IsNegative() {
		return ErrNegativeAmount
	}
	if in.Total.IsZero() {
		return ErrInvalidAmount
	}
	if in.PayerID == "" {
		return ErrNoPayer
	}
	if in.Category != "" && !in.Category.Valid() {
		return ErrInvalidCategory
	}
	if len(DedupeUsers(in.ParticipantIDs)) == 0 {
		return ErrNoParticipants
	}
	return nil
}

// SumTotals folds signed entries into amounts to receive and to pay.
func SumTotals(entries []LedgerEntry) Totals {
	var t Totals
	for _, e := range entries {
		if e.Amount.IsPositive() {
			t.ToReceive = t.ToReceive.Add(e.Amount)
		} else {
			t.ToPay = t.ToPay.Add(e.Amount.Neg())
		}
	}
	return t
}

// TotalsFor computes Totals for me over a transaction list.
func TotalsFor(txs []Transaction, me UserID) Totals {
	return SumTotals(Entries(txs, me))
}

// RecentCounterparts collects unique counterparties in first-seen order
// from a newest-first entry list, stopping at limit (default 5).
func RecentCounterparts(entries []LedgerEntry, limit int) []UserID {
	if limit <= 0 {
		limit = DefaultRecentCounterparts
	}
	seen := make(map[UserID]struct{})
	var out []UserID
	for _, e := range entries {
		if _, ok := seen[e.CounterpartyID]; ok {
			continue
		}
		seen[e.CounterpartyID] = struct{}{}
		out = append(out, e.CounterpartyID)
		if len(out) >= limit {
			break
		}
	}
	return out
}

// RecentCounterpartsFor is RecentCounterparts over transactions seen by me.
func RecentCounterpartsFor(txs []Transaction, me UserID, limit int) []UserID {
	return RecentCounterparts(Entries(txs, me), limit)
}

// Recent returns at most limit transactions from a newest-first list
// (default 10). The returned slice is a copy.
func Recent(txs []Transaction, limit int) []Transaction {
	if limit <= 0 {
		limit = DefaultRecentTransactions
	}
	if limit > len(txs) {
		limit = len(txs)
	}
	out := make([]Transaction, limit)
	copy(out, txs[:limit])
	return out
}
