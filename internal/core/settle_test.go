package core

import (
	"testing"
)

func applyTransfers(nets Amounts, transfers []Transfer) map[UserID]int64 {
	out := make(map[UserID]int64, len(nets))
	for _, n := range nets {
		out[n.UserID] = n.Amount.Cents
	}
	for _, tr := range transfers {
		out[tr.From] += tr.Amount.Cents
		out[tr.To] -= tr.Amount.Cents
	}
	return out
}

func TestSettleSinglePayer(t *testing.T) {
	paid := Amounts{{UserID: "A", Amount: Cents(10000)}}
	owed := Amounts{
		{UserID: "A", Amount: Cents(3333)},
		{UserID: "B", Amount: Cents(3333)},
		{UserID: "C", Amount: Cents(3334)},
	}
	s := Settle(paid, owed)

	if len(s.Transfers) != 2 {
		t.Fatalf("expected 2 transfers, got %v", s.Transfers)
	}
	var total int64
	for _, tr := range s.Transfers {
		if tr.To != "A" {
			t.Fatalf("expected transfer to A, got %+v", tr)
		}
		total += tr.Amount.Cents
	}
	if total != 6667 {
		t.Fatalf("expected 6667 transferred, got %d", total)
	}
	if s.Transfers[0].From != "B" || s.Transfers[1].From != "C" {
		t.Fatalf("expected B then C, got %v", s.Transfers)
	}
	for u, n := range applyTransfers(s.Nets, s.Transfers) {
		if n != 0 {
			t.Fatalf("%s not settled: %d", u, n)
		}
	}
	if !s.Balanced() || !s.Unmatched.IsZero() {
		t.Fatalf("expected balanced settlement, got %+v", s)
	}
}

func TestSettleMultiplePayers(t *testing.T) {
	paid := AggregatePaid([]Payer{
		{UserID: "A", Amount: Cents(6000)},
		{UserID: "B", Amount: Cents(4000)},
	})
	owed := NormalizeOwed(SplitEqual, users("A", "B", "C", "D"), nil, Cents(10000))
	s := Settle(paid, owed)

	// nets: A +35, B +15, C -25, D -25
	want := []Transfer{
		{From: "C", To: "A", Amount: Cents(2500)},
		{From: "D", To: "A", Amount: Cents(1000)},
		{From: "D", To: "B", Amount: Cents(1500)},
	}
	if len(s.Transfers) != len(want) {
		t.Fatalf("expected %v, got %v", want, s.Transfers)
	}
	for i := range want {
		if s.Transfers[i] != want[i] {
			t.Fatalf("transfer %d: expected %+v, got %+v", i, want[i], s.Transfers[i])
		}
	}
	if len(s.Transfers) > 4-1 {
		t.Fatalf("too many transfers: %d", len(s.Transfers))
	}
}

func TestSettleNothingToDo(t *testing.T) {
	paid := Amounts{{UserID: "A", Amount: Cents(500)}, {UserID: "B", Amount: Cents(500)}}
	owed := NormalizeOwed(SplitEqual, users("A", "B"), nil, Cents(1000))
	s := Settle(paid, owed)
	if len(s.Transfers) != 0 {
		t.Fatalf("expected no transfers, got %v", s.Transfers)
	}
}

func TestSettleEmpty(t *testing.T) {
	s := Settle(nil, nil)
	if len(s.Transfers) != 0 || !s.Unmatched.IsZero() || !s.Balanced() {
		t.Fatalf("expected empty settlement, got %+v", s)
	}
}

func TestSettleUnderpaymentReportsUnmatched(t *testing.T) {
	paid := Amounts{{UserID: "A", Amount: Cents(800)}}
	owed := NormalizeOwed(SplitEqual, users("A", "B"), nil, Cents(1000))
	s := Settle(paid, owed)
	// A nets +300, B nets -500: B covers A and 2.00 stays unmatched.
	if len(s.Transfers) != 1 || s.Transfers[0].Amount.Cents != 300 {
		t.Fatalf("unexpected transfers %v", s.Transfers)
	}
	if s.Unmatched.Cents != 200 || s.Balanced() {
		t.Fatalf("expected 200 unmatched, got %+v", s)
	}
}

func TestSettleOwedOnlyUsersFollowOwedOrder(t *testing.T) {
	paid := Amounts{{UserID: "Z", Amount: Cents(300)}}
	owed := Amounts{
		{UserID: "Y", Amount: Cents(100)},
		{UserID: "X", Amount: Cents(200)},
	}
	s := Settle(paid, owed)
	if s.Transfers[0].From != "Y" || s.Transfers[1].From != "X" {
		t.Fatalf("expected Y then X, got %v", s.Transfers)
	}
	order := s.Nets.Users()
	if order[0] != "Z" || order[1] != "Y" || order[2] != "X" {
		t.Fatalf("unexpected walk order %v", order)
	}
}

func TestNetForUser(t *testing.T) {
	tx := Transaction{Transfers: []Transfer{
		{From: "B", To: "A", Amount: Cents(500)},
		{From: "A", To: "C", Amount: Cents(200)},
	}}
	if got := NetForUser(tx, "A"); got.Cents != 300 {
		t.Fatalf("expected 300, got %d", got.Cents)
	}
	if got := NetForUser(tx, "B"); got.Cents != -500 {
		t.Fatalf("expected -500, got %d", got.Cents)
	}
	if got := NetForUser(tx, "D"); !got.IsZero() {
		t.Fatalf("expected 0, got %d", got.Cents)
	}
}
