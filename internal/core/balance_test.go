package core

import (
	"testing"
	"time"
)

func tx(id string, transfers ...Transfer) Transaction {
	return Transaction{ID: id, Title: "t-" + id, Category: CategoryFood, Transfers: transfers}
}

func tr(from, to string, cents int64) Transfer {
	return Transfer{From: UserID(from), To: UserID(to), Amount: Cents(cents)}
}

func TestOwedToMeAccumulates(t *testing.T) {
	txs := []Transaction{
		tx("2", tr("B", "me", 500)),
		tx("1", tr("B", "me", 1000)),
	}
	got := OwedToMe(txs, "me")
	if len(got) != 1 || got[0].CounterpartID != "B" || got[0].Amount.Cents != 1500 {
		t.Fatalf("expected B 15.00, got %v", got)
	}
}

func TestOwedToMeSortsAndFilters(t *testing.T) {
	txs := []Transaction{
		tx("3", tr("C", "me", 200), tr("D", "other", 9999)),
		tx("2", tr("B", "me", 700), tr("me", "E", 300)),
		tx("1", tr("E", "me", 200), tr("C", "me", 100)),
	}
	got := OwedToMe(txs, "me")
	want := []CounterpartAmount{
		{CounterpartID: "B", Amount: Cents(700)},
		{CounterpartID: "C", Amount: Cents(300)},
		{CounterpartID: "E", Amount: Cents(200)},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("row %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestOwedToMeStableOnTies(t *testing.T) {
	txs := []Transaction{tx("1", tr("X", "me", 100), tr("Y", "me", 100), tr("W", "me", 100))}
	got := OwedToMe(txs, "me")
	if got[0].CounterpartID != "X" || got[1].CounterpartID != "Y" || got[2].CounterpartID != "W" {
		t.Fatalf("expected first-seen order on ties, got %v", got)
	}
}

func TestIOwe(t *testing.T) {
	txs := []Transaction{
		tx("2", tr("me", "A", 250)),
		tx("1", tr("me", "A", 250), tr("me", "B", 900), tr("C", "me", 50)),
	}
	got := IOwe(txs, "me")
	if len(got) != 2 || got[0].CounterpartID != "B" || got[1].Amount.Cents != 500 {
		t.Fatalf("unexpected %v", got)
	}
}

func TestEntriesForAndTotals(t *testing.T) {
	txs := []Transaction{
		tx("2", tr("me", "A", 400)),
		tx("1", tr("A", "me", 1000), tr("B", "me", 300), tr("B", "C", 50)),
	}
	entries := Entries(txs, "me")
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %v", entries)
	}
	if entries[0].CounterpartyID != "A" || entries[0].Amount.Cents != -400 || entries[0].BatchID != "2" {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	totals := SumTotals(entries)
	if totals.ToReceive.Cents != 1300 || totals.ToPay.Cents != 400 {
		t.Fatalf("unexpected totals %+v", totals)
	}
	if TotalsFor(txs, "me") != totals {
		t.Fatalf("TotalsFor disagrees with SumTotals")
	}
}

func TestEntriesForNetsBothDirections(t *testing.T) {
	entries := EntriesFor(tx("1", tr("A", "me", 500), tr("me", "A", 500), tr("me", "B", 100)), "me")
	if len(entries) != 1 || entries[0].CounterpartyID != "B" {
		t.Fatalf("expected only B to remain, got %v", entries)
	}
}

func TestRecentCounterparts(t *testing.T) {
	txs := []Transaction{
		tx("4", tr("A", "me", 100)),
		tx("3", tr("me", "B", 100)),
		tx("2", tr("A", "me", 100), tr("C", "me", 100)),
		tx("1", tr("D", "me", 100)),
	}
	got := RecentCounterpartsFor(txs, "me", 3)
	if len(got) != 3 || got[0] != "A" || got[1] != "B" || got[2] != "C" {
		t.Fatalf("unexpected %v", got)
	}
	if all := RecentCounterpartsFor(txs, "me", 0); len(all) != 4 {
		t.Fatalf("default limit should cover all 4, got %v", all)
	}
}

func TestRecent(t *testing.T) {
	var txs []Transaction
	for i := 0; i < 12; i++ {
		txs = append(txs, Transaction{ID: string(rune('a' + i))})
	}
	if got := Recent(txs, 0); len(got) != DefaultRecentTransactions || got[0].ID != "a" {
		t.Fatalf("unexpected default recent %v", got)
	}
	if got := Recent(txs[:2], 5); len(got) != 2 {
		t.Fatalf("expected 2, got %d", len(got))
	}
}

func TestExpandEqualSplit(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("I paid", func(t *testing.T) {
		entries := ExpandEqualSplit(EqualSplitInput{
			Total: Cents(3000), PayerID: "me", ParticipantIDs: users("A", "B"), CreatedAt: at,
		}, "me")
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %v", entries)
		}
		for _, e := range entries {
			if e.Amount.Cents != 1000 || e.BatchID != entries[0].BatchID || e.Category != CategoryMisc {
				t.Fatalf("unexpected entry %+v", e)
			}
		}
	})

	t.Run("someone else paid", func(t *testing.T) {
		entries := ExpandEqualSplit(EqualSplitInput{
			Total: Cents(3000), PayerID: "A", ParticipantIDs: users("me", "B"), CreatedAt: at,
		}, "me")
		if len(entries) != 1 || entries[0].CounterpartyID != "A" || entries[0].Amount.Cents != -1000 {
			t.Fatalf("unexpected %v", entries)
		}
	})

	t.Run("payer excluded", func(t *testing.T) {
		entries := ExpandEqualSplit(EqualSplitInput{
			Total: Cents(3000), PayerID: "me", ParticipantIDs: users("A", "B"), ExcludePayer: true,
		}, "me")
		if len(entries) != 2 || entries[0].Amount.Cents != 1500 {
			t.Fatalf("unexpected %v", entries)
		}
	})

	t.Run("not involved", func(t *testing.T) {
		entries := ExpandEqualSplit(EqualSplitInput{
			Total: Cents(3000), PayerID: "A", ParticipantIDs: users("B"),
		}, "me")
		if len(entries) != 0 {
			t.Fatalf("expected no entries, got %v", entries)
		}
	})
}

func TestEqualSplitInputValidate(t *testing.T) {
	valid := EqualSplitInput{Total: Cents(3000), PayerID: "me", ParticipantIDs: users("A")}
	cases := []struct {
		name   string
		mutate func(*EqualSplitInput)
		want   error
	}{
		{"valid", func(*EqualSplitInput) {}, nil},
		{"zero total", func(in *EqualSplitInput) { in.Total = Cents(0) }, ErrInvalidAmount},
		{"negative total", func(in *EqualSplitInput) { in.Total = Cents(-1) }, ErrNegativeAmount},
		{"no payer", func(in *EqualSplitInput) { in.PayerID = "" }, ErrNoPayer},
		{"bad category", func(in *EqualSplitInput) { in.Category = "rent" }, ErrInvalidCategory},
		{"no participants", func(in *EqualSplitInput) { in.ParticipantIDs = users("") }, ErrNoParticipants},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.mutate(&in)
			if err := in.Validate(); err != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
