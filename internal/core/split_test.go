package core

import (
	"testing"
)

func users(ids ...string) []UserID {
	out := make([]UserID, len(ids))
	for i, id := range ids {
		out[i] = UserID(id)
	}
	return out
}

func expectAmounts(t *testing.T, got Amounts, want map[UserID]int64, order []UserID) {
	t.Helper()
	if len(got) != len(order) {
		t.Fatalf("expected %d entries, got %d (%v)", len(order), len(got), got)
	}
	for i, u := range order {
		if got[i].UserID != u {
			t.Fatalf("entry %d: expected user %s, got %s", i, u, got[i].UserID)
		}
		if got[i].Amount.Cents != want[u] {
			t.Fatalf("%s: expected %d cents, got %d", u, want[u], got[i].Amount.Cents)
		}
	}
}

func TestNormalizeOwedEqual(t *testing.T) {
	p := users("A", "B", "C")
	got := NormalizeOwed(SplitEqual, p, nil, Cents(10000))
	expectAmounts(t, got, map[UserID]int64{"A": 3334, "B": 3333, "C": 3333}, p)
	if got.Sum().Cents != 10000 {
		t.Fatalf("expected sum 10000, got %d", got.Sum().Cents)
	}
}

func TestNormalizeOwedEqualResidueFollowsOrder(t *testing.T) {
	p := users("C", "A", "B")
	got := NormalizeOwed(SplitEqual, p, nil, Cents(10000))
	expectAmounts(t, got, map[UserID]int64{"C": 3334, "A": 3333, "B": 3333}, p)
}

func TestNormalizeOwedEqualNegativeResidue(t *testing.T) {
	// 2.00 / 3 rounds to 0.67 each, which overshoots by a cent.
	p := users("A", "B", "C")
	got := NormalizeOwed(SplitEqual, p, nil, Cents(200))
	expectAmounts(t, got, map[UserID]int64{"A": 66, "B": 67, "C": 67}, p)
}

func TestNormalizeOwedPercent(t *testing.T) {
	p := users("A", "B")
	shares := []ShareInput{{UserID: "A", Value: 60}, {UserID: "B", Value: 40}}
	got := NormalizeOwed(SplitPercent, p, shares, Cents(5000))
	expectAmounts(t, got, map[UserID]int64{"A": 3000, "B": 2000}, p)
}

func TestNormalizeOwedPercentNormalizesSum(t *testing.T) {
	// Percentages that do not add up to 100 are scaled by their own sum.
	p := users("A", "B", "C")
	shares := []ShareInput{{UserID: "A", Value: 1}, {UserID: "B", Value: 1}, {UserID: "C", Value: 1}}
	got := NormalizeOwed(SplitPercent, p, shares, Cents(10000))
	expectAmounts(t, got, map[UserID]int64{"A": 3334, "B": 3333, "C": 3333}, p)
}

func TestNormalizeOwedPercentMissingParticipant(t *testing.T) {
	p := users("A", "B", "C")
	shares := []ShareInput{{UserID: "A", Value: 50}, {UserID: "B", Value: 50}}
	got := NormalizeOwed(SplitPercent, p, shares, Cents(1000))
	expectAmounts(t, got, map[UserID]int64{"A": 500, "B": 500, "C": 0}, p)
}

func TestNormalizeOwedPercentUnspecified(t *testing.T) {
	p := users("A", "B")
	shares := []ShareInput{{UserID: "A", Value: 0}}
	got := NormalizeOwed(SplitPercent, p, shares, Cents(1000))
	expectAmounts(t, got, map[UserID]int64{"A": 0, "B": 0}, p)
}

func TestNormalizeOwedAmount(t *testing.T) {
	p := users("A", "B", "C")
	shares := []ShareInput{{UserID: "B", Value: 12.5}, {UserID: "C", Value: 7.255}}
	got := NormalizeOwed(SplitAmount, p, shares, Cents(3000))
	// 7.255 has no exact binary form; whichever cent C lands on, A absorbs the rest.
	if got.Sum().Cents != 3000 {
		t.Fatalf("expected sum 3000, got %d", got.Sum().Cents)
	}
	if got.Get("B").Cents != 1250 {
		t.Fatalf("expected B 1250, got %d", got.Get("B").Cents)
	}
	if a, c := got.Get("A").Cents, got.Get("C").Cents; a+c != 1750 {
		t.Fatalf("expected A+C 1750, got %d", a+c)
	}
}

func TestNormalizeOwedAmountOverAllocated(t *testing.T) {
	p := users("A", "B")
	shares := []ShareInput{{UserID: "A", Value: 30}, {UserID: "B", Value: 30}}
	got := NormalizeOwed(SplitAmount, p, shares, Cents(5000))
	expectAmounts(t, got, map[UserID]int64{"A": 2000, "B": 3000}, p)
}

func TestNormalizeOwedShare(t *testing.T) {
	p := users("A", "B", "C")
	shares := []ShareInput{{UserID: "A", Value: 1}, {UserID: "B", Value: 2}, {UserID: "C", Value: 3}}
	got := NormalizeOwed(SplitShare, p, shares, Cents(10000))
	// 16.67 + 33.33 + 50.00 = 100.00
	expectAmounts(t, got, map[UserID]int64{"A": 1667, "B": 3333, "C": 5000}, p)
}

func TestNormalizeOwedShareNoUnits(t *testing.T) {
	p := users("A", "B")
	got := NormalizeOwed(SplitShare, p, nil, Cents(900))
	expectAmounts(t, got, map[UserID]int64{"A": 900, "B": 0}, p)
}

func TestNormalizeOwedIgnoresUnlistedAndDuplicateShares(t *testing.T) {
	p := users("A", "B")
	shares := []ShareInput{
		{UserID: "A", Value: 1},
		{UserID: "Z", Value: 10},
		{UserID: "A", Value: 5},
		{UserID: "B", Value: 1},
	}
	got := NormalizeOwed(SplitShare, p, shares, Cents(1000))
	// A counts 5 units, B 1: 833.33 and 166.67 rounded.
	expectAmounts(t, got, map[UserID]int64{"A": 833, "B": 167}, p)
}

func TestNormalizeOwedLastShareEntryWins(t *testing.T) {
	p := users("A", "B")
	shares := []ShareInput{{UserID: "A", Value: 1}, {UserID: "A", Value: 3}, {UserID: "B", Value: 1}}
	got := NormalizeOwed(SplitShare, p, shares, Cents(1000))
	expectAmounts(t, got, map[UserID]int64{"A": 750, "B": 250}, p)

	pct := []ShareInput{{UserID: "A", Value: 10}, {UserID: "B", Value: 50}, {UserID: "A", Value: 50}}
	got = NormalizeOwed(SplitPercent, p, pct, Cents(1000))
	expectAmounts(t, got, map[UserID]int64{"A": 500, "B": 500}, p)
}

func TestNormalizeOwedDegenerateInputs(t *testing.T) {
	cases := []struct {
		name  string
		split SplitType
		p     []UserID
		total Money
	}{
		{"zero total", SplitEqual, users("A", "B"), Cents(0)},
		{"negative total", SplitShare, users("A", "B"), Cents(-100)},
		{"no participants", SplitPercent, nil, Cents(1000)},
		{"unknown split", SplitType("EXACT"), users("A"), Cents(1000)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeOwed(tc.split, tc.p, []ShareInput{{UserID: "A", Value: 1}}, tc.total)
			if len(got) != len(tc.p) {
				t.Fatalf("expected %d entries, got %d", len(tc.p), len(got))
			}
			for _, e := range got {
				if !e.Amount.IsZero() {
					t.Fatalf("expected zero for %s, got %s", e.UserID, e.Amount)
				}
			}
		})
	}
}

func TestNormalizeOwedSumsToTotal(t *testing.T) {
	p := users("A", "B", "C", "D", "E", "F", "G")
	shares := []ShareInput{
		{UserID: "A", Value: 13.3}, {UserID: "B", Value: 7}, {UserID: "C", Value: 21.1},
		{UserID: "D", Value: 9}, {UserID: "E", Value: 3.7}, {UserID: "F", Value: 11},
	}
	for _, split := range []SplitType{SplitEqual, SplitPercent, SplitAmount, SplitShare} {
		for _, total := range []int64{1, 7, 99, 1001, 12345, 99999} {
			got := NormalizeOwed(split, p, shares, Cents(total))
			if got.Sum().Cents != total {
				t.Fatalf("%s total=%d: sum %d", split, total, got.Sum().Cents)
			}
		}
	}
}

func TestAggregatePaid(t *testing.T) {
	got := AggregatePaid([]Payer{
		{UserID: "B", Amount: Cents(1000)},
		{UserID: "A", Amount: Cents(250)},
		{UserID: "B", Amount: Cents(505)},
		{UserID: "", Amount: Cents(99)},
	})
	expectAmounts(t, got, map[UserID]int64{"B": 1505, "A": 250}, users("B", "A"))
}
