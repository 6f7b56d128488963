package core

import (
	"errors"
	"testing"
)

func TestParseSplitType(t *testing.T) {
	cases := []struct {
		in   string
		want SplitType
		ok   bool
	}{
		{"EQUAL", SplitEqual, true},
		{"percent", SplitPercent, true},
		{" Amount ", SplitAmount, true},
		{"share", SplitShare, true},
		{"exact", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseSplitType(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.want, got, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidSplitType) {
			t.Fatalf("%q expected ErrInvalidSplitType, got %v", tc.in, err)
		}
	}
}

func TestDedupeUsers(t *testing.T) {
	got := DedupeUsers([]UserID{"b", "a", "b", "", "c", "a"})
	want := []UserID{"b", "a", "c"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestCategoryOrDefault(t *testing.T) {
	if Category("").OrDefault() != CategoryMisc {
		t.Fatalf("empty category should default to misc")
	}
	if CategoryFood.OrDefault() != CategoryFood {
		t.Fatalf("food should stay food")
	}
}

func TestExpenseInputValidate(t *testing.T) {
	good := ExpenseInput{
		Title:        "Dinner",
		Currency:     "EUR",
		TotalAmount:  Cents(5000),
		SplitType:    SplitEqual,
		Participants: []UserID{"me", "u-1"},
		Payers:       []Payer{{UserID: "me", Amount: Cents(5000)}},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		mutate func(*ExpenseInput)
		want   error
	}{
		{func(in *ExpenseInput) { in.Title = "  " }, ErrEmptyTitle},
		{func(in *ExpenseInput) { in.Currency = "eur" }, ErrInvalidCurrency},
		{func(in *ExpenseInput) { in.Currency = "EURO" }, ErrInvalidCurrency},
		{func(in *ExpenseInput) { in.SplitType = "EXACT" }, ErrInvalidSplitType},
		{func(in *ExpenseInput) { in.Category = "rent" }, ErrInvalidCategory},
		{func(in *ExpenseInput) { in.TotalAmount = Cents(-1) }, ErrNegativeAmount},
		{func(in *ExpenseInput) { in.TotalAmount = Cents(0) }, ErrInvalidAmount},
		{func(in *ExpenseInput) { in.Payers = []Payer{{UserID: "me", Amount: Cents(-5)}} }, ErrNegativeAmount},
		{func(in *ExpenseInput) { in.Shares = []ShareInput{{UserID: "me", Value: -1}} }, ErrNegativeAmount},
		{func(in *ExpenseInput) { in.Participants = []UserID{"", ""} }, ErrNoParticipants},
	}
	for i, tc := range bads {
		in := good
		tc.mutate(&in)
		if err := in.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}
