package core

import (
	"errors"
	"strings"
	"time"
)

const (
	SplitEqual   SplitType = "EQUAL"
	SplitPercent SplitType = "PERCENT"
	SplitAmount  SplitType = "AMOUNT"
	SplitShare   SplitType = "SHARE"
)

const (
	CategoryFood          Category = "food"
	CategoryTravel        Category = "travel"
	CategoryHotel         Category = "hotel"
	CategoryShopping      Category = "shopping"
	CategoryEntertainment Category = "entertainment"
	CategoryGroceries     Category = "groceries"
	CategoryTransport     Category = "transport"
	CategoryMisc          Category = "misc"
)

type (
	// UserID identifies a person; the engine treats it as opaque.
	UserID string

	SplitType string

	Category string

	// ShareInput carries a per-participant split value. Its meaning depends
	// on the SplitType: ignored for Equal, a percentage for Percent, a
	// currency amount for Amount and a weight for Share.
	ShareInput struct {
		UserID UserID  `json:"userId"`
		Value  float64 `json:"value"`
	}

	// Payer is an amount actually paid by someone towards an expense.
	Payer struct {
		UserID UserID `json:"userId"`
		Amount Money  `json:"amount"`
	}

	// Transfer means From owes To exactly Amount for one transaction.
	Transfer struct {
		From   UserID `json:"fromUserId"`
		To     UserID `json:"toUserId"`
		Amount Money  `json:"amount"`
	}

	// ExpenseInput is the raw description of an expense before it is split
	// and settled.
	ExpenseInput struct {
		Title        string       `json:"title"`
		Notes        string       `json:"notes,omitempty"`
		Tags         []string     `json:"tags,omitempty"`
		Category     Category     `json:"category,omitempty"`
		Currency     string       `json:"currency"`
		TotalAmount  Money        `json:"totalAmount"`
		Date         time.Time    `json:"date"`
		GroupID      string       `json:"groupId,omitempty"`
		SplitType    SplitType    `json:"splitType"`
		Participants []UserID     `json:"participants"`
		Payers       []Payer      `json:"payers"`
		Shares       []ShareInput `json:"shares"`
	}

	// Transaction is the ledger's unit of record. It is never mutated after
	// creation.
	Transaction struct {
		ID           string       `json:"id"`
		Title        string       `json:"title"`
		Notes        string       `json:"notes,omitempty"`
		Tags         []string     `json:"tags,omitempty"`
		Category     Category     `json:"category"`
		Currency     string       `json:"currency"`
		Date         time.Time    `json:"date"`
		GroupID      string       `json:"groupId,omitempty"`
		TotalAmount  Money        `json:"totalAmount"`
		SplitType    SplitType    `json:"splitType"`
		Participants []UserID     `json:"participants"`
		Payers       []Payer      `json:"payers"`
		Shares       []ShareInput `json:"shares"`
		Transfers    []Transfer   `json:"transfers"`
		CreatedAt    time.Time    `json:"createdAt"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrNegativeAmount   = errors.New("negative amount")
	ErrEmptyTitle       = errors.New("empty title")
	ErrInvalidCurrency  = errors.New("invalid currency")
	ErrInvalidSplitType = errors.New("invalid split type")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrNoParticipants   = errors.New("no participants")
	ErrNoPayer          = errors.New("no payer")
)

// ParseSplitType accepts the split type names case-insensitively.
func ParseSplitType(s string) (SplitType, error) {
	st := SplitType(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", ErrInvalidSplitType
	}
	return st, nil
}

func (s SplitType) Valid() bool {
	switch s {
	case SplitEqual, SplitPercent, SplitAmount, SplitShare:
		return true
	}
	return false
}

func (c Category) Valid() bool {
	switch c {
	case CategoryFood, CategoryTravel, CategoryHotel, CategoryShopping,
		CategoryEntertainment, CategoryGroceries, CategoryTransport, CategoryMisc:
		return true
	}
	return false
}

// OrDefault maps an empty category to misc.
func (c Category) OrDefault() Category {
	if c == "" {
		return CategoryMisc
	}
	return c
}

// DedupeUsers returns ids in first-seen order without duplicates or blanks.
func DedupeUsers(ids []UserID) []UserID {
	seen := make(map[UserID]struct{}, len(ids))
	out := make([]UserID, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Validate checks the fields an outer surface must reject before handing
// the input to the ledger. The engine itself never calls it: malformed
// amounts or participant sets degrade to zero results there.
func (in ExpenseInput) Validate() error {
	if len(strings.TrimSpace(in.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(in.Title) > 200 {
		return errors.New("title too long (max 200 characters)")
	}
	if !validCurrency(in.Currency) {
		return ErrInvalidCurrency
	}
	if !in.SplitType.Valid() {
		return ErrInvalidSplitType
	}
	if in.Category != "" && !in.Category.Valid() {
		return ErrInvalidCategory
	}
	if in.TotalAmount.IsNegative() {
		return ErrNegativeAmount
	}
	if in.TotalAmount.IsZero() {
		return ErrInvalidAmount
	}
	for _, p := range in.Payers {
		if p.Amount.IsNegative() {
			return ErrNegativeAmount
		}
	}
	for _, s := range in.Shares {
		if s.Value < 0 {
			return ErrNegativeAmount
		}
	}
	if len(DedupeUsers(in.Participants)) == 0 {
		return ErrNoParticipants
	}
	return nil
}

func validCurrency(c string) bool {
	if len(c) != 3 {
		return false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
