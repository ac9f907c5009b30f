package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	LabelSaver    Label = "Saver"
	LabelSpender  Label = "Spender"
	LabelBalanced Label = "Balanced"
	LabelNoData   Label = "No data"
)

type (
	Label string

	// UserID keeps the user identifier exactly as it appeared in the input,
	// in compact JSON form. Numbers and strings are both valid identifiers.
	UserID []byte

	Transaction struct {
		UserID      UserID
		Date        Date   // zero when missing or unparseable
		Amount      Amount // invalid when missing or null
		Category    *string
		Description *string
		PayMethod   *string
	}

	// TransactionSet is the table handed to the analysis. HasDescription and
	// HasPayMethod record whether any input record carried those columns.
	TransactionSet struct {
		Transactions   []Transaction
		HasDescription bool
		HasPayMethod   bool
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidUserID = errors.New("invalid user id")
)

var (
	essentialCategories = map[string]bool{
		"food":      true,
		"utilities": true,
		"health":    true,
	}
	discretionaryCategories = map[string]bool{
		"entertainment": true,
		"gifts":         true,
		"miscellaneous": true,
		"subscriptions": true,
		"items":         true,
	}
)

// IsEssential reports whether spend in the category counts toward the
// essential ratio.
func IsEssential(category string) bool {
	return essentialCategories[category]
}

// IsDiscretionary reports whether a dominant category of this kind deserves
// a spending limit suggestion.
func IsDiscretionary(category string) bool {
	return discretionaryCategories[category]
}

// NewUserID validates and compacts a raw JSON user identifier.
func NewUserID(raw json.RawMessage) (UserID, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUserID, err)
	}
	return UserID(buf.Bytes()), nil
}

func (u UserID) MarshalJSON() ([]byte, error) {
	if len(u) == 0 {
		return []byte("null"), nil
	}
	return []byte(u), nil
}

// Equal compares two identifiers by their compact JSON form.
func (u UserID) Equal(other UserID) bool {
	return bytes.Equal(u, other)
}

// String renders the identifier for logs and storage, without JSON quoting
// for string identifiers.
func (u UserID) String() string {
	if len(u) == 0 {
		return "null"
	}
	var s string
	if err := json.Unmarshal(u, &s); err == nil {
		return s
	}
	return string(u)
}

// Subject returns the user the analysis is about: the first record's user.
func (s TransactionSet) Subject() UserID {
	if len(s.Transactions) == 0 {
		return nil
	}
	return s.Transactions[0].UserID
}

// DistinctUsers counts the different user identifiers in the set.
func (s TransactionSet) DistinctUsers() int {
	seen := make(map[string]struct{})
	for _, t := range s.Transactions {
		seen[string(t.UserID)] = struct{}{}
	}
	return len(seen)
}

// Len returns the number of transactions.
func (s TransactionSet) Len() int {
	return len(s.Transactions)
}
