// Package loader turns the raw input document into a TransactionSet.
package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"spese-insights/internal/core"
)

// Outcome distinguishes the shapes the input can take.
type Outcome int

const (
	// OutcomeNoData: the document is not an array, or the array is empty.
	OutcomeNoData Outcome = iota
	// OutcomeEmpty: the array holds only records without fields.
	OutcomeEmpty
	// OutcomeTable: at least one field was present; Set is populated.
	OutcomeTable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoData:
		return "no_data"
	case OutcomeEmpty:
		return "no_expenses"
	case OutcomeTable:
		return "report"
	default:
		return "unknown"
	}
}

const (
	fieldUserID      = "user_id"
	fieldAmount      = "amount"
	fieldCategory    = "category"
	fieldExpenseDate = "expense_date"
	fieldDescription = "description"
	fieldPayMethod   = "pay_method"
)

var requiredFields = []string{fieldUserID, fieldAmount, fieldCategory, fieldExpenseDate}

var (
	ErrMalformedInput = errors.New("malformed input")
	ErrInvalidRecord  = errors.New("invalid record")
	ErrMissingColumn  = errors.New("missing column")
)

// Result is what Parse hands back; Set is only meaningful for OutcomeTable.
type Result struct {
	Outcome Outcome
	Set     core.TransactionSet
}

// Parse decodes the input document. Errors are fatal for the invocation and
// wrap one of the package's sentinel errors.
func Parse(data []byte) (Result, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Result{}, fmt.Errorf("%w: trailing data after top-level value", ErrMalformedInput)
	}

	items, ok := doc.([]any)
	if !ok || len(items) == 0 {
		return Result{Outcome: OutcomeNoData}, nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	records := make([]map[string]json.RawMessage, len(raws))
	columns := make(map[string]bool)
	for i, raw := range raws {
		if !isObject(raw) {
			return Result{}, fmt.Errorf("%w: element %d is not an object", ErrInvalidRecord, i)
		}
		if err := json.Unmarshal(raw, &records[i]); err != nil {
			return Result{}, fmt.Errorf("%w: element %d: %v", ErrInvalidRecord, i, err)
		}
		for k := range records[i] {
			columns[k] = true
		}
	}

	if len(columns) == 0 {
		return Result{Outcome: OutcomeEmpty}, nil
	}
	for _, f := range requiredFields {
		if !columns[f] {
			return Result{}, fmt.Errorf("%w: %s", ErrMissingColumn, f)
		}
	}

	set := core.TransactionSet{
		Transactions:   make([]core.Transaction, 0, len(records)),
		HasDescription: columns[fieldDescription],
		HasPayMethod:   columns[fieldPayMethod],
	}
	for i, rec := range records {
		t, err := decodeTransaction(rec)
		if err != nil {
			return Result{}, fmt.Errorf("%w: element %d: %v", ErrInvalidRecord, i, err)
		}
		set.Transactions = append(set.Transactions, t)
	}

	return Result{Outcome: OutcomeTable, Set: set}, nil
}

func decodeTransaction(rec map[string]json.RawMessage) (core.Transaction, error) {
	var t core.Transaction

	if raw, ok := rec[fieldUserID]; ok {
		id, err := core.NewUserID(raw)
		if err != nil {
			return t, err
		}
		t.UserID = id
	}

	if raw, ok := rec[fieldAmount]; ok {
		if err := json.Unmarshal(raw, &t.Amount); err != nil {
			return t, fmt.Errorf("%s: %w", fieldAmount, err)
		}
	}

	var err error
	if t.Category, err = optionalString(rec, fieldCategory); err != nil {
		return t, err
	}
	if t.Description, err = optionalString(rec, fieldDescription); err != nil {
		return t, err
	}
	if t.PayMethod, err = optionalString(rec, fieldPayMethod); err != nil {
		return t, err
	}

	// Dates are best-effort: anything that is not a parseable string is null.
	if raw, ok := rec[fieldExpenseDate]; ok {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			t.Date, _ = core.ParseDate(s)
		}
	}

	return t, nil
}

func optionalString(rec map[string]json.RawMessage, field string) (*string, error) {
	raw, ok := rec[field]
	if !ok || isNull(raw) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%s: expected string, got %s", field, raw)
	}
	return &s, nil
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
