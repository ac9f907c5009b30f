package core

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

const (
	NoDataTrend      = "No data available for analysis."
	NoDataCategory   = "None"
	NoExpenseMessage = "No expenses found"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// MonthTotal is the subject user's spend in one calendar month. Index is the
// month's ordinal among every month present in the input.
type MonthTotal struct {
	Month string // YYYY-MM
	Index int
	Total decimal.Decimal
}

// Anomaly is the projection of a flagged transaction written to the report.
type Anomaly struct {
	Index       int // position in the input
	Date        Date
	Amount      Amount
	Category    *string
	Description *string

	// WithDescription mirrors whether the input had a description column.
	WithDescription bool
}

type anomalyJSON struct {
	ExpenseDate Date    `json:"expense_date"`
	Amount      Amount  `json:"amount"`
	Category    *string `json:"category"`
}

type anomalyWithDescriptionJSON struct {
	ExpenseDate Date    `json:"expense_date"`
	Amount      Amount  `json:"amount"`
	Category    *string `json:"category"`
	Description *string `json:"description"`
}

func (a Anomaly) MarshalJSON() ([]byte, error) {
	if a.WithDescription {
		return json.Marshal(anomalyWithDescriptionJSON{
			ExpenseDate: a.Date,
			Amount:      a.Amount,
			Category:    a.Category,
			Description: a.Description,
		})
	}
	return json.Marshal(anomalyJSON{
		ExpenseDate: a.Date,
		Amount:      a.Amount,
		Category:    a.Category,
	})
}

// Report is the behavioral summary for one user.
type Report struct {
	UserID      UserID    `json:"userId"`
	TopCategory string    `json:"topCategory"`
	Label       Label     `json:"label"`
	Trend       string    `json:"trend"`
	Suggestions []string  `json:"suggestions"`
	Anomalies   []Anomaly `json:"anomalies"`
}

// NoDataReport is written when the input is not a non-empty array.
type NoDataReport struct {
	Label       Label     `json:"label"`
	Trend       string    `json:"trend"`
	TopCategory string    `json:"topCategory"`
	Suggestions []string  `json:"suggestions"`
	Anomalies   []Anomaly `json:"anomalies"`
}

// NoExpensesReport is written when the array yields an empty table.
type NoExpensesReport struct {
	Message string `json:"message"`
}

func NewNoDataReport() NoDataReport {
	return NoDataReport{
		Label:       LabelNoData,
		Trend:       NoDataTrend,
		TopCategory: NoDataCategory,
		Suggestions: []string{},
		Anomalies:   []Anomaly{},
	}
}

func NewNoExpensesReport() NoExpensesReport {
	return NoExpensesReport{Message: NoExpenseMessage}
}
