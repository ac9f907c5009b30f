package analysis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"spese-insights/internal/core"
)

// tx is a compact fixture description.
type tx struct {
	user     string // raw JSON
	date     string
	amount   float64
	noAmount bool
	category string
	desc     *string
	pay      string
}

func strPtr(s string) *string { return &s }

func buildSet(t *testing.T, rows ...tx) core.TransactionSet {
	t.Helper()
	set := core.TransactionSet{}
	for _, r := range rows {
		user := r.user
		if user == "" {
			user = "1"
		}
		id, err := core.NewUserID(json.RawMessage(user))
		require.NoError(t, err)

		tr := core.Transaction{UserID: id}
		if r.date != "" {
			d, ok := core.ParseDate(r.date)
			require.True(t, ok, "fixture date %q must parse", r.date)
			tr.Date = d
		}
		if !r.noAmount {
			tr.Amount = core.AmountFromFloat(r.amount)
		}
		if r.category != "" {
			tr.Category = strPtr(r.category)
		}
		if r.desc != nil {
			tr.Description = r.desc
			set.HasDescription = true
		}
		if r.pay != "" {
			tr.PayMethod = strPtr(r.pay)
			set.HasPayMethod = true
		}
		set.Transactions = append(set.Transactions, tr)
	}
	return set
}
