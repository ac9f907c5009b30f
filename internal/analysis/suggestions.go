package analysis

import (
	"fmt"

	"github.com/shopspring/decimal"

	"spese-insights/internal/core"
)

const (
	SuggestNonEssential  = "Over half of your spending goes to non-essentials. Consider prioritizing savings or reducing discretionary purchases."
	SuggestDigital       = "You mostly use cash. Switching to digital payments (UPI/Card) can help you track expenses more easily."
	SuggestUPI           = "You're doing well using UPI — it's easier to track and manage compared to cash."
	SuggestFrequent      = "You're making frequent small purchases. Try combining or planning ahead to reduce impulse buys."
	SuggestExcellent     = "Excellent financial behavior! You're spending wisely and consistently."
	SuggestStableBudget  = "Great job maintaining a stable budget across categories."
	SuggestKeepTracking  = "You're doing well! Continue tracking and refining your spending habits."
	suggestLimitTemplate = "You seem to spend a lot on %s. Consider setting a monthly limit for this category."
	suggestIrregularTmpl = "We noticed %d irregular transactions. Review these to ensure they were intentional."
)

const (
	payMethodCash = "cash"
	payMethodUPI  = "upi"

	// Shares as num/den fractions, compared in integers.
	cashShareNum, cashShareDen = 6, 10
	upiShareNum, upiShareDen   = 7, 10

	minAnomaliesToWarn   = 2 // more than this many
	busyDayTransactions  = 3 // a timestamp with more than this many is busy
	minBusyDaysToSuggest = 5 // more than this many busy timestamps
)

// SuggestionInput gathers what the rules look at.
type SuggestionInput struct {
	Aggregate    Aggregate
	Label        core.Label
	Slope        float64
	AnomalyCount int
	Set          core.TransactionSet
}

// Suggest evaluates the rules in their fixed order. Each rule appends at most
// one string; the result is never empty.
func Suggest(in SuggestionInput) []string {
	var out []string

	if core.IsDiscretionary(in.Aggregate.TopCategory) {
		out = append(out, fmt.Sprintf(suggestLimitTemplate, in.Aggregate.TopCategory))
	}

	if in.Aggregate.HasRatio && decimal.NewFromInt(1).Sub(in.Aggregate.EssentialRatio).GreaterThan(nonEssentialLimit) {
		out = append(out, SuggestNonEssential)
	}

	if s, ok := payMethodSuggestion(in.Set); ok {
		out = append(out, s)
	}

	if in.AnomalyCount > minAnomaliesToWarn {
		out = append(out, fmt.Sprintf(suggestIrregularTmpl, in.AnomalyCount))
	}

	if busyDays(in.Set) > minBusyDaysToSuggest {
		out = append(out, SuggestFrequent)
	}

	switch {
	case in.Label == core.LabelSaver && in.Slope <= 0:
		out = append(out, SuggestExcellent)
	case in.Label == core.LabelBalanced && in.Slope <= 0:
		out = append(out, SuggestStableBudget)
	}

	if len(out) == 0 {
		out = append(out, SuggestKeepTracking)
	}
	return out
}

// payMethodSuggestion looks at the shares of the recorded payment methods.
// Cash is checked first; the two suggestions exclude each other.
func payMethodSuggestion(set core.TransactionSet) (string, bool) {
	if !set.HasPayMethod {
		return "", false
	}

	var recorded, cash, upi int
	for _, t := range set.Transactions {
		if t.PayMethod == nil {
			continue
		}
		recorded++
		switch *t.PayMethod {
		case payMethodCash:
			cash++
		case payMethodUPI:
			upi++
		}
	}
	if recorded == 0 {
		return "", false
	}

	switch {
	case cash*cashShareDen > cashShareNum*recorded:
		return SuggestDigital, true
	case upi*upiShareDen > upiShareNum*recorded:
		return SuggestUPI, true
	default:
		return "", false
	}
}

// busyDays counts the distinct expense timestamps carrying more than
// busyDayTransactions transactions. Records without a date are ignored.
func busyDays(set core.TransactionSet) int {
	counts := make(map[int64]int)
	for _, t := range set.Transactions {
		if t.Date.IsEmpty() {
			continue
		}
		counts[t.Date.UnixNano()]++
	}

	busy := 0
	for _, c := range counts {
		if c > busyDayTransactions {
			busy++
		}
	}
	return busy
}
