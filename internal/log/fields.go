package log

import "time"

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldOperation    = "operation"
	FieldError        = "error"
	FieldSuccess      = "success"
	FieldDuration     = "duration_ms"
	FieldOutcome      = "outcome"
	FieldUserID       = "user_id"
	FieldUsers        = "users"
	FieldTransactions = "transactions"
	FieldMonths       = "months"
	FieldSlope        = "slope"
	FieldLabel        = "label"
	FieldAnomalies    = "anomalies"
	FieldSink         = "sink"
	FieldInsightID    = "insight_id"
	FieldExchange     = "exchange"
	FieldQueue        = "queue"
	FieldPath         = "path"
	FieldRunID        = "run_id"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentConfig   = "config"
	ComponentLoader   = "loader"
	ComponentAnalysis = "analysis"
	ComponentInsights = "insights"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentMetrics  = "metrics"
)

// Operations defines standard operation names
const (
	OpAnalyze  = "analyze"
	OpParse    = "parse"
	OpValidate = "validate"
	OpSave     = "save"
	OpPublish  = "publish"
	OpPush     = "push"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field and marks the record unsuccessful
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
		f[FieldSuccess] = false
	}
	return f
}

// WithSuccess marks whether the operation succeeded
func (f LogFields) WithSuccess(ok bool) LogFields {
	f[FieldSuccess] = ok
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithOutcome adds the run outcome
func (f LogFields) WithOutcome(outcome string) LogFields {
	f[FieldOutcome] = outcome
	return f
}

// WithSink names the sink a record is about
func (f LogFields) WithSink(sink string) LogFields {
	f[FieldSink] = sink
	return f
}

// WithInsightID adds the stored insight's identifier
func (f LogFields) WithInsightID(id string) LogFields {
	f[FieldInsightID] = id
	return f
}

// WithDuration adds the elapsed time in milliseconds
func (f LogFields) WithDuration(d time.Duration) LogFields {
	f[FieldDuration] = d.Milliseconds()
	return f
}

// WithAnalysis adds report-related fields
func (f LogFields) WithAnalysis(userID string, transactions int, label string, anomalies int) LogFields {
	f[FieldUserID] = userID
	f[FieldTransactions] = transactions
	f[FieldLabel] = label
	f[FieldAnomalies] = anomalies
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
