package amqp

import (
	"encoding/json"
	"time"

	"spese-insights/internal/core"
)

// InsightGeneratedMessage announces a freshly computed insight.
// Consumers fetch the full record from the insight store by ID.
type InsightGeneratedMessage struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Label        string    `json:"label"`
	TopCategory  string    `json:"topCategory"`
	Trend        string    `json:"trend"`
	AnomalyCount int       `json:"anomalyCount"`
	Timestamp    time.Time `json:"timestamp"`
}

func NewInsightGeneratedMessage(id string, report core.Report) *InsightGeneratedMessage {
	return &InsightGeneratedMessage{
		ID:           id,
		UserID:       report.UserID.String(),
		Label:        string(report.Label),
		TopCategory:  report.TopCategory,
		Trend:        report.Trend,
		AnomalyCount: len(report.Anomalies),
		Timestamp:    time.Now().UTC(),
	}
}

func (m *InsightGeneratedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
