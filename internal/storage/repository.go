package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"spese-insights/internal/core"
	"spese-insights/internal/log"

	_ "modernc.org/sqlite"
)

// Fixed-width UTC layout so that created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// InsightRecord is one stored analysis result.
type InsightRecord struct {
	ID           string
	UserID       string
	Label        string
	Trend        string
	TopCategory  string
	Suggestions  []string
	Anomalies    json.RawMessage
	AnomalyCount int
	CreatedAt    time.Time
}

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveInsight stores a report under the given insight ID.
func (r *SQLiteRepository) SaveInsight(ctx context.Context, id string, report core.Report) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid insight id %q: %w", id, err)
	}

	suggestions, err := json.Marshal(report.Suggestions)
	if err != nil {
		return fmt.Errorf("marshal suggestions: %w", err)
	}
	anomalies, err := json.Marshal(report.Anomalies)
	if err != nil {
		return fmt.Errorf("marshal anomalies: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO insights (id, user_id, label, trend, top_category, suggestions, anomalies, anomaly_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		report.UserID.String(),
		string(report.Label),
		report.Trend,
		report.TopCategory,
		string(suggestions),
		string(anomalies),
		len(report.Anomalies),
		r.now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert insight: %w", err)
	}

	log.FromContext(ctx).WithComponent(log.ComponentStorage).InfoContext(ctx, "Insight saved to SQLite",
		log.FieldInsightID, id,
		log.FieldUserID, report.UserID.String(),
		log.FieldLabel, string(report.Label))

	return nil
}

// ListByUser returns the user's insights, newest first. limit <= 0 means all.
func (r *SQLiteRepository) ListByUser(ctx context.Context, userID string, limit int) ([]InsightRecord, error) {
	query := `
		SELECT id, user_id, label, trend, top_category, suggestions, anomalies, anomaly_count, created_at
		FROM insights
		WHERE user_id = ?
		ORDER BY created_at DESC, id`
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query insights: %w", err)
	}
	defer rows.Close()

	var records []InsightRecord
	for rows.Next() {
		var (
			rec         InsightRecord
			suggestions string
			anomalies   string
			createdAt   string
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Label, &rec.Trend, &rec.TopCategory,
			&suggestions, &anomalies, &rec.AnomalyCount, &createdAt); err != nil {
			return nil, fmt.Errorf("scan insight: %w", err)
		}
		if err := json.Unmarshal([]byte(suggestions), &rec.Suggestions); err != nil {
			return nil, fmt.Errorf("decode suggestions of insight %s: %w", rec.ID, err)
		}
		rec.Anomalies = json.RawMessage(anomalies)
		if rec.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at of insight %s: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate insights: %w", err)
	}

	return records, nil
}
