package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// RecordAuditLog stores one audit entry with a JSON context blob.
func (r *AuditRepository) RecordAuditLog(action string, actorID int, entityType string, entityID int, ipAddress string, context interface{}) error {
	ctxJSON, err := json.Marshal(context)
	if err != nil {
		return fmt.Errorf("failed to encode audit context: %w", err)
	}

	query := `
		INSERT INTO audit_logs (id, action, actor_id, entity_type, entity_id, ip_address, context, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)
	`

	_, err = r.db.Exec(query, uuid.New(), action, actorID, entityType, entityID, ipAddress, ctxJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record audit log: %w", err)
	}

	return nil
}

// RecordScheduleRun upserts the "last executed at" marker for a task.
func (r *AuditRepository) RecordScheduleRun(taskName string) error {
	query := `
		INSERT INTO schedule_runs (task_name, last_run_at)
		VALUES ($1, $2)
		ON CONFLICT (task_name) DO UPDATE SET last_run_at = EXCLUDED.last_run_at
	`

	if _, err := r.db.Exec(query, taskName, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to record schedule run: %w", err)
	}

	return nil
}

// GetScheduleRun returns the last recorded run time for a task, or nil
// when the task has never run.
func (r *AuditRepository) GetScheduleRun(taskName string) (*time.Time, error) {
	query := `SELECT last_run_at FROM schedule_runs WHERE task_name = $1`

	var lastRun time.Time
	err := r.db.QueryRow(query, taskName).Scan(&lastRun)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get schedule run: %w", err)
	}

	return &lastRun, nil
}
