package database

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"time"
)

const pushLogColumns = `id, post_id, status, message, created_at`

// PushLogStore handles database operations for push logs
type PushLogStore struct {
	conn
}

func NewPushLogStore(db *DB) *PushLogStore {
	return &PushLogStore{conn: db.conn()}
}

func scanPushLog(row rowScanner) (*PushLog, error) {
	var (
		log     PushLog
		message sql.NullString
	)
	if err := row.Scan(&log.ID, &log.PostID, &log.Status, &message, &log.CreatedAt); err != nil {
		return nil, err
	}
	if message.Valid {
		log.Message = &message.String
	}
	return &log, nil
}

// CreatePushLog inserts the log and fills in its ID and CreatedAt. An empty
// status is stored as pending.
func (r *PushLogStore) CreatePushLog(ctx context.Context, log *PushLog) error {
	log.Status = cmp.Or(log.Status, PushStatusPending)

	now := time.Now().UTC()
	err := r.queryRow(ctx, `
		INSERT INTO push_logs (post_id, status, message, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`, log.PostID, log.Status, nullString(log.Message), now).Scan(&log.ID)
	if err != nil {
		return translateError(err, "failed to create push log")
	}

	log.CreatedAt = now
	return nil
}

func (r *PushLogStore) ListPushLogs(ctx context.Context, filter PushLogFilter) ([]PushLog, int, error) {
	var (
		predicate string
		args      []any
	)
	if filter.Status != nil {
		predicate = ` WHERE status = ?`
		args = append(args, *filter.Status)
	}

	var total int
	if err := r.queryRow(ctx, `SELECT COUNT(*) FROM push_logs`+predicate, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count push logs: %w", err)
	}

	rows, err := r.query(ctx,
		`SELECT `+pushLogColumns+` FROM push_logs`+predicate+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, filter.Limit, filter.Skip)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list push logs: %w", err)
	}
	defer rows.Close()

	logs := make([]PushLog, 0)
	for rows.Next() {
		log, err := scanPushLog(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan push log row: %w", err)
		}
		logs = append(logs, *log)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating push log rows: %w", err)
	}

	return logs, total, nil
}
