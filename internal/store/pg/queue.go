package pg

import (
	"context"
	"time"

	"campaigner/internal/domain"
	"campaigner/internal/store"
)

// InsertEntries schedules all rows in one transaction. A (subject, sequence)
// pair that already has a row — pending or resolved — is left untouched, so
// re-enrolling a subject never duplicates a stage. Returns how many rows
// were actually created.
func (s *Store) InsertEntries(ctx context.Context, entries []store.QueueInsert) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	created := 0
	for _, e := range entries {
		ct, err := tx.Exec(ctx, `
			INSERT INTO email_queue (subject_id, sequence, due_at, status, created_at)
			VALUES ($1,$2,$3,'pending',$4)
			ON CONFLICT (subject_id, sequence) DO NOTHING
		`, e.SubjectID, e.Sequence, e.DueAt, e.Now)
		if err != nil {
			return 0, err
		}
		created += int(ct.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return created, nil
}

// DueEntries returns pending rows due at or before now, ordered by due time
// with (subject, sequence) as the deterministic tiebreak.
func (s *Store) DueEntries(ctx context.Context, now time.Time) ([]domain.QueueEntry, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT subject_id, sequence, due_at, status, created_at
		FROM email_queue
		WHERE status='pending' AND due_at <= $1
		ORDER BY due_at ASC, subject_id ASC, sequence ASC
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.QueueEntry
	for rows.Next() {
		var e domain.QueueEntry
		if err := rows.Scan(&e.SubjectID, &e.Sequence, &e.DueAt, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ResolveEntry claims one pending row and resolves it. The row is locked and
// its status re-read inside the transaction; send runs while the lock is
// held, and the terminal status plus the delivery-log row commit together.
// Claimed is false when the row is gone, already resolved, or locked by a
// concurrent pass (SKIP LOCKED). A send callback returning resolve=false
// abandons the claim and leaves the row pending with no log entry.
func (s *Store) ResolveEntry(ctx context.Context, in store.EntryResolution, send store.ResolveFunc) (bool, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		SELECT status FROM email_queue
		WHERE subject_id=$1 AND sequence=$2
		FOR UPDATE SKIP LOCKED
	`, in.SubjectID, in.Sequence)
	var status string
	if err := row.Scan(&status); err != nil {
		if err.Error() == "no rows in result set" {
			return false, nil
		}
		return false, err
	}
	if status != string(domain.StatusPending) {
		return false, nil
	}

	newStatus, errDetail, resolve := send(ctx)
	if !resolve {
		return false, nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE email_queue SET status=$3 WHERE subject_id=$1 AND sequence=$2
	`, in.SubjectID, in.Sequence, string(newStatus)); err != nil {
		return false, err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO delivery_log (subject_id, sequence, subject_line, status, error_detail, resolved_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, in.SubjectID, in.Sequence, in.SubjectLine, string(newStatus), nullIfEmpty(errDetail), in.Now); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
