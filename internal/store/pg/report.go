package pg

import (
	"context"

	"campaigner/internal/domain"
)

// Summary scans the three stores for the dashboard counts. No summary state
// is persisted.
func (s *Store) Summary(ctx context.Context) (domain.Summary, error) {
	var out domain.Summary

	row := s.DB.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status='active') FROM subjects
	`)
	if err := row.Scan(&out.TotalSubjects, &out.ActiveSubjects); err != nil {
		return domain.Summary{}, err
	}

	row = s.DB.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status='sent'),
		       COUNT(*) FILTER (WHERE status='failed')
		FROM delivery_log
	`)
	if err := row.Scan(&out.TotalEmails, &out.SentEmails, &out.FailedEmails); err != nil {
		return domain.Summary{}, err
	}

	row = s.DB.QueryRow(ctx, `SELECT COUNT(*) FROM email_queue WHERE status='pending'`)
	if err := row.Scan(&out.PendingEmails); err != nil {
		return domain.Summary{}, err
	}
	return out, nil
}

// ListLog returns delivery history, newest first. An empty subjectID lists
// every subject.
func (s *Store) ListLog(ctx context.Context, subjectID string) ([]domain.DeliveryLogEntry, error) {
	q := `
		SELECT id, subject_id, sequence, subject_line, status, COALESCE(error_detail,''), resolved_at
		FROM delivery_log
	`
	args := []any{}
	if subjectID != "" {
		q += ` WHERE subject_id=$1`
		args = append(args, subjectID)
	}
	q += ` ORDER BY resolved_at DESC, id DESC`

	rows, err := s.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DeliveryLogEntry
	for rows.Next() {
		var e domain.DeliveryLogEntry
		if err := rows.Scan(&e.ID, &e.SubjectID, &e.Sequence, &e.SubjectLine, &e.Status, &e.ErrorDetail, &e.ResolvedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
