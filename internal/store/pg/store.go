package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"campaigner/internal/domain"
	"campaigner/internal/store"
)

type Store struct {
	DB *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store { return &Store{DB: db} }

func (s *Store) InsertSubject(ctx context.Context, sub domain.Subject) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO subjects (id, name, email, position, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, sub.ID, sub.Name, sub.Email, sub.Position, string(sub.Status), sub.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("subject email %s: %w", sub.Email, domain.ErrDuplicate)
	}
	return err
}

func (s *Store) GetSubject(ctx context.Context, id string) (domain.Subject, bool, error) {
	row := s.DB.QueryRow(ctx, `
		SELECT id, name, email, COALESCE(position,''), status, created_at
		FROM subjects WHERE id=$1
	`, id)
	var sub domain.Subject
	err := row.Scan(&sub.ID, &sub.Name, &sub.Email, &sub.Position, &sub.Status, &sub.CreatedAt)
	if err != nil {
		if err.Error() == "no rows in result set" {
			return domain.Subject{}, false, nil
		}
		return domain.Subject{}, false, err
	}
	return sub, true, nil
}

func (s *Store) ListSubjects(ctx context.Context) ([]domain.Subject, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, name, email, COALESCE(position,''), status, created_at
		FROM subjects ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Subject
	for rows.Next() {
		var sub domain.Subject
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.Email, &sub.Position, &sub.Status, &sub.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *Store) SetSubjectStatus(ctx context.Context, id string, status domain.SubjectStatus) (bool, error) {
	ct, err := s.DB.Exec(ctx, `UPDATE subjects SET status=$2 WHERE id=$1`, id, string(status))
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (s *Store) ListTemplates(ctx context.Context) ([]domain.Template, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT sequence, subject, body, delay_seconds
		FROM email_templates ORDER BY sequence ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Template
	for rows.Next() {
		var t domain.Template
		var delaySec int64
		if err := rows.Scan(&t.Sequence, &t.Subject, &t.Body, &delaySec); err != nil {
			return nil, err
		}
		t.Delay = time.Duration(delaySec) * time.Second
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetTemplate(ctx context.Context, sequence int) (domain.Template, bool, error) {
	row := s.DB.QueryRow(ctx, `
		SELECT sequence, subject, body, delay_seconds FROM email_templates WHERE sequence=$1
	`, sequence)
	var t domain.Template
	var delaySec int64
	err := row.Scan(&t.Sequence, &t.Subject, &t.Body, &delaySec)
	if err != nil {
		if err.Error() == "no rows in result set" {
			return domain.Template{}, false, nil
		}
		return domain.Template{}, false, err
	}
	t.Delay = time.Duration(delaySec) * time.Second
	return t, true, nil
}

// UpsertTemplate edits stage text and delay by sequence number. Already
// resolved queue and log rows carry their own rendered copies, so edits
// never rewrite history.
func (s *Store) UpsertTemplate(ctx context.Context, in store.TemplateUpsert) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO email_templates (sequence, subject, body, delay_seconds, updated_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (sequence)
		DO UPDATE SET subject=EXCLUDED.subject, body=EXCLUDED.body,
		              delay_seconds=EXCLUDED.delay_seconds, updated_at=EXCLUDED.updated_at
	`, in.Sequence, in.Subject, in.Body, int64(in.Delay/time.Second), in.Now)
	return err
}

func (s *Store) DeleteTemplate(ctx context.Context, sequence int) (bool, error) {
	ct, err := s.DB.Exec(ctx, `DELETE FROM email_templates WHERE sequence=$1`, sequence)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}
