package campaign

import (
	"context"
	"fmt"
	"time"

	"campaigner/internal/domain"
	"campaigner/internal/observability"
	"campaigner/internal/store"
)

type SubjectStore interface {
	InsertSubject(ctx context.Context, sub domain.Subject) error
	GetSubject(ctx context.Context, id string) (domain.Subject, bool, error)
	ListSubjects(ctx context.Context) ([]domain.Subject, error)
	SetSubjectStatus(ctx context.Context, id string, status domain.SubjectStatus) (bool, error)
}

type TemplateStore interface {
	ListTemplates(ctx context.Context) ([]domain.Template, error)
	GetTemplate(ctx context.Context, sequence int) (domain.Template, bool, error)
}

type QueueWriter interface {
	InsertEntries(ctx context.Context, entries []store.QueueInsert) (int, error)
}

// Scheduler expands an enrollment into time-anchored queue rows.
type Scheduler struct {
	Subjects  SubjectStore
	Templates TemplateStore
	Queue     QueueWriter
}

// Enroll creates one pending queue row per configured template, due at
// now + template delay, all in one atomic batch. Stages the subject already
// has a row for (pending or resolved) are no-ops, so calling Enroll twice is
// safe. With no templates configured it succeeds with zero rows.
func (s *Scheduler) Enroll(ctx context.Context, subjectID string, now time.Time) (int, error) {
	_, found, err := s.Subjects.GetSubject(ctx, subjectID)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("subject %s: %w", subjectID, domain.ErrNotFound)
	}

	templates, err := s.Templates.ListTemplates(ctx)
	if err != nil {
		return 0, err
	}
	if len(templates) == 0 {
		return 0, nil
	}

	entries := make([]store.QueueInsert, 0, len(templates))
	for _, t := range templates {
		entries = append(entries, store.QueueInsert{
			SubjectID: subjectID,
			Sequence:  t.Sequence,
			DueAt:     now.Add(t.Delay),
			Now:       now,
		})
	}
	return s.Queue.InsertEntries(ctx, entries)
}

// Service is the enrollment operation exposed to the UI/CLI boundary:
// validate, persist the subject, then schedule its sequence.
type Service struct {
	Subjects  SubjectStore
	Scheduler *Scheduler
	IDGen     func() string
}

func (s *Service) EnrollSubject(ctx context.Context, req domain.EnrollRequest, now time.Time) (string, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		observability.Enrollments.WithLabelValues("invalid").Inc()
		return "", err
	}

	sub := domain.Subject{
		ID:        s.IDGen(),
		Name:      req.Name,
		Email:     req.Email,
		Position:  req.Position,
		Status:    domain.SubjectActive,
		CreatedAt: now,
	}
	if err := s.Subjects.InsertSubject(ctx, sub); err != nil {
		observability.Enrollments.WithLabelValues("error").Inc()
		return "", err
	}

	if _, err := s.Scheduler.Enroll(ctx, sub.ID, now); err != nil {
		observability.Enrollments.WithLabelValues("error").Inc()
		return "", err
	}
	observability.Enrollments.WithLabelValues("ok").Inc()
	return sub.ID, nil
}

func (s *Service) ListSubjects(ctx context.Context) ([]domain.Subject, error) {
	return s.Subjects.ListSubjects(ctx)
}

// SetSubjectStatus flips the active/inactive flag. Status is reporting-only
// metadata: dispatch never consults it, so pausing a subject's queue rows is
// not implied.
func (s *Service) SetSubjectStatus(ctx context.Context, id string, status domain.SubjectStatus) error {
	if status != domain.SubjectActive && status != domain.SubjectInactive {
		return fmt.Errorf("%w: unknown status %q", domain.ErrValidation, status)
	}
	found, err := s.Subjects.SetSubjectStatus(ctx, id, status)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("subject %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
