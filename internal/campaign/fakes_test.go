package campaign

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"campaigner/internal/domain"
	"campaigner/internal/store"
)

type queueKey struct {
	subject string
	seq     int
}

// memStore is a mutex-guarded in-memory stand-in for the pg store. The
// mutex is held across ResolveEntry's send callback, which mirrors the row
// lock the real store takes.
type memStore struct {
	mu        sync.Mutex
	subjects  map[string]domain.Subject
	templates map[int]domain.Template
	queue     map[queueKey]*domain.QueueEntry
	logs      []domain.DeliveryLogEntry

	failDue bool
}

func newMemStore() *memStore {
	return &memStore{
		subjects:  make(map[string]domain.Subject),
		templates: make(map[int]domain.Template),
		queue:     make(map[queueKey]*domain.QueueEntry),
	}
}

func (m *memStore) InsertSubject(ctx context.Context, sub domain.Subject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.subjects {
		if existing.Email == sub.Email {
			return fmt.Errorf("subject email %s: %w", sub.Email, domain.ErrDuplicate)
		}
	}
	m.subjects[sub.ID] = sub
	return nil
}

func (m *memStore) GetSubject(ctx context.Context, id string) (domain.Subject, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subjects[id]
	return sub, ok, nil
}

func (m *memStore) ListSubjects(ctx context.Context) ([]domain.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Subject, 0, len(m.subjects))
	for _, sub := range m.subjects {
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) putTemplate(t domain.Template) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[t.Sequence] = t
}

func (m *memStore) dropTemplate(seq int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.templates, seq)
}

func (m *memStore) ListTemplates(ctx context.Context) ([]domain.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Template, 0, len(m.templates))
	for _, t := range m.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (m *memStore) GetTemplate(ctx context.Context, sequence int) (domain.Template, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[sequence]
	return t, ok, nil
}

func (m *memStore) InsertEntries(ctx context.Context, entries []store.QueueInsert) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	created := 0
	for _, e := range entries {
		k := queueKey{e.SubjectID, e.Sequence}
		if _, exists := m.queue[k]; exists {
			continue
		}
		m.queue[k] = &domain.QueueEntry{
			SubjectID: e.SubjectID,
			Sequence:  e.Sequence,
			DueAt:     e.DueAt,
			Status:    domain.StatusPending,
			CreatedAt: e.Now,
		}
		created++
	}
	return created, nil
}

func (m *memStore) DueEntries(ctx context.Context, now time.Time) ([]domain.QueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDue {
		return nil, fmt.Errorf("queue store unreachable")
	}
	var out []domain.QueueEntry
	for _, e := range m.queue {
		if e.Status == domain.StatusPending && !e.DueAt.After(now) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueAt.Equal(out[j].DueAt) {
			return out[i].DueAt.Before(out[j].DueAt)
		}
		if out[i].SubjectID != out[j].SubjectID {
			return out[i].SubjectID < out[j].SubjectID
		}
		return out[i].Sequence < out[j].Sequence
	})
	return out, nil
}

func (m *memStore) ResolveEntry(ctx context.Context, in store.EntryResolution, send store.ResolveFunc) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.queue[queueKey{in.SubjectID, in.Sequence}]
	if !ok || e.Status != domain.StatusPending {
		return false, nil
	}
	status, errDetail, resolve := send(ctx)
	if !resolve {
		return false, nil
	}
	e.Status = status
	m.logs = append(m.logs, domain.DeliveryLogEntry{
		ID:          int64(len(m.logs) + 1),
		SubjectID:   in.SubjectID,
		Sequence:    in.Sequence,
		SubjectLine: in.SubjectLine,
		Status:      status,
		ErrorDetail: errDetail,
		ResolvedAt:  in.Now,
	})
	return true, nil
}

func (m *memStore) Summary(ctx context.Context) (domain.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out domain.Summary
	out.TotalSubjects = len(m.subjects)
	for _, sub := range m.subjects {
		if sub.Status == domain.SubjectActive {
			out.ActiveSubjects++
		}
	}
	out.TotalEmails = len(m.logs)
	for _, l := range m.logs {
		switch l.Status {
		case domain.StatusSent:
			out.SentEmails++
		case domain.StatusFailed:
			out.FailedEmails++
		}
	}
	for _, e := range m.queue {
		if e.Status == domain.StatusPending {
			out.PendingEmails++
		}
	}
	return out, nil
}

func (m *memStore) ListLog(ctx context.Context, subjectID string) ([]domain.DeliveryLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.DeliveryLogEntry
	for _, l := range m.logs {
		if subjectID == "" || l.SubjectID == subjectID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memStore) SetSubjectStatus(ctx context.Context, id string, status domain.SubjectStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subjects[id]
	if !ok {
		return false, nil
	}
	sub.Status = status
	m.subjects[id] = sub
	return true, nil
}

func (m *memStore) pendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.queue {
		if e.Status == domain.StatusPending {
			n++
		}
	}
	return n
}

func (m *memStore) entryStatus(subjectID string, seq int) domain.QueueStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.queue[queueKey{subjectID, seq}]
	if !ok {
		return ""
	}
	return e.Status
}

func (m *memStore) logCopy() []domain.DeliveryLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.DeliveryLogEntry, len(m.logs))
	copy(out, m.logs)
	return out
}

type sendCall struct {
	To      string
	Subject string
	Body    string
}

type fakeSender struct {
	mu    sync.Mutex
	calls []sendCall
	err   error
}

func (f *fakeSender) Send(ctx context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sendCall{To: to, Subject: subject, Body: body})
	return f.err
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
