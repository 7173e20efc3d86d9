package campaign

import (
	"context"
	"errors"
	"testing"
	"time"

	"campaigner/internal/domain"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func seedThreeStages(m *memStore) {
	m.putTemplate(domain.Template{Sequence: 1, Subject: "Welcome {candidate_name}", Body: "Hi {candidate_name}", Delay: 0})
	m.putTemplate(domain.Template{Sequence: 2, Subject: "Update for {candidate_name}", Body: "About {position}", Delay: 48 * time.Hour})
	m.putTemplate(domain.Template{Sequence: 3, Subject: "Final Steps - {position}", Body: "Almost there", Delay: 120 * time.Hour})
}

func seedSubject(m *memStore, id, name, email, position string) {
	_ = m.InsertSubject(context.Background(), domain.Subject{
		ID: id, Name: name, Email: email, Position: position,
		Status: domain.SubjectActive, CreatedAt: t0,
	})
}

func TestEnrollExpandsAllStages(t *testing.T) {
	m := newMemStore()
	seedThreeStages(m)
	seedSubject(m, "sub_1", "Ada", "ada@example.com", "Engineer")

	s := &Scheduler{Subjects: m, Templates: m, Queue: m}
	created, err := s.Enroll(context.Background(), "sub_1", t0)
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if created != 3 {
		t.Fatalf("created = %d, want 3", created)
	}

	due, err := m.DueEntries(context.Background(), t0.Add(200*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	wantDue := []time.Time{t0, t0.Add(48 * time.Hour), t0.Add(120 * time.Hour)}
	if len(due) != 3 {
		t.Fatalf("pending rows = %d, want 3", len(due))
	}
	for i, e := range due {
		if !e.DueAt.Equal(wantDue[i]) {
			t.Errorf("row %d due %v, want %v", i, e.DueAt, wantDue[i])
		}
		if e.Status != domain.StatusPending {
			t.Errorf("row %d status %q, want pending", i, e.Status)
		}
	}
}

func TestEnrollTwiceCreatesNoDuplicates(t *testing.T) {
	m := newMemStore()
	seedThreeStages(m)
	seedSubject(m, "sub_1", "Ada", "ada@example.com", "Engineer")

	s := &Scheduler{Subjects: m, Templates: m, Queue: m}
	if _, err := s.Enroll(context.Background(), "sub_1", t0); err != nil {
		t.Fatal(err)
	}
	created, err := s.Enroll(context.Background(), "sub_1", t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("second enroll: %v", err)
	}
	if created != 0 {
		t.Fatalf("second enroll created %d rows, want 0", created)
	}
	if got := m.pendingCount(); got != 3 {
		t.Fatalf("pending rows = %d, want 3", got)
	}
}

func TestEnrollAfterResolutionSkipsResolvedStage(t *testing.T) {
	m := newMemStore()
	seedThreeStages(m)
	seedSubject(m, "sub_1", "Ada", "ada@example.com", "Engineer")

	s := &Scheduler{Subjects: m, Templates: m, Queue: m}
	if _, err := s.Enroll(context.Background(), "sub_1", t0); err != nil {
		t.Fatal(err)
	}

	d := &Dispatcher{Subjects: m, Templates: m, Queue: m, Sender: &fakeSender{}}
	if _, err := d.ProcessDue(context.Background(), t0); err != nil {
		t.Fatal(err)
	}
	if got := m.entryStatus("sub_1", 1); got != domain.StatusSent {
		t.Fatalf("stage 1 status %q, want sent", got)
	}

	created, err := s.Enroll(context.Background(), "sub_1", t0.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if created != 0 {
		t.Fatalf("re-enroll created %d rows, want 0", created)
	}
	if got := m.entryStatus("sub_1", 1); got != domain.StatusSent {
		t.Fatalf("stage 1 status %q after re-enroll, want sent", got)
	}
}

func TestEnrollUnknownSubject(t *testing.T) {
	m := newMemStore()
	seedThreeStages(m)

	s := &Scheduler{Subjects: m, Templates: m, Queue: m}
	_, err := s.Enroll(context.Background(), "sub_missing", t0)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestEnrollWithNoTemplatesIsNoop(t *testing.T) {
	m := newMemStore()
	seedSubject(m, "sub_1", "Ada", "ada@example.com", "Engineer")

	s := &Scheduler{Subjects: m, Templates: m, Queue: m}
	created, err := s.Enroll(context.Background(), "sub_1", t0)
	if err != nil {
		t.Fatalf("enroll with no templates: %v", err)
	}
	if created != 0 {
		t.Fatalf("created = %d, want 0", created)
	}
}

func TestEnrollSubjectValidatesAndSchedules(t *testing.T) {
	m := newMemStore()
	seedThreeStages(m)

	n := 0
	svc := &Service{
		Subjects:  m,
		Scheduler: &Scheduler{Subjects: m, Templates: m, Queue: m},
		IDGen:     func() string { n++; return "sub_" + string(rune('0'+n)) },
	}

	id, err := svc.EnrollSubject(context.Background(), domain.EnrollRequest{
		Name: " Ada Lovelace ", Email: "Ada@Example.COM", Position: "Engineer",
	}, t0)
	if err != nil {
		t.Fatalf("enroll subject: %v", err)
	}
	sub, found, _ := m.GetSubject(context.Background(), id)
	if !found {
		t.Fatal("subject not persisted")
	}
	if sub.Name != "Ada Lovelace" {
		t.Errorf("name %q not trimmed", sub.Name)
	}
	if sub.Email != "Ada@example.com" {
		t.Errorf("email %q host not lowercased", sub.Email)
	}
	if sub.Status != domain.SubjectActive {
		t.Errorf("status %q, want active", sub.Status)
	}
	if got := m.pendingCount(); got != 3 {
		t.Fatalf("pending rows = %d, want 3", got)
	}
}

func TestEnrollSubjectRejectsBadAddress(t *testing.T) {
	m := newMemStore()
	svc := &Service{
		Subjects:  m,
		Scheduler: &Scheduler{Subjects: m, Templates: m, Queue: m},
		IDGen:     func() string { return "sub_x" },
	}

	_, err := svc.EnrollSubject(context.Background(), domain.EnrollRequest{
		Name: "Ada", Email: "not-an-address",
	}, t0)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if got := m.pendingCount(); got != 0 {
		t.Fatalf("rows written before validation, pending = %d", got)
	}
}

func TestEnrollSubjectRejectsDuplicateAddress(t *testing.T) {
	m := newMemStore()
	svc := &Service{
		Subjects:  m,
		Scheduler: &Scheduler{Subjects: m, Templates: m, Queue: m},
		IDGen:     seqIDGen(),
	}

	if _, err := svc.EnrollSubject(context.Background(), domain.EnrollRequest{
		Name: "Ada", Email: "ada@example.com",
	}, t0); err != nil {
		t.Fatal(err)
	}
	_, err := svc.EnrollSubject(context.Background(), domain.EnrollRequest{
		Name: "Ada Again", Email: "ada@example.com",
	}, t0)
	if !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
}

func seqIDGen() func() string {
	n := 0
	return func() string {
		n++
		return "sub_" + string(rune('a'+n))
	}
}
