package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type SubjectStatus string

const (
	SubjectActive   SubjectStatus = "active"
	SubjectInactive SubjectStatus = "inactive"
)

type QueueStatus string

const (
	StatusPending QueueStatus = "pending"
	StatusSent    QueueStatus = "sent"
	StatusFailed  QueueStatus = "failed"
)

// Subject is an enrolled candidate progressing through the campaign.
type Subject struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Position  string        `json:"position"`
	Status    SubjectStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Template is one stage of the campaign sequence. Sequence numbers are
// 1-based and unique; their ascending order is the stage progression.
type Template struct {
	Sequence int           `json:"sequence"`
	Subject  string        `json:"subject"`
	Body     string        `json:"body"`
	Delay    time.Duration `json:"delay"`
}

// QueueEntry is a scheduled send for one (subject, stage) pair. Its status
// is written exactly once, pending -> sent or pending -> failed.
type QueueEntry struct {
	SubjectID string      `json:"subjectId"`
	Sequence  int         `json:"sequence"`
	DueAt     time.Time   `json:"dueAt"`
	Status    QueueStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
}

// DeliveryLogEntry records one queue-entry resolution. Append-only.
type DeliveryLogEntry struct {
	ID          int64       `json:"id"`
	SubjectID   string      `json:"subjectId"`
	Sequence    int         `json:"sequence"`
	SubjectLine string      `json:"subjectLine"`
	Status      QueueStatus `json:"status"`
	ErrorDetail string      `json:"errorDetail,omitempty"`
	ResolvedAt  time.Time   `json:"resolvedAt"`
}

// DispatchReport aggregates one dispatch pass. Attempted counts rows the
// sender was actually invoked for; rows skipped over missing configuration
// or a concurrent claim land in neither bucket.
type DispatchReport struct {
	Attempted int `json:"attempted"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
}

// Summary is the dashboard view, derived by scanning the stores.
type Summary struct {
	TotalSubjects  int `json:"totalSubjects"`
	ActiveSubjects int `json:"activeSubjects"`
	TotalEmails    int `json:"totalEmails"`
	SentEmails     int `json:"sentEmails"`
	FailedEmails   int `json:"failedEmails"`
	PendingEmails  int `json:"pendingEmails"`
}

type EnrollRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Position string `json:"position"`
}

var validate = validator.New()

func (r EnrollRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// Normalize trims whitespace and lowercases the address host part.
func (r *EnrollRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Position = strings.TrimSpace(r.Position)
	r.Email = strings.TrimSpace(r.Email)
	if at := strings.LastIndex(r.Email, "@"); at >= 0 {
		r.Email = r.Email[:at+1] + strings.ToLower(r.Email[at+1:])
	}
}

var (
	ErrNotFound   = errors.New("not found")
	ErrDuplicate  = errors.New("already exists")
	ErrValidation = errors.New("validation failed")
)
