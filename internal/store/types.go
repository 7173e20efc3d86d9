package store

import (
	"context"
	"time"

	"campaigner/internal/domain"
)

// ResolveFunc performs the send attempt for a claimed queue row. It returns
// the terminal status and error detail to record; resolve=false abandons the
// claim, leaving the row pending with no log entry.
type ResolveFunc func(ctx context.Context) (status domain.QueueStatus, errDetail string, resolve bool)

type QueueInsert struct {
	SubjectID string
	Sequence  int
	DueAt     time.Time
	Now       time.Time
}

type EntryResolution struct {
	SubjectID   string
	Sequence    int
	SubjectLine string
	Now         time.Time
}

type TemplateUpsert struct {
	Sequence int
	Subject  string
	Body     string
	Delay    time.Duration
	Now      time.Time
}
