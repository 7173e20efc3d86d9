package campaign

import (
	"context"

	"campaigner/internal/domain"
)

type ReportStore interface {
	Summary(ctx context.Context) (domain.Summary, error)
	ListLog(ctx context.Context, subjectID string) ([]domain.DeliveryLogEntry, error)
}

// Reporter exposes the read-only dashboard queries.
type Reporter struct {
	Store ReportStore
}

func (r *Reporter) Summary(ctx context.Context) (domain.Summary, error) {
	return r.Store.Summary(ctx)
}

func (r *Reporter) History(ctx context.Context, subjectID string) ([]domain.DeliveryLogEntry, error) {
	return r.Store.ListLog(ctx, subjectID)
}
