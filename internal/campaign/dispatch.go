package campaign

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"campaigner/internal/domain"
	"campaigner/internal/observability"
	"campaigner/internal/sender"
	"campaigner/internal/store"
)

type QueueStore interface {
	DueEntries(ctx context.Context, now time.Time) ([]domain.QueueEntry, error)
	ResolveEntry(ctx context.Context, in store.EntryResolution, send store.ResolveFunc) (claimed bool, err error)
}

// Dispatcher runs the due-selection-and-send loop. Safe to re-invoke with
// the same instant, and safe under interleaved passes: every row is claimed
// and re-verified pending inside the store's transaction before the sender
// fires, so each row resolves at most once.
type Dispatcher struct {
	Subjects  SubjectStore
	Templates TemplateStore
	Queue     QueueStore
	Sender    sender.Sender
	Limiter   *rate.Limiter
	Breaker   *gobreaker.CircuitBreaker

	// SendTimeout bounds one sender call; zero means 10s. A timeout resolves
	// the row as failed, it is not retried within the pass unless
	// MaxSendRetries allows it.
	SendTimeout    time.Duration
	MaxSendRetries int
}

// ProcessDue resolves every pending row due at or before now. Individual
// send failures become row state, never an error; only a storage failure
// aborts the pass. The returned report is valid even on error and reflects
// whatever was resolved before the abort.
func (d *Dispatcher) ProcessDue(ctx context.Context, now time.Time) (domain.DispatchReport, error) {
	var rep domain.DispatchReport

	due, err := d.Queue.DueEntries(ctx, now)
	if err != nil {
		observability.DispatchPasses.WithLabelValues("error").Inc()
		return rep, err
	}
	if len(due) == 0 {
		observability.DispatchPasses.WithLabelValues("empty").Inc()
		return rep, nil
	}

	for _, entry := range due {
		if err := ctx.Err(); err != nil {
			observability.DispatchPasses.WithLabelValues("canceled").Inc()
			return rep, err
		}
		if d.Breaker != nil && d.Breaker.State() == gobreaker.StateOpen {
			// Transient provider protection: leave the remainder pending for
			// the next pass rather than burning rows as failed.
			slog.Warn("sender breaker open, ending pass early",
				"remaining", len(due)-rep.Attempted)
			break
		}

		tmpl, found, err := d.Templates.GetTemplate(ctx, entry.Sequence)
		if err != nil {
			observability.DispatchPasses.WithLabelValues("error").Inc()
			return rep, err
		}
		if !found {
			observability.DispatchSkips.WithLabelValues("template_missing").Inc()
			slog.Warn("template missing, leaving row pending",
				"subject_id", entry.SubjectID, "sequence", entry.Sequence)
			continue
		}

		sub, found, err := d.Subjects.GetSubject(ctx, entry.SubjectID)
		if err != nil {
			observability.DispatchPasses.WithLabelValues("error").Inc()
			return rep, err
		}
		if !found {
			observability.DispatchSkips.WithLabelValues("subject_missing").Inc()
			slog.Warn("subject missing, leaving row pending",
				"subject_id", entry.SubjectID, "sequence", entry.Sequence)
			continue
		}

		subjectLine := Render(tmpl.Subject, sub)
		body := Render(tmpl.Body, sub)

		if d.Limiter != nil {
			waitCtx, cancelWait := context.WithTimeout(ctx, 2*time.Second)
			err := d.Limiter.Wait(waitCtx)
			cancelWait()
			if err != nil {
				observability.DispatchSkips.WithLabelValues("rate_limited").Inc()
				continue
			}
		}

		var attempted, abandoned bool
		var resolved domain.QueueStatus
		claimed, err := d.Queue.ResolveEntry(ctx, store.EntryResolution{
			SubjectID:   entry.SubjectID,
			Sequence:    entry.Sequence,
			SubjectLine: subjectLine,
			Now:         now,
		}, func(ctx context.Context) (domain.QueueStatus, string, bool) {
			attempted = true
			sendErr := d.send(ctx, sub.Email, subjectLine, body)
			if errors.Is(sendErr, gobreaker.ErrOpenState) || errors.Is(sendErr, gobreaker.ErrTooManyRequests) {
				attempted = false
				abandoned = true
				return domain.StatusPending, "", false
			}
			if sendErr != nil {
				resolved = domain.StatusFailed
				return domain.StatusFailed, sendErr.Error(), true
			}
			resolved = domain.StatusSent
			return domain.StatusSent, "", true
		})
		if err != nil {
			observability.DispatchPasses.WithLabelValues("error").Inc()
			return rep, err
		}
		if attempted {
			rep.Attempted++
		}
		if abandoned {
			slog.Warn("sender breaker opened mid-pass, ending pass early",
				"subject_id", entry.SubjectID, "sequence", entry.Sequence)
			break
		}
		if !claimed {
			observability.DispatchSkips.WithLabelValues("claimed_elsewhere").Inc()
			continue
		}
		switch resolved {
		case domain.StatusSent:
			rep.Sent++
		case domain.StatusFailed:
			rep.Failed++
		}
	}

	observability.DispatchPasses.WithLabelValues("ok").Inc()
	return rep, nil
}

// send performs one bounded sender call per allowed attempt, through the
// circuit breaker when configured.
func (d *Dispatcher) send(ctx context.Context, to, subjectLine, body string) error {
	timeout := d.SendTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var lastErr error
	for attempt := 0; attempt <= d.MaxSendRetries; attempt++ {
		start := time.Now()
		_, err := d.execute(ctx, timeout, to, subjectLine, body)
		observability.SendLatency.Observe(time.Since(start).Seconds())

		if err == nil {
			observability.DispatchSends.WithLabelValues("sent").Inc()
			return nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return err
		}
		lastErr = err
		if attempt < d.MaxSendRetries {
			time.Sleep(backoff(attempt))
		}
	}
	observability.DispatchSends.WithLabelValues("failed").Inc()
	return lastErr
}

func (d *Dispatcher) execute(ctx context.Context, timeout time.Duration, to, subjectLine, body string) (any, error) {
	call := func() (any, error) {
		sendCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := d.Sender.Send(sendCtx, to, subjectLine, body); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, &sender.SendError{Reason: "send timeout", Err: err}
			}
			return nil, err
		}
		return nil, nil
	}

	if d.Breaker == nil {
		return call()
	}
	return d.Breaker.Execute(call)
}

func backoff(attempt int) time.Duration {
	base := []time.Duration{200 * time.Millisecond, 600 * time.Millisecond, 1400 * time.Millisecond}
	if attempt < 0 {
		return base[0]
	}
	if attempt >= len(base) {
		return base[len(base)-1]
	}
	return base[attempt]
}
