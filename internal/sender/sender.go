package sender

import "context"

// Sender is the transport capability: one attempt to deliver one rendered
// message. Implementations never get retried by the dispatcher beyond the
// configured in-pass retry budget; a returned error becomes the row's
// failure detail.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SendError carries a human-readable cause for a delivery failure.
type SendError struct {
	Reason string
	Err    error
}

func (e *SendError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *SendError) Unwrap() error { return e.Err }
