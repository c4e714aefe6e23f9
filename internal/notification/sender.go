package notification

import "context"

// Sender delivers a rendered message to a single recipient.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}
