// Package notifier defines the outbound email boundary. The auth flows only
// ever see the Notifier interface; the concrete implementation hands
// messages to the broker for asynchronous delivery.
package notifier

import "context"

// Notifier delivers a transactional email to a single recipient. A non-nil
// error means the message was not accepted for delivery and the calling
// request must fail visibly: the user cannot complete login without the
// code the message carries.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}
