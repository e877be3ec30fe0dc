// Package queue defines message payloads exchanged over the message broker
// and the background consumer that delivers them.
package queue

// EmailQueueName is the durable queue carrying outbound transactional mail.
const EmailQueueName = "email.send"

// EmailMessage is published by the notifier when an OTP is issued and
// consumed by the email worker. It is self-contained so the worker never
// has to query the primary database.
type EmailMessage struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	QueuedAt string `json:"queued_at"`
}
