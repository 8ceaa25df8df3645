// Package mailer provides the outbound email senders.
package mailer

import (
	"context"
	"time"

	"Storefront/rabbit"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Message is the job a mail worker consumes from the queue.
type Message struct {
	ID      string    `json:"id"`
	From    string    `json:"from"`
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Time    time.Time `json:"time"`
}

// Queue hands messages to a mail worker through RabbitMQ.
type Queue struct {
	Publisher *rabbit.Publisher
	Key       string
	From      string
}

func (q *Queue) Send(ctx context.Context, to, subject, body string) error {
	msg := Message{
		ID:      uuid.NewString(),
		From:    q.From,
		To:      to,
		Subject: subject,
		Body:    body,
		Time:    time.Now(),
	}

	pubCtx, cancel := rabbit.WithTimeout(ctx)
	defer cancel()

	return q.Publisher.PublishJSON(pubCtx, q.Key, msg, amqp.Table{
		"x-attempts": int32(0),
	})
}

// Log only writes messages to the logger. Used when no broker is configured.
type Log struct {
	Log  zerolog.Logger
	From string
}

func (l *Log) Send(ctx context.Context, to, subject, body string) error {
	l.Log.Info().
		Str("from", l.From).
		Str("to", to).
		Str("subject", subject).
		Str("body", body).
		Msg("mail not delivered, no broker configured")
	return nil
}
