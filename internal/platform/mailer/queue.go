// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher is the slice of *amqp.Channel used by [QueueNotifier].
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// QueueNotifier hands messages to an external mail worker through a durable
// RabbitMQ queue. Jobs are JSON-encoded [Message] values.
type QueueNotifier struct {
	mu        sync.Mutex
	publisher Publisher
	queue     string
	closers   []func() error
}

// NewQueueNotifier wraps an already-open channel. The queue must exist.
func NewQueueNotifier(publisher Publisher, queue string) *QueueNotifier {
	return &QueueNotifier{publisher: publisher, queue: queue}
}

// DialQueueNotifier connects to the broker and declares the durable queue.
func DialQueueNotifier(url, queue string) (*QueueNotifier, error) {
	if url == "" {
		return nil, fmt.Errorf("mailer: AMQP_URL is required in queue mode")
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("mailer: amqp dial failed: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("mailer: amqp channel open failed: %w", err)
	}

	// Durable so queued mail survives broker restarts.
	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("mailer: amqp queue declare failed: %w", err)
	}

	notifier := NewQueueNotifier(channel, queue)
	notifier.closers = []func() error{channel.Close, conn.Close}
	return notifier, nil
}

// Mode implements [Notifier].
func (notifier *QueueNotifier) Mode() Mode { return ModeQueue }

// Send implements [Notifier].
func (notifier *QueueNotifier) Send(ctx context.Context, message Message) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("mailer: marshal job failed: %w", err)
	}

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         message.Kind,
		Body:         body,
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()

	// Default exchange; the routing key is the queue name.
	if err := notifier.publisher.PublishWithContext(ctx, "", notifier.queue, false, false, publishing); err != nil {
		return fmt.Errorf("mailer: amqp publish failed: %w", err)
	}
	return nil
}

// Close releases the channel and connection opened by [DialQueueNotifier].
func (notifier *QueueNotifier) Close() error {
	var firstErr error
	for _, closeFn := range notifier.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
