// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mailer

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultDispatchTimeout bounds a single background delivery, retries included.
const DefaultDispatchTimeout = 30 * time.Second

// DeliveryRecorder receives one call per finished delivery.
type DeliveryRecorder interface {
	RecordEmailDelivery(mode, outcome string)
}

// Dispatcher makes a [Notifier] fire-and-forget: Send returns immediately
// and delivery runs on its own goroutine with its own deadline, detached
// from the caller's context. Failures are logged, never returned.
type Dispatcher struct {
	notifier Notifier
	logger   *slog.Logger
	recorder DeliveryRecorder
	timeout  time.Duration
	inflight sync.WaitGroup
}

// NewDispatcher wraps notifier. recorder may be nil.
func NewDispatcher(notifier Notifier, logger *slog.Logger, recorder DeliveryRecorder) *Dispatcher {
	return &Dispatcher{
		notifier: notifier,
		logger:   logger,
		recorder: recorder,
		timeout:  DefaultDispatchTimeout,
	}
}

// Mode implements [Notifier].
func (dispatcher *Dispatcher) Mode() Mode { return dispatcher.notifier.Mode() }

// Send implements [Notifier]; it always returns nil.
func (dispatcher *Dispatcher) Send(ctx context.Context, message Message) error {
	// Keep request-scoped values (logger, request id) but drop its cancellation.
	detached := context.WithoutCancel(ctx)

	dispatcher.inflight.Add(1)
	go func() {
		defer dispatcher.inflight.Done()

		deliveryCtx, cancel := context.WithTimeout(detached, dispatcher.timeout)
		defer cancel()

		outcome := "success"
		if err := dispatcher.notifier.Send(deliveryCtx, message); err != nil {
			outcome = "error"
			dispatcher.logger.ErrorContext(deliveryCtx, "email_delivery_failed",
				slog.String("mode", string(dispatcher.notifier.Mode())),
				slog.String("kind", message.Kind),
				slog.Any("error", err),
			)
		}

		if dispatcher.recorder != nil {
			dispatcher.recorder.RecordEmailDelivery(string(dispatcher.notifier.Mode()), outcome)
		}
	}()

	return nil
}

// Wait blocks until every in-flight delivery has finished. Called during
// graceful shutdown.
func (dispatcher *Dispatcher) Wait() {
	dispatcher.inflight.Wait()
}
