package listener

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/kantinku/order/internal/dal/postgres"
)

// Channel every change trigger notifies on; the payload is the table name.
const channel = "order_changes"

// Listener bridges Postgres LISTEN/NOTIFY to in-process callbacks. Triggers
// installed by migration fire on every write to the watched tables, so any
// writer (this process or another) invalidates subscribers' caches.
type Listener struct {
	client *postgres.Client

	mu       sync.RWMutex
	handlers map[string][]func()
}

// NewListener creates a new change notification listener.
func NewListener(client *postgres.Client) *Listener {
	return &Listener{
		client:   client,
		handlers: make(map[string][]func()),
	}
}

// OnChange registers a callback invoked whenever a row of the given table
// changes. Callbacks run on the listener goroutine and must not block.
func (l *Listener) OnChange(table string, fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers[table] = append(l.handlers[table], fn)
}

// Run listens for notifications until the context is cancelled. Dropped
// connections are re-established with fibonacci backoff; subscribers resync
// fully on every notification, so missed events during a reconnect are
// covered by the next one.
func (l *Listener) Run(ctx context.Context) error {
	backoff := retry.WithMaxDuration(5*time.Minute, retry.NewFibonacci(time.Second))

	for {
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			if err := l.listen(ctx); err != nil {
				slog.Error("Change listener disconnected, retrying", "error", err)

				return retry.RetryableError(err)
			}

			return nil
		})

		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("change listener gave up: %w", err)
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.client.Pool().Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire listener connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", channel, err)
	}

	slog.Info("Change listener started", "channel", channel)

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("failed to wait for notification: %w", err)
		}

		l.dispatch(notification.Payload)
	}
}

func (l *Listener) dispatch(table string) {
	l.mu.RLock()
	handlers := l.handlers[table]
	l.mu.RUnlock()

	for _, fn := range handlers {
		fn()
	}
}
