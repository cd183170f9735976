package rabbitmq

import (
	"context"
	"fmt"
	"math"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// DialOptions configures the broker connection attempt.
type DialOptions struct {
	URL      string
	Attempts int
	Delay    time.Duration
}

const maxDialDelay = 60 * time.Second

// DialWithRetry connects to RabbitMQ with capped exponential backoff. It
// respects context cancellation for graceful shutdown.
func DialWithRetry(ctx context.Context, opts DialOptions, log *zap.Logger) (*amqp.Connection, error) {
	var lastErr error

	for i := 1; i <= opts.Attempts; i++ {
		conn, err := amqp.Dial(opts.URL)
		if err == nil {
			if i > 1 {
				log.Info("rabbitmq connected", zap.Int("attempt", i))
			}
			return conn, nil
		}
		lastErr = err

		sleep := opts.Delay * time.Duration(math.Pow(2, float64(i-1)))
		if sleep > maxDialDelay {
			sleep = maxDialDelay
		}

		log.Warn("rabbitmq dial failed",
			zap.Int("attempt", i),
			zap.Duration("sleep", sleep),
			zap.Error(err),
		)

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("dial cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}

	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", opts.Attempts, lastErr)
}
