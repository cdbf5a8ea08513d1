package n8n

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
		MaxDelay:   15 * time.Second,
	}
}

// makeRequestWithRetry wraps makeRequest in exponential backoff. Analysis
// workflows can take a while to spin up, so transient failures are expected.
func (c *Client) makeRequestWithRetry(ctx context.Context, method, endpoint string, payload interface{}, result interface{}) error {
	return c.retryOperation(ctx, func() error {
		return c.makeRequest(ctx, method, endpoint, payload, result)
	})
}

func (c *Client) retryOperation(ctx context.Context, operation func() error) error {
	config := c.retry

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := operation()
		if err == nil {
			return nil
		}

		if attempt == config.MaxRetries {
			return fmt.Errorf("operation failed after %d retries: %w", config.MaxRetries, err)
		}

		delay := time.Duration(float64(config.BaseDelay) * math.Pow(1.5, float64(attempt)))
		if delay > config.MaxDelay {
			delay = config.MaxDelay
		}

		c.logger.WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"delay":   delay,
			"error":   err.Error(),
		}).Warn("Retrying n8n webhook")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil
}
