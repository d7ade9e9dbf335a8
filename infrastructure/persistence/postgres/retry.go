package postgres

import (
	"context"
	"errors"
	"io"
	"math"
	"math/rand"
	"net"
	"strings"
	"time"

	pkgerrors "recall-backend/pkg/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// retryPolicy bounds transient-failure retries at the connection-acquisition
// layer. It never re-runs an already-executed statement: repositories pass a
// closure covering exactly one acquisition plus its statements, and the
// closure is re-invoked only when the failure is classified transient.
type retryPolicy struct {
	maxAttempts   int
	initialDelay  time.Duration
	maxDelay      time.Duration
	backoffFactor float64
	jitterFactor  float64
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{
		maxAttempts:   3,
		initialDelay:  100 * time.Millisecond,
		maxDelay:      2 * time.Second,
		backoffFactor: 2.0,
		jitterFactor:  0.2,
	}
}

// delay computes the exponential backoff with randomized jitter for attempt
// (1-based).
func (p retryPolicy) delay(attempt int) time.Duration {
	backoff := float64(p.initialDelay) * math.Pow(p.backoffFactor, float64(attempt-1))
	if backoff > float64(p.maxDelay) {
		backoff = float64(p.maxDelay)
	}
	jitter := backoff * p.jitterFactor * (rand.Float64()*2 - 1)
	return time.Duration(backoff + jitter)
}

// withRetry runs fn, retrying on the known-transient error class. Exhausted
// retries surface as StorageUnavailable.
func (s *Store) withRetry(ctx context.Context, operation string, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= s.retry.maxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) {
			return lastErr
		}
		if attempt == s.retry.maxAttempts {
			break
		}
		if s.metrics != nil {
			s.metrics.ObserveStorageRetry()
		}
		s.logger.Warn("transient storage failure, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(lastErr),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.retry.delay(attempt)):
		}
	}
	return pkgerrors.NewStorageUnavailableError(
		pkgerrors.NewTransientStorageError(operation, lastErr),
	)
}

// acquire takes a pooled connection under the retry policy
func (s *Store) acquire(ctx context.Context) (*pgxpool.Conn, error) {
	var conn *pgxpool.Conn
	err := s.withRetry(ctx, "acquire connection", func(ctx context.Context) error {
		var err error
		conn, err = s.pool.Acquire(ctx)
		return err
	})
	return conn, err
}

// isTransient classifies the retryable error class: abrupt closures, resets
// and timeouts, never integrity or syntax failures.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if pgconn.SafeToRetry(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08: connection exceptions; 57P01: admin shutdown.
		if strings.HasPrefix(pgErr.Code, "08") || pgErr.Code == "57P01" {
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "conn closed")
}

// isUniqueViolation detects the race an atomic upsert can still lose when
// two writers insert the same key between conflict arbitration.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
