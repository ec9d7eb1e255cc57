package scanning

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	defaultAttempts = 3
	defaultBackoff  = time.Second
)

// Retrying wraps a Scanner with the extraction retry policy: a transient
// unavailable response is retried after 1 backoff unit, then 2 units, for at
// most Attempts calls in total. Every other error fails immediately. All
// errors are returned as *ExtractionError.
type Retrying struct {
	Scanner  Scanner
	Attempts int
	Backoff  time.Duration

	// sleep waits for d or until ctx is done
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetrying wraps scanner with the default policy of 3 attempts and a one
// second backoff unit
func NewRetrying(scanner Scanner) *Retrying {
	return &Retrying{
		Scanner:  scanner,
		Attempts: defaultAttempts,
		Backoff:  defaultBackoff,
		sleep:    sleepContext,
	}
}

// ScanReceipt scans the receipt, retrying while the backend is unavailable
func (r *Retrying) ScanReceipt(ctx context.Context, imageData []byte, contentType string) (*ReceiptData, error) {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := r.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		data, err := r.Scanner.ScanReceipt(ctx, imageData, contentType)
		if err == nil {
			return data, nil
		}
		lastErr = err

		if !errors.Is(err, ErrUnavailable) || attempt == attempts {
			break
		}

		wait := time.Duration(attempt) * r.Backoff
		slog.Warn("Extraction service unavailable, retrying",
			"attempt", attempt,
			"max_attempts", attempts,
			"wait", wait,
			"error", err,
		)
		if err := sleep(ctx, wait); err != nil {
			lastErr = err
			break
		}
	}

	return nil, &ExtractionError{Cause: lastErr}
}

// Close closes the wrapped scanner
func (r *Retrying) Close() error {
	return r.Scanner.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
