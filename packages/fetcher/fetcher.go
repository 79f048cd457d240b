// Package fetcher issues outbound GET requests with bounded retry and
// exponential backoff.
package fetcher

import (
	"bytes"
	"caselaw/packages/metrics"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

var (
	// ErrAttemptsExhausted is returned once every attempt for a URL failed.
	// Callers skip the URL and carry on with the batch.
	ErrAttemptsExhausted = errors.New("fetch attempts exhausted")
	ErrBadStatus         = errors.New("unexpected status code")
)

type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, BaseDelay: time.Second}
}

// maxBackoffShift bounds the doubling so the delay cannot overflow.
const maxBackoffShift = 30

// Delay is the sleep before the given 1-indexed attempt: nothing before the
// first, then BaseDelay doubling from the second attempt on. The doubling
// stops after maxBackoffShift steps.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 2 || p.BaseDelay <= 0 {
		return 0
	}
	shift := min(attempt-2, maxBackoffShift)
	d := p.BaseDelay << shift
	if d>>shift != p.BaseDelay {
		return time.Duration(math.MaxInt64)
	}
	return d
}

type Options struct {
	Policy    RetryPolicy
	Timeout   time.Duration
	UserAgent string
}

type Fetcher struct {
	client *resty.Client
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error
}

func New(opts Options) *Fetcher {
	client := resty.New()
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}
	policy := opts.Policy
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Fetcher{
		client: client,
		policy: policy,
		sleep:  sleepContext,
	}
}

// Fetch returns the response body of rawURL. Transport errors and non-2xx
// statuses are retried; after the last attempt the error wraps
// ErrAttemptsExhausted together with the final cause.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	start := time.Now()
	defer func() {
		metrics.FetchDuration.Observe(time.Since(start).Seconds())
	}()

	var lastErr error
	for attempt := 1; attempt <= f.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := f.sleep(ctx, f.policy.Delay(attempt)); err != nil {
				return nil, err
			}
		}

		body, err := f.get(ctx, rawURL)
		if err == nil {
			metrics.FetchAttempts.WithLabelValues("success").Inc()
			return body, nil
		}
		metrics.FetchAttempts.WithLabelValues("failure").Inc()
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt < f.policy.MaxAttempts {
			slog.Warn("Request failed, retrying",
				"url", rawURL,
				"attempt", attempt,
				"error", err,
				"sleep", f.policy.Delay(attempt+1),
			)
		}
	}

	slog.Error("Request failed after all attempts", "url", rawURL, "attempts", f.policy.MaxAttempts, "error", lastErr)
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, f.policy.MaxAttempts, lastErr)
}

func (f *Fetcher) FetchDocument(ctx context.Context, rawURL string) (*goquery.Document, error) {
	body, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html from %s: %w", rawURL, err)
	}
	return doc, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	res, err := f.client.R().
		SetContext(ctx).
		Get(rawURL)
	if err != nil {
		return nil, err
	}
	if res.StatusCode() < 200 || res.StatusCode() >= 300 {
		return nil, fmt.Errorf("%w: %d", ErrBadStatus, res.StatusCode())
	}
	return res.Body(), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
