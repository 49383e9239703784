// Package sender delivers notifications to the external push, SMS and email
// providers. Transient provider failures are reported as retryable errors.
package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/cuongbtq/interpreter-booking/internal/worker/domain"
)

// RateConfig limits the request rate towards one provider. A zero Limit
// disables limiting.
type RateConfig struct {
	Limit float64
	Burst int
}

func (c RateConfig) limiter() *rate.Limiter {
	if c.Limit <= 0 {
		return nil
	}
	burst := c.Burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(c.Limit), burst)
}

type httpSender struct {
	client  *http.Client
	limiter *rate.Limiter
}

func newHTTPSender(client *http.Client, timeout time.Duration, rc RateConfig) httpSender {
	if client == nil {
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return httpSender{client: client, limiter: rc.limiter()}
}

// do waits for the rate limiter, sends the request and classifies the
// response. Network failures, 429 and 5xx responses are retryable.
func (s httpSender) do(req *http.Request) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(req.Context()); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return domain.NewRetryableError(fmt.Errorf("request to %s failed: %w", req.URL.Host, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	statusErr := fmt.Errorf("%s responded %d: %s", req.URL.Host, resp.StatusCode, bytes.TrimSpace(snippet))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return domain.NewRetryableError(statusErr)
	}
	return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, statusErr)
}

func newJSONRequest(ctx context.Context, url string, body any) (*http.Request, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}
