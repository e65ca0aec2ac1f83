package pusher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

const (
	libraryHeader       = "X-Pusher-Library"
	libraryName         = "pusher-auth-go"
	maxResponseBodySize = 1 * 1024 * 1024
)

// restClient sends signed REST requests. Every attempt is signed afresh so
// each carries its own auth_timestamp.
type restClient struct {
	cfg            *Config
	credential     Credential
	baseURL        string
	logger         zerolog.Logger
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker
}

func newRESTClient(cfg *Config, logger zerolog.Logger, httpClient *http.Client) *restClient {
	circuitBreaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        fmt.Sprintf("pusher-rest-%s", cfg.AppID),
		MaxRequests: uint32(cfg.CircuitBreaker.MaxRequests),
		Interval:    cfg.CircuitBreaker.Interval,
		Timeout:     cfg.CircuitBreaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < uint32(cfg.CircuitBreaker.MaxRequests) {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.CircuitBreaker.Threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !isRetryable(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info().
				Str("name", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("REST circuit breaker state changed")
		},
	})

	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPClient.Timeout}
	}

	return &restClient{
		cfg:            cfg,
		credential:     cfg.Credential(),
		baseURL:        cfg.BaseURL(),
		logger:         logger,
		httpClient:     httpClient,
		circuitBreaker: circuitBreaker,
	}
}

// do signs and sends one request and returns the response body of a 2xx
// response.
func (rc *restClient) do(ctx context.Context, operation, method, path string, params map[string]string, body []byte) ([]byte, error) {
	var result []byte

	err := rc.executeWithRetry(ctx, operation, func() error {
		out, err := rc.circuitBreaker.Execute(func() (interface{}, error) {
			return rc.send(ctx, method, path, params, body)
		})
		if err != nil {
			return err
		}
		result = out.([]byte)
		return nil
	})

	return result, err
}

func (rc *restClient) send(ctx context.Context, method, path string, params map[string]string, body []byte) ([]byte, error) {
	signed, err := SignableRequest{
		Method: method,
		Path:   path,
		Params: params,
		Body:   body,
	}.Sign(rc.credential)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rc.baseURL+path+"?"+signed.Query, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", jsonContentType)
	}
	req.Header.Set(libraryHeader, libraryName)

	resp, err := rc.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

func (rc *restClient) executeWithRetry(ctx context.Context, operation string, fn func() error) error {
	maxAttempts := rc.cfg.Retry.MaxAttempts
	delay := rc.cfg.Retry.InitialDelay

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err

		if attempt < maxAttempts-1 {
			rc.logger.Warn().
				Err(err).
				Str("operation", operation).
				Int("attempt", attempt+1).
				Int("max_attempts", maxAttempts).
				Dur("retry_delay", delay).
				Msg("Operation failed, retrying")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}

			delay = time.Duration(float64(delay) * rc.cfg.Retry.Multiplier)
			if delay > rc.cfg.Retry.MaxDelay {
				delay = rc.cfg.Retry.MaxDelay
			}
		}
	}

	return fmt.Errorf("operation %s failed after %d attempts: %w", operation, maxAttempts, lastErr)
}

// isRetryable reports whether err may clear on a later attempt. Client
// errors and input validation failures never do.
func isRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.retryable()
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
