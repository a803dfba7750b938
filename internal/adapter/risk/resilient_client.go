package risk

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

// ResilientClient wraps an http.Client with a circuit breaker and
// exponential-backoff retries for calls to the risk API.
type ResilientClient struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	retries uint64
}

// NewResilientClient builds a client configured from the environment:
//
//	RISK_API_TIMEOUT_SECONDS  per-attempt timeout (default 30)
//	RISK_API_MAX_RETRIES      retry attempts after the first (default 3)
//	RISK_API_MAX_FAILURES     consecutive failures before the breaker opens (default 5)
//	RISK_API_COOLDOWN_SECONDS breaker open interval (default 60)
func NewResilientClient() *ResilientClient {
	timeout := getEnvInt("RISK_API_TIMEOUT_SECONDS", 30)
	retries := getEnvInt("RISK_API_MAX_RETRIES", 3)
	maxFailures := getEnvInt("RISK_API_MAX_FAILURES", 5)
	cooldown := getEnvInt("RISK_API_COOLDOWN_SECONDS", 60)

	settings := gobreaker.Settings{
		Name:        "risk-api",
		MaxRequests: 1,
		Timeout:     time.Duration(cooldown) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(maxFailures)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("⚡ Circuit breaker '%s' transitioned: %s -> %s", name, from, to)
			if to == gobreaker.StateOpen {
				RecordError("circuit_open")
			}
		},
	}

	return &ResilientClient{
		client:  &http.Client{Timeout: time.Duration(timeout) * time.Second},
		breaker: gobreaker.NewCircuitBreaker(settings),
		retries: uint64(retries),
	}
}

// Do executes the request through the breaker, retrying transient
// failures with exponential backoff. The request must have a body
// that can be replayed (GetBody set), which http.NewRequestWithContext
// provides for bytes.Reader bodies.
func (rc *ResilientClient) Do(req *http.Request) (*http.Response, error) {
	var resp *http.Response

	operation := func() error {
		result, err := rc.breaker.Execute(func() (interface{}, error) {
			attempt := req
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, backoff.Permanent(fmt.Errorf("replaying request body: %w", err))
				}
				attempt = req.Clone(req.Context())
				attempt.Body = body
			}

			r, err := rc.client.Do(attempt)
			if err != nil {
				RecordError("connection")
				return nil, err
			}

			switch {
			case r.StatusCode == http.StatusUnauthorized || r.StatusCode == http.StatusForbidden:
				r.Body.Close()
				RecordError("auth")
				return nil, backoff.Permanent(fmt.Errorf("risk API auth failure: status %d", r.StatusCode))
			case r.StatusCode == http.StatusTooManyRequests:
				r.Body.Close()
				RecordError("rate_limit")
				return nil, fmt.Errorf("risk API rate limited: status %d", r.StatusCode)
			case r.StatusCode >= 500:
				r.Body.Close()
				RecordError("server_error")
				return nil, fmt.Errorf("risk API server error: status %d", r.StatusCode)
			}

			return r, nil
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(err)
			}
			return err
		}

		resp = result.(*http.Response)
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), rc.retries),
		req.Context(),
	)

	if err := backoff.Retry(operation, policy); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			RecordError("timeout")
		}
		return nil, err
	}

	return resp, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
		log.Printf("⚠️ Invalid value for %s, using default %d", key, defaultValue)
	}
	return defaultValue
}
