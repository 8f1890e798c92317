// internal/adapters/modelsrv/client.go
package modelsrv

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"opinion_mining/internal/adapters/observability"
	"opinion_mining/internal/domain"
)

const (
	modelSentiment = "sentiment"
	modelOpinion   = "opinion"
)

// Client scores sentences against a model server exposing
// POST {base}/v1/models/{model}/predict_proba. It implements
// domain.SentenceScorer and is safe for concurrent use.
type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	if strings.TrimSpace(base) == "" {
		return nil, fmt.Errorf("model server base URL is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

type predictRequest struct {
	Text     string   `json:"text"`
	Features []string `json:"features"`
}

type predictResponse struct {
	// Proba is the probability of the positive class ("positive" for the
	// sentiment model, "opinionated" for the opinion model).
	Proba *float64 `json:"proba"`
}

// ---- Public API ----

func (c *Client) ScorePositive(ctx context.Context, s domain.Sentence) (float64, error) {
	return c.predict(ctx, modelSentiment, s)
}

func (c *Client) ScoreOpinionated(ctx context.Context, s domain.Sentence) (float64, error) {
	return c.predict(ctx, modelOpinion, s)
}

// ---- Internals ----

var (
	ErrNotFound     = errors.New("modelsrv: not found")
	ErrUnauthorized = errors.New("modelsrv: unauthorized")
	ErrForbidden    = errors.New("modelsrv: forbidden")
	ErrBadScore     = errors.New("modelsrv: score missing or outside [0,1]")
)

func (c *Client) predict(ctx context.Context, model string, s domain.Sentence) (float64, error) {
	payload, err := json.Marshal(predictRequest{Text: s.Text, Features: s.Features()})
	if err != nil {
		return 0, err
	}
	var out predictResponse
	url := fmt.Sprintf("%s/v1/models/%s/predict_proba", c.base, model)
	if err := c.post(ctx, model, url, payload, &out); err != nil {
		return 0, err
	}
	if out.Proba == nil || *out.Proba < 0 || *out.Proba > 1 {
		return 0, ErrBadScore
	}
	return *out.Proba, nil
}

const maxAttempts = 4

// retryable reports whether a status is worth another attempt.
func retryable(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// post sends payload under the rate limit and decodes a 200 into out. 429 and
// transient 5xx are retried, honoring Retry-After; network errors back off.
func (c *Client) post(ctx context.Context, model, url string, payload []byte, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		wait, err := c.attempt(ctx, model, url, payload, out)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if wait < 0 {
			return err // permanent
		}
		lastErr = err
		if wait == 0 {
			wait = backoff(i)
		}
		if i == maxAttempts-1 || !sleepCtx(ctx, wait) {
			break
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return lastErr
}

// attempt performs one request. A negative wait marks err as permanent; zero
// means retry after the default backoff.
func (c *Client) attempt(ctx context.Context, model, url string, payload []byte, out any) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return -1, err
	}
	if c.key != "" {
		req.Header.Set("X-API-Key", c.key)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "opinion-mining/1.0")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveModel(model, 0, time.Since(start))
		observability.ObserveModelError(model, err)
		return 0, err
	}
	defer resp.Body.Close()
	observability.ObserveModel(model, resp.StatusCode, time.Since(start))

	switch code := resp.StatusCode; {
	case code == http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return -1, fmt.Errorf("decode %s response: %w", model, err)
		}
		return 0, nil
	case code == http.StatusNotFound:
		return -1, ErrNotFound
	case code == http.StatusUnauthorized:
		return -1, ErrUnauthorized
	case code == http.StatusForbidden:
		return -1, ErrForbidden
	case retryable(code):
		return retryAfter(resp), fmt.Errorf("remote %d", code)
	default:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return -1, fmt.Errorf("bad status %d: %s", code, strings.TrimSpace(string(b)))
	}
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential delay (100ms, 200ms, 400ms...) with up to
// +50% jitter from crypto/rand.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 100 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
