package modelsrv_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"opinion_mining/internal/adapters/modelsrv"
	"opinion_mining/internal/adapters/observability"
	"opinion_mining/internal/domain"
)

var sent = domain.Sentence{Text: "The Lights app is great", Tokens: []string{"The", "Lights", "app", "is", "great"}}

func TestClient_ScorePositive_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			// two transient failures
			w.WriteHeader(503)
		default:
			if !strings.HasSuffix(r.URL.Path, "/v1/models/sentiment/predict_proba") {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			var body struct {
				Text     string   `json:"text"`
				Features []string `json:"features"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode body: %v", err)
			}
			if body.Text != sent.Text || len(body.Features) != 5 || body.Features[1] != "lights" {
				t.Errorf("unexpected body: %+v", body)
			}
			w.WriteHeader(200)
			_ = json.NewEncoder(w).Encode(map[string]any{"proba": 0.83})
		}
	}))
	defer ts.Close()

	cl, err := modelsrv.New(ts.URL, "test-key", 100) // high RPS for tests
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	got, err := cl.ScorePositive(ctx, sent)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got != 0.83 {
		t.Fatalf("unexpected score: %v", got)
	}
	if atomic.LoadInt32(&hits) < 3 {
		t.Fatalf("expected at least 3 calls due to retries, got %d", hits)
	}
}

func TestClient_ScoreOpinionated_UsesOpinionModel(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.Contains(r.URL.Path, "/opinion/") {
			w.WriteHeader(404)
			return
		}
		if r.Header.Get("X-API-Key") != "k" {
			w.WriteHeader(401)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"proba": 0.4})
	}))
	defer ts.Close()

	cl, _ := modelsrv.New(ts.URL, "k", 100)
	got, err := cl.ScoreOpinionated(context.Background(), sent)
	if err != nil || got != 0.4 {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestClient_ErrorStatuses(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"not found", 404, "", modelsrv.ErrNotFound},
		{"unauthorized", 401, "", modelsrv.ErrUnauthorized},
		{"forbidden", 403, "", modelsrv.ErrForbidden},
		{"score out of range", 200, `{"proba": 1.5}`, modelsrv.ErrBadScore},
		{"score missing", 200, `{}`, modelsrv.ErrBadScore},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer ts.Close()

			cl, _ := modelsrv.New(ts.URL, "", 100)
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			_, err := cl.ScorePositive(ctx, sent)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestNew_RequiresBase(t *testing.T) {
	if _, err := modelsrv.New(" ", "k", 1); err == nil {
		t.Fatalf("expected error for empty base URL")
	}
}

func TestClient_PermanentErrorsAreNotRetried(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("features must be non-empty"))
	}))
	defer ts.Close()

	cl, _ := modelsrv.New(ts.URL, "", 100)
	_, err := cl.ScorePositive(context.Background(), sent)
	if err == nil || !strings.Contains(err.Error(), "features must be non-empty") {
		t.Fatalf("expected body in error, got %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("expected a single attempt, got %d", n)
	}
}

func TestClient_TransportErrorsAreCounted(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close() // nothing listens any more

	counter := observability.ModelErrors.WithLabelValues("sentiment", "*url.Error")
	before := testutil.ToFloat64(counter)

	cl, _ := modelsrv.New(url, "", 100)
	if _, err := cl.ScorePositive(context.Background(), sent); err == nil {
		t.Fatalf("expected error from closed server")
	}
	if got := testutil.ToFloat64(counter) - before; got != 4 {
		t.Fatalf("expected 4 counted attempts, got %v", got)
	}
}
