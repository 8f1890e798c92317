package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	httpserver "opinion_mining/internal/adapters/http_server"
	redisad "opinion_mining/internal/adapters/redis"
	"opinion_mining/internal/app"
	"opinion_mining/internal/domain"
)

// ---- fakes ----

type memSummaries struct {
	mu    sync.Mutex
	items []domain.BusinessSummary
}

func (m *memSummaries) SaveSummary(ctx context.Context, s domain.BusinessSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, s)
	return nil
}

func (m *memSummaries) GetSummary(ctx context.Context, id, version string) (domain.BusinessSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.items) - 1; i >= 0; i-- {
		if s := m.items[i]; s.BusinessID == id && (version == "" || s.Version == version) {
			return s, nil
		}
	}
	return domain.BusinessSummary{}, domain.ErrNotFound
}

func (m *memSummaries) ListSummaries(ctx context.Context, limit int) ([]domain.SummaryRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.SummaryRef
	for i := len(m.items) - 1; i >= 0 && len(out) < limit; i-- {
		s := m.items[i]
		out = append(out, domain.SummaryRef{BusinessID: s.BusinessID, Version: s.Version, BusinessName: s.BusinessName})
	}
	return out, nil
}

type constScorer struct{}

func (constScorer) ScorePositive(ctx context.Context, s domain.Sentence) (float64, error) {
	return 0.7, nil
}
func (constScorer) ScoreOpinionated(ctx context.Context, s domain.Sentence) (float64, error) {
	return 0.5, nil
}

// wordAnalyzer treats every "lights" token as an aspect.
type wordAnalyzer struct{}

func (wordAnalyzer) Language(string) string { return "en" }
func (wordAnalyzer) Segment(text string) ([]domain.Sentence, error) {
	s := domain.Sentence{Text: text, Tokens: strings.Fields(text)}
	for _, w := range s.Tokens {
		if w == "lights" {
			s.Aspects = append(s.Aspects, []string{"lights"})
		}
	}
	return []domain.Sentence{s}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *memSummaries) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redisad.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = cache.Close() })

	repo := &memSummaries{}
	b := app.NewSummaryBuilder(app.NewSummarizer(constScorer{}, 5), nil, app.BuilderConfig{Workers: 2})
	h := &httpserver.Handlers{
		Q:           app.NewQueryService(repo, cache, time.Minute),
		A:           app.NewAnalysisService(b, wordAnalyzer{}, nil, repo, cache),
		UploadDir:   t.TempDir(),
		EnglishOnly: true,
	}
	s := httpserver.New()
	s.MountHandlers(h)
	ts := httptest.NewServer(s.Mux())
	t.Cleanup(ts.Close)
	return ts, repo
}

func multipartBody(t *testing.T, filename, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

const iosExport = `Report generated 2018-06-10
App: Hue

Date,App ID,App Name,User,Version,Rating,Review
2018-06-01,hue,Hue,sam,2.8.0,5,the lights respond the moment I tap them
2018-06-02,hue,Hue,kim,2.8.0,1,the lights drop off the network every night
2018-06-03,hue,Hue,ana,2.9.0,4,the lights are slower since this update
`

// ---- tests ----

func TestUpload_BuildsAndServesSummary(t *testing.T) {
	ts, repo := newTestServer(t)

	body, ct := multipartBody(t, "export.csv", iosExport, map[string]string{"version": "2.8.0"})
	resp, err := http.Post(ts.URL+"/v1/uploads", ct, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "/v1/summaries/hue?version=2.8.0", resp.Header.Get("Location"))

	var created domain.BusinessSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.Equal(t, "Hue", created.BusinessName)
	require.Equal(t, 1, created.AspectSummary["lights"].NumFive)
	require.Equal(t, 1, created.AspectSummary["lights"].NumOne)
	require.Len(t, repo.items, 1)

	get, err := http.Get(ts.URL + "/v1/summaries/hue?version=2.8.0")
	require.NoError(t, err)
	defer get.Body.Close()
	require.Equal(t, http.StatusOK, get.StatusCode)
	etag := get.Header.Get("ETag")
	require.NotEmpty(t, etag)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/v1/summaries/hue?version=2.8.0", nil)
	req.Header.Set("If-None-Match", etag)
	cond, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer cond.Body.Close()
	require.Equal(t, http.StatusNotModified, cond.StatusCode)

	list, err := http.Get(ts.URL + "/v1/summaries")
	require.NoError(t, err)
	defer list.Body.Close()
	var page domain.SummariesPage
	require.NoError(t, json.NewDecoder(list.Body).Decode(&page))
	require.Len(t, page.Items, 1)
	require.Equal(t, "2.8.0", page.Items[0].Version)
}

func TestUpload_RejectsNonCSV(t *testing.T) {
	ts, repo := newTestServer(t)

	body, ct := multipartBody(t, "export.xlsx", iosExport, nil)
	resp, err := http.Post(ts.URL+"/v1/uploads", ct, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))

	var p struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	require.Equal(t, "Please upload only csv file!", p.Detail)
	require.Empty(t, repo.items)
}

func TestUpload_Errors(t *testing.T) {
	ts, _ := newTestServer(t)

	cases := []struct {
		name    string
		content string
		fields  map[string]string
		status  int
	}{
		{"no header", "just,some,columns\n1,2,3\n", nil, http.StatusBadRequest},
		{"bad date", iosExport, map[string]string{"start": "June 1st"}, http.StatusBadRequest},
		{"empty selection", iosExport, map[string]string{"version": "0.0.1"}, http.StatusUnprocessableEntity},
		{"several versions, none chosen", iosExport, nil, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, ct := multipartBody(t, "export.csv", tc.content, tc.fields)
			resp, err := http.Post(ts.URL+"/v1/uploads", ct, body)
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestGetSummary_NotFoundAndBadLimit(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/v1/summaries/unknown")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	bad, err := http.Get(ts.URL + "/v1/summaries?limit=0")
	require.NoError(t, err)
	defer bad.Body.Close()
	require.Equal(t, http.StatusBadRequest, bad.StatusCode)

	health, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer health.Body.Close()
	require.Equal(t, http.StatusOK, health.StatusCode)
}
