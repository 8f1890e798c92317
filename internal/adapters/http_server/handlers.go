package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"opinion_mining/internal/adapters/csvfile"
	"opinion_mining/internal/app"
	"opinion_mining/internal/domain"
)

const (
	readTimeout    = 15 * time.Second
	maxUploadBytes = 64 << 20
)

type Handlers struct {
	Q *app.QueryService
	A *app.AnalysisService

	UploadDir      string
	EnglishOnly    bool
	AnalyzeTimeout time.Duration // 0 means 5 minutes
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Group(func(r chi.Router) {
		r.Use(Timeout(readTimeout))
		r.Get("/v1/summaries", h.listSummaries)
		r.Get("/v1/summaries/{businessID}", h.getSummary)
	})

	analyze := h.AnalyzeTimeout
	if analyze <= 0 {
		analyze = 5 * time.Minute
	}
	s.mux.Group(func(r chi.Router) {
		r.Use(MaxBody(maxUploadBytes))
		r.Use(Timeout(analyze))
		r.Post("/v1/uploads", h.upload)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeDomainError maps service errors onto problem documents.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "summary not found")
	case errors.Is(err, domain.ErrUnsupportedFile):
		writeProblem(w, http.StatusBadRequest, "Unsupported File", "Please upload only csv file!")
	case errors.Is(err, domain.ErrVersionRequired):
		writeProblem(w, http.StatusBadRequest, "Version Required", err.Error())
	case errors.Is(err, domain.ErrEmptyUpload):
		writeProblem(w, http.StatusUnprocessableEntity, "No Reviews", err.Error())
	case errors.Is(err, domain.ErrInvariantViolation):
		writeProblem(w, http.StatusUnprocessableEntity, "Malformed Corpus", err.Error())
	case errors.Is(err, domain.ErrScoringFailure):
		writeProblem(w, http.StatusBadGateway, "Scoring Failed", err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		// Log but don't fail the whole response; return empty ETag and best-effort body.
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	etag, body := calcETagAndBody(v)
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag && status == http.StatusOK {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("route", r.URL.Path).Msg("failed to write body")
	}
}

func (h *Handlers) getSummary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "businessID")
	if strings.TrimSpace(id) == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "business id is required")
		return
	}
	resp, err := h.Q.GetSummary(r.Context(), id, r.URL.Query().Get("version"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handlers) listSummaries(w http.ResponseWriter, r *http.Request) {
	limit := app.DefaultListLimit
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > app.MaxListLimit {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
			return
		}
		limit = l
	}

	out, err := h.Q.ListSummaries(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, out)
}

func parseDay(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// upload stores a store export under a fresh name and builds its summary.
// Form fields: file (required), version, start, end (YYYY-MM-DD).
func (h *Handlers) upload(w http.ResponseWriter, r *http.Request) {
	runID := uuid.NewString()

	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Missing File", "multipart field \"file\" is required")
		return
	}
	defer f.Close()
	if !strings.EqualFold(filepath.Ext(hdr.Filename), ".csv") {
		writeDomainError(w, fmt.Errorf("%w: %s", domain.ErrUnsupportedFile, hdr.Filename))
		return
	}

	start, err := parseDay(r.FormValue("start"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid start", "start must be YYYY-MM-DD")
		return
	}
	end, err := parseDay(r.FormValue("end"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid end", "end must be YYYY-MM-DD")
		return
	}

	path, err := h.save(f, runID)
	if err != nil {
		log.Error().Err(err).Str("run_id", runID).Msg("store upload failed")
		writeProblem(w, http.StatusInternalServerError, "Upload Failed", "")
		return
	}
	rows, err := csvfile.ReadFile(path)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid CSV", err.Error())
		return
	}

	log.Info().
		Str("run_id", runID).
		Str("file", hdr.Filename).
		Int("rows", len(rows)).
		Msg("upload accepted")

	sum, err := h.A.AnalyzeExport(r.Context(), rows, app.Selection{
		Version:     r.FormValue("version"),
		Start:       start,
		End:         end,
		EnglishOnly: h.EnglishOnly,
	})
	if err != nil {
		log.Warn().Err(err).Str("run_id", runID).Msg("analysis failed")
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Location", "/v1/summaries/"+url.PathEscape(sum.BusinessID)+"?version="+url.QueryEscape(sum.Version))
	writeJSON(w, r, http.StatusCreated, sum)
}

func (h *Handlers) save(src io.Reader, runID string) (string, error) {
	dir := h.UploadDir
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, runID+".csv")
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", err
	}
	return path, dst.Close()
}
