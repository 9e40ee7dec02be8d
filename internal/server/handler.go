package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/panbanda/quarterly/internal/report"
	"github.com/panbanda/quarterly/pkg/analyzer/insights"
	"github.com/panbanda/quarterly/pkg/config"
	"github.com/panbanda/quarterly/pkg/period"
)

type handler struct {
	reporter   Reporter
	clientsDir string
	now        func() time.Time
}

func newHandler(deps Dependencies) *handler {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &handler{reporter: deps.Reporter, clientsDir: deps.ClientsDir, now: now}
}

type errorResponse struct {
	Error string `json:"error"`
}

type clientResponse struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Site        string `json:"site,omitempty"`
}

type insightsResponse struct {
	Metadata   report.Metadata   `json:"metadata"`
	Benchmarks report.Benchmarks `json:"benchmarks"`
	Insights   insights.Summary  `json:"insights"`
}

var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, period.ErrInvalidQuarter),
		errors.Is(err, period.ErrInvalidComparison),
		errors.Is(err, config.ErrInvalidClientName):
		status = http.StatusBadRequest
	case errors.Is(err, config.ErrClientNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
	}
	writeJSON(w, r, status, errorResponse{Error: err.Error()})
}

func (h *handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) ListClients(w http.ResponseWriter, r *http.Request) {
	names, err := config.ListClients(h.clientsDir)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response := make([]clientResponse, 0, len(names))
	for _, name := range names {
		c, err := config.LoadClient(h.clientsDir, name)
		if err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Str("client", name).Msg("skipping client profile")
			continue
		}
		response = append(response, clientResponse{Name: c.Name, DisplayName: c.Title(), Site: c.GSCSiteURL})
	}
	writeJSON(w, r, http.StatusOK, response)
}

func (h *handler) GetClient(w http.ResponseWriter, r *http.Request) {
	c, err := config.LoadClient(h.clientsDir, chi.URLParam(r, "client"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, c)
}

// request reads client, quarter, year and comparison from the query. The
// quarter and year default to the last completed quarter.
func (h *handler) request(r *http.Request) (report.Request, error) {
	q := r.URL.Query()
	name := q.Get("client")
	if name == "" {
		return report.Request{}, fmt.Errorf("%w: client is required", errBadRequest)
	}

	quarter, year := period.LastCompleted(h.now())
	if s := q.Get("quarter"); s != "" {
		parsed, err := period.ParseQuarter(s)
		if err != nil {
			return report.Request{}, err
		}
		quarter = parsed
	}
	if s := q.Get("year"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil {
			return report.Request{}, fmt.Errorf("%w: invalid year %q", errBadRequest, s)
		}
		year = parsed
	}

	req := report.Request{Quarter: quarter, Year: year}
	if s := q.Get("comparison"); s != "" {
		mode, err := period.ParseComparison(s)
		if err != nil {
			return report.Request{}, err
		}
		req.Comparison = mode
	}

	client, err := config.LoadClient(h.clientsDir, name)
	if errors.Is(err, config.ErrClientNotFound) {
		client = config.NewClientConfig(name)
	} else if err != nil {
		return report.Request{}, err
	}
	req.Client = client
	return req, nil
}

func (h *handler) generate(w http.ResponseWriter, r *http.Request) (*report.Report, *config.ClientConfig, bool) {
	req, err := h.request(r)
	if err != nil {
		writeError(w, r, err)
		return nil, nil, false
	}
	rep, err := h.reporter.Generate(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return nil, nil, false
	}
	return rep, req.Client, true
}

func (h *handler) ReportJSON(w http.ResponseWriter, r *http.Request) {
	rep, _, ok := h.generate(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, rep)
}

func (h *handler) Insights(w http.ResponseWriter, r *http.Request) {
	rep, _, ok := h.generate(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, insightsResponse{
		Metadata:   rep.Metadata,
		Benchmarks: rep.Benchmarks,
		Insights:   rep.Insights,
	})
}

func (h *handler) ReportHTML(w http.ResponseWriter, r *http.Request) {
	rep, client, ok := h.generate(w, r)
	if !ok {
		return
	}
	renderer, err := report.NewRenderer(report.WithTheme(report.ClientTheme(client)))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderer.Render(w, rep); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to render report")
	}
}
