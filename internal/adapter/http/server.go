// Package http exposes the flood-frequency analysis API together with the
// health, readiness, and metrics endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/flood-frequency/internal/domain"
	"github.com/couchcryptid/flood-frequency/internal/observability"
	"github.com/couchcryptid/flood-frequency/internal/pearson3"
	"github.com/couchcryptid/flood-frequency/internal/station"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// CurvePublisher pushes a fitted curve to downstream consumers.
type CurvePublisher interface {
	Publish(ctx context.Context, event domain.FittedCurveEvent) error
}

// Deps bundles the collaborators the server needs. Publisher and Ready may
// be nil: no publication and always-ready, for HTTP-only deployments.
type Deps struct {
	Store     *station.Store
	Publisher CurvePublisher
	Ready     ReadinessChecker
	Metrics   *observability.Metrics
	Logger    *slog.Logger

	FitMaxIterations int
	FitTolerance     float64
}

// Server exposes the station analysis API plus health, readiness, and
// metrics HTTP endpoints.
type Server struct {
	httpServer *http.Server
	store      *station.Store
	publisher  CurvePublisher
	metrics    *observability.Metrics
	logger     *slog.Logger

	fitMaxIterations int
	fitTolerance     float64
}

// NewServer creates the HTTP server and wires all routes.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		store:            deps.Store,
		publisher:        deps.Publisher,
		metrics:          deps.Metrics,
		logger:           deps.Logger,
		fitMaxIterations: deps.FitMaxIterations,
		fitTolerance:     deps.FitTolerance,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(deps.Ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /stations", s.handleListStations)
	mux.HandleFunc("GET /stations/{id}", s.handleGetStation)
	mux.HandleFunc("POST /stations/{id}/observations", s.handlePostObservations)
	mux.HandleFunc("PUT /stations/{id}/historical", s.handlePutHistorical)
	mux.HandleFunc("PUT /stations/{id}/probabilities", s.handlePutProbabilities)
	mux.HandleFunc("PUT /stations/{id}/probabilities/{rank}", s.handlePutRankProbability)
	mux.HandleFunc("DELETE /stations/{id}/probabilities", s.handleDeleteProbabilities)
	mux.HandleFunc("GET /stations/{id}/moments", s.handleGetMoments)
	mux.HandleFunc("POST /stations/{id}/fit", s.handleFit)
	mux.HandleFunc("GET /stations/{id}/curve", s.handleCurveQuery)
	mux.HandleFunc("GET /stations/{id}/frequency", s.handleFrequency)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker == nil {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleListStations(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"stations": s.store.List()})
}

func (s *Server) handleGetStation(w http.ResponseWriter, r *http.Request) {
	sum, err := s.store.Snapshot(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

type observationRequest struct {
	StationName string  `json:"station_name,omitempty"`
	WaterYear   int     `json:"water_year"`
	Flow        float64 `json:"flow"`
	Unit        string  `json:"unit,omitempty"`
}

func (s *Server) handlePostObservations(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var reqs []observationRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if len(reqs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "empty observation batch"})
		return
	}

	// Validate the whole batch before storing any of it.
	observations := make([]domain.PeakObservation, 0, len(reqs))
	for _, req := range reqs {
		obs, err := domain.NewPeakObservation(id, req.StationName, req.WaterYear, req.Flow, req.Unit)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		observations = append(observations, obs)
	}

	s.store.Append(observations...)
	s.metrics.ObservationsStored.Add(float64(len(observations)))
	writeJSON(w, http.StatusAccepted, map[string]int{"stored": len(observations)})
}

type historicalRequest struct {
	Values       []float64 `json:"values"`
	PeriodLength int       `json:"period_length"`
	ExtremeCount *int      `json:"extreme_count,omitempty"`
}

func (s *Server) handlePutHistorical(w http.ResponseWriter, r *http.Request) {
	var req historicalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	h := station.Historical{
		Values:       req.Values,
		PeriodLength: req.PeriodLength,
		ExtremeCount: -1, // all historical floods are extreme unless told otherwise
	}
	if req.ExtremeCount != nil {
		h.ExtremeCount = *req.ExtremeCount
	}

	if err := s.store.SetHistorical(r.PathValue("id"), h); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type probabilitiesRequest struct {
	Probabilities []float64 `json:"probabilities"`
}

func (s *Server) handlePutProbabilities(w http.ResponseWriter, r *http.Request) {
	var req probabilitiesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if err := s.store.SetProbabilities(r.PathValue("id"), req.Probabilities); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type rankProbabilityRequest struct {
	Probability float64 `json:"probability"`
}

func (s *Server) handlePutRankProbability(w http.ResponseWriter, r *http.Request) {
	rank, err := strconv.Atoi(r.PathValue("rank"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "rank must be an integer"})
		return
	}

	var req rankProbabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if err := s.store.SetRankProbability(r.PathValue("id"), rank, req.Probability); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDeleteProbabilities(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ClearProbabilities(r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetMoments(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m, err := s.store.Moments(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"station_id": id,
		"moments":    domain.CurveParams(m),
	})
}

type fitRequest struct {
	FixMean       bool                `json:"fix_mean"`
	SkewRatio     *float64            `json:"skew_ratio,omitempty"`
	Moments       *domain.CurveParams `json:"moments,omitempty"`
	MaxIterations int                 `json:"max_iterations,omitempty"`
	Tolerance     float64             `json:"tolerance,omitempty"`
}

func (s *Server) handleFit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req fitRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
	}

	opts := pearson3.FitOptions{
		FixMean:       req.FixMean,
		SkewRatio:     req.SkewRatio,
		MaxIterations: req.MaxIterations,
		Tolerance:     req.Tolerance,
	}
	if opts.MaxIterations == 0 {
		opts.MaxIterations = s.fitMaxIterations
	}
	if opts.Tolerance == 0 {
		opts.Tolerance = s.fitTolerance
	}
	if req.Moments != nil {
		m := pearson3.Moments(*req.Moments)
		opts.Moments = &m
	}

	start := time.Now()
	result, err := s.store.Fit(id, opts)
	s.metrics.FitDuration.Observe(time.Since(start).Seconds())
	s.metrics.FitRequests.WithLabelValues(fitOutcome(err)).Inc()
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.publishCurve(r.Context(), result)
	writeJSON(w, http.StatusOK, result)
}

// publishCurve pushes the fit to the sink topic. Publication is best effort:
// the fit is already stored, so a broker hiccup must not fail the request.
func (s *Server) publishCurve(ctx context.Context, result station.FitResult) {
	if s.publisher == nil {
		return
	}
	event := domain.FittedCurveEvent{
		StationID:    result.StationID,
		SampleSize:   result.SampleSize,
		PeriodLength: result.PeriodLength,
		Moments:      result.Moments,
		Fitted:       result.Fitted,
		FittedAt:     result.FittedAt,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("curve publish failed", "error", err, "station_id", result.StationID)
		return
	}
	s.metrics.CurvesPublished.Inc()
}

func (s *Server) handleCurveQuery(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	probParam := r.URL.Query().Get("p")
	valueParam := r.URL.Query().Get("value")

	if (probParam == "") == (valueParam == "") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "exactly one of p or value is required"})
		return
	}

	curve, err := s.store.Curve(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.metrics.CurveQueries.Inc()

	resp := map[string]any{
		"station_id": id,
		"curve":      domain.CurveParams(curve),
	}

	if probParam != "" {
		p, err := strconv.ParseFloat(probParam, 64)
		if err != nil || p <= 0 || p >= 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "p must be in (0, 1)"})
			return
		}
		resp["p"] = p
		resp["value"] = curve.ValueFromProb(p)
	} else {
		v, err := strconv.ParseFloat(valueParam, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "value must be a number"})
			return
		}
		resp["value"] = v
		resp["p"] = curve.ProbFromValue(v)
	}

	writeJSON(w, http.StatusOK, resp)
}

type frequencyPoint struct {
	Prob  float64 `json:"prob"`
	Value float64 `json:"value"`
}

func (s *Server) handleFrequency(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	points := 100
	if v := r.URL.Query().Get("points"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 2 || n > 1000 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "points must be between 2 and 1000"})
			return
		}
		points = n
	}

	curve, err := s.store.Curve(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.metrics.CurveQueries.Inc()

	grid := make([]frequencyPoint, points)
	for i := range grid {
		p := float64(i+1) / float64(points+1)
		grid[i] = frequencyPoint{Prob: p, Value: curve.ValueFromProb(p)}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"station_id": id,
		"curve":      domain.CurveParams(curve),
		"points":     grid,
	})
}

// writeError maps domain errors onto HTTP statuses: unknown stations are
// 404, rejected input is 400, and records that cannot support the requested
// computation are 422.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var verr *pearson3.ValidationError
	var aerr *pearson3.ArithmeticError
	var ferr *pearson3.FitError

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, station.ErrNotFound):
		status = http.StatusNotFound
	case errors.As(err, &verr):
		status = http.StatusBadRequest
	case errors.As(err, &aerr), errors.As(err, &ferr):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func fitOutcome(err error) string {
	var verr *pearson3.ValidationError
	var aerr *pearson3.ArithmeticError
	var ferr *pearson3.FitError

	switch {
	case err == nil:
		return "success"
	case errors.Is(err, station.ErrNotFound):
		return "not_found"
	case errors.As(err, &verr):
		return "validation_error"
	case errors.As(err, &aerr):
		return "arithmetic_error"
	case errors.As(err, &ferr):
		return "fit_error"
	}
	return "error"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort health response
}
