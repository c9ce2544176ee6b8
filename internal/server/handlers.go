package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/gkobilansky/ab-sim/internal/dataset"
	"github.com/gkobilansky/ab-sim/internal/report"
	"github.com/gkobilansky/ab-sim/internal/sample"
	"github.com/gkobilansky/ab-sim/internal/stats"
)

type HealthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	})
}

// AnalyzeRequest is the JSON body of POST /api/analyze.
type AnalyzeRequest struct {
	sample.Params
	Power *stats.PowerQuery `json:"power,omitempty"`
}

func (s *Server) handleAnalyzeAPI(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest

	if r.Method == http.MethodPost {
		req.Params = s.cfg.Simulation
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if req.Power == nil {
			power := s.cfg.Power
			req.Power = &power
		}
	} else {
		params, power, err := s.parseQuery(r.URL.Query())
		if err != nil {
			s.writeAnalysisError(w, err)
			return
		}
		req = AnalyzeRequest{Params: params, Power: power}
	}

	rep, err := s.simulate(req.Params, req.Power)
	if err != nil {
		s.writeAnalysisError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleUploadAPI(w http.ResponseWriter, r *http.Request) {
	rep, err := s.analyzeUpload(w, r)
	if err != nil {
		s.writeAnalysisError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// SampleSizeResponse is returned by GET /api/samplesize.
type SampleSizeResponse struct {
	Query      stats.PowerQuery `json:"query"`
	EffectSize float64          `json:"effect_size"`
	PerGroup   int              `json:"per_group"`
	Total      int              `json:"total"`
	Message    string           `json:"message"`
}

func (s *Server) handleSampleSizeAPI(w http.ResponseWriter, r *http.Request) {
	q, err := s.parsePowerQuery(r.URL.Query())
	if err != nil {
		s.writeAnalysisError(w, err)
		return
	}

	n, err := stats.RequiredSampleSize(q)
	if err != nil {
		s.writeAnalysisError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SampleSizeResponse{
		Query:      q,
		EffectSize: q.EffectSize(),
		PerGroup:   n,
		Total:      2 * n,
		Message:    report.SampleSizeSentence(&report.SampleSizeResult{Query: q, PerGroup: n}),
	})
}

// simulate draws both groups and builds their report.
func (s *Server) simulate(p sample.Params, power *stats.PowerQuery) (*report.Report, error) {
	if p.NA > maxSimulatedSize || p.NB > maxSimulatedSize {
		return nil, fmt.Errorf("%w: simulated groups are limited to %d users", stats.ErrInvalidInput, maxSimulatedSize)
	}

	a, b, err := sample.Pair(p)
	if err != nil {
		return nil, err
	}
	return s.analyze(report.Input{Source: report.SourceSimulated, A: a, B: b, Power: power})
}

// analyzeUpload reads a multipart "file" field and builds its report.
func (s *Server) analyzeUpload(w http.ResponseWriter, r *http.Request) (*report.Report, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.Server.MaxUploadBytes); err != nil {
		return nil, fmt.Errorf("%w: could not read upload: %v", stats.ErrInvalidInput, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("%w: missing file field", stats.ErrInvalidInput)
	}
	defer file.Close()

	format, err := dataset.FormatFromName(header.Filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", stats.ErrInvalidInput, err)
	}

	cols := dataset.Columns{
		Group:   r.FormValue("group_col"),
		Outcome: r.FormValue("outcome_col"),
	}
	samples, err := dataset.Read(file, format, cols)
	if err != nil {
		return nil, err
	}

	var power *stats.PowerQuery
	if r.FormValue("mde") != "" {
		q, err := s.parsePowerQuery(r.Form)
		if err != nil {
			return nil, err
		}
		power = &q
	}

	return s.analyze(report.Input{Source: report.SourceUpload, A: samples.A, B: samples.B, Power: power})
}

// analyze builds a report and records its outcome.
func (s *Server) analyze(in report.Input) (*report.Report, error) {
	start := time.Now()
	rep, err := report.Build(in)
	analysisDuration.WithLabelValues(string(in.Source)).Observe(time.Since(start).Seconds())

	if err != nil {
		analysesTotal.WithLabelValues(string(in.Source), "invalid").Inc()
		s.logger.Warn("analysis rejected", zap.String("source", string(in.Source)), zap.Error(err))
		return nil, err
	}

	analysesTotal.WithLabelValues(string(in.Source), string(rep.Interpretation.Verdict)).Inc()
	s.logger.Info("analysis complete",
		zap.String("report_id", rep.ID),
		zap.String("source", string(rep.Source)),
		zap.Int("n_a", rep.A.N),
		zap.Int("n_b", rep.B.N),
		zap.Float64("p_value", rep.Comparison.PValue),
		zap.String("verdict", string(rep.Interpretation.Verdict)),
	)
	return rep, nil
}

// parseQuery reads simulation and power parameters, falling back to the
// configured defaults for anything absent.
func (s *Server) parseQuery(v url.Values) (sample.Params, *stats.PowerQuery, error) {
	p := s.cfg.Simulation
	var err error

	if p.NA, err = intParam(v, "n_a", p.NA); err != nil {
		return p, nil, err
	}
	if p.PA, err = floatParam(v, "p_a", p.PA); err != nil {
		return p, nil, err
	}
	if p.NB, err = intParam(v, "n_b", p.NB); err != nil {
		return p, nil, err
	}
	if p.PB, err = floatParam(v, "p_b", p.PB); err != nil {
		return p, nil, err
	}
	if raw := v.Get("seed"); raw != "" {
		if p.Seed, err = strconv.ParseUint(raw, 10, 64); err != nil {
			return p, nil, fmt.Errorf("%w: seed must be a non-negative integer", stats.ErrInvalidInput)
		}
	}

	q, err := s.parsePowerQuery(v)
	if err != nil {
		return p, nil, err
	}
	return p, &q, nil
}

func (s *Server) parsePowerQuery(v url.Values) (stats.PowerQuery, error) {
	q := s.cfg.Power
	var err error

	if q.MDE, err = floatParam(v, "mde", q.MDE); err != nil {
		return q, err
	}
	if q.Power, err = floatParam(v, "power", q.Power); err != nil {
		return q, err
	}
	if q.Baseline, err = floatParam(v, "baseline", q.Baseline); err != nil {
		return q, err
	}
	if scale := v.Get("scale"); scale != "" {
		q.Scale = stats.EffectScale(scale)
	}
	return q, nil
}

func intParam(v url.Values, key string, def int) (int, error) {
	raw := v.Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", stats.ErrInvalidInput, key, raw)
	}
	return n, nil
}

func floatParam(v url.Values, key string, def float64) (float64, error) {
	raw := v.Get(key)
	if raw == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number, got %q", stats.ErrInvalidInput, key, raw)
	}
	return f, nil
}

func (s *Server) writeAnalysisError(w http.ResponseWriter, err error) {
	if errors.Is(err, stats.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Error("analysis failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
