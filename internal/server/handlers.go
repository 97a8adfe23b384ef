package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"velolab/internal/analysis"
	"velolab/internal/fitfile"
	"velolab/internal/service"
)

// errorResponse is the body of every non-2xx reply
type errorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var p service.Payload
	if err := decodeJSON(r, &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.analyze(w, r, &p)
}

func (s *Server) handleAnalyzeFIT(w http.ResponseWriter, r *http.Request) {
	d, err := fitfile.Decode(r.Body)
	if err != nil {
		s.writeError(w, r, badRequest(err))
		return
	}
	s.analyze(w, r, service.PayloadFromFIT(d, r.URL.Query().Get("athlete_id")))
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request, p *service.Payload) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	res, err := s.analyzer.Analyze(ctx, p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res.RequestID = w.Header().Get(requestIDHeader)

	code := http.StatusOK
	if unprocessable(res) {
		code = http.StatusUnprocessableEntity
	}
	writeJSON(w, code, res)
}

// fitResponse carries the file inline when JSON output is requested
type fitResponse struct {
	*fitfile.Result
	Data []byte `json:"data"`
}

func (s *Server) handleGenerateFIT(w http.ResponseWriter, r *http.Request) {
	var a fitfile.Activity
	if err := decodeJSON(r, &a); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := a.Validate(); err != nil {
		s.writeError(w, r, badRequest(err))
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	res, err := fitfile.Generate(ctx, s.generator, &a)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("X-Velolab-Generator", res.Generator)
	w.Header().Set("X-Velolab-Placeholder", strconv.FormatBool(res.Placeholder))

	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, fitResponse{Result: res, Data: res.Data})
		return
	}

	contentType := "application/vnd.ant.fit"
	if res.Placeholder {
		contentType = "text/csv"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(res.Size))
	w.WriteHeader(http.StatusOK)
	w.Write(res.Data)
}

// loadRequest is the body of POST /v1/pmc/{athlete}
type loadRequest struct {
	Date string  `json:"date"`
	Load float64 `json:"load"`
}

func (s *Server) handlePMCAdd(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	date := time.Now().UTC()
	if req.Date != "" {
		d, err := time.Parse(time.DateOnly, req.Date)
		if err != nil {
			s.writeError(w, r, badRequest(fmt.Errorf("date: %w", err)))
			return
		}
		date = d
	}

	update, err := s.analyzer.AddLoad(r.Context(), r.PathValue("athlete"), date, req.Load)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, update)
}

func (s *Server) handlePMCHistory(w http.ResponseWriter, r *http.Request) {
	from, err := queryDate(r, "from")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	athlete := r.PathValue("athlete")
	states, alert, err := s.analyzer.History(r.Context(), athlete, from, to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if states == nil {
		states = []analysis.PMCState{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"athlete_id": athlete,
		"states":     states,
		"alert":      alert,
	})
}

func (s *Server) handlePMCReplay(w http.ResponseWriter, r *http.Request) {
	athlete := r.PathValue("athlete")
	states, err := s.analyzer.Replay(r.Context(), athlete)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if states == nil {
		states = []analysis.PMCState{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"athlete_id": athlete,
		"states":     states,
	})
}

func (s *Server) handlePMCPerformance(w http.ResponseWriter, r *http.Request) {
	athlete := r.PathValue("athlete")
	states, err := s.analyzer.Performance(r.Context(), athlete)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if states == nil {
		states = []analysis.PerformanceState{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"athlete_id": athlete,
		"states":     states,
	})
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.cfg.RequestTimeout > 0 {
		return context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	}
	return context.WithCancel(r.Context())
}

// unprocessable reports whether every attempted module failed on the data
// itself rather than on malformed input
func unprocessable(res *service.Result) bool {
	if len(res.Status) == 0 {
		return false
	}
	for _, st := range res.Status {
		if st.OK {
			return false
		}
		if st.ErrorKind != service.KindInsufficientData && st.ErrorKind != service.KindFitQuality {
			return false
		}
	}
	return true
}

// requestError marks errors caused by the request body or parameters
type requestError struct{ err error }

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(err error) error { return &requestError{err: err} }

func statusFor(err error) int {
	var (
		reqErr   *requestError
		tooLarge *http.MaxBytesError
		invalid  *analysis.InvalidInputError
	)
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &reqErr), errors.As(err, &invalid), errors.Is(err, service.ErrEmptyPayload):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, service.ErrNoStore):
		return http.StatusServiceUnavailable
	}
	switch service.ErrorKind(err) {
	case service.KindInsufficientData, service.KindFitQuality:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	body := errorResponse{Error: err.Error(), RequestID: w.Header().Get(requestIDHeader)}
	if kind := service.ErrorKind(err); kind != service.KindInternal {
		body.Kind = kind
	}
	writeJSON(w, code, body)
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return badRequest(fmt.Errorf("invalid JSON: %w", err))
	}
	return nil
}

func queryDate(r *http.Request, key string) (time.Time, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, badRequest(fmt.Errorf("%s: %w", key, err))
	}
	return t, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
