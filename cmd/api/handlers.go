package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/WessleyAI/gridlink/engine/calc"
	"github.com/WessleyAI/gridlink/engine/diagram"
	"github.com/WessleyAI/gridlink/engine/domain"
	"github.com/WessleyAI/gridlink/engine/identity"
	"github.com/WessleyAI/gridlink/engine/solver"
	"github.com/WessleyAI/gridlink/pkg/config"
	"github.com/WessleyAI/gridlink/pkg/metrics"
	"github.com/WessleyAI/gridlink/pkg/mid"
	"github.com/WessleyAI/gridlink/pkg/resilience"
)

type server struct {
	svc     *calc.Service
	breaker *resilience.Breaker
	log     *slog.Logger
}

func (s *server) routes(reg *metrics.Registry, cfg config.ServerConfig) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/loadflow", s.handleRun(calc.KindLoadFlow))
	mux.HandleFunc("POST /api/storage-sizing", s.handleRun(calc.KindStorageSizing))
	mux.HandleFunc("POST /api/extract", s.handleExtract)
	mux.Handle("GET /metrics", reg.Handler())

	return mid.Chain(mux,
		mid.Recover(s.log),
		mid.RequestID(),
		mid.Logger(s.log),
		mid.CORS(cfg.CORSOrigin),
		mid.MaxBytes(cfg.MaxBodyBytes),
		mid.OTel("gridlink-api"),
		reg.HTTPMiddleware,
		identity.Middleware,
	)
}

// --- Handlers ---

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	state := "unknown"
	if s.breaker != nil {
		state = s.breaker.State().String()
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "solver": state})
}

// CalcRequest is the JSON body of the calculation endpoints. Params fields
// that are omitted keep their defaults.
type CalcRequest struct {
	Diagram string          `json:"diagram"`
	Calc    calc.Kind       `json:"calc,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// CalcResponse carries the report and the annotated diagram.
type CalcResponse struct {
	Report  *calc.Report    `json:"report,omitempty"`
	Diagram string          `json:"diagram,omitempty"`
	Model   json.RawMessage `json:"model,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func (s *server) handleRun(kind calc.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, params, ok := s.decode(w, r, kind)
		if !ok {
			return
		}
		rep, err := s.svc.Run(r.Context(), g, params)
		resp := CalcResponse{Report: rep}
		if xml, xerr := g.XML(); xerr == nil {
			resp.Diagram = string(xml)
		}
		if err != nil {
			resp.Error = err.Error()
			writeJSON(w, statusOf(err), resp)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *server) handleExtract(w http.ResponseWriter, r *http.Request) {
	g, params, ok := s.decode(w, r, "")
	if !ok {
		return
	}
	rep, model, err := s.svc.Extract(r.Context(), g, params)
	resp := CalcResponse{Report: rep}
	if err != nil {
		resp.Error = err.Error()
		writeJSON(w, statusOf(err), resp)
		return
	}
	payload, err := json.Marshal(model)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode model")
		return
	}
	resp.Model = payload
	if xml, xerr := g.XML(); xerr == nil {
		resp.Diagram = string(xml)
	}
	writeJSON(w, http.StatusOK, resp)
}

// decode reads the request and its diagram. kind, if set, overrides the
// request's calc field.
func (s *server) decode(w http.ResponseWriter, r *http.Request, kind calc.Kind) (*diagram.Model, calc.Params, bool) {
	var req CalcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, nil, false
	}
	if strings.TrimSpace(req.Diagram) == "" {
		writeError(w, http.StatusBadRequest, "diagram is required")
		return nil, nil, false
	}
	if kind != "" {
		req.Calc = kind
	}
	params, err := paramsFor(req.Calc, req.Params)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, nil, false
	}
	g, err := diagram.DecodeXML(strings.NewReader(req.Diagram))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, nil, false
	}
	return g, params, true
}

func paramsFor(kind calc.Kind, raw json.RawMessage) (calc.Params, error) {
	switch kind {
	case calc.KindLoadFlow, "":
		p := calc.DefaultLoadFlow()
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, fmt.Errorf("invalid params: %v", err)
			}
		}
		return p, nil
	case calc.KindStorageSizing:
		p := calc.DefaultStorage()
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, fmt.Errorf("invalid params: %v", err)
			}
		}
		return p, nil
	}
	return nil, fmt.Errorf("unknown calc %q", kind)
}

func statusOf(err error) int {
	var se *solver.StatusError
	switch {
	case errors.Is(err, domain.ErrInvalidParameters), errors.Is(err, domain.ErrMissingParameters):
		return http.StatusBadRequest
	case errors.Is(err, resilience.ErrOpen), errors.Is(err, resilience.ErrRateLimited):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrMalformedResponse), errors.As(err, &se):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
