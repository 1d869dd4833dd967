// Package httpapi serves the survey service, lookups and map assets over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"smarthika/internal/adapters/archive"
	"smarthika/internal/blob"
	"smarthika/internal/core"
	"smarthika/internal/geo"
	"smarthika/internal/metrics"
	"smarthika/internal/visual"
	"smarthika/pkg/domain"
)

// Locations resolves state and district names.
type Locations interface {
	FetchStates(ctx context.Context) []string
	FetchDistricts(ctx context.Context, state string) []string
}

// Archives reports archive job status.
type Archives interface {
	Job(id string) (archive.Job, bool)
}

// Server wires the HTTP routes to their collaborators. Optional collaborators
// left nil disable their routes.
type Server struct {
	svc       *core.Service
	locations Locations
	atlas     *geo.Atlas
	archives  Archives
	metrics   *metrics.Metrics
	limiter   *RateLimiter
	logger    *zap.Logger
}

// Option customizes a Server.
type Option func(*Server)

// WithLocations enables the location routes.
func WithLocations(l Locations) Option { return func(s *Server) { s.locations = l } }

// WithAtlas enables the map routes.
func WithAtlas(a *geo.Atlas) Option { return func(s *Server) { s.atlas = a } }

// WithArchives enables archive status lookups.
func WithArchives(a Archives) Option { return func(s *Server) { s.archives = a } }

// WithMetrics instruments every route and serves /metrics.
func WithMetrics(m *metrics.Metrics) Option { return func(s *Server) { s.metrics = m } }

// WithSubmitLimiter throttles the submit route.
func WithSubmitLimiter(rl *RateLimiter) Option { return func(s *Server) { s.limiter = rl } }

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer constructs a Server around svc.
func NewServer(svc *core.Service, opts ...Option) *Server {
	s := &Server{svc: svc, logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(RequestLogger(s.logger))
	if s.metrics != nil {
		r.Use(func(next http.Handler) http.Handler {
			return s.metrics.InstrumentHandler(next, routeTemplate)
		})
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/sessions", s.createSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions", s.listSessions).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", s.getSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", s.deleteSession).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/modules/{module}", s.updateModule).Methods(http.MethodPatch)
	api.HandleFunc("/sessions/{id}/actions", s.dispatch).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/validate", s.validateSession).Methods(http.MethodPost)
	var submit http.Handler = http.HandlerFunc(s.submit)
	if s.limiter != nil {
		submit = s.limiter.Wrap(submit)
	}
	api.Handle("/sessions/{id}/submit", submit).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/scene", s.scene).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/submissions", s.attempts).Methods(http.MethodGet)
	api.HandleFunc("/modules/{module}/validate", s.validateModule).Methods(http.MethodPost)
	if s.archives != nil {
		api.HandleFunc("/archives/{id}", s.archiveStatus).Methods(http.MethodGet)
	}
	if s.locations != nil {
		api.HandleFunc("/locations/states", s.states).Methods(http.MethodGet)
		api.HandleFunc("/locations/states/{state}/districts", s.districts).Methods(http.MethodGet)
	}
	if s.atlas != nil {
		r.HandleFunc("/maps/{country:[A-Za-z0-9_-]+}.topo.json", s.mapAsset).Methods(http.MethodGet)
		api.HandleFunc("/maps/{country}/regions", s.regions).Methods(http.MethodGet)
	}
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.svc.CreateSession(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.svc.ListSessions(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.svc.Session(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteSession(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) updateModule(w http.ResponseWriter, r *http.Request) {
	module, err := domain.ParseModuleID(mux.Vars(r)["module"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var patch map[string]any
	if err := decodeBody(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.apply(w, r, core.UpdateModule{Module: module, Patch: patch})
}

// actionRequest is the wire form of a reducer action.
type actionRequest struct {
	Type    string         `json:"type"`
	Module  string         `json:"module"`
	Patch   map[string]any `json:"patch"`
	Index   *int           `json:"index"`
	Texture string         `json:"texture"`
	Source  string         `json:"source"`
}

func (req actionRequest) action() (core.Action, error) {
	switch req.Type {
	case "update_module":
		module, err := domain.ParseModuleID(req.Module)
		if err != nil {
			return nil, err
		}
		return core.UpdateModule{Module: module, Patch: req.Patch}, nil
	case "go_to_module":
		if req.Index == nil {
			return nil, fmt.Errorf("go_to_module requires index")
		}
		return core.GoToModule{Index: *req.Index}, nil
	case "next_module":
		return core.NextModule{}, nil
	case "prev_module":
		return core.PrevModule{}, nil
	case "complete_module":
		if req.Index == nil {
			return nil, fmt.Errorf("complete_module requires index")
		}
		return core.CompleteModule{Index: *req.Index}, nil
	case "toggle_soil_texture":
		return core.ToggleSoilTexture{Texture: req.Texture}, nil
	case "toggle_water_source":
		return core.ToggleWaterSource{Source: req.Source}, nil
	case "reset":
		return core.Reset{}, nil
	default:
		return nil, fmt.Errorf("unknown action %q", req.Type)
	}
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	action, err := req.action()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.apply(w, r, action)
}

func (s *Server) apply(w http.ResponseWriter, r *http.Request, action core.Action) {
	sess, err := s.svc.Dispatch(r.Context(), mux.Vars(r)["id"], action)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) validateSession(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.Validate(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) validateModule(w http.ResponseWriter, r *http.Request) {
	module, err := domain.ParseModuleID(mux.Vars(r)["module"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var fields map[string]any
	if err := decodeBody(r, &fields); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	errs, err := s.svc.ValidateModule(r.Context(), module, fields)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": len(errs) == 0, "errors": errs})
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Submit(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, err)
		return
	}
	status := http.StatusOK
	switch {
	case !res.Validation.Valid:
		status = http.StatusUnprocessableEntity
	case !res.Success:
		status = http.StatusBadGateway
	}
	writeJSON(w, status, res)
}

func (s *Server) scene(w http.ResponseWriter, r *http.Request) {
	sess, err := s.svc.Session(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, visual.BuildScene(sess.Record))
}

func (s *Server) attempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := s.svc.Attempts(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"submissions": attempts})
}

func (s *Server) archiveStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := s.archives.Job(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "archive not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) states(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"states": s.locations.FetchStates(r.Context())})
}

func (s *Server) districts(w http.ResponseWriter, r *http.Request) {
	state := mux.Vars(r)["state"]
	writeJSON(w, http.StatusOK, map[string]any{
		"state":     state,
		"districts": s.locations.FetchDistricts(r.Context(), state),
	})
}

func (s *Server) mapAsset(w http.ResponseWriter, r *http.Request) {
	info, rc, err := s.atlas.Raw(r.Context(), mux.Vars(r)["country"])
	if err != nil {
		s.fail(w, err)
		return
	}
	defer func() { _ = rc.Close() }()
	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	if info.ETag != "" {
		w.Header().Set("ETag", fmt.Sprintf("%q", info.ETag))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Warn("map asset copy failed", zap.Error(err))
	}
}

func (s *Server) regions(w http.ResponseWriter, r *http.Request) {
	country := mux.Vars(r)["country"]
	regions, err := s.atlas.Regions(r.Context(), country)
	if err != nil {
		s.fail(w, err)
		return
	}
	selected := r.URL.Query().Get("selected")
	writeJSON(w, http.StatusOK, map[string]any{
		"country":  strings.ToLower(country),
		"selected": geo.NormalizeRegionName(selected),
		"regions":  geo.Highlight(regions, selected),
	})
}

// fail maps service errors onto status codes.
func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case core.IsNotFound(err), errors.Is(err, blob.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrInvalidInput), errors.Is(err, geo.ErrUnsupportedFormat):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		s.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("request body required")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body required")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// writeJSON encodes before writing the header so an unencodable payload
// becomes a 500 instead of an empty success.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"success":false,"error":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "error": message})
}
