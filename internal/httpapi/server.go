package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pior/homeworks"
	"github.com/pior/homeworks/protocol"
	"github.com/sony/gobreaker/v2"
)

// Controller is the client surface exposed over HTTP.
type Controller interface {
	Endpoint() homeworks.Endpoint
	State() protocol.State
	Stats() homeworks.ClientStats
	LastActivity() time.Time
	CircuitBreakerState() (gobreaker.State, bool)

	FadeDim(ctx context.Context, intensity, fadeTime, delayTime int, address string) error
	RequestDimmerLevel(ctx context.Context, address string) error
}

var _ Controller = (*homeworks.Client)(nil)

const maxIntensity = 100

// Status is the body of GET /status.
type Status struct {
	Address        string                `json:"address"`
	State          string                `json:"state"`
	Ready          bool                  `json:"ready"`
	LastActivity   *time.Time            `json:"last_activity,omitempty"`
	CircuitBreaker string                `json:"circuit_breaker,omitempty"`
	Stats          homeworks.ClientStats `json:"stats"`
}

// LevelRequest is the body of POST /dimmers/{address}/level.
// Fade and Delay are in seconds.
type LevelRequest struct {
	Intensity *int `json:"intensity"`
	Fade      int  `json:"fade"`
	Delay     int  `json:"delay"`
}

type server struct {
	controller Controller
	logger     *slog.Logger
}

// NewHandler returns the HTTP API for controller.
// When metrics is not nil it is mounted on /metrics.
func NewHandler(controller Controller, metrics http.Handler, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &server{controller: controller, logger: logger}

	r := chi.NewRouter()
	r.Get("/status", s.status)
	r.Route("/dimmers/{address}", func(r chi.Router) {
		r.Post("/level", s.setLevel)
		r.Post("/refresh", s.refresh)
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	return r
}

func (s *server) status(w http.ResponseWriter, r *http.Request) {
	state := s.controller.State()
	resp := Status{
		Address: s.controller.Endpoint().String(),
		State:   state.String(),
		Ready:   state == protocol.StateReady,
		Stats:   s.controller.Stats(),
	}
	if t := s.controller.LastActivity(); !t.IsZero() {
		resp.LastActivity = &t
	}
	if cb, ok := s.controller.CircuitBreakerState(); ok {
		resp.CircuitBreaker = cb.String()
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *server) setLevel(w http.ResponseWriter, r *http.Request) {
	address := dimmerAddress(r)

	var body LevelRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.Intensity == nil || *body.Intensity < 0 || *body.Intensity > maxIntensity {
		http.Error(w, "intensity must be between 0 and 100", http.StatusBadRequest)
		return
	}
	if body.Fade < 0 || body.Delay < 0 {
		http.Error(w, "fade and delay must not be negative", http.StatusBadRequest)
		return
	}

	err := s.controller.FadeDim(r.Context(), *body.Intensity, body.Fade, body.Delay, address)
	if err != nil {
		s.commandError(w, err)
		return
	}

	s.logger.Info("dimmer level set", "address", address, "intensity", *body.Intensity)
	w.WriteHeader(http.StatusAccepted)
}

func (s *server) refresh(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.RequestDimmerLevel(r.Context(), dimmerAddress(r)); err != nil {
		s.commandError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *server) commandError(w http.ResponseWriter, err error) {
	if errors.Is(err, homeworks.ErrNotReady) || errors.Is(err, homeworks.ErrClientClosed) {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.logger.Error("command failed", "error", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func (s *server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("encode response", "error", err)
	}
}

func dimmerAddress(r *http.Request) string {
	return protocol.BracketAddress(chi.URLParam(r, "address"))
}
