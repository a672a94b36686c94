// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/m-mukund/fpl-optimizer/internal/domain/model"
	"github.com/m-mukund/fpl-optimizer/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RecommendTransfer(ctx context.Context, roster []model.RosterSlot, remainingBudget int) (*model.TransferProposal, error)
	BestTeam(ctx context.Context) (model.TeamPayload, error)
	SearchPlayers(ctx context.Context, query string) ([]model.Player, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler       *HealthHandler
	statsHandler        *StatsHandler
	transferHandler     *TransferHandler
	teamHandler         *TeamHandler
	autocompleteHandler *AutocompleteHandler

	allowedOrigins []string
	logger         logger.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithAllowedOrigins sets the CORS allow list. "*" allows every origin.
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		if len(origins) > 0 {
			s.allowedOrigins = origins
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{
		allowedOrigins: []string{"*"},
		logger:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.transferHandler = NewTransferHandler(deps, s.logger)
	s.teamHandler = NewTeamHandler(deps, s.logger)
	s.autocompleteHandler = NewAutocompleteHandler(deps, s.logger)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	wrap := func(h http.HandlerFunc, endpoint string) http.HandlerFunc {
		return RequestIDMiddleware(CORSMiddleware(MetricsMiddleware(h, endpoint), s.allowedOrigins))
	}

	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", wrap(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/recommend-transfer", wrap(s.transferHandler.HandleRecommend, "recommend_transfer"))
	mux.HandleFunc("/predict", wrap(s.transferHandler.HandleRecommend, "recommend_transfer"))
	mux.HandleFunc("/best-team", wrap(s.teamHandler.HandleBestTeam, "best_team"))
	mux.HandleFunc("/best_team", wrap(s.teamHandler.HandleBestTeam, "best_team"))
	mux.HandleFunc("/autocomplete", wrap(s.autocompleteHandler.HandleAutocomplete, "autocomplete"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps service errors onto status codes.
func writeDomainError(ctx context.Context, w http.ResponseWriter, l logger.Logger, err error) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, model.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, model.ErrNoActivePeriod):
		writeError(w, http.StatusNotFound, "no_active_period", err)
	case errors.Is(err, model.ErrUpstreamUnavailable):
		l.Warn(ctx, "upstream unavailable", logger.String("requestID", RequestID(ctx)), logger.Error(err))
		writeError(w, http.StatusBadGateway, "upstream_unavailable", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "canceled", err)
	default:
		l.Error(ctx, "request failed", logger.String("requestID", RequestID(ctx)), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
