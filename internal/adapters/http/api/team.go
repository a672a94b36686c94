package api

import (
	"context"
	"net/http"

	"github.com/m-mukund/fpl-optimizer/internal/domain/model"
	"github.com/m-mukund/fpl-optimizer/pkg/logger"
)

// TeamDependencies defines the interface for best-team reads.
type TeamDependencies interface {
	BestTeam(ctx context.Context) (model.TeamPayload, error)
}

type teamResponse struct {
	Success  bool              `json:"success"`
	BestTeam model.TeamPayload `json:"best_team"`
}

// TeamHandler handles best-team requests.
type TeamHandler struct {
	deps   TeamDependencies
	logger logger.Logger
}

// NewTeamHandler creates a new best-team handler.
func NewTeamHandler(deps TeamDependencies, l logger.Logger) *TeamHandler {
	return &TeamHandler{deps: deps, logger: l}
}

// HandleBestTeam handles GET /best-team requests.
func (h *TeamHandler) HandleBestTeam(w http.ResponseWriter, r *http.Request) {
	const op = "api.best_team"
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}

	team, err := h.deps.BestTeam(r.Context())
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, Wrap(op, err))
		return
	}
	if team.Players == nil {
		team.Players = []model.PlayerProjection{}
	}
	writeJSON(w, http.StatusOK, teamResponse{Success: true, BestTeam: team})
}
