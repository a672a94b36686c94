package api

import (
	"context"
	"net/http"

	"github.com/m-mukund/fpl-optimizer/internal/domain/model"
	"github.com/m-mukund/fpl-optimizer/pkg/logger"
)

// AutocompleteDependencies defines the interface for player name lookups.
type AutocompleteDependencies interface {
	SearchPlayers(ctx context.Context, query string) ([]model.Player, error)
}

// AutocompleteHandler handles player name lookups.
type AutocompleteHandler struct {
	deps   AutocompleteDependencies
	logger logger.Logger
}

// NewAutocompleteHandler creates a new autocomplete handler.
func NewAutocompleteHandler(deps AutocompleteDependencies, l logger.Logger) *AutocompleteHandler {
	return &AutocompleteHandler{deps: deps, logger: l}
}

// HandleAutocomplete handles GET /autocomplete?query= requests.
func (h *AutocompleteHandler) HandleAutocomplete(w http.ResponseWriter, r *http.Request) {
	const op = "api.autocomplete"
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}

	players, err := h.deps.SearchPlayers(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, Wrap(op, err))
		return
	}
	if players == nil {
		players = []model.Player{}
	}
	writeJSON(w, http.StatusOK, players)
}
