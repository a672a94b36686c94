package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"

	"github.com/m-mukund/fpl-optimizer/internal/domain/model"
	"github.com/m-mukund/fpl-optimizer/pkg/logger"
)

const maxBodyBytes = 1 << 20

// TransferDependencies defines the interface for transfer recommendations.
type TransferDependencies interface {
	RecommendTransfer(ctx context.Context, roster []model.RosterSlot, remainingBudget int) (*model.TransferProposal, error)
}

// transferRequest mirrors the OpenAPI schema for POST /recommend-transfer.
type transferRequest struct {
	CurrentTeam     []model.RosterSlot `json:"current_team"`
	RemainingBudget *float64           `json:"remaining_budget"`
}

func (r transferRequest) validate() (int, error) {
	switch {
	case r.CurrentTeam == nil:
		return 0, errors.New("missing current_team")
	case r.RemainingBudget == nil:
		return 0, errors.New("missing remaining_budget")
	}
	b := *r.RemainingBudget
	if b != math.Trunc(b) || math.IsInf(b, 0) || b > math.MaxInt32 || b < math.MinInt32 {
		return 0, errors.New("remaining_budget must be a whole number of budget units")
	}
	return int(b), nil
}

type transferResponse struct {
	Success         bool                    `json:"success"`
	OptimalTransfer *model.TransferProposal `json:"optimal_transfer"`
}

// TransferHandler handles transfer recommendation requests.
type TransferHandler struct {
	deps   TransferDependencies
	logger logger.Logger
}

// NewTransferHandler creates a new transfer handler.
func NewTransferHandler(deps TransferDependencies, l logger.Logger) *TransferHandler {
	return &TransferHandler{deps: deps, logger: l}
}

// HandleRecommend handles POST /recommend-transfer requests.
func (h *TransferHandler) HandleRecommend(w http.ResponseWriter, r *http.Request) {
	const op = "api.recommend_transfer"
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}

	var req transferRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	budget, err := req.validate()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	proposal, err := h.deps.RecommendTransfer(r.Context(), req.CurrentTeam, budget)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, transferResponse{Success: true, OptimalTransfer: proposal})
}
