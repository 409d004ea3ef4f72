package settlements

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/splitledger/splitledger/internal/platform/httpx"
	"github.com/splitledger/splitledger/internal/shared"
)

// Handler exposes the settlement endpoints.
type Handler struct {
	log *slog.Logger
	svc *Service
}

// NewHandler constructs a settlement Handler.
func NewHandler(log *slog.Logger, svc *Service) *Handler {
	return &Handler{log: log, svc: svc}
}

// MountRoutes registers settlement routes on a router already mounted
// under the groups prefix.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/{groupID}/settlements", h.create)
	r.Get("/{groupID}/settlements", h.list)
}

type createSettlementRequest struct {
	PaidToUserID int64  `json:"paid_to_user_id" validate:"required"`
	Amount       string `json:"amount" validate:"required"`
}

type settlementResponse struct {
	ID           int64     `json:"id"`
	GroupID      int64     `json:"group_id"`
	PaidByUserID int64     `json:"paid_by_user_id"`
	PaidToUserID int64     `json:"paid_to_user_id"`
	Amount       string    `json:"amount"`
	CreatedAt    time.Time `json:"created_at"`
}

func toSettlementResponse(s *Settlement) settlementResponse {
	return settlementResponse{
		ID:           s.ID,
		GroupID:      s.GroupID,
		PaidByUserID: s.PaidByUserID,
		PaidToUserID: s.PaidToUserID,
		Amount:       s.Amount.StringFixed(2),
		CreatedAt:    s.CreatedAt,
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.UserIDFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.Errorf(shared.CodeTokenMissing, http.StatusUnauthorized, "Authentication required."))
		return
	}
	groupID, err := strconv.ParseInt(chi.URLParam(r, "groupID"), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.FieldErrorf(shared.CodeInvalidField, http.StatusBadRequest, "group_id", "Group ID must be an integer."))
		return
	}

	var req createSettlementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Errorf(shared.CodeInvalidField, http.StatusBadRequest, "Request body is not valid JSON."))
		return
	}
	if err := httpx.Validate(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	amount, err := shared.ParseAmount("amount", req.Amount)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	settlement, warnings, err := h.svc.Create(r.Context(), groupID, caller, req.PaidToUserID, amount)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	h.log.Info("settlement recorded",
		slog.Int64("settlement_id", settlement.ID),
		slog.Int64("group_id", groupID),
		slog.String("amount", settlement.Amount.StringFixed(2)),
		slog.Int("warnings", len(warnings)))
	httpx.Data(w, http.StatusCreated, toSettlementResponse(settlement), warnings...)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.UserIDFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.Errorf(shared.CodeTokenMissing, http.StatusUnauthorized, "Authentication required."))
		return
	}
	groupID, err := strconv.ParseInt(chi.URLParam(r, "groupID"), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.FieldErrorf(shared.CodeInvalidField, http.StatusBadRequest, "group_id", "Group ID must be an integer."))
		return
	}

	settlements, err := h.svc.List(r.Context(), groupID, caller)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	out := make([]settlementResponse, 0, len(settlements))
	for i := range settlements {
		out = append(out, toSettlementResponse(&settlements[i]))
	}
	httpx.Data(w, http.StatusOK, out)
}
