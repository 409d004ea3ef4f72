package balance

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/splitledger/splitledger/internal/expenses"
	"github.com/splitledger/splitledger/internal/platform/httpx"
	"github.com/splitledger/splitledger/internal/shared"
)

// Handler exposes the balance report endpoint.
type Handler struct {
	log *slog.Logger
	svc *Service
}

// NewHandler constructs a balance Handler.
func NewHandler(log *slog.Logger, svc *Service) *Handler {
	return &Handler{log: log, svc: svc}
}

// MountRoutes registers balance routes on a router already mounted under
// the groups prefix.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{groupID}/balances", h.getBalances)
}

func (h *Handler) getBalances(w http.ResponseWriter, r *http.Request) {
	callerID, ok := shared.UserIDFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.Errorf(shared.CodeTokenMissing, http.StatusUnauthorized, "Authentication required."))
		return
	}

	groupID, err := strconv.ParseInt(chi.URLParam(r, "groupID"), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.FieldErrorf(shared.CodeInvalidField, http.StatusBadRequest, "group_id", "Group ID must be an integer."))
		return
	}

	category := r.URL.Query().Get("category")
	if category != "" {
		if _, err := expenses.ParseCategory(category); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}

	report, err := h.svc.Report(r.Context(), groupID, callerID, category)
	if err != nil {
		var appErr *shared.AppError
		if errors.As(err, &appErr) && appErr.Status == http.StatusInternalServerError {
			// Integrity faults are the one balance error worth paging on.
			h.log.Error("balance report failed",
				slog.Int64("group_id", groupID),
				slog.String("error", err.Error()))
		}
		httpx.RespondError(w, err)
		return
	}

	httpx.Data(w, http.StatusOK, report)
}
