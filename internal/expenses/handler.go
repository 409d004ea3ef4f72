package expenses

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/splitledger/splitledger/internal/platform/httpx"
	"github.com/splitledger/splitledger/internal/shared"
)

// Handler exposes the expense endpoints.
type Handler struct {
	log *slog.Logger
	svc *Service
}

// NewHandler constructs an expense Handler.
func NewHandler(log *slog.Logger, svc *Service) *Handler {
	return &Handler{log: log, svc: svc}
}

// MountGroupRoutes registers the group-scoped expense routes; the router is
// already mounted under the groups prefix.
func (h *Handler) MountGroupRoutes(r chi.Router) {
	r.Post("/{groupID}/expenses", h.create)
	r.Get("/{groupID}/expenses", h.list)
}

// MountRoutes registers the expense-scoped routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{expenseID}", h.get)
	r.Patch("/{expenseID}", h.edit)
	r.Delete("/{expenseID}", h.remove)
}

type splitPayload struct {
	UserID int64  `json:"user_id" validate:"required"`
	Amount string `json:"amount" validate:"required"`
}

type createExpenseRequest struct {
	PaidByUserID int64          `json:"paid_by_user_id" validate:"required"`
	Description  string         `json:"description" validate:"required,max=200"`
	Amount       string         `json:"amount" validate:"required"`
	SplitMode    string         `json:"split_mode"`
	Category     string         `json:"category"`
	Splits       []splitPayload `json:"splits"`
}

type editExpenseRequest struct {
	PaidByUserID *int64          `json:"paid_by_user_id"`
	Description  *string         `json:"description" validate:"omitempty,max=200"`
	Amount       *string         `json:"amount"`
	SplitMode    *string         `json:"split_mode"`
	Category     *string         `json:"category"`
	Splits       *[]splitPayload `json:"splits"`
}

type splitResponse struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"user_id"`
	Amount string `json:"amount"`
}

type expenseResponse struct {
	ID           int64           `json:"id"`
	GroupID      int64           `json:"group_id"`
	PaidByUserID int64           `json:"paid_by_user_id"`
	Description  string          `json:"description"`
	Amount       string          `json:"amount"`
	SplitMode    string          `json:"split_mode"`
	Category     string          `json:"category"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    *time.Time      `json:"updated_at"`
	DeletedAt    *time.Time      `json:"deleted_at"`
	Splits       []splitResponse `json:"splits"`
}

func toExpenseResponse(e *Expense) expenseResponse {
	resp := expenseResponse{
		ID:           e.ID,
		GroupID:      e.GroupID,
		PaidByUserID: e.PaidByUserID,
		Description:  e.Description,
		Amount:       e.Amount.StringFixed(2),
		SplitMode:    string(e.SplitMode),
		Category:     string(e.Category),
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
		DeletedAt:    e.DeletedAt,
		Splits:       make([]splitResponse, 0, len(e.Splits)),
	}
	for _, s := range e.Splits {
		resp.Splits = append(resp.Splits, splitResponse{ID: s.ID, UserID: s.UserID, Amount: s.Amount.StringFixed(2)})
	}
	return resp
}

func parseSplitPayloads(payloads []splitPayload) ([]SplitInput, error) {
	inputs := make([]SplitInput, len(payloads))
	for i, p := range payloads {
		amount, err := shared.ParseAmount("splits", p.Amount)
		if err != nil {
			return nil, err
		}
		inputs[i] = SplitInput{UserID: p.UserID, Amount: amount}
	}
	return inputs, nil
}

func callerID(r *http.Request) (int64, error) {
	id, ok := shared.UserIDFromContext(r.Context())
	if !ok {
		return 0, shared.Errorf(shared.CodeTokenMissing, http.StatusUnauthorized, "Authentication required.")
	}
	return id, nil
}

func pathID(r *http.Request, param, field string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil {
		return 0, shared.FieldErrorf(shared.CodeInvalidField, http.StatusBadRequest, field, "%s must be an integer.", field)
	}
	return id, nil
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	groupID, err := pathID(r, "groupID", "group_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	var req createExpenseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Errorf(shared.CodeInvalidField, http.StatusBadRequest, "Request body is not valid JSON."))
		return
	}
	if err := httpx.Validate(req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	in, err := h.buildCreateInput(req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	expense, err := h.svc.Create(r.Context(), groupID, caller, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	h.log.Info("expense created",
		slog.Int64("expense_id", expense.ID),
		slog.Int64("group_id", groupID),
		slog.String("amount", expense.Amount.StringFixed(2)))
	httpx.Data(w, http.StatusCreated, toExpenseResponse(expense))
}

func (h *Handler) buildCreateInput(req createExpenseRequest) (CreateInput, error) {
	amount, err := shared.ParseAmount("amount", req.Amount)
	if err != nil {
		return CreateInput{}, err
	}
	mode, err := ParseSplitMode(req.SplitMode)
	if err != nil {
		return CreateInput{}, err
	}
	category, err := ParseCategory(req.Category)
	if err != nil {
		return CreateInput{}, err
	}
	splits, err := parseSplitPayloads(req.Splits)
	if err != nil {
		return CreateInput{}, err
	}
	return CreateInput{
		PaidByUserID: req.PaidByUserID,
		Description:  req.Description,
		Amount:       amount,
		SplitMode:    mode,
		Category:     category,
		Splits:       splits,
	}, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	groupID, err := pathID(r, "groupID", "group_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	expenses, err := h.svc.List(r.Context(), groupID, caller)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	out := make([]expenseResponse, 0, len(expenses))
	for i := range expenses {
		out = append(out, toExpenseResponse(&expenses[i]))
	}
	httpx.Data(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	expenseID, err := pathID(r, "expenseID", "expense_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	expense, err := h.svc.Get(r.Context(), expenseID, caller)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Data(w, http.StatusOK, toExpenseResponse(expense))
}

func (h *Handler) edit(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	expenseID, err := pathID(r, "expenseID", "expense_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	var req editExpenseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Errorf(shared.CodeInvalidField, http.StatusBadRequest, "Request body is not valid JSON."))
		return
	}
	if err := httpx.Validate(req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	in, err := h.buildEditInput(req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	expense, err := h.svc.Edit(r.Context(), expenseID, caller, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	h.log.Info("expense updated", slog.Int64("expense_id", expense.ID))
	httpx.Data(w, http.StatusOK, toExpenseResponse(expense))
}

func (h *Handler) buildEditInput(req editExpenseRequest) (EditInput, error) {
	in := EditInput{
		PaidByUserID: req.PaidByUserID,
		Description:  req.Description,
	}
	if req.Amount != nil {
		amount, err := shared.ParseAmount("amount", *req.Amount)
		if err != nil {
			return EditInput{}, err
		}
		in.Amount = &amount
	}
	if req.SplitMode != nil {
		mode, err := ParseSplitMode(*req.SplitMode)
		if err != nil {
			return EditInput{}, err
		}
		in.SplitMode = &mode
	}
	if req.Category != nil {
		category, err := ParseCategory(*req.Category)
		if err != nil {
			return EditInput{}, err
		}
		in.Category = &category
	}
	if req.Splits != nil {
		splits, err := parseSplitPayloads(*req.Splits)
		if err != nil {
			return EditInput{}, err
		}
		in.Splits = &splits
	}
	return in, nil
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	expenseID, err := pathID(r, "expenseID", "expense_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	if err := h.svc.Delete(r.Context(), expenseID, caller); err != nil {
		httpx.RespondError(w, err)
		return
	}

	h.log.Info("expense deleted", slog.Int64("expense_id", expenseID))
	w.WriteHeader(http.StatusNoContent)
}
