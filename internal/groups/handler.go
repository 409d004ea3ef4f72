package groups

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/splitledger/splitledger/internal/platform/httpx"
	"github.com/splitledger/splitledger/internal/shared"
)

// Handler exposes the group endpoints.
type Handler struct {
	log *slog.Logger
	svc *Service
}

// NewHandler constructs a group Handler.
func NewHandler(log *slog.Logger, svc *Service) *Handler {
	return &Handler{log: log, svc: svc}
}

// MountRoutes registers group routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{groupID}", h.get)
	r.Post("/{groupID}/members", h.addMember)
	r.Delete("/{groupID}/members/{userID}", h.removeMember)
}

type createGroupRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type addMemberRequest struct {
	UserID int64 `json:"user_id" validate:"required"`
}

type memberResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type groupResponse struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	OwnerUserID int64            `json:"owner_user_id"`
	CreatedAt   time.Time        `json:"created_at"`
	Members     []memberResponse `json:"members,omitempty"`
}

func toGroupResponse(g *Group, members []Member) groupResponse {
	resp := groupResponse{
		ID:          g.ID,
		Name:        g.Name,
		OwnerUserID: g.OwnerUserID,
		CreatedAt:   g.CreatedAt,
	}
	for _, m := range members {
		resp.Members = append(resp.Members, memberResponse{ID: m.ID, Username: m.Username, Email: m.Email})
	}
	return resp
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

	var req createGroupRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Errorf(shared.CodeInvalidField, http.StatusBadRequest, "Request body is not valid JSON."))
		return
	}
	if err := httpx.Validate(req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	detail, err := h.svc.Create(r.Context(), req.Name, caller)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	h.log.Info("group created", slog.Int64("group_id", detail.Group.ID), slog.Int64("owner_id", caller))
	httpx.Data(w, http.StatusCreated, toGroupResponse(&detail.Group, detail.Members))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	groups, err := h.svc.List(r.Context(), caller)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	out := make([]groupResponse, 0, len(groups))
	for i := range groups {
		out = append(out, toGroupResponse(&groups[i], nil))
	}
	httpx.Data(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
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

	detail, err := h.svc.Get(r.Context(), groupID, caller)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Data(w, http.StatusOK, toGroupResponse(&detail.Group, detail.Members))
}

func (h *Handler) addMember(w http.ResponseWriter, r *http.Request) {
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

	var req addMemberRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Errorf(shared.CodeInvalidField, http.StatusBadRequest, "Request body is not valid JSON."))
		return
	}
	if err := httpx.Validate(req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	if err := h.svc.AddMember(r.Context(), groupID, caller, req.UserID); err != nil {
		httpx.RespondError(w, err)
		return
	}

	h.log.Info("member added", slog.Int64("group_id", groupID), slog.Int64("user_id", req.UserID))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeMember(w http.ResponseWriter, r *http.Request) {
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
	targetID, err := pathID(r, "userID", "user_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	if err := h.svc.RemoveMember(r.Context(), groupID, caller, targetID); err != nil {
		httpx.RespondError(w, err)
		return
	}

	h.log.Info("member removed", slog.Int64("group_id", groupID), slog.Int64("user_id", targetID))
	w.WriteHeader(http.StatusNoContent)
}
