package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"verigate/internal/roles/models"
	vmodels "verigate/internal/verification/models"
	id "verigate/pkg/domain"
	dErrors "verigate/pkg/domain-errors"
	"verigate/pkg/platform/httputil"
	"verigate/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

type Service interface {
	AvailableRoles(ctx context.Context, userID id.UserID) ([]models.AvailableRole, error)
	CurrentRole(ctx context.Context, sessionID id.SessionID, userID id.UserID) (vmodels.Role, error)
	SwitchRole(ctx context.Context, sessionID id.SessionID, userID id.UserID, target vmodels.Role) (*models.Session, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the session role endpoints behind auth.
func (h *Handler) Register(r chi.Router) {
	r.Get("/session/role", h.HandleGetRole)
	r.Post("/session/role", h.HandleSwitchRole)
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (id.SessionID, id.UserID, bool) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	sessionID := requestcontext.SessionID(ctx)
	if userID.IsNil() || sessionID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authenticated session required"))
		return id.SessionID{}, id.UserID{}, false
	}
	return sessionID, userID, true
}

// HandleGetRole handles GET /session/role.
func (h *Handler) HandleGetRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, userID, ok := h.principal(w, r)
	if !ok {
		return
	}
	current, err := h.service.CurrentRole(ctx, sessionID, userID)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to read current role",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	roles, err := h.service.AvailableRoles(ctx, userID)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to list available roles",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, RoleStateResponse{CurrentRole: string(current), Roles: roles})
}

// HandleSwitchRole handles POST /session/role.
func (h *Handler) HandleSwitchRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	sessionID, userID, ok := h.principal(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SwitchRoleRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	sess, err := h.service.SwitchRole(ctx, sessionID, userID, req.ParsedRole())
	if err != nil {
		h.logger.WarnContext(ctx, "role switch refused",
			"request_id", requestID,
			"user_id", userID.String(),
			"role", req.Role,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSession(sess))
}
