package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"verigate/internal/verification/catalog"
	"verigate/internal/verification/models"
	"verigate/internal/verification/service"
	id "verigate/pkg/domain"
	dErrors "verigate/pkg/domain-errors"
	"verigate/pkg/platform/httputil"
	"verigate/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service is the verification surface the handler needs.
type Service interface {
	RegisterRole(ctx context.Context, userID id.UserID, role models.Role) (*models.RoleProfile, error)
	Profiles(ctx context.Context, userID id.UserID) ([]*models.RoleProfile, error)
	SavePersonalInfo(ctx context.Context, userID id.UserID, in service.PersonalInfoInput) (*models.PersonalInfo, error)
	Evaluation(ctx context.Context, userID id.UserID, role models.Role) (*models.Evaluation, error)
	Submit(ctx context.Context, userID id.UserID, role models.Role) (*models.RoleProfile, error)
	UploadDocument(ctx context.Context, userID id.UserID, in service.UploadInput) (*models.Document, error)
	ListDocuments(ctx context.Context, userID id.UserID) ([]models.Document, error)
	Approve(ctx context.Context, reviewerID id.ReviewerID, docID id.DocumentID) (*models.Document, error)
	Reject(ctx context.Context, reviewerID id.ReviewerID, docID id.DocumentID, reason string) (*models.Document, error)
	ListPending(ctx context.Context, limit int) ([]models.Document, error)
}

// Handler serves the user-facing KYC endpoints and the reviewer queue.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the user endpoints. The router must already require auth.
func (h *Handler) Register(r chi.Router) {
	r.Get("/kyc/requirements/{role}", h.HandleRequirements)
	r.Put("/kyc/personal-info", h.HandleSavePersonalInfo)
	r.Get("/kyc/roles", h.HandleListRoles)
	r.Post("/kyc/roles/{role}", h.HandleRegisterRole)
	r.Get("/kyc/roles/{role}/evaluation", h.HandleEvaluation)
	r.Post("/kyc/roles/{role}/submit", h.HandleSubmit)
	r.Post("/kyc/documents", h.HandleUploadDocument)
	r.Get("/kyc/documents", h.HandleListDocuments)
}

// RegisterReview mounts the reviewer endpoints. The router must already
// require the reviewer token.
func (h *Handler) RegisterReview(r chi.Router) {
	r.Get("/review/documents", h.HandleListPending)
	r.Post("/review/documents/{id}/approve", h.HandleApprove)
	r.Post("/review/documents/{id}/reject", h.HandleReject)
}

func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (id.UserID, bool) {
	userID := requestcontext.UserID(r.Context())
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.UserID{}, false
	}
	return userID, true
}

func (h *Handler) requireReviewer(w http.ResponseWriter, r *http.Request) (id.ReviewerID, bool) {
	reviewerID := requestcontext.ReviewerID(r.Context())
	if reviewerID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "reviewer identity required"))
		return id.ReviewerID{}, false
	}
	return reviewerID, true
}

func (h *Handler) roleParam(w http.ResponseWriter, r *http.Request) (models.Role, bool) {
	role, err := models.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return role, true
}

// fail logs err at a level matching its status and writes the error body.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error, args ...any) {
	args = append(args, "request_id", requestcontext.RequestID(ctx), "error", err)
	code := dErrors.CodeInternal
	if de, ok := dErrors.As(err); ok {
		code = de.Code
	}
	if httputil.StatusFor(code) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, args...)
	} else {
		h.logger.WarnContext(ctx, msg, args...)
	}
	httputil.WriteError(w, err)
}

// HandleRequirements handles GET /kyc/requirements/{role}.
func (h *Handler) HandleRequirements(w http.ResponseWriter, r *http.Request) {
	role, ok := h.roleParam(w, r)
	if !ok {
		return
	}
	steps, err := catalog.Steps(role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, RequirementsResponse{Role: string(role), Steps: steps})
}

// HandleSavePersonalInfo handles PUT /kyc/personal-info.
func (h *Handler) HandleSavePersonalInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[PersonalInfoRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	info, err := h.service.SavePersonalInfo(ctx, userID, req.Input())
	if err != nil {
		h.fail(ctx, w, "save personal info failed", err, "user_id", userID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, info)
}

// HandleListRoles handles GET /kyc/roles.
func (h *Handler) HandleListRoles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	profiles, err := h.service.Profiles(ctx, userID)
	if err != nil {
		h.fail(ctx, w, "list profiles failed", err, "user_id", userID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ProfileListResponse{Roles: FromProfiles(profiles)})
}

// HandleRegisterRole handles POST /kyc/roles/{role}.
func (h *Handler) HandleRegisterRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	role, ok := h.roleParam(w, r)
	if !ok {
		return
	}
	p, err := h.service.RegisterRole(ctx, userID, role)
	if err != nil {
		h.fail(ctx, w, "register role failed", err, "user_id", userID.String(), "role", string(role))
		return
	}
	h.logger.InfoContext(ctx, "role registered",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", userID.String(),
		"role", string(role),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromProfile(p))
}

// HandleEvaluation handles GET /kyc/roles/{role}/evaluation.
func (h *Handler) HandleEvaluation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	role, ok := h.roleParam(w, r)
	if !ok {
		return
	}
	eval, err := h.service.Evaluation(ctx, userID, role)
	if err != nil {
		h.fail(ctx, w, "evaluation failed", err, "user_id", userID.String(), "role", string(role))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromEvaluation(eval))
}

// HandleSubmit handles POST /kyc/roles/{role}/submit.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	role, ok := h.roleParam(w, r)
	if !ok {
		return
	}
	p, err := h.service.Submit(ctx, userID, role)
	if err != nil {
		h.fail(ctx, w, "submission refused", err, "user_id", userID.String(), "role", string(role))
		return
	}
	h.logger.InfoContext(ctx, "profile submitted",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", userID.String(),
		"role", string(role),
	)
	httputil.WriteJSON(w, http.StatusOK, FromProfile(p))
}

// HandleUploadDocument handles POST /kyc/documents.
func (h *Handler) HandleUploadDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UploadDocumentRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	doc, err := h.service.UploadDocument(ctx, userID, req.Input())
	if err != nil {
		h.fail(ctx, w, "document upload failed", err, "user_id", userID.String(), "type", req.Type)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromDocument(doc))
}

// HandleListDocuments handles GET /kyc/documents.
func (h *Handler) HandleListDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	docs, err := h.service.ListDocuments(ctx, userID)
	if err != nil {
		h.fail(ctx, w, "list documents failed", err, "user_id", userID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, DocumentListResponse{Documents: FromDocuments(docs)})
}

// HandleListPending handles GET /review/documents?limit=N.
func (h *Handler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireReviewer(w, r); !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = n
	}
	docs, err := h.service.ListPending(ctx, limit)
	if err != nil {
		h.fail(ctx, w, "list pending documents failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, DocumentListResponse{Documents: FromDocuments(docs)})
}

// HandleApprove handles POST /review/documents/{id}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reviewerID, ok := h.requireReviewer(w, r)
	if !ok {
		return
	}
	docID, err := id.ParseDocumentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	doc, err := h.service.Approve(ctx, reviewerID, docID)
	if err != nil {
		h.fail(ctx, w, "approve failed", err, "document_id", docID.String(), "reviewer_id", reviewerID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDocument(doc))
}

// HandleReject handles POST /review/documents/{id}/reject.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reviewerID, ok := h.requireReviewer(w, r)
	if !ok {
		return
	}
	docID, err := id.ParseDocumentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[RejectRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	doc, err := h.service.Reject(ctx, reviewerID, docID, req.Reason)
	if err != nil {
		h.fail(ctx, w, "reject failed", err, "document_id", docID.String(), "reviewer_id", reviewerID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDocument(doc))
}
