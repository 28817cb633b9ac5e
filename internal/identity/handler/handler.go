package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"tuition/internal/identity/models"
	dErrors "tuition/pkg/domain-errors"
	"tuition/pkg/platform/httputil"
	"tuition/pkg/requestcontext"

	"github.com/go-chi/chi/v5"
)

//go:generate mockgen -source=handler.go -destination=mocks/identity-mocks.go -package=mocks Service

// Service defines the identity operations exposed over HTTP.
type Service interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
}

// Handler serves the identity endpoints under a base path such as /api/auth.
type Handler struct {
	service  Service
	basePath string
	logger   *slog.Logger
}

// New creates an identity Handler.
func New(service Service, basePath string, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		basePath: basePath,
		logger:   logger,
	}
}

// Register mounts the identity routes. Paths include the base path because
// the router forwards request paths unmodified.
func (h *Handler) Register(r chi.Router) {
	r.Post(h.basePath+"/register", h.HandleRegister)
	r.Get(h.basePath+"/users", h.HandleListUsers)
	r.Get(h.basePath+"/users/{id}", h.HandleGetUser)
}

// HandleRegister implements POST {base}/register.
//
// Input: { "name": "Ana", "email": "ana@x.com", "password": "..." }
// Output: 201 { "id": 1, "name": "Ana", "email": "ana@x.com" }
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.RegisterRequest](w, r, h.logger)
	if !ok {
		return
	}

	user, err := h.service.Register(ctx, req)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "register failed", "error", err, "request_id", requestID)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, models.ToResponse(user))
}

// HandleListUsers implements GET {base}/users.
func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := h.service.ListUsers(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list users failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, models.ToResponses(users))
}

// HandleGetUser implements GET {base}/users/{id}.
func (h *Handler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "user id must be an integer"))
		return
	}

	user, err := h.service.GetUser(ctx, id)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "get user failed",
				"error", err,
				"user_id", id,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, models.ToResponse(user))
}
