package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"tuition/internal/ledger/models"
	dErrors "tuition/pkg/domain-errors"
	"tuition/pkg/platform/httputil"
	"tuition/pkg/requestcontext"

	"github.com/go-chi/chi/v5"
)

//go:generate mockgen -source=handler.go -destination=mocks/ledger-mocks.go -package=mocks Service

// Service defines the ledger operations exposed over HTTP.
type Service interface {
	CreatePayment(ctx context.Context, req *models.CreatePaymentRequest) (*models.Payment, error)
	ListPayments(ctx context.Context, filter models.ListFilter) ([]*models.Payment, error)
}

// Handler serves the ledger endpoints under a base path such as /api/payments.
type Handler struct {
	service  Service
	basePath string
	logger   *slog.Logger
}

func New(service Service, basePath string, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		basePath: basePath,
		logger:   logger,
	}
}

// Register mounts the ledger routes under the full base path.
func (h *Handler) Register(r chi.Router) {
	r.Post(h.basePath+"/payment", h.HandleCreatePayment)
	r.Get(h.basePath+"/payments", h.HandleListPayments)
}

// HandleCreatePayment implements POST {base}/payment.
//
// Input: { "userId": 1, "amount": 500 }
// Output: 201 { "id": 1, "userId": 1, "amount": 500 }
func (h *Handler) HandleCreatePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[models.CreatePaymentRequest](w, r, h.logger)
	if !ok {
		return
	}

	payment, err := h.service.CreatePayment(ctx, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "create payment failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, models.ToResponse(payment))
}

// HandleListPayments implements GET {base}/payments[?userId=N].
func (h *Handler) HandleListPayments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var filter models.ListFilter
	if raw := r.URL.Query().Get("userId"); raw != "" {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "userId must be an integer"))
			return
		}
		filter.UserID = &userID
	}

	payments, err := h.service.ListPayments(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "list payments failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, models.ToResponses(payments))
}
