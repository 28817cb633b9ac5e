package service

import (
	"context"
	"log/slog"
	"time"

	"tuition/internal/ledger/metrics"
	"tuition/internal/ledger/models"
	dErrors "tuition/pkg/domain-errors"
	"tuition/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/store-mocks.go -package=mocks PaymentStore

// PaymentStore persists payments and assigns their ids.
type PaymentStore interface {
	Create(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Payment, error)
}

// Service records and lists payments. It never consults the identity
// store: a payment for an unknown user is recorded like any other.
type Service struct {
	payments PaymentStore
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a ledger Service.
func New(payments PaymentStore, opts ...Option) *Service {
	s := &Service{
		payments: payments,
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreatePayment records a payment. The request must already be validated.
func (s *Service) CreatePayment(ctx context.Context, req *models.CreatePaymentRequest) (*models.Payment, error) {
	payment, err := s.payments.Create(ctx, &models.Payment{
		UserID:    *req.UserID,
		Amount:    *req.Amount,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record payment")
	}

	if s.metrics != nil {
		s.metrics.PaymentsRecorded.Inc()
		if payment.Amount > 0 {
			s.metrics.AmountRecorded.Add(payment.Amount)
		}
	}
	s.logger.InfoContext(ctx, "payment recorded",
		"payment_id", payment.ID,
		"user_id", payment.UserID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return payment, nil
}

// ListPayments returns payments in id order, optionally for one user.
func (s *Service) ListPayments(ctx context.Context, filter models.ListFilter) ([]*models.Payment, error) {
	payments, err := s.payments.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list payments")
	}
	return payments, nil
}
