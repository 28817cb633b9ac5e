package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"tuition/internal/identity/metrics"
	"tuition/internal/identity/models"
	"tuition/internal/sentinel"
	dErrors "tuition/pkg/domain-errors"
	"tuition/pkg/requestcontext"

	"golang.org/x/crypto/bcrypt"
)

//go:generate mockgen -source=service.go -destination=mocks/store-mocks.go -package=mocks UserStore

// UserStore persists users and assigns their ids.
type UserStore interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

// Service registers and lists users.
type Service struct {
	users      UserStore
	bcryptCost int
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithBcryptCost sets the password hashing cost. Default is bcrypt.DefaultCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

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

// New creates an identity Service.
func New(users UserStore, opts ...Option) *Service {
	s := &Service{
		users:      users,
		bcryptCost: bcrypt.DefaultCost,
		logger:     slog.New(slog.DiscardHandler),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a user. The request must already be normalized and
// validated. Only the bcrypt hash of the password is stored.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	start := s.now()

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, dErrors.New(dErrors.CodeValidation, "password must be at most 72 bytes")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	user, err := s.users.Create(ctx, &models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		CreatedAt:    start.UTC(),
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			s.logger.InfoContext(ctx, "registration rejected: email already registered",
				"request_id", requestcontext.RequestID(ctx),
			)
			if s.metrics != nil {
				s.metrics.DuplicateEmails.Inc()
			}
			return nil, dErrors.Wrap(err, dErrors.CodeDuplicateEmail, "email already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register user")
	}

	if s.metrics != nil {
		s.metrics.UsersRegistered.Inc()
		s.metrics.RegisterDuration.Observe(s.now().Sub(start).Seconds())
	}
	s.logger.InfoContext(ctx, "user registered",
		"user_id", user.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return user, nil
}

// ListUsers returns every user in id order.
func (s *Service) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	return users, nil
}

// GetUser returns one user.
func (s *Service) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user, nil
}
