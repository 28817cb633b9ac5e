package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"tuition/internal/ledger/metrics"
	"tuition/internal/ledger/models"
	"tuition/internal/ledger/service/mocks"
	"tuition/internal/ledger/store/payment"
	dErrors "tuition/pkg/domain-errors"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func ptr[T any](v T) *T { return &v }

func TestCreatePayment(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	t.Run("records exactly what was submitted", func(t *testing.T) {
		store := mocks.NewMockPaymentStore(gomock.NewController(t))
		m := metrics.New(prometheus.NewRegistry())
		svc := New(store, WithMetrics(m), WithClock(func() time.Time { return now }))

		store.EXPECT().
			Create(gomock.Any(), &models.Payment{UserID: 1, Amount: 500, CreatedAt: now}).
			Return(&models.Payment{ID: 1, UserID: 1, Amount: 500, CreatedAt: now}, nil)

		p, err := svc.CreatePayment(context.Background(), &models.CreatePaymentRequest{UserID: ptr(int64(1)), Amount: ptr(500.0)})

		require.NoError(t, err)
		assert.Equal(t, int64(1), p.ID)
		assert.Equal(t, 1.0, promtest.ToFloat64(m.PaymentsRecorded))
		assert.Equal(t, 500.0, promtest.ToFloat64(m.AmountRecorded))
	})

	t.Run("negative amounts are recorded but not summed", func(t *testing.T) {
		store := mocks.NewMockPaymentStore(gomock.NewController(t))
		m := metrics.New(prometheus.NewRegistry())
		svc := New(store, WithMetrics(m))

		store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(&models.Payment{ID: 3, UserID: 1, Amount: -5}, nil)

		_, err := svc.CreatePayment(context.Background(), &models.CreatePaymentRequest{UserID: ptr(int64(1)), Amount: ptr(-5.0)})

		require.NoError(t, err)
		assert.Equal(t, 1.0, promtest.ToFloat64(m.PaymentsRecorded))
		assert.Zero(t, promtest.ToFloat64(m.AmountRecorded))
	})

	t.Run("store failure is internal", func(t *testing.T) {
		store := mocks.NewMockPaymentStore(gomock.NewController(t))
		store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, errors.New("disk full"))

		_, err := New(store).CreatePayment(context.Background(), &models.CreatePaymentRequest{UserID: ptr(int64(1)), Amount: ptr(1.0)})

		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func TestListPaymentsPassesFilter(t *testing.T) {
	store := mocks.NewMockPaymentStore(gomock.NewController(t))
	filter := models.ListFilter{UserID: ptr(int64(7))}
	store.EXPECT().List(gomock.Any(), filter).Return([]*models.Payment{{ID: 4, UserID: 7, Amount: 1}}, nil)

	payments, err := New(store).ListPayments(context.Background(), filter)

	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, int64(7), payments[0].UserID)
}

// A payment for a user id that was never registered is accepted and listed
// like any other.
func TestOrphanPaymentIsRecorded(t *testing.T) {
	ctx := context.Background()
	svc := New(payment.NewInMemory())

	p, err := svc.CreatePayment(ctx, &models.CreatePaymentRequest{UserID: ptr(int64(999999)), Amount: ptr(10.0)})
	require.NoError(t, err)

	payments, err := svc.ListPayments(ctx, models.ListFilter{})
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, p.ID, payments[0].ID)
	assert.Equal(t, int64(999999), payments[0].UserID)
	assert.Equal(t, 10.0, payments[0].Amount)
}
