package reconcile

import (
	"context"
	"log/slog"
	"testing"

	"tuition/internal/client"
	"tuition/internal/reconcile/mocks"
	dErrors "tuition/pkg/domain-errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newService(t *testing.T) (*mocks.MockSource, *Service) {
	t.Helper()
	src := mocks.NewMockSource(gomock.NewController(t))
	return src, New(src, slog.New(slog.DiscardHandler))
}

func TestFindOrphans(t *testing.T) {
	t.Run("payment for unknown user is reported", func(t *testing.T) {
		src, svc := newService(t)
		src.EXPECT().ListUsers(gomock.Any()).Return([]client.User{{ID: 1, Name: "Ana"}}, nil)
		src.EXPECT().ListPayments(gomock.Any(), nil).Return([]client.Payment{
			{ID: 1, UserID: 1, Amount: 500},
			{ID: 2, UserID: 999999, Amount: 10},
			{ID: 3, UserID: 42, Amount: 1},
			{ID: 4, UserID: 999999, Amount: 20},
		}, nil)

		report, err := svc.FindOrphans(context.Background())

		require.NoError(t, err)
		assert.False(t, report.Consistent())
		assert.Equal(t, 1, report.Users)
		assert.Equal(t, 4, report.Payments)
		assert.Equal(t, []int64{2, 3, 4}, paymentIDs(report.Orphans))
		assert.Equal(t, []int64{42, 999999}, report.OrphanedUserIDs)
	})

	t.Run("consistent stores", func(t *testing.T) {
		src, svc := newService(t)
		src.EXPECT().ListUsers(gomock.Any()).Return([]client.User{{ID: 1}, {ID: 2}}, nil)
		src.EXPECT().ListPayments(gomock.Any(), nil).Return([]client.Payment{{ID: 1, UserID: 2}}, nil)

		report, err := svc.FindOrphans(context.Background())

		require.NoError(t, err)
		assert.True(t, report.Consistent())
		assert.NotNil(t, report.Orphans)
		assert.Empty(t, report.OrphanedUserIDs)
	})

	t.Run("empty stores", func(t *testing.T) {
		src, svc := newService(t)
		src.EXPECT().ListUsers(gomock.Any()).Return(nil, nil)
		src.EXPECT().ListPayments(gomock.Any(), nil).Return(nil, nil)

		report, err := svc.FindOrphans(context.Background())

		require.NoError(t, err)
		assert.True(t, report.Consistent())
		assert.Zero(t, report.Users)
	})

	t.Run("listing failure aborts the report", func(t *testing.T) {
		src, svc := newService(t)
		outage := &client.InfrastructureError{Code: dErrors.CodeUpstreamUnavailable}
		src.EXPECT().ListUsers(gomock.Any()).Return(nil, outage)
		src.EXPECT().ListPayments(gomock.Any(), nil).Return([]client.Payment{{ID: 1, UserID: 5}}, nil).AnyTimes()

		report, err := svc.FindOrphans(context.Background())

		require.Error(t, err)
		assert.True(t, client.IsInfrastructure(err))
		assert.Empty(t, report.Orphans)
	})
}

func paymentIDs(ps []client.Payment) []int64 {
	ids := make([]int64, 0, len(ps))
	for _, p := range ps {
		ids = append(ids, p.ID)
	}
	return ids
}
