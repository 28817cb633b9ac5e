//go:build integration

package payment

import (
	"context"
	"testing"

	"tuition/migrations"
	"tuition/pkg/testutil/containers"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestPostgresStoreIntegration(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func(t *testing.T) Store {
		pg := containers.GetManager().GetPostgres(t, migrations.LedgerPostgres)
		require.NoError(t, pg.Reset(context.Background(), "payments"))
		return NewPostgres(pg.DB)
	}})
}
