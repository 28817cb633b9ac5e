package user

import (
	"context"
	"fmt"
	"testing"
	"time"

	"tuition/internal/identity/models"
	"tuition/internal/platform/database"
	"tuition/internal/sentinel"
	"tuition/migrations"
	"tuition/pkg/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// Store is the behaviour shared by every user store implementation.
type Store interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	Ping(ctx context.Context) error
}

// StoreSuite runs the same behavioural checks against each backend.
type StoreSuite struct {
	suite.Suite
	ctx      context.Context
	newStore func(t *testing.T) Store
	store    Store
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.newStore(s.T())
}

func TestInMemoryStore(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func(*testing.T) Store { return NewInMemory() }})
}

func TestSQLiteStore(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func(t *testing.T) Store {
		ctx := context.Background()
		pool, err := database.OpenSQLite(ctx, ":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { _ = pool.Close() })
		require.NoError(t, pool.Migrate(ctx, migrations.IdentitySQLite))
		return NewSQLite(pool.DB())
	}})
}

func newUser(name, email string) *models.User {
	return &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: "$2a$04$hash",
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func (s *StoreSuite) TestCreateAssignsIncreasingIDs() {
	var last int64
	for i := range 5 {
		u, err := s.store.Create(s.ctx, newUser("user", fmt.Sprintf("u%d@x.com", i)))
		s.Require().NoError(err)
		s.Greater(u.ID, last)
		last = u.ID
	}
}

func (s *StoreSuite) TestCreateRejectsDuplicateEmail() {
	first, err := s.store.Create(s.ctx, newUser("Ana", "ana@x.com"))
	s.Require().NoError(err)

	_, err = s.store.Create(s.ctx, newUser("Other Ana", "ana@x.com"))
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)

	users, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 1)
	s.Equal(first.ID, users[0].ID)
	s.Equal("Ana", users[0].Name)
}

func (s *StoreSuite) TestEmailStoredVerbatimButUniqueIgnoringCase() {
	first, err := s.store.Create(s.ctx, newUser(" Ana ", " Ana@X.com"))
	s.Require().NoError(err)
	s.Equal(" Ana@X.com", first.Email)

	_, err = s.store.Create(s.ctx, newUser("Ana", "ana@x.COM  "))
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)

	users, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 1)
	s.Equal(" Ana ", users[0].Name)
	s.Equal(" Ana@X.com", users[0].Email)
}

func (s *StoreSuite) TestListInInsertionOrder() {
	for _, email := range []string{"c@x.com", "a@x.com", "b@x.com"} {
		_, err := s.store.Create(s.ctx, newUser("n", email))
		s.Require().NoError(err)
	}

	users, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 3)
	s.Equal("c@x.com", users[0].Email)
	s.Equal("a@x.com", users[1].Email)
	s.Equal("b@x.com", users[2].Email)
	s.Equal("$2a$04$hash", users[0].PasswordHash)
}

func (s *StoreSuite) TestListEmpty() {
	users, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.NotNil(users)
	s.Empty(users)
}

func (s *StoreSuite) TestListIsRepeatable() {
	_, err := s.store.Create(s.ctx, newUser("Ana", "ana@x.com"))
	s.Require().NoError(err)

	first, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	second, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Equal(first, second)
}

func (s *StoreSuite) TestFindByID() {
	created, err := s.store.Create(s.ctx, newUser("Ana", "ana@x.com"))
	s.Require().NoError(err)

	found, err := s.store.FindByID(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal("ana@x.com", found.Email)
	s.Equal(created.CreatedAt, found.CreatedAt)

	_, err = s.store.FindByID(s.ctx, created.ID+100)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *StoreSuite) TestConcurrentDuplicateRegistration() {
	result := testutil.RunConcurrent(20, func(int) error {
		_, err := s.store.Create(s.ctx, newUser("Ana", "ana@x.com"))
		return err
	})

	s.Equal(int32(1), result.Successes)
	s.Equal(int32(19), result.Conflicts)
	s.Zero(result.Errors)
}

func (s *StoreSuite) TestConcurrentRegistrationGetsDistinctIDs() {
	ids, errs := testutil.CollectConcurrent(20, func(idx int) (int64, error) {
		u, err := s.store.Create(s.ctx, newUser("user", fmt.Sprintf("u%d@x.com", idx)))
		if err != nil {
			return 0, err
		}
		return u.ID, nil
	})

	s.Empty(errs)
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	s.Len(seen, 20)
}

func (s *StoreSuite) TestPing() {
	s.NoError(s.store.Ping(s.ctx))
}

func TestInMemoryStoreReturnsCopies(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	created, err := store.Create(ctx, newUser("Ana", "ana@x.com"))
	require.NoError(t, err)

	created.Name = "mutated"
	users, err := store.List(ctx)
	require.NoError(t, err)
	users[0].Email = "mutated@x.com"

	found, err := store.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", found.Name)
	assert.Equal(t, "ana@x.com", found.Email)
}
