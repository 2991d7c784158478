//go:build integration

// Run against a disposable database:
//
//	TEST_DATABASE_DSN="host=localhost port=5432 user=stocker password=stocker dbname=stocker_test sslmode=disable" \
//	  go test -tags integration ./internal/infra/database/
package database

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocker-erp/stocker/internal/application/port/outbound"
	"github.com/stocker-erp/stocker/internal/domain/entity"
	"github.com/stocker-erp/stocker/internal/domain/specification"
	"github.com/stocker-erp/stocker/internal/infra/tenant"
	"github.com/stocker-erp/stocker/pkg/apperr"
	"github.com/stocker-erp/stocker/pkg/logger"
)

func integrationFactory(t *testing.T) *Factory {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	ctx := context.Background()
	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(ctx, db))
	return NewFactory(db, NewDefaultRegistry(), logger.NewNop())
}

func integrationTenantCtx(t *testing.T, id uuid.UUID) context.Context {
	t.Helper()
	tc, err := tenant.NewBackground(id, "integration", "")
	require.NoError(t, err)
	return tenant.WithContext(context.Background(), tc)
}

func saveCustomer(t *testing.T, f *Factory, ctx context.Context, code string) *entity.Customer {
	t.Helper()
	uow, err := f.New(ctx)
	require.NoError(t, err)
	defer uow.Close()
	repo, err := outbound.RepositoryFor[*entity.Customer](uow)
	require.NoError(t, err)
	c, err := entity.NewCustomer(code, "Integration "+code, "")
	require.NoError(t, err)
	require.NoError(t, repo.Add(ctx, c))
	n, err := uow.SaveChanges(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	return c
}

func TestPostgresRoundTrip(t *testing.T) {
	f := integrationFactory(t)
	ctx := integrationTenantCtx(t, uuid.New())

	c := saveCustomer(t, f, ctx, "IT-001")

	uow, err := f.New(ctx)
	require.NoError(t, err)
	defer uow.Close()
	repo, err := outbound.ReadRepositoryFor[*entity.Customer](uow)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, c.GetID())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "IT-001", got.Code())
}

func TestPostgresSoftDeleteCycle(t *testing.T) {
	f := integrationFactory(t)
	ctx := integrationTenantCtx(t, uuid.New())
	c := saveCustomer(t, f, ctx, "IT-DEL")

	uow, err := f.New(ctx)
	require.NoError(t, err)
	defer uow.Close()
	repo, err := outbound.RepositoryFor[*entity.Customer](uow)
	require.NoError(t, err)
	require.NoError(t, repo.RemoveByID(ctx, c.GetID()))
	n, err := uow.SaveChanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// default reads exclude the archived row; IncludeDeleted still sees it
	uow2, err := f.New(ctx)
	require.NoError(t, err)
	defer uow2.Close()
	repo2, err := outbound.RepositoryFor[*entity.Customer](uow2)
	require.NoError(t, err)

	got, err := repo2.GetByID(ctx, c.GetID())
	require.NoError(t, err)
	assert.Nil(t, got)

	archived, err := repo2.Single(ctx, specification.NewBuilder[*entity.Customer]().
		Where("ID", specification.Eq, c.GetID()).
		IncludeDeleted().
		MustBuild())
	require.NoError(t, err)
	require.NotNil(t, archived)
	assert.True(t, archived.IsDeleted())

	// a second RemoveByID is a quiet no-op
	require.NoError(t, repo2.RemoveByID(ctx, c.GetID()))
	n, err = uow2.SaveChanges(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPostgresTenantWriteIsolation(t *testing.T) {
	f := integrationFactory(t)
	ctxA := integrationTenantCtx(t, uuid.New())
	ctxB := integrationTenantCtx(t, uuid.New())
	victim := saveCustomer(t, f, ctxA, "IT-VIC")

	uowB, err := f.New(ctxB)
	require.NoError(t, err)
	defer uowB.Close()
	repoB, err := outbound.RepositoryFor[*entity.Customer](uowB)
	require.NoError(t, err)
	require.NoError(t, repoB.RemoveByID(ctxB, victim.GetID()))
	n, err := uowB.SaveChanges(ctxB)
	require.NoError(t, err)
	assert.Zero(t, n)

	uowA, err := f.New(ctxA)
	require.NoError(t, err)
	defer uowA.Close()
	repoA, err := outbound.ReadRepositoryFor[*entity.Customer](uowA)
	require.NoError(t, err)
	got, err := repoA.GetByID(ctxA, victim.GetID())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "IT-VIC", got.Code())
}

func TestPostgresDuplicateCodeConflicts(t *testing.T) {
	f := integrationFactory(t)
	ctx := integrationTenantCtx(t, uuid.New())
	saveCustomer(t, f, ctx, "IT-DUP")

	uow, err := f.New(ctx)
	require.NoError(t, err)
	defer uow.Close()
	repo, err := outbound.RepositoryFor[*entity.Customer](uow)
	require.NoError(t, err)
	dup, err := entity.NewCustomer("IT-DUP", "Second", "")
	require.NoError(t, err)
	require.NoError(t, repo.Add(ctx, dup))
	_, err = uow.SaveChanges(ctx)
	assert.True(t, apperr.IsConflict(err))
}

func TestPostgresTransactionReadYourWrites(t *testing.T) {
	f := integrationFactory(t)
	ctx := integrationTenantCtx(t, uuid.New())

	uow, err := f.New(ctx)
	require.NoError(t, err)
	defer uow.Close()
	require.NoError(t, uow.BeginTransaction(ctx))

	repo, err := outbound.RepositoryFor[*entity.Customer](uow)
	require.NoError(t, err)
	c, err := entity.NewCustomer("IT-TX", "Tx Customer", "")
	require.NoError(t, err)
	require.NoError(t, repo.Add(ctx, c))
	_, err = uow.SaveChanges(ctx)
	require.NoError(t, err)

	// visible inside the transaction, invisible to a second unit of work
	got, err := repo.GetByID(ctx, c.GetID())
	require.NoError(t, err)
	require.NotNil(t, got)

	other, err := f.New(ctx)
	require.NoError(t, err)
	defer other.Close()
	otherRepo, err := outbound.ReadRepositoryFor[*entity.Customer](other)
	require.NoError(t, err)
	unseen, err := otherRepo.GetByID(ctx, c.GetID())
	require.NoError(t, err)
	assert.Nil(t, unseen)

	require.NoError(t, uow.CommitTransaction(ctx))

	seen, err := otherRepo.GetByID(ctx, c.GetID())
	require.NoError(t, err)
	assert.NotNil(t, seen)
}

func TestPostgresPagingTotals(t *testing.T) {
	f := integrationFactory(t)
	ctx := integrationTenantCtx(t, uuid.New())
	for _, code := range []string{"IT-P1", "IT-P2", "IT-P3"} {
		saveCustomer(t, f, ctx, code)
	}

	uow, err := f.New(ctx)
	require.NoError(t, err)
	defer uow.Close()
	repo, err := outbound.ReadRepositoryFor[*entity.Customer](uow)
	require.NoError(t, err)

	page, err := repo.FindPaged(ctx, specification.NewBuilder[*entity.Customer]().
		OrderBy("Code").
		MustBuild(), 2, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.TotalCount)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "IT-P3", page.Items[0].Code())
}
