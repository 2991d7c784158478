package customer

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocker-erp/stocker/internal/application/port/outbound"
	"github.com/stocker-erp/stocker/internal/domain/entity"
	"github.com/stocker-erp/stocker/internal/infra/memstore"
	"github.com/stocker-erp/stocker/internal/infra/tenant"
	"github.com/stocker-erp/stocker/pkg/apperr"
	"github.com/stocker-erp/stocker/pkg/logger"
)

func newFactory(t *testing.T) outbound.UnitOfWorkFactory {
	t.Helper()
	store := memstore.NewStore(logger.NewNop())
	memstore.RegisterEntity[*entity.Customer](store)
	memstore.RegisterEntity[*entity.OutboxEvent](store)
	return memstore.NewFactory(store)
}

func tenantCtx(t *testing.T) context.Context {
	t.Helper()
	tc, err := tenant.NewBackground(uuid.New(), "acme-corp", "")
	require.NoError(t, err)
	return tenant.WithContext(context.Background(), tc)
}

func countOutbox(t *testing.T, f outbound.UnitOfWorkFactory) int {
	t.Helper()
	uow, err := f.New(context.Background())
	require.NoError(t, err)
	defer uow.Close()
	repo, err := outbound.RepositoryFor[*entity.OutboxEvent](uow)
	require.NoError(t, err)
	rows, err := repo.GetAll(context.Background())
	require.NoError(t, err)
	return len(rows)
}

func TestCreate(t *testing.T) {
	f := newFactory(t)
	ctx := tenantCtx(t)
	uc := NewCreateUseCase(f)

	out, err := uc.Execute(ctx, CreateInput{Code: "CUST-001", Name: "Acme", Email: "billing@acme.test"})
	require.NoError(t, err)
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, "CUST-001", out.Code)

	// the integration event landed in the same save
	assert.Equal(t, 1, countOutbox(t, f))

	t.Run("duplicate code conflicts", func(t *testing.T) {
		_, err := uc.Execute(ctx, CreateInput{Code: "CUST-001", Name: "Other"})
		assert.True(t, apperr.IsConflict(err))
		// the failed attempt staged nothing
		assert.Equal(t, 1, countOutbox(t, f))
	})

	t.Run("validation failure surfaces the domain error", func(t *testing.T) {
		_, err := uc.Execute(ctx, CreateInput{Code: "", Name: "No Code"})
		assert.ErrorIs(t, err, entity.ErrCodeIsRequired)
	})
}

func TestArchiveAndRestore(t *testing.T) {
	f := newFactory(t)
	ctx := tenantCtx(t)

	created, err := NewCreateUseCase(f).Execute(ctx, CreateInput{Code: "CUST-001", Name: "Acme"})
	require.NoError(t, err)

	archive := NewArchiveUseCase(f)
	require.NoError(t, archive.Execute(ctx, created.ID))

	// gone from default listings
	listed, err := NewListUseCase(f).Execute(ctx, ListInput{})
	require.NoError(t, err)
	assert.Empty(t, listed.Items)
	assert.Zero(t, listed.TotalCount)

	// archiving again or archiving an unknown id is a quiet no-op
	require.NoError(t, archive.Execute(ctx, created.ID))
	require.NoError(t, archive.Execute(ctx, uuid.NewString()))

	restored, err := NewRestoreUseCase(f).Execute(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, restored.ID)

	listed, err = NewListUseCase(f).Execute(ctx, ListInput{})
	require.NoError(t, err)
	require.Len(t, listed.Items, 1)

	t.Run("restoring an unknown id is not found", func(t *testing.T) {
		_, err := NewRestoreUseCase(f).Execute(ctx, uuid.NewString())
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("bad ids are rejected up front", func(t *testing.T) {
		assert.True(t, apperr.IsInvalidArgument(archive.Execute(ctx, "not-a-uuid")))
		_, err := NewRestoreUseCase(f).Execute(ctx, "not-a-uuid")
		assert.True(t, apperr.IsInvalidArgument(err))
	})
}

func TestList(t *testing.T) {
	f := newFactory(t)
	ctx := tenantCtx(t)
	create := NewCreateUseCase(f)
	for _, c := range []struct{ code, name string }{
		{"C-01", "Acme North"},
		{"C-02", "Acme South"},
		{"C-03", "Globex"},
	} {
		_, err := create.Execute(ctx, CreateInput{Code: c.code, Name: c.name})
		require.NoError(t, err)
	}
	uc := NewListUseCase(f)

	t.Run("search narrows by name", func(t *testing.T) {
		out, err := uc.Execute(ctx, ListInput{Search: "Acme"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), out.TotalCount)
		require.Len(t, out.Items, 2)
		assert.Equal(t, "Acme North", out.Items[0].Name)
	})

	t.Run("paging defaults apply", func(t *testing.T) {
		out, err := uc.Execute(ctx, ListInput{PageIndex: 0, PageSize: 0})
		require.NoError(t, err)
		assert.Equal(t, 1, out.PageIndex)
		assert.Equal(t, defaultPageSize, out.PageSize)
		assert.Equal(t, int64(3), out.TotalCount)
	})

	t.Run("page window", func(t *testing.T) {
		out, err := uc.Execute(ctx, ListInput{PageIndex: 2, PageSize: 2})
		require.NoError(t, err)
		require.Len(t, out.Items, 1)
		assert.Equal(t, int64(3), out.TotalCount)
	})
}
