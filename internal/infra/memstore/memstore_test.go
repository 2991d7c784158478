package memstore

import (
	"context"
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

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(logger.NewNop())
	RegisterEntity[*entity.Customer](s)
	RegisterEntity[*entity.Invoice](s)
	RegisterEntity[*entity.NumberSequence](s)
	RegisterEntity[*entity.OutboxEvent](s)
	return s
}

func tenantCtx(t *testing.T, id uuid.UUID) context.Context {
	t.Helper()
	tc, err := tenant.NewBackground(id, "test-tenant", "")
	require.NoError(t, err)
	return tenant.WithContext(context.Background(), tc)
}

func newUow(t *testing.T, f *Factory, ctx context.Context) outbound.UnitOfWork {
	t.Helper()
	uow, err := f.New(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = uow.Close() })
	return uow
}

func addCustomer(t *testing.T, f *Factory, ctx context.Context, code, name string) *entity.Customer {
	t.Helper()
	uow := newUow(t, f, ctx)
	repo, err := outbound.RepositoryFor[*entity.Customer](uow)
	require.NoError(t, err)
	c, err := entity.NewCustomer(code, name, "")
	require.NoError(t, err)
	require.NoError(t, repo.Add(ctx, c))
	n, err := uow.SaveChanges(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	return c
}

func TestRepositoryIdentityStability(t *testing.T) {
	f := NewFactory(newTestStore(t))
	ctx := tenantCtx(t, uuid.New())
	uow := newUow(t, f, ctx)

	r1, err := outbound.RepositoryFor[*entity.Customer](uow)
	require.NoError(t, err)
	r2, err := outbound.RepositoryFor[*entity.Customer](uow)
	require.NoError(t, err)
	assert.Same(t, r1.(*repository[*entity.Customer]), r2.(*repository[*entity.Customer]))

	// the read view is the same underlying repository, not a second
	// independent instance with its own buffer
	rr, err := outbound.ReadRepositoryFor[*entity.Customer](uow)
	require.NoError(t, err)
	assert.Same(t, r1.(*repository[*entity.Customer]), rr.(*repository[*entity.Customer]))
}

func TestUnregisteredEntityType(t *testing.T) {
	s := NewStore(logger.NewNop())
	RegisterEntity[*entity.Customer](s)
	f := NewFactory(s)
	uow := newUow(t, f, tenantCtx(t, uuid.New()))

	_, err := outbound.RepositoryFor[*entity.Invoice](uow)

	assert.True(t, apperr.IsInvalidOperation(err))
}

func TestStagedWritesAreInvisibleUntilSave(t *testing.T) {
	f := NewFactory(newTestStore(t))
	ctx := tenantCtx(t, uuid.New())
	uow := newUow(t, f, ctx)
	repo, err := outbound.RepositoryFor[*entity.Customer](uow)
	require.NoError(t, err)

	c, err := entity.NewCustomer("CUST-001", "Acme", "")
	require.NoError(t, err)
	require.NoError(t, repo.Add(ctx, c))

	got, err := repo.GetByID(ctx, c.GetID())
	require.NoError(t, err)
	assert.Nil(t, got, "staged add is not visible before SaveChanges")

	n, err := uow.SaveChanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err = repo.GetByID(ctx, c.GetID())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "CUST-001", got.Code())
}

func TestSoftDeleteVisibilityCycle(t *testing.T) {
	f := NewFactory(newTestStore(t))
	ctx := tenantCtx(t, uuid.New())
	c := addCustomer(t, f, ctx, "CUST-001", "Acme")

	// archive
	uow := newUow(t, f, ctx)
	repo, err := outbound.RepositoryFor[*entity.Customer](uow)
	require.NoError(t, err)
	loaded, err := repo.GetByID(ctx, c.GetID())
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.NoError(t, repo.Remove(ctx, loaded))
	_, err = uow.SaveChanges(ctx)
	require.NoError(t, err)

	// default read paths exclude the archived row
	got, err := repo.GetByID(ctx, c.GetID())
	require.NoError(t, err)
	assert.Nil(t, got)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	n, err := repo.Count(ctx, specification.All[*entity.Customer]())
	require.NoError(t, err)
	assert.Zero(t, n)

	// explicit opt-in sees it
	withDeleted := specification.NewBuilder[*entity.Customer]().IncludeDeleted().MustBuild()
	archived, err := repo.Find(ctx, withDeleted)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.True(t, archived[0].IsDeleted())
	assert.NotNil(t, archived[0].DeletedAt())

	// restore and it reappears with cleared deletion marks
	archived[0].Restore()
	require.NoError(t, repo.Update(ctx, archived[0]))
	_, err = uow.SaveChanges(ctx)
	require.NoError(t, err)

	restored, err := repo.GetByID(ctx, c.GetID())
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.False(t, restored.IsDeleted())
	assert.Nil(t, restored.DeletedAt())
	assert.Empty(t, restored.DeletedBy())
}

func TestRemoveByID_IdempotentOnMissingID(t *testing.T) {
	f := NewFactory(newTestStore(t))
	ctx := tenantCtx(t, uuid.New())
	uow := newUow(t, f, ctx)
	repo, err := outbound.RepositoryFor[*entity.Customer](uow)
	require.NoError(t, err)

	require.NoError(t, repo.RemoveByID(ctx, uuid.New()))

	n, err := uow.SaveChanges(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "missing id is a successful no-op")
}

func TestPagingContract(t *testing.T) {
	f := NewFactory(newTestStore(t))
	ctx := tenantCtx(t, uuid.New())
	for _, code := range []string{"C-01", "C-02", "C-03", "C-04", "C-05", "C-06", "C-07"} {
		addCustomer(t, f, ctx, code, "Customer "+code)
	}

	uow := newUow(t, f, ctx)
	repo, err := outbound.RepositoryFor[*entity.Customer](uow)
	require.NoError(t, err)
	spec := specification.NewBuilder[*entity.Customer]().OrderBy("Code").MustBuild()

	page1, err := repo.FindPaged(ctx, spec, 1, 3)
	require.NoError(t, err)
	assert.Len(t, page1.Items, 3)
	assert.Equal(t, int64(7), page1.TotalCount)
	assert.Equal(t, "C-01", page1.Items[0].Code())

	page3, err := repo.FindPaged(ctx, spec, 3, 3)
	require.NoError(t, err)
	assert.Len(t, page3.Items, 1)
	assert.Equal(t, int64(7), page3.TotalCount)

	// a page past the end is empty with the same correct total
	page9, err := repo.FindPaged(ctx, spec, 9, 3)
	require.NoError(t, err)
	assert.Empty(t, page9.Items)
	assert.Equal(t, int64(7), page9.TotalCount)

	_, err = repo.FindPaged(ctx, spec, 0, 3)
	assert.True(t, apperr.IsInvalidArgument(err))
	_, err = repo.FindPaged(ctx, spec, 1, 0)
	assert.True(t, apperr.IsInvalidArgument(err))
}

func TestFindIsDeterministic(t *testing.T) {
	f := NewFactory(newTestStore(t))
	ctx := tenantCtx(t, uuid.New())
	addCustomer(t, f, ctx, "B-01", "Beta")
	addCustomer(t, f, ctx, "A-01", "Alpha")
	addCustomer(t, f, ctx, "A-02", "Alpha")

	uow := newUow(t, f, ctx)
	repo, err := outbound.RepositoryFor[*entity.Customer](uow)
	require.NoError(t, err)
	spec := specification.NewBuilder[*entity.Customer]().OrderBy("Name").OrderByDesc("Code").MustBuild()

	first, err := repo.Find(ctx, spec)
	require.NoError(t, err)
	second, err := repo.Find(ctx, spec)
	require.NoError(t, err)

	require.Len(t, first, 3)
	assert.Equal(t, "A-02", first[0].Code(), "tie on Name broken by Code descending")
	assert.Equal(t, "A-01", first[1].Code())
	assert.Equal(t, "B-01", first[2].Code())
	for i := range first {
		assert.Equal(t, first[i].GetID(), second[i].GetID())
	}
}

func TestSingle(t *testing.T) {
	f := NewFactory(newTestStore(t))
	ctx := tenantCtx(t, uuid.New())
	addCustomer(t, f, ctx, "C-01", "Acme")
	addCustomer(t, f, ctx, "C-02", "Acme")

	uow := newUow(t, f, ctx)
	repo, err := outbound.RepositoryFor[*entity.Customer](uow)
	require.NoError(t, err)

	one, err := repo.Single(ctx, specification.NewBuilder[*entity.Customer]().Where("Code", specification.Eq, "C-01").MustBuild())
	require.NoError(t, err)
	require.NotNil(t, one)

	none, err := repo.Single(ctx, specification.NewBuilder[*entity.Customer]().Where("Code", specification.Eq, "C-09").MustBuild())
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = repo.Single(ctx, specification.NewBuilder[*entity.Customer]().Where("Name", specification.Eq, "Acme").MustBuild())
	assert.ErrorIs(t, err, outbound.ErrMultipleMatches)
}

func TestTransactionStateMisuse(t *testing.T) {
	f := NewFactory(newTestStore(t))
	ctx := tenantCtx(t, uuid.New())

	t.Run("begin while active", func(t *testing.T) {
		uow := newUow(t, f, ctx)
		require.NoError(t, uow.BeginTransaction(ctx))
		err := uow.BeginTransaction(ctx)
		assert.ErrorIs(t, err, outbound.ErrTransactionActive)
		assert.True(t, apperr.IsInvalidOperation(err))
	})

	t.Run("commit without transaction", func(t *testing.T) {
		uow := newUow(t, f, ctx)
		assert.ErrorIs(t, uow.CommitTransaction(ctx), outbound.ErrNoActiveTransaction)
	})

	t.Run("rollback without transaction", func(t *testing.T) {
		uow := newUow(t, f, ctx)
		assert.ErrorIs(t, uow.RollbackTransaction(ctx), outbound.ErrNoActiveTransaction)
	})
}

func TestRollbackDiscardsStagedWrites(t *testing.T) {
	f := NewFactory(newTestStore(t))
	ctx := tenantCtx(t, uuid.New())
	existing := addCustomer(t, f, ctx, "C-01", "Acme")

	uow := newUow(t, f, ctx)
	repo, err := outbound.RepositoryFor[*entity.Customer](uow)
	require.NoError(t, err)

	fresh, err := entity.NewCustomer("C-02", "Globex", "")
	require.NoError(t, err)
	require.NoError(t, repo.Add(ctx, fresh))

	loaded, err := repo.GetByID(ctx, existing.GetID())
	require.NoError(t, err)
	require.NoError(t, loaded.Rename("Renamed", "test"))
	require.NoError(t, repo.Update(ctx, loaded))

	require.NoError(t, uow.BeginTransaction(ctx))
	require.NoError(t, uow.RollbackTransaction(ctx))
	assert.False(t, uow.HasActiveTransaction())

	// a fresh unit of work sees neither change
	check := newUow(t, f, ctx)
	checkRepo, err := outbound.RepositoryFor[*entity.Customer](check)
	require.NoError(t, err)

	gone, err := checkRepo.GetByID(ctx, fresh.GetID())
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := checkRepo.GetByID(ctx, existing.GetID())
	require.NoError(t, err)
	require.NotNil(t, kept)
	assert.Equal(t, "Acme", kept.Name())
}

func TestTransactionCommitAndReadYourWrites(t *testing.T) {
	f := NewFactory(newTestStore(t))
	ctx := tenantCtx(t, uuid.New())

	uow := newUow(t, f, ctx)
	repo, err := outbound.RepositoryFor[*entity.Customer](uow)
	require.NoError(t, err)
	require.NoError(t, uow.BeginTransaction(ctx))

	c, err := entity.NewCustomer("C-01", "Acme", "")
	require.NoError(t, err)
	require.NoError(t, repo.Add(ctx, c))
	_, err = uow.SaveChanges(ctx)
	require.NoError(t, err)

	// the writing unit of work reads its own uncommitted row
	mine, err := repo.GetByID(ctx, c.GetID())
	require.NoError(t, err)
	require.NotNil(t, mine)

	// other sessions do not see it until commit
	other := newUow(t, f, ctx)
	otherRepo, err := outbound.RepositoryFor[*entity.Customer](other)
	require.NoError(t, err)
	theirs, err := otherRepo.GetByID(ctx, c.GetID())
	require.NoError(t, err)
	assert.Nil(t, theirs)

	require.NoError(t, uow.CommitTransaction(ctx))

	theirs, err = otherRepo.GetByID(ctx, c.GetID())
	require.NoError(t, err)
	assert.NotNil(t, theirs)
}

func TestCloseRollsBackDanglingTransaction(t *testing.T) {
	f := NewFactory(newTestStore(t))
	ctx := tenantCtx(t, uuid.New())

	uow := newUow(t, f, ctx)
	repo, err := outbound.RepositoryFor[*entity.Customer](uow)
	require.NoError(t, err)
	require.NoError(t, uow.BeginTransaction(ctx))

	c, err := entity.NewCustomer("C-01", "Acme", "")
	require.NoError(t, err)
	require.NoError(t, repo.Add(ctx, c))
	_, err = uow.SaveChanges(ctx)
	require.NoError(t, err)

	require.NoError(t, uow.Close())
	require.NoError(t, uow.Close(), "close is idempotent")

	check := newUow(t, f, ctx)
	checkRepo, err := outbound.RepositoryFor[*entity.Customer](check)
	require.NoError(t, err)
	got, err := checkRepo.GetByID(ctx, c.GetID())
	require.NoError(t, err)
	assert.Nil(t, got, "uncommitted transaction was rolled back on close")

	_, err = uow.SaveChanges(ctx)
	assert.ErrorIs(t, err, outbound.ErrUnitOfWorkClosed)
}

func TestTenantIsolation(t *testing.T) {
	f := NewFactory(newTestStore(t))
	tenantA := uuid.New()
	tenantB := uuid.New()
	ctxA := tenantCtx(t, tenantA)
	ctxB := tenantCtx(t, tenantB)

	addCustomer(t, f, ctxA, "C-A", "Tenant A customer")
	addCustomer(t, f, ctxB, "C-B", "Tenant B customer")

	uow := newUow(t, f, ctxA)
	repo, err := outbound.RepositoryFor[*entity.Customer](uow)
	require.NoError(t, err)

	all, err := repo.GetAll(ctxA)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "C-A", all[0].Code())
	assert.Equal(t, tenantA, all[0].GetTenantID())
}

func TestUnsetTenantIsAnErrorNotAWildcard(t *testing.T) {
	f := NewFactory(newTestStore(t))
	ctx := context.Background() // no tenant in scope

	uow := newUow(t, f, ctx)
	repo, err := outbound.RepositoryFor[*entity.Customer](uow)
	require.NoError(t, err)

	_, err = repo.GetAll(ctx)
	assert.ErrorIs(t, err, outbound.ErrTenantNotResolved)

	c, _ := entity.NewCustomer("C-01", "Acme", "")
	assert.ErrorIs(t, repo.Add(ctx, c), outbound.ErrTenantNotResolved)
}

func TestOutboxIsNotTenantScoped(t *testing.T) {
	f := NewFactory(newTestStore(t))
	ctx := tenantCtx(t, uuid.New())

	uow := newUow(t, f, ctx)
	repo, err := outbound.RepositoryFor[*entity.OutboxEvent](uow)
	require.NoError(t, err)
	evt := entity.NewOutboxEvent(uuid.New(), uuid.New(), "invoice.issued", "finance.invoices", []byte(`{}`))
	require.NoError(t, repo.Add(ctx, evt))
	_, err = uow.SaveChanges(ctx)
	require.NoError(t, err)

	// a background scope with no tenant still reads the outbox
	bg := newUow(t, f, context.Background())
	bgRepo, err := outbound.RepositoryFor[*entity.OutboxEvent](bg)
	require.NoError(t, err)
	rows, err := bgRepo.GetAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestStoredRowsAreIsolatedFromCallerMutation(t *testing.T) {
	f := NewFactory(newTestStore(t))
	ctx := tenantCtx(t, uuid.New())
	c := addCustomer(t, f, ctx, "C-01", "Acme")

	// mutating the caller's instance after save must not touch the store
	require.NoError(t, c.Rename("Mutated", "test"))

	uow := newUow(t, f, ctx)
	repo, err := outbound.RepositoryFor[*entity.Customer](uow)
	require.NoError(t, err)
	got, err := repo.GetByID(ctx, c.GetID())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Acme", got.Name())
}

func TestIncludes(t *testing.T) {
	s := newTestStore(t)
	f := NewFactory(s)

	// the Customer include resolves each invoice's customer through a
	// second lookup, the same contract the relational store fulfils
	RegisterRelation[*entity.Invoice](s, "Customer", func(ctx context.Context, items []*entity.Invoice) error {
		uow, err := f.New(ctx)
		if err != nil {
			return err
		}
		defer uow.Close()
		customers, err := outbound.RepositoryFor[*entity.Customer](uow)
		if err != nil {
			return err
		}
		for _, inv := range items {
			c, err := customers.GetByID(ctx, inv.CustomerID())
			if err != nil {
				return err
			}
			inv.AttachCustomer(c)
		}
		return nil
	})

	ctx := tenantCtx(t, uuid.New())
	cust := addCustomer(t, f, ctx, "C-01", "Acme")

	uow := newUow(t, f, ctx)
	invoices, err := outbound.RepositoryFor[*entity.Invoice](uow)
	require.NoError(t, err)
	inv, err := entity.NewInvoice("A2025000001", cust.GetID(), 100)
	require.NoError(t, err)
	require.NoError(t, invoices.Add(ctx, inv))
	_, err = uow.SaveChanges(ctx)
	require.NoError(t, err)

	spec := specification.NewBuilder[*entity.Invoice]().Include("Customer").MustBuild()
	found, err := invoices.Find(ctx, spec)
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.NotNil(t, found[0].Customer())
	assert.Equal(t, "Acme", found[0].Customer().Name())

	// unknown include names fail fast
	bad := specification.NewBuilder[*entity.Invoice]().Include("Nope").MustBuild()
	_, err = invoices.Find(ctx, bad)
	assert.True(t, apperr.IsInvalidArgument(err))
}

func TestSaveEntities(t *testing.T) {
	f := NewFactory(newTestStore(t))
	ctx := tenantCtx(t, uuid.New())

	uow := newUow(t, f, ctx)
	changed, err := uow.SaveEntities(ctx)
	require.NoError(t, err)
	assert.False(t, changed)

	repo, err := outbound.RepositoryFor[*entity.Customer](uow)
	require.NoError(t, err)
	c, _ := entity.NewCustomer("C-01", "Acme", "")
	require.NoError(t, repo.Add(ctx, c))
	changed, err = uow.SaveEntities(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestCancelledContextStopsWork(t *testing.T) {
	f := NewFactory(newTestStore(t))
	ctx := tenantCtx(t, uuid.New())
	uow := newUow(t, f, ctx)
	repo, err := outbound.RepositoryFor[*entity.Customer](uow)
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	_, err = repo.GetAll(cancelled)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = uow.SaveChanges(cancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTenantWriteIsolation(t *testing.T) {
	store := newTestStore(t)
	f := NewFactory(store)
	tenantA := uuid.New()
	tenantB := uuid.New()
	ctxA := tenantCtx(t, tenantA)
	ctxB := tenantCtx(t, tenantB)

	victim := addCustomer(t, f, ctxA, "A-001", "Tenant A customer")

	t.Run("RemoveByID cannot cross tenants", func(t *testing.T) {
		uow := newUow(t, f, ctxB)
		repo, err := outbound.RepositoryFor[*entity.Customer](uow)
		require.NoError(t, err)
		require.NoError(t, repo.RemoveByID(ctxB, victim.GetID()))
		n, err := uow.SaveChanges(ctxB)
		require.NoError(t, err)
		assert.Zero(t, n)

		uowA := newUow(t, f, ctxA)
		repoA, err := outbound.ReadRepositoryFor[*entity.Customer](uowA)
		require.NoError(t, err)
		got, err := repoA.GetByID(ctxA, victim.GetID())
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "A-001", got.Code())
	})

	t.Run("hard delete cannot cross tenants", func(t *testing.T) {
		seq, err := entity.NewNumberSequence("X", 2026)
		require.NoError(t, err)
		uowA := newUow(t, f, ctxA)
		seqsA, err := outbound.RepositoryFor[*entity.NumberSequence](uowA)
		require.NoError(t, err)
		require.NoError(t, seqsA.Add(ctxA, seq))
		_, err = uowA.SaveChanges(ctxA)
		require.NoError(t, err)

		uowB := newUow(t, f, ctxB)
		seqsB, err := outbound.RepositoryFor[*entity.NumberSequence](uowB)
		require.NoError(t, err)
		require.NoError(t, seqsB.RemoveByID(ctxB, seq.GetID()))
		n, err := uowB.SaveChanges(ctxB)
		require.NoError(t, err)
		assert.Zero(t, n)

		uowA2 := newUow(t, f, ctxA)
		seqsA2, err := outbound.ReadRepositoryFor[*entity.NumberSequence](uowA2)
		require.NoError(t, err)
		got, err := seqsA2.GetByID(ctxA, seq.GetID())
		require.NoError(t, err)
		assert.NotNil(t, got)
	})

	t.Run("staged put cannot overwrite another tenant's row", func(t *testing.T) {
		forged := entity.RehydrateCustomer(victim.GetID(), tenantB, "B-EVIL", "Takeover", "",
			victim.CreatedAt(), victim.UpdatedAt(), "b", "b", false, nil, "")

		uowB := newUow(t, f, ctxB)
		repoB, err := outbound.RepositoryFor[*entity.Customer](uowB)
		require.NoError(t, err)
		require.NoError(t, repoB.Update(ctxB, forged))
		n, err := uowB.SaveChanges(ctxB)
		require.NoError(t, err)
		assert.Zero(t, n)

		uowA := newUow(t, f, ctxA)
		repoA, err := outbound.ReadRepositoryFor[*entity.Customer](uowA)
		require.NoError(t, err)
		got, err := repoA.GetByID(ctxA, victim.GetID())
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "A-001", got.Code())
	})
}
