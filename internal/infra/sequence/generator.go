// Package sequence issues gapless per-tenant document numbers. Each
// tenant/series/year triple has its own counter row; the generator
// serializes the read-advance-write cycle per triple so concurrent
// callers never see duplicates or gaps.
package sequence

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/stocker-erp/stocker/internal/application/port/outbound"
	"github.com/stocker-erp/stocker/internal/domain/entity"
	"github.com/stocker-erp/stocker/internal/domain/specification"
	"github.com/stocker-erp/stocker/internal/infra/tenant"
	"github.com/stocker-erp/stocker/pkg/logger"
	"github.com/stocker-erp/stocker/pkg/metrics"
)

type Generator struct {
	factory outbound.UnitOfWorkFactory
	log     logger.Logger
	meters  metrics.Metrics

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewGenerator(factory outbound.UnitOfWorkFactory, log logger.Logger, meters metrics.Metrics) *Generator {
	return &Generator{
		factory: factory,
		log:     log,
		meters:  meters,
		locks:   make(map[string]*sync.Mutex),
	}
}

// lockFor serializes callers per counter, not per process, so unrelated
// series advance concurrently.
func (g *Generator) lockFor(tenantID uuid.UUID, series string, year int) *sync.Mutex {
	key := fmt.Sprintf("%s/%s/%d", tenantID, series, year)
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.locks[key]
	if !ok {
		l = &sync.Mutex{}
		g.locks[key] = l
	}
	return l
}

var _ outbound.NumberGenerator = (*Generator)(nil)

// Next issues the next number in the current tenant's series, creating the
// counter row on first use. The advance and the persist happen in one
// save, so a number is never issued without its counter moving.
func (g *Generator) Next(ctx context.Context, series string, year int) (string, error) {
	tc, err := tenant.FromContext(ctx)
	if err != nil {
		return "", err
	}
	tenantID, err := tc.CurrentTenantID()
	if err != nil {
		return "", err
	}

	l := g.lockFor(tenantID, series, year)
	l.Lock()
	defer l.Unlock()

	uow, err := g.factory.New(ctx)
	if err != nil {
		return "", err
	}
	defer uow.Close()

	repo, err := outbound.RepositoryFor[*entity.NumberSequence](uow)
	if err != nil {
		return "", err
	}

	spec := specification.NewBuilder[*entity.NumberSequence]().
		Where("Series", specification.Eq, series).
		Where("Year", specification.Eq, year).
		MustBuild()
	seq, err := repo.Single(ctx, spec)
	if err != nil {
		return "", err
	}

	fresh := seq == nil
	if fresh {
		seq, err = entity.NewNumberSequence(series, year)
		if err != nil {
			return "", err
		}
	}

	number := seq.Advance("system")
	if fresh {
		err = repo.Add(ctx, seq)
	} else {
		err = repo.Update(ctx, seq)
	}
	if err != nil {
		return "", err
	}
	if _, err := uow.SaveChanges(ctx); err != nil {
		return "", err
	}

	if g.meters != nil {
		g.meters.RecordSequenceIssued(series)
	}
	g.log.Debug(ctx, "sequence number issued",
		logger.String("series", series),
		logger.Int("year", year),
		logger.String("number", number),
	)
	return number, nil
}
