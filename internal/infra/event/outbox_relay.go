package event

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stocker-erp/stocker/internal/application/port/outbound"
	"github.com/stocker-erp/stocker/internal/domain/entity"
	"github.com/stocker-erp/stocker/internal/domain/specification"
	"github.com/stocker-erp/stocker/pkg/events"
	"github.com/stocker-erp/stocker/pkg/logger"
	"github.com/stocker-erp/stocker/pkg/metrics"
)

// OutboxRelay drains pending outbox rows in two phases: a short claim
// transaction flips a batch to processing, then the publishes run outside
// any transaction with bounded concurrency.
type OutboxRelay struct {
	factory    outbound.UnitOfWorkFactory
	dispatcher events.EventDispatcher
	log        logger.Logger
	meters     metrics.Metrics
	batchSize  int
	workers    int
	interval   time.Duration
}

func NewOutboxRelay(factory outbound.UnitOfWorkFactory, disp events.EventDispatcher, log logger.Logger, meters metrics.Metrics) *OutboxRelay {
	return &OutboxRelay{
		factory:    factory,
		dispatcher: disp,
		log:        log,
		meters:     meters,
		batchSize:  100,
		workers:    10,
		interval:   100 * time.Millisecond,
	}
}

func (r *OutboxRelay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.processBatch(ctx)
		}
	}
}

func (r *OutboxRelay) processBatch(ctx context.Context) {
	claimed, err := r.fetchAndClaim(ctx)
	if err != nil {
		r.log.Error(ctx, "claim outbox batch", logger.WithError(err))
		return
	}
	if len(claimed) == 0 {
		return
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for _, evt := range claimed {
		evt := evt
		g.Go(func() error {
			r.publishOne(gCtx, evt)
			return nil
		})
	}
	_ = g.Wait()
}

// fetchAndClaim flips the oldest pending rows to processing inside one
// transaction, so concurrent relay instances never publish the same row.
func (r *OutboxRelay) fetchAndClaim(ctx context.Context) ([]*entity.OutboxEvent, error) {
	uow, err := r.factory.New(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Close()

	repo, err := outbound.RepositoryFor[*entity.OutboxEvent](uow)
	if err != nil {
		return nil, err
	}

	if err := uow.BeginTransaction(ctx); err != nil {
		return nil, err
	}

	spec := specification.NewBuilder[*entity.OutboxEvent]().
		Where("Status", specification.Eq, string(entity.OutboxStatusPending)).
		OrderBy("CreatedAt").
		Page(1, r.batchSize).
		MustBuild()
	pending, err := repo.Find(ctx, spec)
	if err != nil {
		_ = uow.RollbackTransaction(ctx)
		return nil, err
	}
	if len(pending) == 0 {
		_ = uow.RollbackTransaction(ctx)
		return nil, nil
	}

	for _, evt := range pending {
		evt.MarkProcessing()
		if err := repo.Update(ctx, evt); err != nil {
			_ = uow.RollbackTransaction(ctx)
			return nil, err
		}
	}
	if err := uow.CommitTransaction(ctx); err != nil {
		return nil, err
	}
	return pending, nil
}

func (r *OutboxRelay) publishOne(ctx context.Context, evt *entity.OutboxEvent) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	headers := map[string]string{
		"x-event-id":     evt.GetID().String(),
		"x-event-type":   evt.EventType(),
		"x-tenant-id":    evt.TenantID().String(),
		"x-aggregate-id": evt.AggregateID().String(),
	}
	err := r.dispatcher.DispatchRaw(ctx, evt.Topic(), evt.Payload(), headers)

	if err != nil {
		r.log.Warn(ctx, "publish outbox event",
			logger.String("id", evt.GetID().String()),
			logger.String("topic", evt.Topic()),
			logger.WithError(err))
		evt.MarkFailed(err.Error())
		r.meters.IncOutboxEventsProcessed("failed")
	} else {
		evt.MarkPublished(time.Now().UTC())
		r.meters.IncOutboxEventsProcessed("published")
	}

	// state lands on a fresh unit of work; ctx may already be cancelled
	if saveErr := r.saveStatus(evt); saveErr != nil {
		r.log.Error(context.Background(), "persist outbox status",
			logger.String("id", evt.GetID().String()),
			logger.WithError(saveErr))
	}
}

func (r *OutboxRelay) saveStatus(evt *entity.OutboxEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	uow, err := r.factory.New(ctx)
	if err != nil {
		return err
	}
	defer uow.Close()
	repo, err := outbound.RepositoryFor[*entity.OutboxEvent](uow)
	if err != nil {
		return err
	}
	if err := repo.Update(ctx, evt); err != nil {
		return err
	}
	_, err = uow.SaveChanges(ctx)
	return err
}

// RunRescuer periodically returns stuck processing rows to pending and
// deletes published rows past the retention window.
func (r *OutboxRelay) RunRescuer(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.rescueStuck(ctx, 5*time.Minute); err != nil {
				r.log.Error(ctx, "reset stuck outbox events", logger.WithError(err))
			}
			if err := r.purgePublished(ctx, 7*24*time.Hour); err != nil {
				r.log.Error(ctx, "purge published outbox events", logger.WithError(err))
			}
		}
	}
}

func (r *OutboxRelay) rescueStuck(ctx context.Context, olderThan time.Duration) error {
	uow, err := r.factory.New(ctx)
	if err != nil {
		return err
	}
	defer uow.Close()
	repo, err := outbound.RepositoryFor[*entity.OutboxEvent](uow)
	if err != nil {
		return err
	}

	spec := specification.NewBuilder[*entity.OutboxEvent]().
		Where("Status", specification.Eq, string(entity.OutboxStatusProcessing)).
		Where("UpdatedAt", specification.Lt, time.Now().UTC().Add(-olderThan)).
		MustBuild()
	stuck, err := repo.Find(ctx, spec)
	if err != nil {
		return err
	}
	for _, evt := range stuck {
		evt.ResetStuck()
		if err := repo.Update(ctx, evt); err != nil {
			return err
		}
	}
	_, err = uow.SaveChanges(ctx)
	return err
}

func (r *OutboxRelay) purgePublished(ctx context.Context, retention time.Duration) error {
	uow, err := r.factory.New(ctx)
	if err != nil {
		return err
	}
	defer uow.Close()
	repo, err := outbound.RepositoryFor[*entity.OutboxEvent](uow)
	if err != nil {
		return err
	}

	spec := specification.NewBuilder[*entity.OutboxEvent]().
		Where("Status", specification.Eq, string(entity.OutboxStatusPublished)).
		Where("CreatedAt", specification.Lt, time.Now().UTC().Add(-retention)).
		MustBuild()
	old, err := repo.Find(ctx, spec)
	if err != nil {
		return err
	}
	if len(old) == 0 {
		return nil
	}
	if err := repo.RemoveRange(ctx, old); err != nil {
		return err
	}
	_, err = uow.SaveChanges(ctx)
	return err
}
