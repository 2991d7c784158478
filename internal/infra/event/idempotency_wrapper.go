package event

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/stocker-erp/stocker/pkg/logger"
	"github.com/stocker-erp/stocker/pkg/metrics"
)

// IdempotencyStore is the dedup lock storage, normally Redis.
type IdempotencyStore interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
}

// WrapIdempotency drops redeliveries of an already-handled message. The
// store being unavailable fails closed: better a redelivery later than a
// duplicate side effect now.
func WrapIdempotency(
	log logger.Logger,
	m metrics.Metrics,
	store IdempotencyStore,
	handlerName string,
	ttl time.Duration,
	next MessageHandler,
) MessageHandler {
	return func(ctx context.Context, msg []byte, headers map[string]interface{}) error {
		var eventID string
		if v, ok := headers["x-event-id"]; ok {
			eventID = fmt.Sprintf("%v", v)
		}
		if eventID == "" {
			hash := sha256.Sum256(msg)
			eventID = fmt.Sprintf("hash:%x", hash)
		}

		key := fmt.Sprintf("dedup:%s:%s", handlerName, eventID)

		acquired, err := store.SetNX(ctx, key, "processing", ttl)
		if err != nil {
			log.Error(ctx, "idempotency store unavailable", logger.WithError(err))
			return fmt.Errorf("idempotency store unavailable: %w", err)
		}
		if !acquired {
			log.Info(ctx, "duplicate event dropped",
				logger.String("handler", handlerName),
				logger.String("event_id", eventID),
			)
			m.IncCacheHit("dedup")
			m.IncEventsDropped("duplicate")
			return nil
		}
		m.IncCacheMiss("dedup")

		err = next(ctx, msg, headers)
		if err != nil {
			// release the lock so the redelivery can run the handler again
			if delErr := store.Del(ctx, key); delErr != nil {
				log.Error(ctx, "release idempotency lock",
					logger.String("key", key),
					logger.WithError(delErr),
				)
			}
		}
		return err
	}
}
