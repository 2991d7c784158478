package event

import "context"

// MessageHandler is one unit of inbound message processing. Wrappers
// (retry, idempotency, circuit breaking) compose around it.
type MessageHandler func(ctx context.Context, msg []byte, headers map[string]interface{}) error
