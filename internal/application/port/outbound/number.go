package outbound

import "context"

// NumberGenerator issues gapless document numbers per tenant, series and
// year, e.g. INV2025000042.
type NumberGenerator interface {
	Next(ctx context.Context, series string, year int) (string, error)
}
