package invoice

import (
	"context"
	"time"

	"github.com/stocker-erp/stocker/pkg/metrics"
)

type CreateMetricsDecorator struct {
	Next    CreateUseCase
	Metrics metrics.Metrics
}

func (d *CreateMetricsDecorator) Execute(ctx context.Context, input CreateInput) (Output, error) {
	start := time.Now()
	output, err := d.Next.Execute(ctx, input)
	d.Metrics.RecordUseCaseExecution("CreateInvoice", err == nil, time.Since(start))
	status := "success"
	if err != nil {
		status = "failure"
	}
	d.Metrics.RecordInvoiceIssued(status)
	return output, err
}
