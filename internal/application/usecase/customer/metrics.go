package customer

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
	d.Metrics.RecordUseCaseExecution("CreateCustomer", err == nil, time.Since(start))
	status := "success"
	if err != nil {
		status = "failure"
	}
	d.Metrics.RecordCustomerCreated(status)
	return output, err
}

type ListMetricsDecorator struct {
	Next    ListUseCase
	Metrics metrics.Metrics
}

func (d *ListMetricsDecorator) Execute(ctx context.Context, input ListInput) (ListOutput, error) {
	start := time.Now()
	output, err := d.Next.Execute(ctx, input)
	d.Metrics.RecordUseCaseExecution("ListCustomers", err == nil, time.Since(start))
	return output, err
}
