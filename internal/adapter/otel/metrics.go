package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "quality-core"

// Metrics holds the provisioning metric instruments.
type Metrics struct {
	SagasStarted         metric.Int64Counter
	SagasCommitted       metric.Int64Counter
	SagasRolledBack      metric.Int64Counter
	SagasPartiallyFailed metric.Int64Counter
	StepRetries          metric.Int64Counter
	SagaDuration         metric.Float64Histogram
	ProgramTransitions   metric.Int64Counter
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.SagasStarted, err = meter.Int64Counter("quality.sagas.started",
		metric.WithDescription("Number of provisioning workflows started"))
	if err != nil {
		return nil, err
	}

	m.SagasCommitted, err = meter.Int64Counter("quality.sagas.committed",
		metric.WithDescription("Number of provisioning workflows committed"))
	if err != nil {
		return nil, err
	}

	m.SagasRolledBack, err = meter.Int64Counter("quality.sagas.rolled_back",
		metric.WithDescription("Number of provisioning workflows rolled back"))
	if err != nil {
		return nil, err
	}

	m.SagasPartiallyFailed, err = meter.Int64Counter("quality.sagas.partially_failed",
		metric.WithDescription("Number of workflows with failed compensation"))
	if err != nil {
		return nil, err
	}

	m.StepRetries, err = meter.Int64Counter("quality.saga.step_retries",
		metric.WithDescription("Number of remote step retry attempts"))
	if err != nil {
		return nil, err
	}

	m.SagaDuration, err = meter.Float64Histogram("quality.saga.duration_seconds",
		metric.WithDescription("Provisioning workflow duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.ProgramTransitions, err = meter.Int64Counter("quality.audit.program_transitions",
		metric.WithDescription("Number of audit program state transitions"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
