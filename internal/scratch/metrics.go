package scratch

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/dshills/autosave/internal/scratch"

// instruments holds the Manager's metric instruments.
type instruments struct {
	saves      metric.Int64Counter
	deletes    metric.Int64Counter
	failures   metric.Int64Counter
	collisions metric.Int64Counter
}

// newInstruments registers the counters against mp. A nil mp uses the
// global MeterProvider. Registration errors leave a no-op counter in place.
func newInstruments(mp metric.MeterProvider) *instruments {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	m := mp.Meter(meterName)

	var inst instruments
	inst.saves, _ = m.Int64Counter("autosave.saves.total",
		metric.WithDescription("Scratch files created"),
	)
	inst.deletes, _ = m.Int64Counter("autosave.deletes.total",
		metric.WithDescription("Scratch files removed on close"),
	)
	inst.failures, _ = m.Int64Counter("autosave.failures.total",
		metric.WithDescription("Failed scratch file operations"),
	)
	inst.collisions, _ = m.Int64Counter("autosave.collisions.total",
		metric.WithDescription("Name collisions resolved with a numeric suffix"),
	)
	return &inst
}

func (i *instruments) recordSave() {
	if i.saves != nil {
		i.saves.Add(context.Background(), 1)
	}
}

func (i *instruments) recordDelete() {
	if i.deletes != nil {
		i.deletes.Add(context.Background(), 1)
	}
}

func (i *instruments) recordCollisions(n int) {
	if i.collisions != nil && n > 0 {
		i.collisions.Add(context.Background(), int64(n))
	}
}

func (i *instruments) recordFailure(op string) {
	if i.failures != nil {
		i.failures.Add(context.Background(), 1, metric.WithAttributes(attribute.String("op", op)))
	}
}
