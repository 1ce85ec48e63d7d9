package replication

import (
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/tandemdrive/tandem/internal/replication"

func meter() metric.Meter {
	return otel.GetMeterProvider().Meter(instrumentationName)
}

func acosClamped(x float64) float64 {
	if x > 1 {
		x = 1
	}
	return math.Acos(x)
}
