package matchmaking

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/automoto/carball-mp/server/matchmaking"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
