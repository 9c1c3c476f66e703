package tracing

import (
	"github.com/uptrace/opentelemetry-go-extra/otelzap"

	"github.com/tetelio/asset-pipeline/internal/logger"
)

var zlog otelzap.Logger

func init() {
	zlog = logger.OtelZapLogger("tracing")
}
