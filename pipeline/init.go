package pipeline

import (
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"

	"github.com/tetelio/asset-pipeline/internal/logger"
)

var (
	zlog   otelzap.Logger
	tracer = otel.Tracer("assetpipe/pipeline")
)

func init() {
	zlog = logger.OtelZapLogger("pipeline")
}
