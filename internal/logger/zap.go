package logger

import (
	"os"
	"strconv"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	*zap.Logger
}

// debugEnabled reports whether development logging was requested through the environment.
func debugEnabled() bool {
	if debug, err := strconv.ParseBool(os.Getenv("PIPELINE_DEBUG")); err == nil && debug {
		return true
	}
	return os.Getenv("MODE") == "development"
}

func (l *Logger) init() error {
	var err error
	if debugEnabled() {
		zapConfig := zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		l.Logger, err = zapConfig.Build()
	} else {
		l.Logger, err = zap.NewProduction()
	}

	return err
}

// New takes in a package to initialize the new Logger in.
func New(pkg string) *Logger {
	Log := &Logger{}
	if err := Log.init(); err != nil {
		panic(err)
	}

	Log.Logger = Log.Logger.With(
		zap.String("package", pkg),
	)

	return Log
}

// OtelZapLogger returns a trace-aware logger tagged with the given package name.
// Calls made through Ctx(ctx) attach the active span to the entry.
func OtelZapLogger(pkg string) otelzap.Logger {
	return *otelzap.New(New(pkg).Logger)
}
