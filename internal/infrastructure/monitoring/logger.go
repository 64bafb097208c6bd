package monitoring

import (
	"go.uber.org/zap"

	"github.com/turtacn/tokenkit/internal/config"
	"github.com/turtacn/tokenkit/pkg/errors"
	"github.com/turtacn/tokenkit/pkg/logger"
)

// NewZapLogger opens the configured output ("stdout", "stderr" or a file path) and builds the
// JSON logger on it. The returned function closes the output.
func NewZapLogger(cfg config.LogConfig) (logger.Logger, func(), error) {
	path := cfg.OutputPath
	if path == "" {
		path = "stderr"
	}
	sink, closeSink, err := zap.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrInvalidConfig).WithMetadata("key", "log.output_path")
	}
	return logger.NewLogger(logger.ParseLevel(cfg.Level), sink), closeSink, nil
}
