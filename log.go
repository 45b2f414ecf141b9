package fibsterm

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// NewLogger returns a logger appending to the file at path. The terminal is
// taken over by the display, so nothing is ever logged to stdout or stderr.
// The returned closer releases the file.
func NewLogger(path, level string) (*logrus.Logger, io.Closer, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, nil, ConfigError(errors.Wrap(err, "FIBS_LOG_LEVEL"))
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, nil, IOError("log", errors.Wrapf(err, "opening log file %s", path))
	}

	log := logrus.New()
	log.SetOutput(f)
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{
		DisableColors: true,
		FullTimestamp: true,
	})
	return log, f, nil
}

// DiscardLogger returns a logger that drops everything
func DiscardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
