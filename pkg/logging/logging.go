package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the application logger. Logs go to stderr so command
// output on stdout stays clean; jsonFormat switches to machine readable lines.
func NewLogger(level string, jsonFormat bool) *logrus.Logger {
	return newLogger(os.Stderr, level, jsonFormat)
}

func newLogger(out io.Writer, level string, jsonFormat bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if jsonFormat {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	if err != nil {
		logger.WithField("level", level).Warn("Unknown log level, using info")
	}
	return logger
}
