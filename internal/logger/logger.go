// Package logger builds the logrus logger shared by the scope tools.
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

const timeFormat = "2006-01-02 15:04:05.000"

// New returns a text logger on stderr at the given level ("info", "debug", ...).
func New(level string) (*logrus.Logger, error) {
	return NewWithOutput(os.Stderr, level)
}

// NewWithOutput is New writing to w.
func NewWithOutput(w io.Writer, level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: timeFormat,
	})
	log.SetLevel(lvl)
	return log, nil
}
