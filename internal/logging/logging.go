// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// Setup applies level ("debug", "info", "warn", "error") and output format.
func Setup(level string, jsonFormat bool) error {
	return configure(log.StandardLogger(), os.Stderr, level, jsonFormat)
}

func configure(l *log.Logger, out io.Writer, level string, jsonFormat bool) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	l.SetLevel(lvl)
	l.SetOutput(out)
	if jsonFormat {
		l.SetFormatter(&log.JSONFormatter{})
	} else {
		l.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		})
	}
	return nil
}

// For returns an entry tagged with the component name.
func For(component string) *log.Entry {
	return log.WithField("component", component)
}
