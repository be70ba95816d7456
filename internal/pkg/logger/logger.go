package logger

import (
	"os"

	log "github.com/sirupsen/logrus"
)

const serviceName = "spa-comments"

// New returns a logger writing JSON in production and text elsewhere.
// An unknown level falls back to info.
func New(level, environment string) *log.Entry {
	l := log.New()
	l.SetOutput(os.Stdout)

	if environment == "production" {
		l.SetFormatter(&log.JSONFormatter{})
	} else {
		l.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	l.SetLevel(lvl)

	return l.WithField("service", serviceName)
}
