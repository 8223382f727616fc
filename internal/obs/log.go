// Package obs holds the logging and metrics plumbing shared by the server.
package obs

import (
    "io"

    "github.com/sirupsen/logrus"
)

// NewLogger builds the process logger.  Production gets JSON lines; other
// environments get the text formatter.  An unknown level keeps Info and is
// reported once.
func NewLogger(out io.Writer, json bool, level string) *logrus.Logger {
    log := logrus.New()
    log.SetOutput(out)
    if json {
        log.SetFormatter(&logrus.JSONFormatter{})
    } else {
        log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
    }

    lvl, err := logrus.ParseLevel(level)
    if err != nil {
        log.WithError(err).Warnf("invalid log level %q, using info", level)
        lvl = logrus.InfoLevel
    }
    log.SetLevel(lvl)
    return log
}
