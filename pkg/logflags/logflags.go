package logflags

import (
	"errors"
	"io"
	"log"
	"strings"

	"github.com/sirupsen/logrus"
)

var wire = false
var dispatch = false
var events = false

func makeLogger(flag bool, fields logrus.Fields) *logrus.Entry {
	logger := logrus.New().WithFields(fields)
	logger.Logger.Level = logrus.DebugLevel
	if !flag {
		logger.Logger.Level = logrus.PanicLevel
	}
	return logger
}

// Wire returns true if raw RSP packets exchanged with GDB should be
// logged.
func Wire() bool {
	return wire
}

// WireLogger returns a configured logger for raw packet tracing.
func WireLogger() *logrus.Entry {
	return makeLogger(wire, logrus.Fields{"layer": "conn"})
}

// Dispatch returns true if handler resolution should be logged.
func Dispatch() bool {
	return dispatch
}

// DispatchLogger returns a configured logger for dispatch tracing.
func DispatchLogger() *logrus.Entry {
	return makeLogger(dispatch, logrus.Fields{"layer": "dispatch"})
}

// Events returns true if debug-event ingestion should be logged.
func Events() bool {
	return events
}

// EventsLogger returns a configured logger for debug-event ingestion.
func EventsLogger() *logrus.Entry {
	return makeLogger(events, logrus.Fields{"layer": "events"})
}

var errLogstrWithoutLog = errors.New("--log-output specified without --log")

// Setup sets logging category flags based on the contents of logstr, and
// configures the standard logger's own output stream.
func Setup(logFlag bool, logstr string) error {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	if !logFlag {
		log.SetOutput(io.Discard)
		if logstr != "" {
			return errLogstrWithoutLog
		}
		return nil
	}
	if logstr == "" {
		logstr = "dispatch"
	}
	for _, logcmd := range strings.Split(logstr, ",") {
		switch logcmd {
		case "wire":
			wire = true
		case "dispatch":
			dispatch = true
		case "events":
			events = true
		}
	}
	return nil
}
