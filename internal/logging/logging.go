package logging

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// Setup builds the service logger and installs it as the package default, so
// call sites can use log.Infof and friends directly.
func Setup(level string) *log.Logger {
	return SetupWriter(os.Stderr, level)
}

// SetupWriter is Setup with an explicit output.
func SetupWriter(w io.Writer, level string) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "preview",
	})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	l.SetLevel(lvl)
	log.SetDefault(l)
	if err != nil && level != "" {
		l.Warnf("Unknown log level %q, using info", level)
	}
	return l
}
