// Package log provides the zerolog-backed structured logger shared by all
// pipeline stages. Each stage obtains a component sub-logger so that every
// event carries the stage that emitted it.
package log

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/bioforge/organclock/pkg/errors"
)

var (
	mu     sync.RWMutex
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
)

func init() {
	// Route pipeline warnings (skipped organs, column overlaps) through
	// the structured logger. Warnings carry stack-trace wrappers, so the
	// marshaling error type is found by unwrapping, not by asserting on
	// the outermost error.
	errors.SetWarningHandler(func(w error) {
		l := Logger()
		var obj zerolog.LogObjectMarshaler
		if errors.As(w, &obj) {
			l.Warn().EmbedObject(obj).Msg(w.Error())
			return
		}
		l.Warn().Msg(w.Error())
	})
}

// Logger returns the current root logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// With returns a sub-logger tagged with a component name, e.g.
// log.With("features") or log.With("trainer"). The pointer return keeps
// the zerolog pointer-receiver chain (Info, Debug, Warn) callable
// directly on the result.
func With(component string) *zerolog.Logger {
	l := Logger().With().Str("component", component).Logger()
	return &l
}

// SetOutput redirects log output, used by the CLI and by tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = logger.Output(w)
}

// SetLevel sets the global log level from a string. Unknown levels fall
// back to info.
func SetLevel(level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}
