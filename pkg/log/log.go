// Package log sets up zerolog the way all binaries in this module use it: a
// console writer behind a non-blocking diode, carried through context.
package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/diode"
	"github.com/rs/zerolog/log"
)

// New returns a console logger writing to w.
func New(w io.Writer, debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.DateTime,
		PartsOrder: []string{
			zerolog.LevelFieldName,
			zerolog.TimestampFieldName,
			zerolog.MessageFieldName,
		},
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

// NewContextWithLogger installs a stdout logger as the global and context
// logger. The returned func flushes and closes the diode writer.
func NewContextWithLogger(ctx context.Context, debug bool) (context.Context, func()) {
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// ring buffer of 1000 messages, polled every 5ms
	wr := diode.NewWriter(os.Stdout, 1000, 5*time.Millisecond, func(missed int) {
		fmt.Printf("Logger Dropped %d messages\n", missed)
	})

	logger := New(wr, debug)
	log.Logger = logger

	return logger.WithContext(ctx), func() {
		wr.Close()
	}
}

// FromCtx returns the logger stored in ctx, or the global one.
func FromCtx(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}
