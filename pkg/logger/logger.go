package logx

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Debug        bool `split_words:"true" default:"false"`
	PrettyFormat bool `split_words:"true" default:"false"`
	// Stderr keeps log lines off stdout so they do not interleave with the
	// interactive console.
	Stderr bool `split_words:"true" default:"true"`
}

var DefaultConfig = &Config{
	Debug:        false,
	PrettyFormat: false,
	Stderr:       true,
}

func safe(opts ...Config) *Config {
	if len(opts) == 0 {
		return DefaultConfig
	}
	return &opts[0]
}

// Init replaces the global logger. log.Ctx falls back to it for contexts
// that carry no logger of their own.
func Init(opts ...Config) {
	log.Logger = New(nil, opts...)
	zerolog.DefaultContextLogger = &log.Logger
}

// New builds a logger without touching the global one. A nil writer selects
// stdout or stderr according to the config.
func New(w io.Writer, opts ...Config) zerolog.Logger {
	conf := safe(opts...)

	if w == nil {
		w = os.Stdout
		if conf.Stderr {
			w = os.Stderr
		}
	}

	var logger zerolog.Logger
	if conf.PrettyFormat {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(w).With().Timestamp().Logger()
	}

	if conf.Debug {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	return logger.With().Caller().Stack().Logger()
}
