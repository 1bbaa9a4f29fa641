package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lucky-agents/internal/config"
)

var output io.Writer = os.Stdout

// Writer returns the destination Init configured, for handing to
// non-zerolog loggers like the HTTP request logger.
func Writer() io.Writer {
	return output
}

func Init(cfg config.LogConfig) {
	level := zerolog.InfoLevel
	if v := strings.TrimSpace(cfg.Level); v != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil {
			level = parsed
		}
	}

	output = os.Stdout
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: os.Stdout}
	}
	if path := strings.TrimSpace(cfg.File); path != "" {
		if fileWriter, err := newSizeLimitedWriter(path, cfg.MaxMB); err == nil {
			output = io.MultiWriter(output, fileWriter)
		}
	}

	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(output).With().Timestamp().Logger()
	if cfg.SampleEvery > 1 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(cfg.SampleEvery)})
	}
	log.Logger = logger
}
