package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide root logger. Packages log through it, or
// through a child from With, rather than constructing their own, so
// every line shares one level and output configuration. The declaration
// doubles as the pre-Init default, covering tests and anything that
// logs before main configures logging.
var Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Config controls the root logger's level and output format.
type Config struct {
	// Level is a zerolog level name (debug, info, warn, error).
	// Unrecognized or empty values fall back to info.
	Level string
	// JSONOutput emits raw JSON lines; false gets the human-readable
	// console form.
	JSONOutput bool
	// Output defaults to os.Stdout.
	Output io.Writer
}

// Init rebuilds the root logger from cfg. Call it once at process
// start; library code never calls it.
func Init(cfg Config) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	Logger = zerolog.New(writer(cfg)).With().Timestamp().Logger()
}

func writer(cfg Config) io.Writer {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if cfg.JSONOutput {
		return out
	}
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
}

// With returns a child logger carrying one string field. WithCluster
// and WithService name the two fields this codebase tags most.
func With(key, value string) *zerolog.Logger {
	l := Logger.With().Str(key, value).Logger()
	return &l
}

func WithCluster(cluster string) *zerolog.Logger { return With("cluster", cluster) }

func WithService(service string) *zerolog.Logger { return With("service", service) }

// Errorf logs err under msg at error level.
func Errorf(msg string, err error) {
	Logger.Error().Err(err).Msg(msg)
}
