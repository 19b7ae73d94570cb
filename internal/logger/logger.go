package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// ServiceName tags every event shipped to Axiom.
const ServiceName = "pdftools"

// Options defines logger initialization parameters.
type Options struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool

	// Console replaces stdout; tests point it at a buffer.
	Console io.Writer

	// Axiom
	SendToAxiom  bool
	AxiomAPIKey  string
	AxiomOrgID   string
	AxiomDataset string
	AxiomFlush   time.Duration
}

var (
	global = zerolog.Nop()
	ax     *axiomClient
)

// Init sets up global logger: file rotation, console, optional Axiom forwarding.
func Init(opts Options) error {
	var writers []io.Writer

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return fmt.Errorf("create logs dir: %w", err)
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		})
	}

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	if opts.Pretty {
		writers = append(writers, zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339})
	} else {
		writers = append(writers, console)
	}

	if opts.SendToAxiom && opts.AxiomAPIKey != "" {
		client, err := newAxiomClient(opts.AxiomAPIKey, opts.AxiomOrgID, opts.AxiomDataset, opts.AxiomFlush)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Axiom disabled: %v\n", err)
		} else {
			ax = client
			writers = append(writers, &axiomWriter{client: client})
		}
	}

	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		lvl = zerolog.InfoLevel
	}

	global = zerolog.New(io.MultiWriter(writers...)).Level(lvl).With().Timestamp().Logger()
	log.Logger = global
	return nil
}

// Close flushes any buffered external loggers.
func Close() {
	if ax != nil {
		_ = ax.Close()
		ax = nil
	}
}

// Get returns the global logger.
func Get() *zerolog.Logger { return &global }

// For returns a child logger tagged with a component name.
func For(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Convenience methods
func Debug(msg string) { global.Debug().Msg(msg) }
func Info(msg string)  { global.Info().Msg(msg) }
func Warn(msg string)  { global.Warn().Msg(msg) }
func Error(msg string) { global.Error().Msg(msg) }
