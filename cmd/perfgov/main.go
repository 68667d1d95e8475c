package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"codeberg.org/mutker/perfgov/internal/config"
	"codeberg.org/mutker/perfgov/internal/errors"
	"codeberg.org/mutker/perfgov/internal/logger"
	"github.com/spf13/pflag"
)

const terminalLogFile = "perfgov.log"

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	out, closeLog := logOutput(cfg)
	defer closeLog()
	level, _ := logger.ParseLevel(cfg.LogLevel)
	logger.Init(level, logger.IsService(), out)
	log := logger.Default()
	log.Debug().Msg("Config loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if cfg.Report > 0 {
		if err := report(ctx, cfg, os.Stdout); err != nil {
			logError(log, err, "Failed to print transition report")
			return 1
		}
		return 0
	}

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		logError(log, err, "Failed to initialize application")
		return 1
	}
	defer a.close()

	if err := a.run(ctx); err != nil {
		logError(log, err, "Error in main loop")
		return 1
	}
	a.summary()

	return 0
}

// logOutput keeps the terminal demo's screen free of log lines.
func logOutput(cfg *config.Config) (io.Writer, func()) {
	if cfg.Source != config.SourceTerminal {
		return os.Stderr, func() {}
	}

	f, err := os.OpenFile(filepath.Join(os.TempDir(), terminalLogFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return io.Discard, func() {}
	}
	return f, func() { f.Close() }
}

func logError(log logger.Logger, err error, msg string) {
	var appErr errors.Error
	if errors.As(err, &appErr) {
		log.ErrorWithCode(appErr).Msg(msg)
		return
	}
	log.Error().Err(err).Msg(msg)
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
