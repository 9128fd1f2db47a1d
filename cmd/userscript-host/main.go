// package main implements the native messaging host that serves user
// scripts from a local directory to the browser extension.
//
// The browser starts the host and talks to it over stdin and stdout, so
// nothing but protocol frames may ever be written to stdout.  Diagnostics go
// to stderr and to a log file.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
)

import (
	"github.com/p00ya/userscript-bridge/internal/clock"
	"github.com/p00ya/userscript-bridge/internal/config"
	"github.com/p00ya/userscript-bridge/internal/nativemsg"
	"github.com/p00ya/userscript-bridge/internal/session"
	"github.com/p00ya/userscript-bridge/internal/userscript"
	"github.com/p00ya/userscript-bridge/internal/watch"
)

const (
	exitSuccess = 0
	exitFailure = 1
)

func main() {
	os.Exit(run())
}

func run() int {
	// Temporary logger for config loading errors.
	bootLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	home, err := os.UserHomeDir()
	if err != nil {
		bootLogger.Error("locate home directory", "err", err)
		return exitFailure
	}
	cfg, err := config.Load(config.DefaultPath(home), home)
	if err != nil {
		bootLogger.Error("load config", "err", err)
		return exitFailure
	}

	logger, closeLog := newLogger(cfg, bootLogger)
	defer closeLog()
	// Firefox passes the manifest path and extension ID; Chrome passes the
	// caller's origin.  Neither changes what the host serves.
	logger.Info("userscript host starting", "args", os.Args[1:], "scripts_dir", cfg.ScriptsDir)

	if err := userscript.EnsureDir(cfg.ScriptsDir); err != nil {
		logger.Error("prepare scripts dir", "err", err)
		return exitFailure
	}

	opts := []watch.Option{watch.WithLogger(logger)}
	if cfg.Watch.Mode == "poll" {
		opts = append(opts, watch.WithPolling(cfg.PollInterval))
	}
	watcher, err := watch.New(cfg.ScriptsDir, userscript.Extension, opts...)
	if err != nil {
		logger.Error("watch scripts dir", "err", err)
		return exitFailure
	}
	defer watcher.Close()
	logger.Info("watching directory", "dir", cfg.ScriptsDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	updates := watch.Debounce(ctx, clock.Real(), cfg.DebounceInterval, watcher.Events())
	store := userscript.NewStore(cfg.ScriptsDir, logger)
	conn := nativemsg.NewConn(os.Stdin, os.Stdout)

	s := session.New(conn, store, updates, logger)
	if err := s.Run(ctx); err != nil {
		logger.Error("session failed", "err", err)
		return exitFailure
	}
	logger.Info("shutting down")
	return exitSuccess
}

// newLogger builds the configured logger, writing to stderr and the log
// file.  If the log file cannot be opened the logger writes to stderr only.
func newLogger(cfg *config.Config, bootLogger *slog.Logger) (*slog.Logger, func()) {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stderr
	closeLog := func() {}
	if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0o755); err != nil {
		bootLogger.Warn("create log dir, logging to stderr only", "err", err)
	} else if f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err != nil {
		bootLogger.Warn("open log file, logging to stderr only", "err", err)
	} else {
		out = io.MultiWriter(f, os.Stderr)
		closeLog = func() { f.Close() }
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "json":
		handler = slog.NewJSONHandler(out, opts)
	default:
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler), closeLog
}
