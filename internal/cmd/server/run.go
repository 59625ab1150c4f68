package serverrun

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	cfgpkg "github.com/rzbill/flodiag/internal/config"
	"github.com/rzbill/flodiag/internal/runtime"
	grpcserver "github.com/rzbill/flodiag/internal/server/grpc"
	httpserver "github.com/rzbill/flodiag/internal/server/http"
	pebblestore "github.com/rzbill/flodiag/internal/storage/pebble"
	logpkg "github.com/rzbill/flodiag/pkg/log"
)

func getenvDefault(key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

// small wrapper to allow testing
var getenv = func(key string) string { return os.Getenv(key) }

type Options struct {
	DataDir      string
	ConfigPath   string
	GRPCAddr     string
	HTTPAddr     string
	Fsync        pebblestore.FsyncMode
	PollInterval time.Duration
}

// buildLogger builds the process logger from FLODIAG_PROC_LOG_LEVEL and
// FLODIAG_PROC_LOG_FORMAT, defaulting to info/text.
func buildLogger() (logpkg.Logger, *logpkg.Config) {
	cfg := &logpkg.Config{
		Level:  getenvDefault("FLODIAG_PROC_LOG_LEVEL", "info"),
		Format: getenvDefault("FLODIAG_PROC_LOG_FORMAT", "text"),
	}
	procLogger, err := logpkg.ApplyConfig(cfg)
	if err != nil {
		lvl := logpkg.InfoLevel
		if l, e := logpkg.ParseLevel(cfg.Level); e == nil {
			lvl = l
		}
		procLogger = logpkg.NewLogger(logpkg.WithLevel(lvl), logpkg.WithFormatter(&logpkg.TextFormatter{}))
	}
	return procLogger, cfg
}

// Run opens the runtime, starts gRPC and HTTP servers and blocks until ctx
// is cancelled or a termination signal arrives.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.DataDir == "" {
		opts.DataDir = cfgpkg.DefaultDataDir()
	}

	procLogger, logCfg := buildLogger()
	// Redirect stdlib logs (e.g., Pebble) to our logger
	logpkg.RedirectStdLog(procLogger)

	rt, err := runtime.Open(runtime.Options{
		ConfigPath:   opts.ConfigPath,
		DataDir:      opts.DataDir,
		Fsync:        opts.Fsync,
		Logger:       procLogger,
		PollInterval: opts.PollInterval,
	})
	if err != nil {
		return err
	}
	defer rt.Close()
	if err := rt.Start(sctx); err != nil {
		return err
	}

	procLogger.Info("Starting flodiag server",
		logpkg.Str("grpc", opts.GRPCAddr),
		logpkg.Str("http", opts.HTTPAddr),
		logpkg.Str("config", rt.ConfigPath()),
		logpkg.Str("data_dir", opts.DataDir),
		logpkg.Str("level", logCfg.Level),
		logpkg.Str("format", logCfg.Format),
	)

	gsrv := grpcserver.New(rt, procLogger)
	hsrv := httpserver.New(rt, procLogger)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := gsrv.ListenAndServe(sctx, opts.GRPCAddr); err != nil && sctx.Err() == nil {
			procLogger.Error("grpc server stopped", logpkg.Err(err))
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := hsrv.ListenAndServe(sctx, opts.HTTPAddr); err != nil && sctx.Err() == nil {
			procLogger.Error("http server stopped", logpkg.Err(err))
		}
	}()

	<-sctx.Done()
	// Stop servers before the runtime closes the catalog.
	gsrv.Close()
	hsrv.Close()
	wg.Wait()
	return nil
}
