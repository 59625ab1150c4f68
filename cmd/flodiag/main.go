package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	clientcmd "github.com/rzbill/flodiag/internal/cmd/client"
	serverrun "github.com/rzbill/flodiag/internal/cmd/server"
	pebblestore "github.com/rzbill/flodiag/internal/storage/pebble"
	logpkg "github.com/rzbill/flodiag/pkg/log"
)

func main() {
	// FLODIAG_PROC_LOG_LEVEL governs CLI output and server start logs.
	level := os.Getenv("FLODIAG_PROC_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)
	logpkg.RedirectStdLog(logger)

	rootCmd := &cobra.Command{
		Use:   "flodiag",
		Short: "flodiag self-diagnostics CLI",
		Long:  "flodiag writes a process's own diagnostics to a circular memory-mapped file and serves, filters and archives it.",
	}

	serveCmd := &cobra.Command{
		Use:     "serve",
		Short:   "Follow the diagnostics config and serve gRPC and HTTP",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, _ := cmd.Flags().GetString("data-dir")
			configPath, _ := cmd.Flags().GetString("config")
			grpcAddr, _ := cmd.Flags().GetString("grpc")
			httpAddr, _ := cmd.Flags().GetString("http")
			fsyncMode, _ := cmd.Flags().GetString("fsync")
			pollSeconds, _ := cmd.Flags().GetInt("poll-seconds")
			logLevel, _ := cmd.Flags().GetString("log-level")
			logFormat, _ := cmd.Flags().GetString("log-format")

			mode := pebblestore.FsyncModeAlways
			switch fsyncMode {
			case "never":
				mode = pebblestore.FsyncModeNever
			case "interval":
				mode = pebblestore.FsyncModeInterval
			case "always":
				mode = pebblestore.FsyncModeAlways
			default:
				return fmt.Errorf("invalid --fsync; use always|interval|never")
			}
			if logLevel != "" {
				_ = os.Setenv("FLODIAG_PROC_LOG_LEVEL", logLevel)
			}
			if logFormat != "" {
				_ = os.Setenv("FLODIAG_PROC_LOG_FORMAT", logFormat)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if err := serverrun.Run(ctx, serverrun.Options{
				DataDir:      dataDir,
				ConfigPath:   configPath,
				GRPCAddr:     grpcAddr,
				HTTPAddr:     httpAddr,
				Fsync:        mode,
				PollInterval: time.Duration(pollSeconds) * time.Second,
			}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
	serveCmd.Flags().String("data-dir", "", "Data directory for the archive catalog (default: OS application data directory)")
	serveCmd.Flags().String("config", "", "Diagnostics config file (default: FLODIAG_DIAGNOSTICS.json/.yaml in the working or executable dir)")
	serveCmd.Flags().String("grpc", ":50051", "gRPC listen address")
	serveCmd.Flags().String("http", ":8080", "HTTP listen address")
	serveCmd.Flags().String("fsync", "interval", "Catalog fsync mode: always|interval|never")
	serveCmd.Flags().Int("poll-seconds", 0, "Config poll interval override in seconds (0 = from config)")
	serveCmd.Flags().String("log-level", os.Getenv("FLODIAG_PROC_LOG_LEVEL"), "Process log level: debug|info|warn|error")
	serveCmd.Flags().String("log-format", os.Getenv("FLODIAG_PROC_LOG_FORMAT"), "Process log format: text|json (default text)")
	rootCmd.AddCommand(serveCmd)

	clientcmd.AddCommands(rootCmd, apiURL)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func apiURL() string {
	if v := os.Getenv("FLODIAG_HTTP"); v != "" {
		return v
	}
	return "http://127.0.0.1:8080"
}
