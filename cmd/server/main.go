package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	zapadapter "github.com/playdodgeball/wtserver/pkg/axlog/zap_adapter"
	"github.com/playdodgeball/wtserver/pkg/config"
	"github.com/playdodgeball/wtserver/pkg/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "wtserver: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		envFile   = flag.String("env", ".env", "optional env file")
		listen    = flag.String("listen", "", "game address, overrides WTS_LISTEN")
		kind      = flag.String("transport", "", "webtransport, quic or websocket, overrides WTS_TRANSPORT")
		admin     = flag.String("admin", "", "admin address, overrides WTS_ADMIN_ADDR")
		logLevel  = flag.String("log-level", "", "debug, info, warn or error, overrides WTS_LOG_LEVEL")
		logFile   = flag.String("log-file", "", "rotated log file, overrides WTS_LOG_FILE")
		certFile  = flag.String("cert", "", "TLS certificate, overrides WTS_CERT_FILE")
		keyFile   = flag.String("key", "", "TLS key, overrides WTS_KEY_FILE")
		printConf = flag.Bool("print-config", false, "print the effective config and exit")
	)
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		return err
	}
	override(&cfg.Listen, *listen)
	override(&cfg.Transport, *kind)
	override(&cfg.AdminAddr, *admin)
	override(&cfg.LogLevel, *logLevel)
	override(&cfg.LogFile, *logFile)
	override(&cfg.CertFile, *certFile)
	override(&cfg.KeyFile, *keyFile)

	if err := cfg.Validate(); err != nil {
		return err
	}
	if *printConf {
		fmt.Printf("%+v\n", cfg)
		return nil
	}

	zl, err := zapadapter.Build(zapadapter.Options{
		Level: cfg.LogLevel,
		File:  cfg.LogFile,
	})
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	logger := zapadapter.New(zl)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to start server", "error", err)
		return err
	}

	if err := srv.Run(ctx); err != nil {
		logger.Error("server failed", "error", err)
		return err
	}

	logger.Info("exiting")
	return nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
