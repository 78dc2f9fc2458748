package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/samvad-devgate/internal/app"
	"github.com/samvad-hq/samvad-devgate/internal/config"
	"github.com/samvad-hq/samvad-devgate/internal/logger"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "devgate start failed: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("devgate", pflag.ContinueOnError)
	fs.String("listen-addr", ":5173", "address the dev server listens on")
	fs.String("static-dir", "", "built front-end directory served for non-API paths")
	fs.String("proxy-rules-file", "", "YAML/JSON file with proxy rules (default: /api -> $VITE_API_URL)")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	cfg, err := config.LoadWithFlags(fs)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	log.InfoObj("devgate starting", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	devServer, err := app.NewDevServer(ctx, cfg, log)
	if err != nil {
		log.ErrorObj("failed to initialize dev server", "error", err)
		return err
	}

	if err := devServer.Run(ctx); err != nil {
		return fmt.Errorf("dev server run: %w", err)
	}

	return nil
}
