// Copyright (c) 2025 The forkd developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/forkpoint/forkd/api"
	"github.com/forkpoint/forkd/co"
	"github.com/forkpoint/forkd/fork"
	"github.com/forkpoint/forkd/log"
	"github.com/forkpoint/forkd/metrics"
	"github.com/forkpoint/forkd/rpcclient"
	"github.com/forkpoint/forkd/svm"
)

var (
	version   string
	gitCommit string
	logger    = log.WithContext("pkg", "main")
)

func fullVersion() string {
	if gitCommit == "" {
		return version + "-dev"
	}
	return fmt.Sprintf("%s-%s", version, gitCommit)
}

func main() {
	app := cli.App{
		Version: fullVersion(),
		Name:    "forkd",
		Usage:   "ephemeral mainnet-fork sandbox service",
		Flags: []cli.Flag{
			configFlag,
			apiAddrFlag,
			apiCorsFlag,
			rpcURLFlag,
			rpcTimeoutFlag,
			forkTTLFlag,
			reapIntervalFlag,
			verbosityFlag,
			enableMetricsFlag,
			enableAPILogsFlag,
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	initLogger(cfg.Verbosity)

	if cfg.API.EnableMetrics {
		metrics.InitializePrometheusMetrics()
	}

	client := rpcclient.NewWithHTTP(cfg.RPC.URL, &http.Client{}, cfg.RPC.Timeout)
	registry := fork.NewRegistry(client, svm.NewSystemEngine(), fork.Options{
		TTL:          cfg.Fork.TTL,
		ReapInterval: cfg.Fork.ReapInterval,
	})
	defer registry.Close()

	handler := api.New(fork.NewDispatcher(registry), api.Options{
		AllowedOrigins:  cfg.API.AllowedOrigins,
		EnableMetrics:   cfg.API.EnableMetrics,
		EnableReqLogger: cfg.API.EnableReqLogs,
	})

	srv := &http.Server{
		Addr:    cfg.API.Addr,
		Handler: handler,
	}

	var goes co.Goes
	goes.Go(func() {
		logger.Info("API server started", "addr", cfg.API.Addr, "rpc", cfg.RPC.URL, "ttl", cfg.Fork.TTL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("API server stopped", "err", err)
		}
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown failed", "err", err)
	}
	goes.Wait()
	return nil
}

func initLogger(verbosity int) {
	switch verbosity {
	case 0:
		log.Verbosity().Set(log.LevelError)
	case 1:
		log.Verbosity().Set(log.LevelWarn)
	case 2:
		log.Verbosity().Set(log.LevelInfo)
	case 3:
		log.Verbosity().Set(log.LevelDebug)
	default:
		log.Verbosity().Set(log.LevelTrace)
	}

	opts := &slog.HandlerOptions{Level: log.Verbosity()}
	if isatty.IsTerminal(os.Stderr.Fd()) {
		log.SetDefault(slog.NewTextHandler(os.Stderr, opts))
	} else {
		log.SetDefault(slog.NewJSONHandler(os.Stderr, opts))
	}
}
