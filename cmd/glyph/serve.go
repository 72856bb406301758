// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/bureau-foundation/glyph/gateway"
	"github.com/bureau-foundation/glyph/lib/config"
	"github.com/bureau-foundation/glyph/lib/version"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand(options *globalOptions) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP rendering server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := options.load()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}
			return serve(cmd.Context(), cfg, options)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides listen in the configuration)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, options *globalOptions) error {
	logger, err := options.logger(os.Stderr)
	if err != nil {
		return err
	}
	gin.SetMode(gin.ReleaseMode)

	registry, closeCache, err := buildRegistry(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	server, err := gateway.NewServer(gateway.ServerConfig{
		ListenAddress: cfg.Listen,
		Handler: gateway.HandlerConfig{
			Registry:  registry,
			Pool:      gateway.NewPool(poolConfig(cfg.Conversion)),
			SafeMode:  cfg.SafeMode,
			BodyLimit: cfg.BodyLimit,
			Logger:    logger,
		},
		AllowOrigins: cfg.CORS.AllowOrigins,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	if err := server.Start(); err != nil {
		return err
	}
	logger.Info("glyph ready", "version", version.Info(), "address", server.Addr().String())

	<-ctx.Done()

	shutdownContext, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownContext)
}

// poolConfig maps the configuration onto the pool, where zero queue
// length means "default" rather than "no queue".
func poolConfig(cfg config.ConversionConfig) gateway.PoolConfig {
	maxQueued := cfg.MaxQueued
	if maxQueued == 0 {
		maxQueued = -1
	}
	return gateway.PoolConfig{
		Workers:      cfg.Workers,
		MaxQueued:    maxQueued,
		QueueTimeout: cfg.QueueTimeout,
	}
}
