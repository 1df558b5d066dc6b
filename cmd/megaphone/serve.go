// Copyright (C) 2025 Signal Messenger, LLC
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gopkg.in/yaml.v3"

	"github.com/brohamgoham/Signal-iOS/pkg/logging"
	"github.com/brohamgoham/Signal-iOS/services/megaphone"
	"github.com/brohamgoham/Signal-iOS/services/megaphone/remoteconfig"
	"github.com/brohamgoham/Signal-iOS/services/megaphone/storage"
)

var (
	serveConfigPath string
	serveDebug      bool
	serveTrace      bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the megaphone API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "megaphone.yaml", "Path to the server configuration file")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging and gin debug mode")
	serveCmd.Flags().BoolVar(&serveTrace, "trace", false, "Export spans to stdout")
	rootCmd.AddCommand(serveCmd)
}

// serverConfig is the YAML shape of the server configuration file.
type serverConfig struct {
	// Listen is the host:port the API binds to.
	Listen string `yaml:"listen" validate:"required,hostname_port"`

	// DBPath is the BadgerDB directory for megaphone state.
	DBPath string `yaml:"db_path" validate:"required"`

	// RemoteConfigPath is the YAML file serving rollout flags.
	RemoteConfigPath string `yaml:"remote_config" validate:"required"`

	// LogLevel is debug, info, warn, or error.
	LogLevel string `yaml:"log_level"`

	// Account is the account/device state served to eligibility rules.
	Account megaphone.AccountConfig `yaml:"account"`
}

func loadServerConfig(path string) (serverConfig, error) {
	var cfg serverConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("validate config %s: %w", path, err)
	}
	return cfg, nil
}

// setupTracing wires a stdout span exporter. Returns the provider
// shutdown function.
func setupTracing() (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create stdout trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadServerConfig(serveConfigPath)
	if err != nil {
		return err
	}

	level := cfg.LogLevel
	if serveDebug {
		level = "debug"
	}
	logger := logging.New(logging.Config{Level: level, Service: "megaphone"})
	slog.SetDefault(logger)

	if serveTrace {
		shutdown, err := setupTracing()
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				logger.Warn("trace provider shutdown failed", slog.String("error", err.Error()))
			}
		}()
	}

	db, err := storage.Open(storage.DefaultConfig(cfg.DBPath))
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	remote, err := remoteconfig.Load(cfg.RemoteConfigPath, logger)
	if err != nil {
		return err
	}
	if err := remote.Watch(ctx); err != nil {
		return err
	}

	svc := megaphone.NewService(db, remote, cfg.Account, logger)

	if serveDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("megaphone"))
	megaphone.RegisterRoutes(router.Group("/v1"), megaphone.NewHandlers(svc))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("megaphone server listening", slog.String("address", cfg.Listen))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down megaphone server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
