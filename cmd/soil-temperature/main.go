// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

//go:build linux

// Package main implements the soil-temperature service.
package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/wneessen/soil-temperature/internal/config"
	"github.com/wneessen/soil-temperature/internal/logger"
	"github.com/wneessen/soil-temperature/internal/service"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGABRT, os.Interrupt)
	defer cancel()

	// Initialize Logger
	log := logger.New(slog.LevelError)

	confPath := flag.String("config", "", "path to the config file")
	envPath := flag.String("env", ".env", "path to an optional dotenv file")
	flag.Parse()

	// Environment variables from a dotenv file, the process environment takes precedence
	if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Error("failed to load dotenv file", logger.Err(err))
		os.Exit(1)
	}

	// An explicitly given config file wins over the default location
	file := *confPath
	if file == "" {
		file = config.FindConfigFile()
	}
	conf, err := config.Load(file)
	if err != nil {
		log.Error("failed to load config", logger.Err(err))
		os.Exit(1)
	}

	log = logger.NewWithFormat(conf.LogLevel, conf.LogFormat, os.Stderr)

	// Initialize the service
	serv, err := service.New(conf, log, service.WithConfigLoader(func() (*config.Config, error) {
		return config.Load(file)
	}))
	if err != nil {
		log.Error("failed to initialize soil-temperature service", logger.Err(err))
		os.Exit(1)
	}

	// Start the service loop
	log.Info("starting soil-temperature service", slog.String("version", version),
		slog.String("commit", commit), slog.String("date", date))
	if err = serv.Run(ctx); err != nil {
		log.Error("soil-temperature service failed", logger.Err(err))
		cancel()
		os.Exit(1)
	}
	log.Info("shutting down soil-temperature service")
}
