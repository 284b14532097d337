// Package main implements a runnable simulation platform component. It
// connects to the message bus, follows the epoch cycle and reports
// readiness for every epoch. Domain logic is intentionally empty, so the
// binary doubles as a minimal working example and as a dummy participant
// for exercising a simulation setup.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/simcesplatform/simulation-tools/busclient"
	"github.com/simcesplatform/simulation-tools/component"
	"github.com/simcesplatform/simulation-tools/config"
	"github.com/simcesplatform/simulation-tools/message"
	"github.com/simcesplatform/simulation-tools/metric"
	"github.com/simcesplatform/simulation-tools/vocabulary"
)

const Version = "0.1.0"

func main() {
	if err := run(); err != nil {
		slog.Error("component failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	minWork := flag.Duration("min-work", 0, "minimum simulated work per epoch")
	maxWork := flag.Duration("max-work", 0, "maximum simulated work per epoch")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(Version)
		return nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	units, err := vocabulary.NewUnitRegistry(vocabulary.WithLogger(logger))
	if err != nil {
		return err
	}
	message.SetUnitValidator(units)

	ctx := context.Background()

	client, err := busclient.NewClient(cfg.Bus.URL,
		busclient.WithName(cfg.ComponentName),
		busclient.WithCredentials(cfg.Bus.Username, cfg.Bus.Password),
		busclient.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close(ctx)

	registry := metric.NewRegistry()
	if cfg.MetricsPort > 0 {
		server := metric.NewServer(cfg.MetricsPort, "/metrics", registry)
		go func() {
			if err := server.Start(); err != nil {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
		defer func() {
			if err := server.Stop(); err != nil {
				logger.Warn("failed to stop metrics server", "error", err)
			}
		}()
		logger.Info("metrics available", "address", server.Address())
	}

	processor := component.ProcessorFunc(func(_ context.Context, epoch *message.EpochMessage) (bool, error) {
		if *maxWork > 0 {
			duration := *minWork
			if *maxWork > *minWork {
				duration += time.Duration(epoch.EpochNumber) % (*maxWork - *minWork)
			}
			logger.Info("working on epoch", "epoch", epoch.EpochNumber, "duration", duration)
			time.Sleep(duration)
		}
		return true, nil
	})

	coordinator, err := component.NewCoordinator(client, cfg.SimulationID, cfg.ComponentName,
		component.WithEpochTopic(cfg.Topics.Epoch),
		component.WithSimStateTopic(cfg.Topics.SimulationState),
		component.WithStatusTopic(cfg.Topics.Status),
		component.WithErrorTopic(cfg.Topics.Error),
		component.WithOtherTopics(cfg.Topics.Other...),
		component.WithProcessor(processor),
		component.WithMetrics(registry.CoreMetrics()),
		component.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	if err := coordinator.Start(ctx); err != nil {
		return err
	}

	logger.Info("component running",
		"simulation", cfg.SimulationID, "component", cfg.ComponentName, "version", Version)

	// Run until the simulation manager stops the simulation or the
	// process receives a termination signal.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case sig := <-signals:
			logger.Info("shutting down", "signal", sig.String())
			return coordinator.Stop(ctx)
		case <-ticker.C:
			if coordinator.IsStopped() {
				logger.Info("simulation finished", "completed_epoch", coordinator.CompletedEpoch())
				return nil
			}
		}
	}
}
