package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"fincoach/internal/amqp"
	"fincoach/internal/backend"
	"fincoach/internal/cli"
	applog "fincoach/internal/log"
	"fincoach/internal/services"
	"fincoach/internal/worker"
)

func main() {
	cfg, logger := cli.LoadConfig(applog.ComponentWorker)
	logger.Info("Starting insights-worker")

	if !backend.BackendType(cfg.DataBackend).Persistent() {
		logger.Warn("Memory backend is private to this process; the worker will only see its own empty store")
	}
	result := cli.OpenStore(context.Background(), cfg, logger)
	defer cli.Close(result, logger)

	refresher := services.NewInsightService(result.Store, nil, logger)
	sweeper := worker.NewSweeper(result.Store, refresher, worker.SweeperConfig{Interval: cfg.SweepInterval}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sweeper.Start(ctx); err != nil {
		logger.Error("Failed to start sweeper", applog.FieldError, err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()

		handler := worker.NewInsightWorker(refresher, logger)
		g.Go(func() error {
			err := client.ConsumeInsightRefresh(gctx, handler.HandleRefreshMessage)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP disabled - running periodic sweeps only")
	}

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Message consumption failed", applog.FieldError, err)
	}
	logger.Info("Shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := sweeper.Stop(shutdownCtx); err != nil {
		logger.Warn("Shutdown timeout reached", applog.FieldError, err)
		return
	}
	logger.Info("Worker shutdown complete")
}
