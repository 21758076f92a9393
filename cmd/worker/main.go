package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dkravets/ragline/internal/bootstrap"
	"github.com/dkravets/ragline/internal/config"
	"github.com/dkravets/ragline/internal/observability/metrics"
)

const (
	serviceName    = "worker"
	processTimeout = 5 * time.Minute
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, serviceName, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app.Writer.SetFailureHook(func() {
		workerMetrics.RecordChunkStoreFailure(serviceName)
	})

	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		app.Logger.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.Error("metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	app.Logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeDocumentQueued(ctx, func(handlerCtx context.Context, documentID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, processTimeout)
		defer cancel()

		if doc, getErr := app.Repo.GetByID(processCtx, documentID); getErr == nil && doc != nil {
			workerMetrics.ObserveQueueLag(serviceName, time.Since(doc.UpdatedAt))
		}

		workerMetrics.StartDocument()
		start := time.Now()
		processErr := app.ProcessUC.ProcessByID(processCtx, documentID)
		workerMetrics.FinishDocument(serviceName, time.Since(start), processErr)

		recordTerminalStatus(processCtx, app, workerMetrics, documentID)
		return processErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

func recordTerminalStatus(ctx context.Context, app *bootstrap.App, workerMetrics *metrics.WorkerMetrics, documentID string) {
	doc, err := app.Repo.GetByID(ctx, documentID)
	if err != nil || doc == nil {
		return
	}
	if doc.Status.IsTerminal() {
		workerMetrics.RecordTerminalStatus(serviceName, string(doc.Status))
	}
}
