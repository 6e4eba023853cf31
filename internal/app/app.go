package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kantinku/order/internal/dal/listener"
	"github.com/kantinku/order/internal/dal/postgres"
	"github.com/kantinku/order/internal/dal/rabbitmq"
	outboxrepo "github.com/kantinku/order/internal/dal/repositories/outbox/postgres"
	"github.com/kantinku/order/internal/jaeger"
	"github.com/kantinku/order/internal/service/services/ordersvc"
	httptransport "github.com/kantinku/order/internal/transport/http"
	outboxworker "github.com/kantinku/order/internal/worker/outbox"
)

// App represents the application.
type App struct {
	orderSvc       *ordersvc.OrderService
	transport      *httptransport.HTTPTransport
	postgresClient *postgres.Client
	rabbitClient   *rabbitmq.Client
	changeListener *listener.Listener
	outboxWorker   *outboxworker.Worker
	traceShutdown  func(ctx context.Context) error
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	traceShutdown := jaeger.MustSetup()

	postgresClient := postgres.MustNewClient()
	rabbitClient := rabbitmq.MustNewClient()
	changeListener := listener.NewListener(postgresClient)

	orderSvc := ordersvc.MustNewOrderService(
		ordersvc.WithPostgresClient(postgresClient),
		ordersvc.WithChangeSource(changeListener),
	)

	outboxWorker := outboxworker.NewWorker(
		outboxrepo.NewOutboxRepository(postgresClient.Pool()),
		rabbitClient,
	)

	transport := httptransport.NewHTTPTransport(orderSvc)
	transport.RegisterRoutes()

	return &App{
		orderSvc:       orderSvc,
		transport:      transport,
		postgresClient: postgresClient,
		rabbitClient:   rabbitClient,
		changeListener: changeListener,
		outboxWorker:   outboxWorker,
		traceShutdown:  traceShutdown,
	}
}

// Run starts the application and blocks until an interrupt signal arrives,
// then shuts everything down gracefully.
func (a *App) Run() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Starting HTTP server")
		if err := a.transport.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		return a.orderSvc.Run(gctx)
	})

	g.Go(func() error {
		return a.changeListener.Run(gctx)
	})

	g.Go(func() error {
		a.outboxWorker.Start(gctx)

		return nil
	})

	<-gctx.Done()
	slog.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.transport.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	if err := g.Wait(); err != nil {
		slog.Error("Application error", "error", err)
	}

	if err := a.rabbitClient.Close(); err != nil {
		slog.Error("RabbitMQ connection close error", "error", err)
	} else {
		slog.Info("RabbitMQ connection closed gracefully")
	}

	a.postgresClient.Close()
	slog.Info("Database connection closed gracefully")

	if err := a.traceShutdown(shutdownCtx); err != nil {
		slog.Error("Tracer shutdown error", "error", err)
	}

	slog.Info("Application shutdown complete")
}
