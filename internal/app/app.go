package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/smartkitchen/kitchensync/internal/dal/rest"
	"github.com/smartkitchen/kitchensync/internal/dal/stream"
	"github.com/smartkitchen/kitchensync/internal/otel"
	"github.com/smartkitchen/kitchensync/internal/service/services/feedsvc"
	"github.com/smartkitchen/kitchensync/internal/service/services/ordersvc"
	"github.com/smartkitchen/kitchensync/internal/worker/watch"
	"github.com/spf13/viper"
)

// App is the watch daemon: it tails the live order feed and reports derived
// views until it is told to stop.
type App struct {
	otelCtrl *otel.OtelController
	orderSvc *ordersvc.OrderService
	feed     *feedsvc.Feed
	worker   *watch.Worker
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	otelCtrl := otel.MustInitOtel()

	restClient := rest.MustNewClient()

	streamURL := strings.TrimRight(viper.GetString("api.base_url"), "/") + viper.GetString("api.stream_path")
	dialer := &stream.HTTPDialer{
		Client: &http.Client{},
		URL:    streamURL,
		Token: func() string {
			return os.Getenv("KITCHENSYNC_TOKEN")
		},
	}

	orderSvc := ordersvc.MustNewOrderService(
		ordersvc.WithAPI(restClient),
	)

	feed := feedsvc.MustNewFeed(
		feedsvc.WithDialer(dialer),
	)

	worker := watch.NewWorker(feed, orderSvc)

	return &App{
		otelCtrl: otelCtrl,
		orderSvc: orderSvc,
		feed:     feed,
		worker:   worker,
	}
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		slog.Info("Starting order feed watch")
		a.worker.Start(ctx)
	}()

	<-stop
	slog.Info("Shutdown signal received")

	a.worker.Stop()
	cancel()

	if err := a.otelCtrl.Shutdown(); err != nil {
		slog.Error("Tracer shutdown error", "error", err)
	}

	slog.Info("Application shutdown complete")
}
