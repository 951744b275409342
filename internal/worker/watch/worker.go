package watch

import (
	"context"
	"log/slog"
	"time"

	"github.com/smartkitchen/kitchensync/internal/service/models/order"
	"github.com/smartkitchen/kitchensync/internal/service/services/feedsvc"
	"github.com/spf13/viper"
)

// lister does the initial full fetch that seeds the view before live
// updates arrive.
type lister interface {
	Orders(ctx context.Context) ([]order.Order, error)
}

// Worker tails the live order feed and periodically logs the derived views:
// assignable orders, the configured partner's active deliveries, and today's
// delivered count.
type Worker struct {
	feed           *feedsvc.Feed
	lister         lister
	view           *feedsvc.View
	partnerID      int64
	reportInterval time.Duration
	now            func() time.Time
	stopCh         chan struct{}
}

// NewWorker creates a new watch worker.
func NewWorker(feed *feedsvc.Feed, lister lister) *Worker {
	reportIntervalSeconds := viper.GetInt("watch.report_interval_seconds")
	if reportIntervalSeconds == 0 {
		reportIntervalSeconds = 15
	}

	return &Worker{
		feed:           feed,
		lister:         lister,
		view:           feedsvc.NewView(),
		partnerID:      viper.GetInt64("watch.partner_id"),
		reportInterval: time.Duration(reportIntervalSeconds) * time.Second,
		now:            time.Now,
		stopCh:         make(chan struct{}),
	}
}

// Start subscribes to the feed and reports until the context is cancelled or
// Stop is called.
func (w *Worker) Start(ctx context.Context) {
	sub := w.feed.Subscribe(w.view.Apply)
	defer sub.Close()

	// Seed with the current order list; the feed replays nothing, so anything
	// that happened before this point is only visible through a fetch.
	if orders, err := w.lister.Orders(ctx); err != nil {
		slog.Warn("Initial order fetch failed, starting from an empty view", "error", err)
	} else {
		w.view.Replace(orders)
	}

	ticker := time.NewTicker(w.reportInterval)
	defer ticker.Stop()

	slog.Info("Watch worker started", "report_interval", w.reportInterval, "partner_id", w.partnerID)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Watch worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Watch worker stopped")

			return
		case <-ticker.C:
			w.report()
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}

// report recomputes every derivation from the current snapshot.
func (w *Worker) report() {
	snapshot := w.view.Snapshot()

	slog.Info("Order feed summary",
		"connection", w.feed.State().String(),
		"orders", len(snapshot),
		"assignable", len(order.Assignable(snapshot)),
		"active_deliveries", len(order.ActiveDeliveries(snapshot, w.partnerID)),
		"delivered_today", len(order.DeliveredToday(snapshot, w.partnerID, w.now())),
	)
}
