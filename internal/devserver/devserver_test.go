package devserver

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smartkitchen/kitchensync/internal/dal/rest"
	"github.com/smartkitchen/kitchensync/internal/dal/stream"
	"github.com/smartkitchen/kitchensync/internal/service/models/cart"
	"github.com/smartkitchen/kitchensync/internal/service/models/order"
	"github.com/smartkitchen/kitchensync/internal/service/services/cartsvc"
	"github.com/smartkitchen/kitchensync/internal/service/services/feedsvc"
	"github.com/smartkitchen/kitchensync/internal/service/services/ordersvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

const testUserID = 1

// Seeded menu items. Prices live server-side; the client only sends ids.
var (
	paneerTikka = cart.MenuItem{ItemID: 1}
	garlicNaan  = cart.MenuItem{ItemID: 3}
)

func startServer(t *testing.T) *rest.Client {
	t.Helper()

	ts := httptest.NewServer(NewServer().Handler())
	t.Cleanup(ts.Close)

	return rest.MustNewClient(
		rest.WithBaseURL(ts.URL+"/api"),
		rest.WithTokenSource(func() string { return "" }),
	)
}

func startServerWithStream(t *testing.T) (*rest.Client, *stream.HTTPDialer) {
	t.Helper()

	ts := httptest.NewServer(NewServer().Handler())
	t.Cleanup(ts.Close)

	client := rest.MustNewClient(
		rest.WithBaseURL(ts.URL+"/api"),
		rest.WithTokenSource(func() string { return "" }),
	)
	dialer := &stream.HTTPDialer{URL: ts.URL + "/api/orders/stream"}

	return client, dialer
}

// checkout puts Paneer Tikka and Garlic Naan in the cart and places the
// order: a ₹250 subtotal plus the ₹40 delivery fee.
func checkout(t *testing.T, client *rest.Client) order.Order {
	t.Helper()
	ctx := context.Background()

	session := cartsvc.MustNewCartSession(cartsvc.WithAPI(client))
	require.NoError(t, session.Load(ctx, testUserID))
	require.NoError(t, session.Add(ctx, paneerTikka, 1))
	require.NoError(t, session.Add(ctx, garlicNaan, 1))

	ord, err := session.PlaceOrder(ctx, cartsvc.Address{
		Label: "Home",
		Full:  "12 MG Road, Bengaluru",
	})
	require.NoError(t, err)

	return ord
}

func TestCartMirrorsServerState(t *testing.T) {
	client := startServer(t)
	ctx := context.Background()

	session := cartsvc.MustNewCartSession(cartsvc.WithAPI(client))
	require.NoError(t, session.Load(ctx, testUserID))
	require.True(t, session.Cart().Empty())

	require.NoError(t, session.Add(ctx, paneerTikka, 2))
	assert.Equal(t, 2, session.Count())
	assert.InDelta(t, 380, session.Total(), 1e-9, "prices come from the server menu")

	require.NoError(t, session.Update(ctx, paneerTikka, 1))
	assert.Equal(t, 1, session.Count())

	// Another session for the same user sees the same server cart.
	other := cartsvc.MustNewCartSession(cartsvc.WithAPI(client))
	require.NoError(t, other.Load(ctx, testUserID))
	assert.Equal(t, session.Cart(), other.Cart())

	require.NoError(t, session.Remove(ctx, paneerTikka))
	assert.True(t, session.Cart().Empty())
}

func TestCartRejectsUnknownMenuItem(t *testing.T) {
	client := startServer(t)
	ctx := context.Background()

	session := cartsvc.MustNewCartSession(cartsvc.WithAPI(client))
	require.NoError(t, session.Load(ctx, testUserID))

	err := session.Add(ctx, cart.MenuItem{ItemID: 999}, 1)

	var apiErr *rest.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.StatusCode)
	assert.True(t, session.Cart().Empty(), "the failed add leaves no trace locally")
}

func TestCheckoutHandsOffToTracking(t *testing.T) {
	client := startServer(t)
	ctx := context.Background()

	ord := checkout(t, client)

	require.NotZero(t, ord.ID)
	assert.Equal(t, order.StatusPlaced, ord.Status)
	assert.InDelta(t, 290, ord.TotalAmount, 1e-9)
	assert.Equal(t, "Asha Rao", ord.CustomerName)
	require.Len(t, ord.OrderItems, 2)
	assert.Equal(t, "Paneer Tikka", ord.OrderItems[0].ProductName)

	// The returned id is enough to load the tracking view.
	svc := ordersvc.MustNewOrderService(ordersvc.WithAPI(client))
	tracked, err := svc.Order(ctx, ord.ID)
	require.NoError(t, err)
	assert.Equal(t, ord.ID, tracked.ID)

	mine, err := svc.MyOrders(ctx, testUserID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, ord.ID, mine[0].ID)
}

func TestFeedFansOutToConcurrentSubscribers(t *testing.T) {
	client, dialer := startServerWithStream(t)

	feed := feedsvc.MustNewFeed(feedsvc.WithDialer(dialer))

	const subscribers = 3
	chans := make([]chan order.Order, subscribers)
	subs := make([]*feedsvc.Subscription, subscribers)
	for i := range chans {
		ch := make(chan order.Order, 8)
		chans[i] = ch
		subs[i] = feed.Subscribe(func(o order.Order) { ch <- o })
	}
	defer func() {
		for _, sub := range subs {
			sub.Close()
		}
	}()

	waitForState(t, feed, feedsvc.StateConnected)

	ord := checkout(t, client)

	// Every subscriber sees the same pushed update over the one shared
	// connection.
	var g errgroup.Group
	for _, ch := range chans {
		ch := ch
		g.Go(func() error {
			select {
			case got := <-ch:
				assert.Equal(t, ord.ID, got.ID)
				assert.Equal(t, order.StatusPlaced, got.Status)

				return nil
			case <-time.After(5 * time.Second):
				return context.DeadlineExceeded
			}
		})
	}
	require.NoError(t, g.Wait())
}

func TestStatusUpdatesReachTheFeedView(t *testing.T) {
	client, dialer := startServerWithStream(t)
	ctx := context.Background()

	feed := feedsvc.MustNewFeed(feedsvc.WithDialer(dialer))
	view := feedsvc.NewView()
	updates := make(chan order.Order, 16)
	sub := feed.Subscribe(func(o order.Order) {
		view.Apply(o)
		updates <- o
	})
	defer sub.Close()

	waitForState(t, feed, feedsvc.StateConnected)

	svc := ordersvc.MustNewOrderService(ordersvc.WithAPI(client))
	ord := checkout(t, client)
	awaitUpdate(t, updates, ord.ID, order.StatusPlaced)

	for _, want := range []order.Status{
		order.StatusConfirmed,
		order.StatusPreparing,
		order.StatusReady,
	} {
		ord, err := svc.Advance(ctx, view.Snapshot()[0])
		require.NoError(t, err)
		assert.Equal(t, want, ord.Status)
		awaitUpdate(t, updates, ord.ID, want)
	}

	snapshot := view.Snapshot()
	require.Len(t, snapshot, 1, "updates merge by id instead of appending")
	assert.Equal(t, order.StatusReady, snapshot[0].Status)
}

func TestAssignmentMovesOrderAcrossViews(t *testing.T) {
	client, dialer := startServerWithStream(t)
	ctx := context.Background()

	feed := feedsvc.MustNewFeed(feedsvc.WithDialer(dialer))
	view := feedsvc.NewView()
	updates := make(chan order.Order, 16)
	sub := feed.Subscribe(func(o order.Order) {
		view.Apply(o)
		updates <- o
	})
	defer sub.Close()

	waitForState(t, feed, feedsvc.StateConnected)

	svc := ordersvc.MustNewOrderService(ordersvc.WithAPI(client))
	ord := checkout(t, client)
	awaitUpdate(t, updates, ord.ID, order.StatusPlaced)

	_, err := svc.UpdateStatus(ctx, ord.ID, order.StatusReady)
	require.NoError(t, err)
	awaitUpdate(t, updates, ord.ID, order.StatusReady)
	require.Len(t, order.Assignable(view.Snapshot()), 1)

	// Both seeded partners are free while nothing is assigned.
	free, err := svc.AvailablePartners(ctx, view.Snapshot())
	require.NoError(t, err)
	assert.Len(t, free, 2)

	assigned, err := svc.Assign(ctx, ord.ID, 7)
	require.NoError(t, err)
	require.NotNil(t, assigned.AssignedAt)
	awaitUpdate(t, updates, ord.ID, order.StatusAssigned)

	snapshot := view.Snapshot()
	assert.Empty(t, order.Assignable(snapshot))
	active := order.ActiveDeliveries(snapshot, 7)
	require.Len(t, active, 1)
	assert.Equal(t, ord.ID, active[0].ID)

	// Partner 7 is now busy; only partner 8 remains assignable.
	free, err = svc.AvailablePartners(ctx, snapshot)
	require.NoError(t, err)
	require.Len(t, free, 1)
	assert.Equal(t, int64(8), free[0].ID)
}

func TestPartnerAvailabilityToggle(t *testing.T) {
	client := startServer(t)
	ctx := context.Background()

	svc := ordersvc.MustNewOrderService(ordersvc.WithAPI(client))

	u, err := svc.SetPartnerActive(ctx, 8, false)
	require.NoError(t, err)
	assert.False(t, u.IsActive)

	free, err := svc.AvailablePartners(ctx, nil)
	require.NoError(t, err)
	require.Len(t, free, 1)
	assert.Equal(t, int64(7), free[0].ID)
}

func waitForState(t *testing.T, feed *feedsvc.Feed, want feedsvc.State) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if feed.State() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("feed never reached state %s", want)
}

func awaitUpdate(t *testing.T, ch <-chan order.Order, id int64, status order.Status) {
	t.Helper()

	select {
	case got := <-ch:
		assert.Equal(t, id, got.ID)
		assert.Equal(t, status, got.Status)
	case <-time.After(5 * time.Second):
		t.Fatalf("no feed update for order %d (%s)", id, status)
	}
}
