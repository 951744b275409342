package ordersvc

import (
	"context"
	"errors"
	"fmt"

	"github.com/smartkitchen/kitchensync/internal/service/models/order"
	"github.com/smartkitchen/kitchensync/internal/service/models/user"
)

var ErrNoTransition = errors.New("no such status transition")

// api is the slice of the REST client the order actions need.
type api interface {
	Orders(ctx context.Context) ([]order.Order, error)
	Order(ctx context.Context, id int64) (order.Order, error)
	MyOrders(ctx context.Context, userID int64) ([]order.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status order.Status) (order.Order, error)
	AssignPartner(ctx context.Context, id, partnerID int64) (order.Order, error)
	AcceptOrder(ctx context.Context, id int64) (order.Order, error)
	Partners(ctx context.Context) ([]user.User, error)
	SetUserActive(ctx context.Context, userID int64, active bool) (user.User, error)
}

// OrderService drives order-status actions. Every action computes its target
// status from the lifecycle table; the client never invents a transition the
// chain does not contain.
type OrderService struct {
	api api
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{}
	for _, opt := range opts {
		opt(s)
	}
	if s.api == nil {
		panic("ordersvc: api client is required")
	}

	return s
}

// WithAPI sets the REST client for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithAPI(a api) option {
	return func(s *OrderService) {
		s.api = a
	}
}

// Orders fetches every order, e.g. to seed a feed view before live updates.
func (s *OrderService) Orders(ctx context.Context) ([]order.Order, error) {
	return s.api.Orders(ctx)
}

// Order fetches one order, e.g. for the tracking view after checkout.
func (s *OrderService) Order(ctx context.Context, id int64) (order.Order, error) {
	return s.api.Order(ctx, id)
}

// MyOrders fetches a customer's own orders.
func (s *OrderService) MyOrders(ctx context.Context, userID int64) ([]order.Order, error) {
	return s.api.MyOrders(ctx, userID)
}

// UpdateStatus sets an explicit status, validating the name client-side.
func (s *OrderService) UpdateStatus(ctx context.Context, id int64, status order.Status) (order.Order, error) {
	if _, err := order.ParseStatus(status.String()); err != nil {
		return order.Order{}, err
	}

	return s.api.UpdateOrderStatus(ctx, id, status)
}

// Advance moves an order one step forward along the lifecycle.
func (s *OrderService) Advance(ctx context.Context, ord order.Order) (order.Order, error) {
	next, ok := ord.Status.Next()
	if !ok {
		return order.Order{}, fmt.Errorf("%w: forward from %s", ErrNoTransition, ord.Status)
	}

	return s.api.UpdateOrderStatus(ctx, ord.ID, next)
}

// Revert moves an order exactly one step backward. The backend has no revert
// operation; the target is computed here and sent as an ordinary update.
func (s *OrderService) Revert(ctx context.Context, ord order.Order) (order.Order, error) {
	prev, ok := ord.Status.Previous()
	if !ok {
		return order.Order{}, fmt.Errorf("%w: revert from %s", ErrNoTransition, ord.Status)
	}

	return s.api.UpdateOrderStatus(ctx, ord.ID, prev)
}

// Cancel marks an order cancelled while it is still cancellable.
func (s *OrderService) Cancel(ctx context.Context, ord order.Order) (order.Order, error) {
	if !ord.Status.Cancellable() {
		return order.Order{}, fmt.Errorf("%w: cancel from %s", ErrNoTransition, ord.Status)
	}

	return s.api.UpdateOrderStatus(ctx, ord.ID, order.StatusCancelled)
}

// Accept confirms a placed order; the backend consumes inventory for it.
func (s *OrderService) Accept(ctx context.Context, id int64) (order.Order, error) {
	return s.api.AcceptOrder(ctx, id)
}

// Assign hands an order to a delivery partner.
func (s *OrderService) Assign(ctx context.Context, id, partnerID int64) (order.Order, error) {
	return s.api.AssignPartner(ctx, id, partnerID)
}

// Partners lists all delivery-partner profiles.
func (s *OrderService) Partners(ctx context.Context) ([]user.User, error) {
	return s.api.Partners(ctx)
}

// AvailablePartners lists active partners not currently holding a delivery,
// judged against the given feed snapshot.
func (s *OrderService) AvailablePartners(ctx context.Context, snapshot []order.Order) ([]user.User, error) {
	partners, err := s.api.Partners(ctx)
	if err != nil {
		return nil, err
	}

	busy := order.BusyPartnerIDs(snapshot)
	out := make([]user.User, 0, len(partners))
	for _, p := range partners {
		if p.IsActive && !busy[p.ID] {
			out = append(out, p)
		}
	}

	return out, nil
}

// SetPartnerActive toggles a partner's availability flag.
func (s *OrderService) SetPartnerActive(ctx context.Context, userID int64, active bool) (user.User, error) {
	return s.api.SetUserActive(ctx, userID, active)
}
