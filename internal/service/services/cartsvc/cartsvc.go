package cartsvc

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/smartkitchen/kitchensync/internal/dal/rest"
	"github.com/smartkitchen/kitchensync/internal/service/models/cart"
	"github.com/smartkitchen/kitchensync/internal/service/models/order"
)

// DefaultDeliveryFee is added on top of the cart subtotal at checkout.
const DefaultDeliveryFee = 40

var (
	ErrNoUser     = errors.New("no active user")
	ErrNoMenuItem = errors.New("menu item id is not resolvable")
	ErrEmptyCart  = errors.New("cart is empty")
	ErrNoAddress  = errors.New("delivery address is required")
)

// api is the slice of the REST client the cart session needs.
type api interface {
	Cart(ctx context.Context, userID int64) (cart.Cart, error)
	AddCartItem(ctx context.Context, userID, menuItemID int64, quantity int) (cart.Cart, error)
	UpdateCartItem(ctx context.Context, userID, menuItemID int64, quantity int) (cart.Cart, error)
	RemoveCartItem(ctx context.Context, userID, menuItemID int64) (cart.Cart, error)
	PlaceOrder(ctx context.Context, req rest.CreateOrderRequest) (order.Order, error)
}

// CartSession mirrors the server-authoritative cart for one user. Every
// mutation is a remote call followed by an unconditional re-fetch that
// replaces local state wholesale; on any failure local state is exactly what
// it was before the call. Local state is never computed from a delta.
type CartSession struct {
	api         api
	deliveryFee float64

	mu     sync.Mutex
	userID int64
	cart   cart.Cart
}

// option is a function that configures the CartSession.
type option func(*CartSession)

// MustNewCartSession creates a new CartSession.
func MustNewCartSession(opts ...option) *CartSession {
	s := &CartSession{
		deliveryFee: DefaultDeliveryFee,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.api == nil {
		panic("cartsvc: api client is required")
	}

	return s
}

// WithAPI sets the REST client for the CartSession.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithAPI(a api) option {
	return func(s *CartSession) {
		s.api = a
	}
}

// WithDeliveryFee sets the checkout delivery fee.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithDeliveryFee(fee float64) option {
	return func(s *CartSession) {
		s.deliveryFee = fee
	}
}

// Load switches the session to the given user and fetches their cart.
// userID 0 means "no user": local state resets without a remote call.
func (s *CartSession) Load(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if userID == 0 {
		s.userID = 0
		s.cart = cart.Cart{}

		return nil
	}

	fresh, err := s.api.Cart(ctx, userID)
	if err != nil {
		return err
	}

	s.userID = userID
	s.cart = fresh

	return nil
}

// Add puts one menu item into the cart.
func (s *CartSession) Add(ctx context.Context, item cart.MenuItem, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkItem(item); err != nil {
		return err
	}
	if quantity < 1 {
		quantity = 1
	}

	if _, err := s.api.AddCartItem(ctx, s.userID, item.ItemID, quantity); err != nil {
		return err
	}

	return s.refetch(ctx)
}

// Update sets the quantity of a cart line. A quantity below 1 is a removal;
// sending it as an update would be an invalid server call.
func (s *CartSession) Update(ctx context.Context, item cart.MenuItem, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkItem(item); err != nil {
		return err
	}

	if quantity < 1 {
		if _, err := s.api.RemoveCartItem(ctx, s.userID, item.ItemID); err != nil {
			return err
		}

		return s.refetch(ctx)
	}

	if _, err := s.api.UpdateCartItem(ctx, s.userID, item.ItemID, quantity); err != nil {
		return err
	}

	return s.refetch(ctx)
}

// Remove deletes a cart line.
func (s *CartSession) Remove(ctx context.Context, item cart.MenuItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkItem(item); err != nil {
		return err
	}

	if _, err := s.api.RemoveCartItem(ctx, s.userID, item.ItemID); err != nil {
		return err
	}

	return s.refetch(ctx)
}

// Clear resets local state only. It is called after a successful order
// placement; the server starts a fresh cart on the next mutation.
func (s *CartSession) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart = cart.Cart{}
}

// Cart returns a copy of the mirrored cart.
func (s *CartSession) Cart() cart.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cart.Clone()
}

// Count is the total item quantity, derived fresh on every read.
func (s *CartSession) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cart.Count()
}

// Total is the cart subtotal, derived fresh on every read.
func (s *CartSession) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cart.Total()
}

// Address is the delivery address collected at checkout.
type Address struct {
	Label        string
	Full         string
	Apartment    string
	Instructions string
}

// PlaceOrder builds an order from the cart lines and submits it. On success
// the local cart is cleared and the created order (with its id, for the
// tracking view) is returned; on failure the cart is untouched so the user
// can retry.
func (s *CartSession) PlaceOrder(ctx context.Context, addr Address) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userID == 0 {
		return order.Order{}, ErrNoUser
	}
	if s.cart.Empty() {
		return order.Order{}, ErrEmptyCart
	}
	if strings.TrimSpace(addr.Full) == "" {
		return order.Order{}, ErrNoAddress
	}

	req := rest.CreateOrderRequest{
		UserID:              s.userID,
		TotalAmount:         s.cart.Total() + s.deliveryFee,
		AddressLabel:        addr.Label,
		AddressFull:         addr.Full,
		AddressApartment:    addr.Apartment,
		AddressInstructions: addr.Instructions,
	}
	for _, it := range s.cart.Items {
		req.OrderItems = append(req.OrderItems, rest.CreateOrderItem{
			MenuItemID:  it.MenuItem.ItemID,
			ProductName: it.MenuItem.Name,
			Quantity:    it.Quantity,
			Price:       it.MenuItem.Price,
		})
	}

	ord, err := s.api.PlaceOrder(ctx, req)
	if err != nil {
		return order.Order{}, err
	}

	s.cart = cart.Cart{}

	return ord, nil
}

// checkItem guards every mutation: no user or no resolvable menu item id
// means the request is rejected before it reaches the wire.
func (s *CartSession) checkItem(item cart.MenuItem) error {
	if s.userID == 0 {
		return ErrNoUser
	}
	if item.ItemID == 0 {
		slog.Error("cart mutation dropped: item has no menu item id", "item", item.Name)

		return ErrNoMenuItem
	}

	return nil
}

// refetch replaces the mirror with the server's current cart. A failed
// re-fetch keeps the previous mirror; the next settled operation or Load
// resynchronizes.
func (s *CartSession) refetch(ctx context.Context) error {
	fresh, err := s.api.Cart(ctx, s.userID)
	if err != nil {
		return err
	}

	s.cart = fresh

	return nil
}
