package devserver

import (
	"errors"
	"sync"
	"time"

	"github.com/smartkitchen/kitchensync/internal/dal/rest"
	"github.com/smartkitchen/kitchensync/internal/service/models/cart"
	"github.com/smartkitchen/kitchensync/internal/service/models/order"
	"github.com/smartkitchen/kitchensync/internal/service/models/user"
)

var (
	errNotFound    = errors.New("not found")
	errBadMenuItem = errors.New("unknown menu item")
)

// store holds the stand-in backend's state in memory so tests run without
// external services.
type store struct {
	mu sync.Mutex

	menu   []cart.MenuItem
	users  []user.User
	carts  map[int64]*cart.Cart
	orders []order.Order

	nextOrderID    int64
	nextCartItemID int64
	deliveryFee    float64
}

func newStore() *store {
	return &store{
		menu: []cart.MenuItem{
			{ItemID: 1, Name: "Paneer Tikka", Price: 190, ImageURL: "/img/paneer-tikka.jpg"},
			{ItemID: 2, Name: "Masala Dosa", Price: 120, ImageURL: "/img/masala-dosa.jpg"},
			{ItemID: 3, Name: "Garlic Naan", Price: 60, ImageURL: "/img/garlic-naan.jpg"},
			{ItemID: 4, Name: "Filter Coffee", Price: 40, ImageURL: "/img/filter-coffee.jpg"},
		},
		users: []user.User{
			{ID: 1, Name: "Asha Rao", Phone: "+91 98765 43210", UserType: "CUSTOMER", IsActive: true},
			{ID: 7, Name: "Vikram Singh", Phone: "+91 54321 09876", UserType: user.UserTypeDeliveryPartner, IsActive: true},
			{ID: 8, Name: "Meera Iyer", Phone: "+91 43210 98765", UserType: user.UserTypeDeliveryPartner, IsActive: true},
		},
		carts:       make(map[int64]*cart.Cart),
		deliveryFee: 40,
	}
}

func (s *store) menuItem(menuItemID int64) (cart.MenuItem, bool) {
	for _, m := range s.menu {
		if m.ItemID == menuItemID {
			return m, true
		}
	}

	return cart.MenuItem{}, false
}

func (s *store) getOrCreateCart(userID int64) *cart.Cart {
	c, ok := s.carts[userID]
	if !ok {
		c = &cart.Cart{ID: userID, Active: true}
		s.carts[userID] = c
	}

	return c
}

func (s *store) cartForUser(userID int64) cart.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.getOrCreateCart(userID).Clone()
}

func (s *store) addToCart(userID, menuItemID int64, quantity int) (cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.menuItem(menuItemID)
	if !ok {
		return cart.Cart{}, errBadMenuItem
	}

	c := s.getOrCreateCart(userID)
	c.Active = true
	for i := range c.Items {
		if c.Items[i].MenuItem.ItemID == menuItemID {
			c.Items[i].Quantity += quantity

			return c.Clone(), nil
		}
	}

	s.nextCartItemID++
	c.Items = append(c.Items, cart.CartItem{
		ID:       s.nextCartItemID,
		MenuItem: item,
		Quantity: quantity,
	})

	return c.Clone(), nil
}

func (s *store) updateCartItem(userID, menuItemID int64, quantity int) (cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.getOrCreateCart(userID)
	for i := range c.Items {
		if c.Items[i].MenuItem.ItemID != menuItemID {
			continue
		}
		if quantity > 0 {
			c.Items[i].Quantity = quantity
		} else {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
		}

		break
	}

	return c.Clone(), nil
}

func (s *store) removeFromCart(userID, menuItemID int64) (cart.Cart, error) {
	return s.updateCartItem(userID, menuItemID, 0)
}

func (s *store) clearCart(userID int64) cart.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.getOrCreateCart(userID)
	c.Items = nil
	c.Active = false

	return c.Clone()
}

func (s *store) placeOrder(req rest.CreateOrderRequest) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(req.OrderItems) == 0 {
		return order.Order{}, errors.New("order has no items")
	}

	now := time.Now()
	s.nextOrderID++

	total := 0.0
	items := make([]order.OrderItem, 0, len(req.OrderItems))
	for i, it := range req.OrderItems {
		total += it.Price * float64(it.Quantity)
		line := order.OrderItem{
			ID:          int64(i + 1),
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price,
		}
		if m, ok := s.menuItem(it.MenuItemID); ok {
			line.ImageURL = m.ImageURL
		}
		items = append(items, line)
	}

	ord := order.Order{
		ID:                  s.nextOrderID,
		Status:              order.StatusPlaced,
		OrderTime:           &now,
		TotalAmount:         total + s.deliveryFee,
		UserID:              req.UserID,
		CustomerName:        s.userName(req.UserID),
		AddressLabel:        req.AddressLabel,
		AddressFull:         req.AddressFull,
		AddressApartment:    req.AddressApartment,
		AddressInstructions: req.AddressInstructions,
		OrderItems:          items,
	}
	s.orders = append(s.orders, ord)

	return ord, nil
}

func (s *store) allOrders() []order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]order.Order(nil), s.orders...)
}

func (s *store) orderByID(id int64) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.orders {
		if o.ID == id {
			return o, nil
		}
	}

	return order.Order{}, errNotFound
}

func (s *store) ordersForUser(userID int64) []order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]order.Order, 0)
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}

	return out
}

// updateStatus accepts any parsable status; transition legality is the
// caller's business, matching the observed backend.
func (s *store) updateStatus(id int64, status order.Status) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.orders {
		if s.orders[i].ID != id {
			continue
		}
		s.orders[i].Status = status
		if status == order.StatusDelivered {
			now := time.Now()
			s.orders[i].DeliveredAt = &now
		} else {
			s.orders[i].DeliveredAt = nil
		}

		return s.orders[i], nil
	}

	return order.Order{}, errNotFound
}

func (s *store) assignPartner(id, partnerID int64) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.orders {
		if s.orders[i].ID != id {
			continue
		}
		now := time.Now()
		s.orders[i].DeliveryPartnerID = &partnerID
		s.orders[i].Status = order.StatusAssigned
		s.orders[i].AssignedAt = &now

		return s.orders[i], nil
	}

	return order.Order{}, errNotFound
}

func (s *store) usersByType(userType string) []user.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]user.User, 0)
	for _, u := range s.users {
		if u.UserType == userType {
			out = append(out, u)
		}
	}

	return out
}

func (s *store) setUserActive(userID int64, active bool) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.users {
		if s.users[i].ID == userID {
			s.users[i].IsActive = active

			return s.users[i], nil
		}
	}

	return user.User{}, errNotFound
}

func (s *store) userName(userID int64) string {
	for _, u := range s.users {
		if u.ID == userID {
			return u.Name
		}
	}

	return ""
}
