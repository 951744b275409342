package cart

// MenuItem is the menu entry a cart line refers to.
type MenuItem struct {
	ItemID   int64   `json:"itemId"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	ImageURL string  `json:"imageUrl,omitempty"`
}

// CartItem is one server-side cart line. ID is the line-item id, distinct
// from the menu item id.
type CartItem struct {
	ID       int64    `json:"id"`
	MenuItem MenuItem `json:"menuItem"`
	Quantity int      `json:"quantity"`
}

// Cart mirrors the server-authoritative cart. The client never derives a new
// Cart from a local delta; it only replaces the whole value with what the
// server last returned.
type Cart struct {
	ID     int64      `json:"id"`
	Active bool       `json:"active"`
	Items  []CartItem `json:"items"`
}

// Count is the total quantity across lines, computed fresh on every call.
func (c Cart) Count() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}

	return n
}

// Total is the cart subtotal, computed fresh on every call.
func (c Cart) Total() float64 {
	sum := 0.0
	for _, it := range c.Items {
		sum += it.MenuItem.Price * float64(it.Quantity)
	}

	return sum
}

// Empty reports whether the cart has no lines.
func (c Cart) Empty() bool {
	return len(c.Items) == 0
}

// Clone returns a copy that shares no item slice with the receiver.
func (c Cart) Clone() Cart {
	out := c
	out.Items = make([]CartItem, len(c.Items))
	copy(out.Items, c.Items)

	return out
}
