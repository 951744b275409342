package feedsvc

import (
	"sync"

	"github.com/smartkitchen/kitchensync/internal/service/models/order"
)

// View is a consumer-held collection of orders kept current by feed updates.
// Pass Apply as the subscription handler and read Snapshot for derivations.
type View struct {
	mu     sync.Mutex
	orders []order.Order
}

func NewView() *View {
	return &View{}
}

// Apply merges one updated order into the view.
func (v *View) Apply(ord order.Order) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.orders = order.Merge(v.orders, ord)
}

// Replace swaps the whole collection, e.g. after an initial list fetch.
func (v *View) Replace(orders []order.Order) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.orders = append([]order.Order(nil), orders...)
}

// Snapshot returns a copy of the current collection.
func (v *View) Snapshot() []order.Order {
	v.mu.Lock()
	defer v.mu.Unlock()

	return append([]order.Order(nil), v.orders...)
}
