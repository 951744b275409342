package order

import (
	"time"
)

// Order is the client-side copy of a server-owned order. The server is the
// source of truth; the client only replaces whole records it receives from
// the feed or a fetch.
type Order struct {
	ID                  int64       `json:"id"`
	Status              Status      `json:"status"`
	OrderTime           *time.Time  `json:"orderTime,omitempty"`
	AssignedAt          *time.Time  `json:"assignedAt,omitempty"`
	DeliveredAt         *time.Time  `json:"deliveredAt,omitempty"`
	TotalAmount         float64     `json:"totalAmount"`
	UserID              int64       `json:"userId,omitempty"`
	CustomerName        string      `json:"customerName,omitempty"`
	CustomerPhone       string      `json:"customerPhone,omitempty"`
	DeliveryPartnerID   *int64      `json:"deliveryPartnerId,omitempty"`
	AddressLabel        string      `json:"addressLabel,omitempty"`
	AddressFull         string      `json:"addressFull,omitempty"`
	AddressApartment    string      `json:"addressApartment,omitempty"`
	AddressInstructions string      `json:"addressInstructions,omitempty"`
	OrderItems          []OrderItem `json:"orderItems"`
}

// OrderItem represents one line of an order.
type OrderItem struct {
	ID          int64   `json:"id"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"imageUrl,omitempty"`
}

// AssignedTo reports whether the order belongs to the given delivery partner.
func (o Order) AssignedTo(partnerID int64) bool {
	return o.DeliveryPartnerID != nil && *o.DeliveryPartnerID == partnerID
}

// Merge applies one updated order to a consumer-held collection. An order
// with a known id is replaced in place, a new one is prepended. The server
// always sends full records, so replacement is wholesale and idempotent.
func Merge(orders []Order, update Order) []Order {
	for i := range orders {
		if orders[i].ID == update.ID {
			orders[i] = update

			return orders
		}
	}

	return append([]Order{update}, orders...)
}
