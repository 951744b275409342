package order

import (
	"time"
)

// View derivations are pure functions over a feed snapshot. They are
// recomputed on every call so consumers can never observe a stale filter.

// Assignable returns the orders waiting for a delivery partner.
func Assignable(orders []Order) []Order {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if o.Status == StatusReady {
			out = append(out, o)
		}
	}

	return out
}

// ActiveDeliveries returns the given partner's in-flight orders.
func ActiveDeliveries(orders []Order, partnerID int64) []Order {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if o.AssignedTo(partnerID) && (o.Status == StatusAssigned || o.Status == StatusOnTheWay) {
			out = append(out, o)
		}
	}

	return out
}

// DeliveredToday returns the partner's orders delivered on now's local
// calendar day.
func DeliveredToday(orders []Order, partnerID int64, now time.Time) []Order {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if !o.AssignedTo(partnerID) || o.Status != StatusDelivered || o.DeliveredAt == nil {
			continue
		}
		y1, m1, d1 := o.DeliveredAt.In(now.Location()).Date()
		y2, m2, d2 := now.Date()
		if y1 == y2 && m1 == m2 && d1 == d2 {
			out = append(out, o)
		}
	}

	return out
}

// BusyPartnerIDs returns the ids of partners currently holding an active
// delivery. Used to filter the assignable-partner list.
func BusyPartnerIDs(orders []Order) map[int64]bool {
	busy := make(map[int64]bool)
	for _, o := range orders {
		if o.DeliveryPartnerID != nil && (o.Status == StatusAssigned || o.Status == StatusOnTheWay) {
			busy[*o.DeliveryPartnerID] = true
		}
	}

	return busy
}
