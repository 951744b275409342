package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/smartkitchen/kitchensync/internal/dal/rest"
	"github.com/smartkitchen/kitchensync/internal/service/models/order"
)

// orderUpdatedEvent is the SSE event name order pushes go out under.
const orderUpdatedEvent = "ORDER_UPDATED"

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error writing response", "error", err)
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func queryID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
}

// streamOrders keeps the connection open and pushes one ORDER_UPDATED event
// per order mutation until the client goes away.
func (s *Server) streamOrders(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)

		return
	}

	// Register before the headers go out: a client that has seen the 200 must
	// not miss events broadcast right after it connected.
	ch := s.hub.subscribe()
	defer s.hub.unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ord, open := <-ch:
			if !open {
				return
			}
			data, err := json.Marshal(ord)
			if err != nil {
				slog.Error("Error marshaling order event", "error", err)

				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", orderUpdatedEvent, data)
			flusher.Flush()
		}
	}
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.store.allOrders())
}

func (s *Server) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req rest.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Failed to decode request body", http.StatusBadRequest)

		return
	}

	ord, err := s.store.placeOrder(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	s.hub.broadcast(ord)
	writeJSON(w, ord)
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)

		return
	}

	ord, err := s.store.orderByID(id)
	if errors.Is(err, errNotFound) {
		http.Error(w, "order not found", http.StatusNotFound)

		return
	}

	writeJSON(w, ord)
}

func (s *Server) myOrders(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)

		return
	}

	writeJSON(w, s.store.ordersForUser(userID))
}

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)

		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Failed to decode request body", http.StatusBadRequest)

		return
	}
	status, err := order.ParseStatus(body.Status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	ord, err := s.store.updateStatus(id, status)
	if errors.Is(err, errNotFound) {
		http.Error(w, "order not found", http.StatusNotFound)

		return
	}

	s.hub.broadcast(ord)
	writeJSON(w, ord)
}

func (s *Server) assignPartner(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)

		return
	}

	var body struct {
		PartnerID int64 `json:"partnerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.PartnerID == 0 {
		http.Error(w, "invalid partner id", http.StatusBadRequest)

		return
	}

	ord, err := s.store.assignPartner(id, body.PartnerID)
	if errors.Is(err, errNotFound) {
		http.Error(w, "order not found", http.StatusNotFound)

		return
	}

	s.hub.broadcast(ord)
	writeJSON(w, ord)
}

func (s *Server) acceptOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)

		return
	}

	ord, err := s.store.updateStatus(id, order.StatusConfirmed)
	if errors.Is(err, errNotFound) {
		http.Error(w, "order not found", http.StatusNotFound)

		return
	}

	s.hub.broadcast(ord)
	writeJSON(w, ord)
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)

		return
	}

	writeJSON(w, s.store.cartForUser(userID))
}

func (s *Server) addToCart(w http.ResponseWriter, r *http.Request) {
	userID, err := queryID(r, "userId")
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)

		return
	}
	menuItemID, err := queryID(r, "menuItemId")
	if err != nil {
		http.Error(w, "invalid menu item id", http.StatusBadRequest)

		return
	}
	quantity, err := strconv.Atoi(r.URL.Query().Get("quantity"))
	if err != nil || quantity < 1 {
		quantity = 1
	}

	c, err := s.store.addToCart(userID, menuItemID, quantity)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	writeJSON(w, c)
}

func (s *Server) updateCart(w http.ResponseWriter, r *http.Request) {
	userID, err := queryID(r, "userId")
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)

		return
	}
	menuItemID, err := queryID(r, "menuItemId")
	if err != nil {
		http.Error(w, "invalid menu item id", http.StatusBadRequest)

		return
	}
	quantity, err := strconv.Atoi(r.URL.Query().Get("quantity"))
	if err != nil {
		http.Error(w, "invalid quantity", http.StatusBadRequest)

		return
	}

	c, err := s.store.updateCartItem(userID, menuItemID, quantity)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	writeJSON(w, c)
}

func (s *Server) removeFromCart(w http.ResponseWriter, r *http.Request) {
	userID, err := queryID(r, "userId")
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)

		return
	}
	menuItemID, err := queryID(r, "menuItemId")
	if err != nil {
		http.Error(w, "invalid menu item id", http.StatusBadRequest)

		return
	}

	c, err := s.store.removeFromCart(userID, menuItemID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	writeJSON(w, c)
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	userID, err := queryID(r, "userId")
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)

		return
	}

	writeJSON(w, s.store.clearCart(userID))
}

func (s *Server) usersByType(w http.ResponseWriter, r *http.Request) {
	userType := r.URL.Query().Get("userType")
	if userType == "" {
		http.Error(w, "userType is required", http.StatusBadRequest)

		return
	}

	writeJSON(w, s.store.usersByType(userType))
}

func (s *Server) setUserStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)

		return
	}

	var body struct {
		IsActive bool `json:"isActive"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Failed to decode request body", http.StatusBadRequest)

		return
	}

	u, err := s.store.setUserActive(id, body.IsActive)
	if errors.Is(err, errNotFound) {
		http.Error(w, "user not found", http.StatusNotFound)

		return
	}

	writeJSON(w, u)
}
