package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/smartkitchen/kitchensync/internal/service/models/cart"
	"github.com/smartkitchen/kitchensync/internal/service/models/order"
	"github.com/smartkitchen/kitchensync/internal/service/models/user"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

// TokenSource yields the current bearer token, or "" when the session has
// none. Requests without a token go out unauthenticated; rejecting them is
// the server's job.
type TokenSource func() string

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

// Client is the outbound REST client for the order/cart/user endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      TokenSource
}

// option is a function that configures the Client.
type option func(*Client)

// MustNewClient creates a new Client. Without options the base URL comes
// from config and the token from the environment.
func MustNewClient(opts ...option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		baseURL:    viper.GetString("api.base_url"),
		token: func() string {
			return os.Getenv("KITCHENSYNC_TOKEN")
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == "" {
		panic("api.base_url is not configured")
	}
	c.baseURL = strings.TrimRight(c.baseURL, "/")

	return c
}

// WithBaseURL sets the API base URL, e.g. "http://localhost:8080/api".
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithBaseURL(baseURL string) option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTokenSource sets the bearer token source.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithTokenSource(token TokenSource) option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient sets the underlying HTTP client.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithHTTPClient(httpClient *http.Client) option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// CreateOrderRequest is the order-creation payload built from the cart.
type CreateOrderRequest struct {
	UserID              int64             `json:"userId"`
	TotalAmount         float64           `json:"totalAmount"`
	AddressLabel        string            `json:"addressLabel,omitempty"`
	AddressFull         string            `json:"addressFull"`
	AddressApartment    string            `json:"addressApartment,omitempty"`
	AddressInstructions string            `json:"addressInstructions,omitempty"`
	OrderItems          []CreateOrderItem `json:"orderItems"`
}

// CreateOrderItem is one line of an order-creation payload.
type CreateOrderItem struct {
	MenuItemID  int64   `json:"menuItemId,omitempty"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

// Cart fetches the full cart for a user.
func (c *Client) Cart(ctx context.Context, userID int64) (cart.Cart, error) {
	var out cart.Cart
	err := c.do(ctx, http.MethodGet, "/cart/user/"+strconv.FormatInt(userID, 10), nil, nil, &out)

	return out, err
}

// AddCartItem adds a menu item to the user's cart. The mutated cart is
// returned by the server but callers are expected to re-fetch.
func (c *Client) AddCartItem(ctx context.Context, userID, menuItemID int64, quantity int) (cart.Cart, error) {
	var out cart.Cart
	err := c.do(ctx, http.MethodPost, "/cart/add", cartParams(userID, menuItemID, quantity), nil, &out)

	return out, err
}

// UpdateCartItem sets the quantity of a cart line.
func (c *Client) UpdateCartItem(ctx context.Context, userID, menuItemID int64, quantity int) (cart.Cart, error) {
	var out cart.Cart
	err := c.do(ctx, http.MethodPut, "/cart/update", cartParams(userID, menuItemID, quantity), nil, &out)

	return out, err
}

// RemoveCartItem removes a cart line.
func (c *Client) RemoveCartItem(ctx context.Context, userID, menuItemID int64) (cart.Cart, error) {
	var out cart.Cart
	err := c.do(ctx, http.MethodDelete, "/cart/remove", cartParams(userID, menuItemID, -1), nil, &out)

	return out, err
}

// ClearCart empties the user's server-side cart.
func (c *Client) ClearCart(ctx context.Context, userID int64) (cart.Cart, error) {
	var out cart.Cart
	params := url.Values{}
	params.Set("userId", strconv.FormatInt(userID, 10))
	err := c.do(ctx, http.MethodDelete, "/cart/clear", params, nil, &out)

	return out, err
}

// PlaceOrder creates a new order and returns it with its assigned id.
func (c *Client) PlaceOrder(ctx context.Context, req CreateOrderRequest) (order.Order, error) {
	var out order.Order
	err := c.do(ctx, http.MethodPost, "/orders", nil, req, &out)

	return out, err
}

// Orders fetches every order.
func (c *Client) Orders(ctx context.Context) ([]order.Order, error) {
	var out []order.Order
	err := c.do(ctx, http.MethodGet, "/orders", nil, nil, &out)

	return out, err
}

// Order fetches a single order by id.
func (c *Client) Order(ctx context.Context, id int64) (order.Order, error) {
	var out order.Order
	err := c.do(ctx, http.MethodGet, "/orders/"+strconv.FormatInt(id, 10), nil, nil, &out)

	return out, err
}

// MyOrders fetches the orders placed by a user.
func (c *Client) MyOrders(ctx context.Context, userID int64) ([]order.Order, error) {
	var out []order.Order
	err := c.do(ctx, http.MethodGet, "/orders/my/"+strconv.FormatInt(userID, 10), nil, nil, &out)

	return out, err
}

// UpdateOrderStatus sets an order's status and returns the updated order.
func (c *Client) UpdateOrderStatus(ctx context.Context, id int64, status order.Status) (order.Order, error) {
	var out order.Order
	body := map[string]string{"status": status.String()}
	err := c.do(ctx, http.MethodPut, "/orders/"+strconv.FormatInt(id, 10)+"/status", nil, body, &out)

	return out, err
}

// AssignPartner assigns a delivery partner to an order. The server moves the
// order to Assigned and stamps assignedAt.
func (c *Client) AssignPartner(ctx context.Context, id, partnerID int64) (order.Order, error) {
	var out order.Order
	body := map[string]int64{"partnerId": partnerID}
	err := c.do(ctx, http.MethodPut, "/orders/"+strconv.FormatInt(id, 10)+"/assign-partner", nil, body, &out)

	return out, err
}

// AcceptOrder confirms an order and lets the backend consume inventory for it.
func (c *Client) AcceptOrder(ctx context.Context, id int64) (order.Order, error) {
	var out order.Order
	err := c.do(ctx, http.MethodPost, "/orders/"+strconv.FormatInt(id, 10)+"/update-inventory", nil, nil, &out)

	return out, err
}

// Partners fetches all delivery-partner profiles.
func (c *Client) Partners(ctx context.Context) ([]user.User, error) {
	var out []user.User
	params := url.Values{}
	params.Set("userType", user.UserTypeDeliveryPartner)
	err := c.do(ctx, http.MethodGet, "/user/profile/by-type", params, nil, &out)

	return out, err
}

// SetUserActive toggles a user's active flag.
func (c *Client) SetUserActive(ctx context.Context, userID int64, active bool) (user.User, error) {
	var out user.User
	body := map[string]bool{"isActive": active}
	err := c.do(ctx, http.MethodPut, "/user/profile/"+strconv.FormatInt(userID, 10)+"/status", nil, body, &out)

	return out, err
}

func cartParams(userID, menuItemID int64, quantity int) url.Values {
	params := url.Values{}
	params.Set("userId", strconv.FormatInt(userID, 10))
	params.Set("menuItemId", strconv.FormatInt(menuItemID, 10))
	if quantity >= 0 {
		params.Set("quantity", strconv.Itoa(quantity))
	}

	return params
}

// do issues one request inside a client-kind span and decodes the JSON
// response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	tracer := otel.Tracer("kitchensync")

	ctx, span := tracer.Start(ctx, method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPMethodKey.String(method),
			semconv.HTTPTargetKey.String(path),
		),
	)
	defer span.End()

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)

		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    readErrorMessage(resp.Body),
		}
		span.RecordError(apiErr)

		return apiErr
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// readErrorMessage pulls a {"message": ...} body if there is one, otherwise
// the raw text.
func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(data) == 0 {
		return "no response body"
	}

	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}

	return strings.TrimSpace(string(data))
}
