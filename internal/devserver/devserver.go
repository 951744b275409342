package devserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/smartkitchen/kitchensync/pkg/http/middleware/trace"
	"github.com/smartkitchen/kitchensync/pkg/logger"
	"github.com/spf13/viper"
)

// Server is the in-memory stand-in for the SmartKitchen backend. It serves
// the cart/order/user REST endpoints plus the order event stream, for local
// development and the end-to-end tests.
type Server struct {
	server *http.Server
	router *chi.Mux
	store  *store
	hub    *hub
}

func NewServer() *Server {
	router := newRouter()
	server := newServer(router)
	s := &Server{
		server: server,
		router: router,
		store:  newStore(),
		hub:    newHub(),
	}
	s.registerRoutes()

	return s
}

// Handler exposes the router so tests can mount the server on httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run() error {
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// registerRoutes registers the REST and stream routes.
func (s *Server) registerRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/orders/stream", s.streamOrders)
		r.Get("/orders", s.listOrders)
		r.Post("/orders", s.placeOrder)
		r.Get("/orders/my/{userId}", s.myOrders)
		r.Get("/orders/{id}", s.getOrder)
		r.Put("/orders/{id}/status", s.updateStatus)
		r.Put("/orders/{id}/assign-partner", s.assignPartner)
		r.Post("/orders/{id}/update-inventory", s.acceptOrder)

		r.Get("/cart/user/{userId}", s.getCart)
		r.Post("/cart/add", s.addToCart)
		r.Put("/cart/update", s.updateCart)
		r.Delete("/cart/remove", s.removeFromCart)
		r.Delete("/cart/clear", s.clearCart)

		r.Get("/user/profile/by-type", s.usersByType)
		r.Put("/user/profile/{id}/status", s.setUserStatus)
	})
}

func newRouter() *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))
	router.Use(trace.NewTraceMiddleware)

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	if len(allowedMethods) == 0 {
		allowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	if len(allowedHeaders) == 0 {
		allowedHeaders = []string{"Accept", "Authorization", "Content-Type"}
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		AllowCredentials: viper.GetBool("server.http.cors.allow_credentials"),
		MaxAge:           viper.GetInt("server.http.cors.max_age"),
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	port := viper.GetString("server.http.port")
	if port == "" {
		port = "8080"
	}

	return &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}
}
