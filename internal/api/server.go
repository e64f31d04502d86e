package api

import (
	"context"
	"time"

	"bistro/internal/models"
	"bistro/internal/monitoring"
	"bistro/internal/search"
	"bistro/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OrderReader loads persisted orders
type OrderReader interface {
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
}

// Server exposes the ordering conversation over HTTP
type Server struct {
	router    *gin.Engine
	sessions  *session.Store
	menu      *models.Menu
	index     *search.MenuIndex
	orders    OrderReader
	monitor   *monitoring.Monitor
	logger    *zap.Logger
	jwtSecret string
}

// Option configures a Server
type Option func(*Server)

// WithIndex enables typo tolerant menu search
func WithIndex(index *search.MenuIndex) Option {
	return func(s *Server) { s.index = index }
}

// WithOrders enables the persisted order lookup
func WithOrders(orders OrderReader) Option {
	return func(s *Server) { s.orders = orders }
}

// WithMonitor enables the JSON metrics endpoint
func WithMonitor(m *monitoring.Monitor) Option {
	return func(s *Server) { s.monitor = m }
}

// WithLogger sets the request logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithJWTSecret requires an HS256 bearer token on the API routes
func WithJWTSecret(secret string) Option {
	return func(s *Server) { s.jwtSecret = secret }
}

// NewServer creates the HTTP server for the given session store and menu
func NewServer(sessions *session.Store, menu *models.Menu, opts ...Option) *Server {
	s := &Server{
		sessions: sessions,
		menu:     menu,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.menu == nil {
		s.menu = models.DefaultMenu()
	}
	s.logger = s.logger.With(zap.String("component", "api"))

	s.router = gin.New()
	s.router.Use(gin.Recovery(), s.requestLogger())
	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	if s.jwtSecret != "" {
		v1.Use(AuthMiddleware(s.jwtSecret))
	}
	{
		v1.GET("/menu", s.handleMenu)
		v1.GET("/metrics", s.handleMetrics)
		v1.GET("/orders/:id", s.handleGetOrder)

		v1.POST("/sessions", s.handleCreateSession)
		v1.GET("/sessions/:id", s.handleGetSession)
		v1.DELETE("/sessions/:id", s.handleDeleteSession)
		v1.POST("/sessions/:id/messages", s.handleMessage)
		v1.GET("/sessions/:id/order", s.handleOrder)
		v1.GET("/sessions/:id/analytics", s.handleAnalytics)
		v1.POST("/sessions/:id/reset", s.handleReset)
		v1.POST("/sessions/:id/suggestions", s.handleSuggestions)
		v1.POST("/sessions/:id/resolve", s.handleResolve)
		v1.GET("/sessions/:id/ws", s.handleWebSocket)
	}
}

// Router returns the Gin router
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
