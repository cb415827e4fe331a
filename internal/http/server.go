package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"pharmacy/internal/cart"
	"pharmacy/internal/logger"
	"pharmacy/internal/repository"
	"pharmacy/internal/service"
)

const (
	sessionHeader   = "X-Session-ID"
	requestIDHeader = "X-Request-ID"
)

type Server struct {
	engine  *gin.Engine
	catalog *service.CatalogService
	orders  *service.OrderService
	carts   *cart.Registry
	log     logger.Logger
}

func NewServer(catalog *service.CatalogService, orders *service.OrderService, carts *cart.Registry, log logger.Logger) *Server {
	r := gin.New()
	r.Use(requestLogger(log), gin.Recovery())
	s := &Server{engine: r, catalog: catalog, orders: orders, carts: carts, log: log}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := s.engine.Group("/api/v1")
	{
		products := v1.Group("/products")
		products.GET("", s.listProducts)
		products.GET("/featured", s.featuredProducts)
		products.GET("/:id", s.getProduct)
		products.GET("/:id/availability/:branchId", s.checkAvailability)

		v1.GET("/branches", s.listBranches)
		v1.POST("/delivery/quote", s.quoteDelivery)

		carts := v1.Group("/cart")
		carts.GET("", s.getCart)
		carts.DELETE("", s.clearCart)
		carts.POST("/items", s.addCartItem)
		carts.PUT("/items/:productId", s.updateCartItem)
		carts.DELETE("/items/:productId", s.removeCartItem)

		v1.POST("/checkout", s.checkout)

		orders := v1.Group("/orders")
		orders.GET("", s.listOrders)
		orders.GET("/:id", s.getOrder)
		orders.PATCH("/:id/status", s.updateOrderStatus)
	}
}

// requestLogger пишет одну строку на запрос и проставляет request id
func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Header(requestIDHeader, rid)
		c.Next()

		fields := []zap.Field{
			zap.String("request_id", rid),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			log.Error("request", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			log.Warn("request", fields...)
		default:
			log.Debug("request", fields...)
		}
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := mapErrorToStatus(err)
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidState), errors.Is(err, service.ErrOrderIDConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
