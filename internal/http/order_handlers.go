package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pharmacy/internal/domain"
	"pharmacy/internal/service"
)

type checkoutReq struct {
	Customer           domain.CustomerInfo    `json:"customer"`
	Delivery           service.DeliveryChoice `json:"delivery"`
	PrescriptionImages []string               `json:"prescription_images"`
}

// @Summary Checkout
// @Description Создаёт заказ из корзины сессии. Корзина очищается только при успехе.
// @Tags orders
// @Accept json
// @Produce json
// @Param X-Session-ID header string true "Cart session"
// @Param input body checkoutReq true "Checkout"
// @Success 201 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /checkout [post]
func (s *Server) checkout(c *gin.Context) {
	var req checkoutReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	delivery, err := s.catalog.QuoteDelivery(c, req.Delivery)
	if err != nil {
		s.fail(c, err)
		return
	}
	_, st := s.session(c)
	o, err := s.orders.Checkout(c, st, req.Customer, delivery, req.PrescriptionImages)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

// @Summary Orders by phone
// @Tags orders
// @Produce json
// @Param phone query string true "Customer phone"
// @Success 200 {array} domain.Order
// @Router /orders [get]
func (s *Server) listOrders(c *gin.Context) {
	list, err := s.orders.GetUserOrders(c, c.Query("phone"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Get order by id
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 404 {object} map[string]string
// @Router /orders/{id} [get]
func (s *Server) getOrder(c *gin.Context) {
	o, err := s.orders.GetOrderByID(c, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type updateStatusReq struct {
	Status domain.OrderStatus `json:"status"`
}

// @Summary Advance order status
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param input body updateStatusReq true "Status"
// @Success 200 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /orders/{id}/status [patch]
func (s *Server) updateOrderStatus(c *gin.Context) {
	var req updateStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	o, err := s.orders.UpdateOrderStatus(c, c.Param("id"), req.Status)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}
