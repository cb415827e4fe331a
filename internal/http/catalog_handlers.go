package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pharmacy/internal/domain"
	"pharmacy/internal/service"
)

// @Summary List products
// @Description Без параметров возвращает весь каталог. q ищет по названию, категории и описанию на обоих языках.
// @Tags products
// @Produce json
// @Param q query string false "Search query"
// @Param category query string false "Category (en or vi)"
// @Success 200 {array} domain.Product
// @Router /products [get]
func (s *Server) listProducts(c *gin.Context) {
	var (
		list []domain.Product
		err  error
	)
	switch {
	case c.Query("q") != "":
		list, err = s.catalog.SearchProducts(c, c.Query("q"))
	case c.Query("category") != "":
		list, err = s.catalog.GetProductsByCategory(c, c.Query("category"))
	default:
		list, err = s.catalog.GetAllProducts(c)
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Featured products
// @Tags products
// @Produce json
// @Success 200 {array} domain.Product
// @Router /products/featured [get]
func (s *Server) featuredProducts(c *gin.Context) {
	list, err := s.catalog.GetFeaturedProducts(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Get product by id
// @Tags products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} domain.Product
// @Failure 404 {object} map[string]string
// @Router /products/{id} [get]
func (s *Server) getProduct(c *gin.Context) {
	p, err := s.catalog.GetProductByID(c, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type availabilityResp struct {
	ProductID string `json:"product_id"`
	BranchID  string `json:"branch_id"`
	Quantity  int64  `json:"quantity"`
}

// @Summary Product quantity in a branch
// @Tags products
// @Produce json
// @Param id path string true "Product ID"
// @Param branchId path string true "Branch ID"
// @Success 200 {object} availabilityResp
// @Router /products/{id}/availability/{branchId} [get]
func (s *Server) checkAvailability(c *gin.Context) {
	qty, err := s.catalog.CheckAvailability(c, c.Param("id"), c.Param("branchId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, availabilityResp{ProductID: c.Param("id"), BranchID: c.Param("branchId"), Quantity: qty})
}

// @Summary List branches
// @Tags branches
// @Produce json
// @Success 200 {array} domain.Branch
// @Router /branches [get]
func (s *Server) listBranches(c *gin.Context) {
	list, err := s.catalog.GetAllBranches(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Quote delivery
// @Tags delivery
// @Accept json
// @Produce json
// @Param input body service.DeliveryChoice true "Choice"
// @Success 200 {object} domain.DeliveryOption
// @Failure 400 {object} map[string]string
// @Router /delivery/quote [post]
func (s *Server) quoteDelivery(c *gin.Context) {
	var req service.DeliveryChoice
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	opt, err := s.catalog.QuoteDelivery(c, req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, opt)
}
