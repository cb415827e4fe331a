package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pharmacy/internal/cart"
	"pharmacy/internal/domain"
)

type cartResp struct {
	SessionID string            `json:"session_id"`
	Items     []domain.CartItem `json:"items"`
	Total     int64             `json:"total"`
	ItemCount int64             `json:"item_count"`
}

// session корзина текущей сессии; новый id выдаётся, если заголовка нет
func (s *Server) session(c *gin.Context) (string, *cart.Store) {
	id := strings.TrimSpace(c.GetHeader(sessionHeader))
	if id == "" {
		id = uuid.NewString()
	}
	c.Header(sessionHeader, id)
	return id, s.carts.Get(id)
}

func cartView(id string, st *cart.Store) cartResp {
	return cartResp{SessionID: id, Items: st.Items(), Total: st.Total(), ItemCount: st.ItemCount()}
}

// @Summary Get cart
// @Tags cart
// @Produce json
// @Param X-Session-ID header string false "Cart session"
// @Success 200 {object} cartResp
// @Router /cart [get]
func (s *Server) getCart(c *gin.Context) {
	id, st := s.session(c)
	c.JSON(http.StatusOK, cartView(id, st))
}

type addCartItemReq struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

// @Summary Add product to cart
// @Description Повторное добавление увеличивает количество в существующей строке.
// @Tags cart
// @Accept json
// @Produce json
// @Param X-Session-ID header string false "Cart session"
// @Param input body addCartItemReq true "Item"
// @Success 200 {object} cartResp
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /cart/items [post]
func (s *Server) addCartItem(c *gin.Context) {
	var req addCartItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Quantity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be positive"})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	p, err := s.catalog.GetProductByID(c, req.ProductID)
	if err != nil {
		s.fail(c, err)
		return
	}
	if !p.InStock {
		c.JSON(http.StatusConflict, gin.H{"error": "product is out of stock"})
		return
	}
	id, st := s.session(c)
	st.Add(*p, req.Quantity)
	c.JSON(http.StatusOK, cartView(id, st))
}

type updateCartItemReq struct {
	Quantity int64 `json:"quantity"`
}

// @Summary Set line quantity
// @Description Количество 0 или меньше удаляет строку.
// @Tags cart
// @Accept json
// @Produce json
// @Param X-Session-ID header string false "Cart session"
// @Param productId path string true "Product ID"
// @Param input body updateCartItemReq true "Quantity"
// @Success 200 {object} cartResp
// @Failure 400 {object} map[string]string
// @Router /cart/items/{productId} [put]
func (s *Server) updateCartItem(c *gin.Context) {
	var req updateCartItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	id, st := s.session(c)
	st.UpdateQuantity(c.Param("productId"), req.Quantity)
	c.JSON(http.StatusOK, cartView(id, st))
}

// @Summary Remove line
// @Tags cart
// @Produce json
// @Param X-Session-ID header string false "Cart session"
// @Param productId path string true "Product ID"
// @Success 200 {object} cartResp
// @Router /cart/items/{productId} [delete]
func (s *Server) removeCartItem(c *gin.Context) {
	id, st := s.session(c)
	st.Remove(c.Param("productId"))
	c.JSON(http.StatusOK, cartView(id, st))
}

// @Summary Clear cart
// @Tags cart
// @Produce json
// @Param X-Session-ID header string false "Cart session"
// @Success 200 {object} cartResp
// @Router /cart [delete]
func (s *Server) clearCart(c *gin.Context) {
	id, st := s.session(c)
	st.Clear()
	c.JSON(http.StatusOK, cartView(id, st))
}
