package delivery

import (
	"net/http"
	"strconv"

	"storefront_service/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Carts are keyed by the opaque session identifier carried in X-Session-ID.
// Guests and logged-in customers use it the same way.
type CartHandler struct {
	useCase usecase.CartUseCase
	log     *logrus.Logger
}

func NewCartHandler(uc usecase.CartUseCase, logger *logrus.Logger) *CartHandler {
	return &CartHandler{
		useCase: uc,
		log:     logger,
	}
}

func (h *CartHandler) RegisterRoutes(router gin.IRouter) {
	cart := router.Group("/cart")
	{
		cart.GET("", h.GetCart)
		cart.POST("/items/:productID", h.AddItem)
		cart.POST("/items/:productID/decrement", h.DecrementItem)
		cart.DELETE("/items/:productID", h.RemoveItem)
	}
}

func sessionID(c *gin.Context) (string, bool) {
	id := c.GetHeader("X-Session-ID")
	return id, id != ""
}

func (h *CartHandler) GetCart(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		ErrorResponse(c, http.StatusBadRequest, "X-Session-ID header is required")
		return
	}

	view, err := h.useCase.GetCart(c.Request.Context(), sid)
	if err != nil {
		h.log.Errorf("Failed to get cart for session %s: %v", sid, err)
		ErrorResponse(c, mapErrorToStatus(err), "Failed to retrieve cart: "+err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "Cart retrieved successfully", view)
}

func (h *CartHandler) AddItem(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		ErrorResponse(c, http.StatusBadRequest, "X-Session-ID header is required")
		return
	}
	productID, err := strconv.Atoi(c.Param("productID"))
	if err != nil || productID <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	// Quantity defaults to 1; the body is optional.
	var requestBody struct {
		Quantity int `json:"quantity"`
	}
	_ = c.ShouldBindJSON(&requestBody)

	view, err := h.useCase.AddItem(c.Request.Context(), sid, productID, requestBody.Quantity)
	if err != nil {
		h.log.Warnf("Failed to add product %d to cart for session %s: %v", productID, sid, err)
		ErrorResponse(c, mapErrorToStatus(err), "Failed to add item to cart: "+err.Error())
		return
	}

	h.log.Infof("Product %d added to cart for session %s", productID, sid)
	SuccessResponse(c, http.StatusOK, "Item added to cart", view)
}

func (h *CartHandler) DecrementItem(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		ErrorResponse(c, http.StatusBadRequest, "X-Session-ID header is required")
		return
	}
	productID, err := strconv.Atoi(c.Param("productID"))
	if err != nil || productID <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	view, err := h.useCase.DecrementItem(c.Request.Context(), sid, productID)
	if err != nil {
		h.log.Errorf("Failed to decrement product %d in cart for session %s: %v", productID, sid, err)
		ErrorResponse(c, mapErrorToStatus(err), "Failed to update cart: "+err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "Cart updated", view)
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		ErrorResponse(c, http.StatusBadRequest, "X-Session-ID header is required")
		return
	}
	productID, err := strconv.Atoi(c.Param("productID"))
	if err != nil || productID <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	view, err := h.useCase.RemoveItem(c.Request.Context(), sid, productID)
	if err != nil {
		h.log.Errorf("Failed to remove product %d from cart for session %s: %v", productID, sid, err)
		ErrorResponse(c, mapErrorToStatus(err), "Failed to update cart: "+err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "Item removed from cart", view)
}
