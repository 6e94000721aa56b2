package delivery

import (
	"errors"
	"net/http"
	"strconv"

	"storefront_service/internal/domain"
	"storefront_service/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type OrderHandler struct {
	checkout usecase.CheckoutUseCase
	orders   usecase.OrderUseCase
	log      *logrus.Logger
}

func NewOrderHandler(checkout usecase.CheckoutUseCase, orders usecase.OrderUseCase, logger *logrus.Logger) *OrderHandler {
	return &OrderHandler{
		checkout: checkout,
		orders:   orders,
		log:      logger,
	}
}

func (h *OrderHandler) RegisterRoutes(router gin.IRouter) {
	router.POST("/checkout", h.Checkout)

	orders := router.Group("/orders")
	{
		orders.GET("", h.ListOrders)
		orders.GET("/:id", h.GetOrderByID)
		orders.POST("/:id/payment", h.CompletePayment)
		orders.POST("/:id/cancel", h.CancelOrder)
		orders.PATCH("/:id/status", h.AdvanceStatus)
		orders.PATCH("/:id/items/:itemID", h.UpdateItemQuantity)
	}
}

// customerID reads the optional X-User-ID header; guests simply omit it.
func customerID(c *gin.Context) (*int, error) {
	header := c.GetHeader("X-User-ID")
	if header == "" {
		return nil, nil
	}
	id, err := strconv.Atoi(header)
	if err != nil || id <= 0 {
		return nil, errors.New("invalid X-User-ID header value")
	}
	return &id, nil
}

func (h *OrderHandler) Checkout(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		ErrorResponse(c, http.StatusBadRequest, "X-Session-ID header is required")
		return
	}

	var info usecase.CheckoutInfo
	if err := c.ShouldBindJSON(&info); err != nil {
		h.log.Errorf("Failed to bind JSON for checkout (session %s): %v", sid, err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	cid, err := customerID(c)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	info.CustomerID = cid

	order, err := h.checkout.Checkout(c.Request.Context(), sid, info)
	if err != nil {
		h.log.Warnf("Checkout failed for session %s: %v", sid, err)
		ErrorResponse(c, mapErrorToStatus(err), "Checkout failed: "+err.Error())
		return
	}

	h.log.Infof("Order %d created from session %s", order.ID, sid)
	SuccessResponse(c, http.StatusCreated, "Order created successfully", order)
}

func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		h.log.Warnf("Invalid order ID parameter: %s", c.Param("id"))
		ErrorResponse(c, http.StatusBadRequest, "Invalid order ID format")
		return
	}

	cid, err := customerID(c)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.orders.GetOrderByID(c.Request.Context(), id)
	if err != nil {
		h.log.Warnf("Failed to get order by ID %d: %v", id, err)
		ErrorResponse(c, mapErrorToStatus(err), "Failed to retrieve order: "+err.Error())
		return
	}

	if cid != nil {
		if order.CustomerID == nil || *order.CustomerID != *cid {
			h.log.Warnf("Authorization failed: customer %d attempted to access order %d", *cid, id)
			ErrorResponse(c, http.StatusForbidden, "You are not authorized to view this order")
			return
		}
	}

	SuccessResponse(c, http.StatusOK, "Order retrieved successfully", order)
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	cid, err := customerID(c)
	if err != nil || cid == nil {
		ErrorResponse(c, http.StatusUnauthorized, "User identification missing")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	orders, err := h.orders.ListOrdersByCustomer(c.Request.Context(), *cid, limit, offset)
	if err != nil {
		h.log.Errorf("Failed to list orders for customer %d: %v", *cid, err)
		ErrorResponse(c, mapErrorToStatus(err), "Failed to retrieve orders: "+err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "Orders retrieved successfully", orders)
}

func (h *OrderHandler) CompletePayment(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid order ID format")
		return
	}

	// The session is optional here: when present, a successful payment also
	// clears the cart it came from.
	sid, _ := sessionID(c)

	order, err := h.orders.CompletePayment(c.Request.Context(), id, sid)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyPaid) {
			h.log.Infof("Order %d payment retried after completion", id)
			SuccessResponse(c, http.StatusOK, "This order has already been paid", order)
			return
		}
		h.log.Warnf("Payment failed for order %d: %v", id, err)
		ErrorResponse(c, mapErrorToStatus(err), "Payment failed: "+err.Error())
		return
	}

	h.log.Infof("Payment completed for order %d", id)
	SuccessResponse(c, http.StatusOK, "Payment completed successfully", order)
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid order ID format")
		return
	}

	order, err := h.orders.Cancel(c.Request.Context(), id)
	if err != nil {
		h.log.Warnf("Failed to cancel order %d: %v", id, err)
		ErrorResponse(c, mapErrorToStatus(err), "Failed to cancel order: "+err.Error())
		return
	}

	h.log.Infof("Order %d cancelled", id)
	SuccessResponse(c, http.StatusOK, "Order cancelled successfully", order)
}

func (h *OrderHandler) AdvanceStatus(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid order ID format")
		return
	}

	var requestBody struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	target := domain.OrderStatus(requestBody.Status)
	if !domain.IsValidStatus(target) {
		ErrorResponse(c, http.StatusBadRequest, "Invalid order status: "+requestBody.Status)
		return
	}

	order, err := h.orders.AdvanceStatus(c.Request.Context(), id, target)
	if err != nil {
		h.log.Warnf("Failed to advance order %d to '%s': %v", id, target, err)
		ErrorResponse(c, mapErrorToStatus(err), "Failed to update order status: "+err.Error())
		return
	}

	h.log.Infof("Order %d advanced to '%s'", id, order.Status)
	SuccessResponse(c, http.StatusOK, "Order status updated successfully", order)
}

func (h *OrderHandler) UpdateItemQuantity(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid order ID format")
		return
	}
	itemID, err := strconv.Atoi(c.Param("itemID"))
	if err != nil || itemID <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid item ID format")
		return
	}

	var requestBody struct {
		Quantity int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	order, err := h.orders.UpdateItemQuantity(c.Request.Context(), id, itemID, requestBody.Quantity)
	if err != nil {
		h.log.Warnf("Failed to update item %d of order %d: %v", itemID, id, err)
		ErrorResponse(c, mapErrorToStatus(err), "Failed to update order item: "+err.Error())
		return
	}

	h.log.Infof("Order %d item %d updated", id, itemID)
	SuccessResponse(c, http.StatusOK, "Order item updated successfully", order)
}
