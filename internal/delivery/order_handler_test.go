package delivery

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront_service/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOrderUseCase struct {
	order *domain.Order
}

func (s *stubOrderUseCase) GetOrderByID(_ context.Context, id int) (*domain.Order, error) {
	if s.order == nil || s.order.ID != id {
		return nil, domain.ErrOrderNotFound
	}
	return s.order, nil
}

func (s *stubOrderUseCase) ListOrdersByCustomer(context.Context, int, int, int) ([]domain.Order, error) {
	return nil, errors.New("not implemented")
}

func (s *stubOrderUseCase) CompletePayment(context.Context, int, string) (*domain.Order, error) {
	return nil, errors.New("not implemented")
}

func (s *stubOrderUseCase) AdvanceStatus(context.Context, int, domain.OrderStatus) (*domain.Order, error) {
	return nil, errors.New("not implemented")
}

func (s *stubOrderUseCase) Cancel(context.Context, int) (*domain.Order, error) {
	return nil, errors.New("not implemented")
}

func (s *stubOrderUseCase) UpdateItemQuantity(context.Context, int, int, int) (*domain.Order, error) {
	return nil, errors.New("not implemented")
}

func newOrderRouter(order *domain.Order) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	router := gin.New()
	handler := NewOrderHandler(nil, &stubOrderUseCase{order: order}, logger)
	handler.RegisterRoutes(router)
	return router
}

func getOrder(router *gin.Engine, path, userHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if userHeader != "" {
		req.Header.Set("X-User-ID", userHeader)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestGetOrderOwnership(t *testing.T) {
	ownerID := 7
	order := &domain.Order{
		ID:          42,
		CustomerID:  &ownerID,
		FullName:    "Asha Rao",
		TotalAmount: decimal.NewFromInt(200),
		Status:      domain.StatusPending,
	}
	router := newOrderRouter(order)

	// The owner can read the order.
	resp := getOrder(router, "/orders/42", "7")
	assert.Equal(t, http.StatusOK, resp.Code)

	// Another customer cannot.
	resp = getOrder(router, "/orders/42", "8")
	assert.Equal(t, http.StatusForbidden, resp.Code)

	// A malformed header is rejected outright, not treated as anonymous.
	for _, header := range []string{"abc", "-1", "0", "7x"} {
		resp = getOrder(router, "/orders/42", header)
		require.Equal(t, http.StatusBadRequest, resp.Code, "header %q", header)
	}
}

func TestGetOrderInvalidID(t *testing.T) {
	router := newOrderRouter(nil)

	resp := getOrder(router, "/orders/abc", "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = getOrder(router, "/orders/99", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
