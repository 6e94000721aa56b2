package delivery

import (
	"errors"
	"net/http"
	"strings"

	"storefront_service/internal/domain"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Status  string      `json:"Status"`
	Message string      `json:"Message"`
	Data    interface{} `json:"Data,omitempty"`
}

func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Status:  "Success",
		Message: message,
		Data:    data,
	})
}

func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Status:  "Fail",
		Message: message,
	})
}

func mapErrorToStatus(err error) int {
	if errors.Is(err, domain.ErrProductNotFound) || errors.Is(err, domain.ErrOrderNotFound) {
		return http.StatusNotFound
	}

	var stockShort *domain.InsufficientStockError
	var stockExceeded *domain.StockExceededError
	if errors.As(err, &stockShort) || errors.As(err, &stockExceeded) {
		return http.StatusConflict
	}

	var invalidTransition *domain.InvalidTransitionError
	if errors.As(err, &invalidTransition) {
		return http.StatusUnprocessableEntity
	}

	if errors.Is(err, domain.ErrEmptyCart) {
		return http.StatusBadRequest
	}

	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "not found") {
		return http.StatusNotFound
	}
	if strings.Contains(errMsg, "already exists") || strings.Contains(errMsg, "duplicate key") {
		return http.StatusConflict
	}
	if strings.Contains(errMsg, "invalid") || strings.Contains(errMsg, "cannot be empty") ||
		strings.Contains(errMsg, "must be") || strings.Contains(errMsg, "cannot be negative") ||
		strings.Contains(errMsg, "missing required") || strings.Contains(errMsg, "is required") ||
		strings.Contains(errMsg, "constraint violation") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
