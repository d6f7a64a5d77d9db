package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ipfsnut/birthdays-with-jose/internal/logic"
	"github.com/ipfsnut/birthdays-with-jose/internal/sales"
	"github.com/ipfsnut/birthdays-with-jose/internal/storage"
)

// SuccessResponse 成功响应
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse 错误响应
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Message: message,
		Data:    nil,
	})
}

// statusFromError 引擎错误翻译成HTTP状态码，revert绝不伪装成成功
func statusFromError(err error) int {
	switch {
	case errors.Is(err, sales.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, sales.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sales.ErrNotOwner),
		errors.Is(err, logic.ErrNotFulfilled),
		errors.Is(err, logic.ErrNotHolder):
		return http.StatusForbidden
	case errors.Is(err, sales.ErrSoldOut),
		errors.Is(err, sales.ErrAlreadyFulfilled),
		errors.Is(err, sales.ErrNoFunds):
		return http.StatusConflict
	case errors.Is(err, sales.ErrTransferFailed):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}
