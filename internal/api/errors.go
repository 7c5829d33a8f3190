package api

import (
	"errors"
	"net/http"

	"storefront/internal/gateway"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var stepMessages = map[string]string{
	service.StepOrderCreation:  "Order creation failed",
	service.StepPaymentSession: "Payment session creation failed",
}

// respondError maps service errors onto status codes and the
// {success:false, message} body shared by every route.
func (h *Handler) respondError(c *gin.Context, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		body := gin.H{"success": false, "message": verr.Message}
		if len(verr.Fields) > 0 {
			body["fields"] = verr.Fields
		}
		c.JSON(http.StatusBadRequest, body)
		return
	}

	switch {
	case errors.Is(err, service.ErrCartEmpty):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Cart is empty"})
		return
	case errors.Is(err, service.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Product not found"})
		return
	}

	var stepErr *service.GatewayStepError
	if errors.As(err, &stepErr) {
		message := stepMessages[stepErr.Step]
		var apiErr *gateway.APIError
		if errors.As(err, &apiErr) {
			c.JSON(apiErr.StatusCode, gin.H{
				"success": false,
				"message": message,
				"details": apiErr.Body,
			})
			return
		}
		h.logger.Error("Gateway unreachable", zap.String("step", stepErr.Step), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"message": message,
			"details": stepErr.Err.Error(),
		})
		return
	}

	h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"message": "Internal server error",
	})
}
