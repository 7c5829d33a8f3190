package api

import (
	"errors"
	"net/http"

	"storefront/internal/gateway"
	"storefront/internal/models"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 1 << 20

// initiatePayment creates the gateway order and payment session
func (h *Handler) initiatePayment(c *gin.Context) {
	var req service.InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Missing required fields",
			"details": err.Error(),
		})
		return
	}

	result, err := h.payments.Initiate(c.Request.Context(), &req, h.baseURL(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"paymentSessionId": result.PaymentSessionID,
		"orderId":          result.OrderID,
		"message":          "Payment session created successfully",
	})
}

// paymentCallback receives gateway webhooks. The raw body is needed for
// signature verification, so it is read before any decoding.
func (h *Handler) paymentCallback(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid webhook payload"})
		return
	}

	result, err := h.payments.HandleWebhook(c.Request.Context(), body, c.GetHeader(gateway.SignatureHeader))
	if err != nil {
		h.respondError(c, err)
		return
	}

	switch result.Type {
	case gateway.EventPaymentSuccess:
		c.JSON(http.StatusOK, gin.H{"success": true, "data": result.Data, "message": "Payment successful"})
	case gateway.EventPaymentFailed:
		c.JSON(http.StatusOK, gin.H{"success": false, "data": result.Data, "message": "Payment failed"})
	default:
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Webhook received"})
	}
}

// paymentStatus reports the mapped gateway status for an order
func (h *Handler) paymentStatus(c *gin.Context) {
	result, err := h.payments.CheckStatus(c.Request.Context(), c.Query("order_id"))
	if err != nil {
		var apiErr *gateway.APIError
		if errors.As(err, &apiErr) {
			c.JSON(apiErr.StatusCode, gin.H{
				"success": false,
				"message": "Failed to fetch payment status",
				"details": apiErr.Body,
			})
			return
		}
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": result.Outcome == models.PaymentOutcomeSuccess,
		"status":  result.Outcome.Label(),
		"data":    result.Order,
		"message": service.OutcomeMessage(result.Outcome),
	})
}

// debugPayment runs the initiation steps and reports which one failed
func (h *Handler) debugPayment(c *gin.Context) {
	var req service.InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Missing required fields",
			"details": err.Error(),
		})
		return
	}

	result, err := h.payments.DebugInitiate(c.Request.Context(), &req, h.baseURL(c))
	if err != nil {
		var stepErr *service.GatewayStepError
		if !errors.As(err, &stepErr) {
			h.respondError(c, err)
			return
		}

		status := http.StatusBadGateway
		var details interface{} = stepErr.Err.Error()
		var apiErr *gateway.APIError
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
			details = apiErr.Body
		}
		c.JSON(status, gin.H{
			"success":     false,
			"step":        stepErr.Step,
			"message":     stepMessages[stepErr.Step],
			"details":     details,
			"environment": h.diagnostics.Environment,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"step":             service.StepSessionCreated,
		"paymentSessionId": result.PaymentSessionID,
		"orderId":          result.OrderID,
		"environment":      result.Environment,
		"orderResponse":    result.OrderResponse,
		"sessionResponse":  result.SessionResponse,
	})
}

func setOrNot(ok bool) string {
	if ok {
		return "SET"
	}
	return "NOT SET"
}

// paymentDiagnostics lists which gateway settings are present
func (h *Handler) paymentDiagnostics(c *gin.Context) {
	d := h.diagnostics
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"environment": d.Environment,
		"baseUrl":     d.GatewayBaseURL,
		"apiVersion":  d.APIVersion,
		"config": gin.H{
			"CASHFREE_APP_ID":     setOrNot(d.AppIDSet),
			"CASHFREE_SECRET_KEY": setOrNot(d.SecretKeySet),
			"PUBLIC_BASE_URL":     setOrNot(d.PublicBaseURL != ""),
			"SHEETDB_URL":         setOrNot(d.SheetsEnabled),
		},
		"callbackBase": h.baseURL(c),
	})
}
