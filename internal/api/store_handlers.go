package api

import (
	"net/http"
	"strconv"

	"storefront/internal/catalog"
	"storefront/internal/models"

	"github.com/gin-gonic/gin"
)

type cartView struct {
	ID    string            `json:"id"`
	Items []models.CartItem `json:"items"`
	Total int64             `json:"total"`
	Count int               `json:"count"`
}

func newCartView(cart *models.Cart) cartView {
	return cartView{
		ID:    cart.ID,
		Items: cart.Items,
		Total: cart.Total(),
		Count: cart.Count(),
	}
}

type addItemRequest struct {
	ID       string `json:"id" binding:"required"`
	Quantity int    `json:"quantity" binding:"max=10"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity" binding:"required,max=10"`
}

type quoteRequest struct {
	PaymentMethod string `json:"paymentMethod" binding:"required"`
}

type codRequest struct {
	Form *models.CheckoutForm `json:"form" binding:"required"`
}

func (h *Handler) listProducts(c *gin.Context) {
	variant := c.DefaultQuery("variant", catalog.VariantAll)
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"products": h.catalog.ListByVariant(variant),
	})
}

func (h *Handler) getProduct(c *gin.Context) {
	product, ok := h.catalog.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Product not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "product": product})
}

func (h *Handler) getCart(c *gin.Context) {
	cart, err := h.carts.Get(c.Request.Context(), c.GetString(cartIDKey))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "cart": newCartView(cart)})
}

func (h *Handler) addCartItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body", "details": err.Error()})
		return
	}

	cart, err := h.carts.AddItem(c.Request.Context(), c.GetString(cartIDKey), req.ID, req.Quantity)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "cart": newCartView(cart)})
}

func (h *Handler) updateCartItem(c *gin.Context) {
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body", "details": err.Error()})
		return
	}

	cart, err := h.carts.UpdateQuantity(c.Request.Context(), c.GetString(cartIDKey), c.Param("id"), *req.Quantity)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "cart": newCartView(cart)})
}

func (h *Handler) removeCartItem(c *gin.Context) {
	cart, err := h.carts.RemoveItem(c.Request.Context(), c.GetString(cartIDKey), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "cart": newCartView(cart)})
}

func (h *Handler) clearCart(c *gin.Context) {
	cartID := c.GetString(cartIDKey)
	if err := h.carts.Clear(c.Request.Context(), cartID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "cart": newCartView(models.NewCart(cartID))})
}

func (h *Handler) quote(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid payment method"})
		return
	}

	quote, err := h.checkout.Quote(c.Request.Context(), c.GetString(cartIDKey), req.PaymentMethod)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "quote": quote})
}

// placeCOD validates the checkout form and returns the WhatsApp hand-off link
func (h *Handler) placeCOD(c *gin.Context) {
	var req codRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Please fill in all required fields"})
		return
	}

	result, err := h.checkout.PlaceCOD(c.Request.Context(), c.GetString(cartIDKey), req.Form)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"orderId":     result.OrderID,
		"whatsappUrl": result.WhatsAppURL,
		"quote":       result.Quote,
		"message":     "Redirecting to WhatsApp",
	})
}

// quickOrder builds the product page WhatsApp link
func (h *Handler) quickOrder(c *gin.Context) {
	product, ok := h.catalog.Get(c.Query("product_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Product not found"})
		return
	}

	quantity, err := strconv.Atoi(c.DefaultQuery("quantity", "1"))
	if err != nil || quantity < 1 {
		quantity = 1
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"whatsappUrl": h.whatsapp.QuickOrderLink(product, quantity),
		"message":     "Redirecting to WhatsApp",
	})
}
