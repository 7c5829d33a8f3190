// Package notify builds WhatsApp click-to-chat links for cash on delivery orders.
package notify

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"storefront/internal/models"
)

const waBaseURL = "https://wa.me/"

type WhatsApp struct {
	number string
}

// NewWhatsApp takes the merchant number in international format without "+".
func NewWhatsApp(number string) *WhatsApp {
	return &WhatsApp{number: strings.TrimPrefix(strings.TrimSpace(number), "+")}
}

// CODOrder is everything the merchant needs to arrange a cash on delivery shipment.
type CODOrder struct {
	Items    []models.CartItem
	Quote    models.Quote
	Customer *models.CheckoutForm
}

// BuildCODMessage renders the multi-line order message.
func BuildCODMessage(order CODOrder) string {
	lines := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, fmt.Sprintf("%dx %s", item.Quantity, item.Name))
	}
	c := order.Customer

	var b strings.Builder
	b.WriteString("Hi! I'd like to place a cash on delivery order:\n\n")
	b.WriteString("Order Details:\n")
	b.WriteString(strings.Join(lines, ", "))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Subtotal: %s\n", FormatRupees(order.Quote.Subtotal))
	fmt.Fprintf(&b, "Shipping: %s\n", FormatRupees(order.Quote.Shipping))
	fmt.Fprintf(&b, "Total Amount: %s\n\n", FormatRupees(order.Quote.Total))
	b.WriteString("Customer Details:\n")
	fmt.Fprintf(&b, "Name: %s\n", c.FullName())
	fmt.Fprintf(&b, "Phone: %s\n", c.Phone)
	fmt.Fprintf(&b, "Email: %s\n", c.Email)
	fmt.Fprintf(&b, "Address: %s, %s, %s\n\n", c.Address, c.City, c.ZipCode)
	b.WriteString("Please arrange cash on delivery. Thank you!")
	return b.String()
}

// BuildQuickOrderMessage renders the one-line product page message.
func BuildQuickOrderMessage(product models.Product, quantity int) string {
	if quantity < 1 {
		quantity = 1
	}
	total := product.Price * int64(quantity)
	return fmt.Sprintf("Hi! I'd like to order %dx %s for %s (including tax). Please arrange cash on delivery.",
		quantity, product.Name, FormatRupees(total))
}

// DeepLink returns the wa.me URL that opens a chat prefilled with message.
func (w *WhatsApp) DeepLink(message string) string {
	return waBaseURL + w.number + "?text=" + EncodeText(message)
}

// CODLink is DeepLink(BuildCODMessage(order)).
func (w *WhatsApp) CODLink(order CODOrder) string {
	return w.DeepLink(BuildCODMessage(order))
}

// QuickOrderLink is DeepLink(BuildQuickOrderMessage(product, quantity)).
func (w *WhatsApp) QuickOrderLink(product models.Product, quantity int) string {
	return w.DeepLink(BuildQuickOrderMessage(product, quantity))
}

// EncodeText percent-encodes message for the text parameter. Spaces become %20.
func EncodeText(message string) string {
	return strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
}

// FormatRupees renders whole rupees with Indian digit grouping, e.g. ₹1,00,000.
func FormatRupees(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	if len(digits) <= 3 {
		return sign + "₹" + digits
	}

	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	groups := make([]string, 0, len(head)/2+1)
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	groups = append([]string{head}, groups...)
	return sign + "₹" + strings.Join(groups, ",") + "," + tail
}
