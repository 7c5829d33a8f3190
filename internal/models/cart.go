package models

import "time"

// MaxLineQuantity caps the units of a single cart line.
const MaxLineQuantity = 10

// CartItem is a product line in the cart. Items are keyed by ID only; the color of the
// first add is kept.
type CartItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Image    string `json:"image"`
	Color    string `json:"color"`
	Quantity int    `json:"quantity"`
}

// Subtotal returns price times quantity.
func (i CartItem) Subtotal() int64 {
	return i.Price * int64(i.Quantity)
}

// Cart holds the items of one shopper in insertion order
type Cart struct {
	ID        string     `json:"id"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewCart returns an empty cart with the given id.
func NewCart(id string) *Cart {
	return &Cart{ID: id, Items: []CartItem{}}
}

func (c *Cart) indexOf(id string) int {
	for i := range c.Items {
		if c.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// Add inserts item with quantity count, or increments an existing line by count.
// A count below 1 is treated as 1 and a line never exceeds MaxLineQuantity.
func (c *Cart) Add(item CartItem, count int) {
	if count < 1 {
		count = 1
	}
	if count > MaxLineQuantity {
		count = MaxLineQuantity
	}
	if i := c.indexOf(item.ID); i >= 0 {
		c.Items[i].Quantity = capQuantity(c.Items[i].Quantity + count)
		return
	}
	item.Quantity = count
	c.Items = append(c.Items, item)
}

func capQuantity(q int) int {
	if q > MaxLineQuantity {
		return MaxLineQuantity
	}
	return q
}

// UpdateQuantity sets the quantity of id; a quantity of zero or less removes the line.
func (c *Cart) UpdateQuantity(id string, quantity int) {
	if quantity <= 0 {
		c.Remove(id)
		return
	}
	if i := c.indexOf(id); i >= 0 {
		c.Items[i].Quantity = capQuantity(quantity)
	}
}

// Remove deletes the line for id if present.
func (c *Cart) Remove(id string) {
	if i := c.indexOf(id); i >= 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Items = []CartItem{}
}

// Item returns the line for id.
func (c *Cart) Item(id string) (CartItem, bool) {
	if i := c.indexOf(id); i >= 0 {
		return c.Items[i], true
	}
	return CartItem{}, false
}

// Total is recomputed on every call.
func (c *Cart) Total() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.Subtotal()
	}
	return total
}

// Count returns the number of units across all lines.
func (c *Cart) Count() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}
