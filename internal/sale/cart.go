// Package sale composes cart calculation, stock validation, batch
// allocation, inventory sync and transaction recording into one sale
// operation with partial-failure handling.
package sale

import (
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/ScepterCode/Storemaster-sub002/internal/apperr"
)

// State is the cart's position in the sale lifecycle.
type State string

const (
	StateBuilding   State = "building"
	StateValidating State = "validating"
	StateAllocating State = "allocating"
	StateCommitting State = "committing"
	StateCompleted  State = "completed"
	StateAborted    State = "aborted"
)

// DiscountKind selects how a discount value is interpreted.
type DiscountKind string

const (
	DiscountAmount  DiscountKind = "amount"
	DiscountPercent DiscountKind = "percent"
)

// LineItem is one product line in the cart.
type LineItem struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TaxRate     float64 `json:"tax_rate"`
	Discount    float64 `json:"discount"`
	LineTotal   float64 `json:"line_total"`
}

// Totals is the recomputed money summary of the cart.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Discount float64 `json:"discount"`
	Total    float64 `json:"total"`
}

// Cart accumulates a sale while it is being built. Only ProcessSale has
// side effects beyond this in-memory state. All mutations recompute the
// totals.
type Cart struct {
	mu sync.Mutex

	ID         string
	TenantID   string
	CustomerID string

	state        State
	items        []*LineItem
	saleDiscount float64
	saleDiscKind DiscountKind
	totals       Totals
}

// NewCart creates an empty cart in the Building state.
func NewCart(tenantID string) *Cart {
	return &Cart{
		ID:       uuid.New().String(),
		TenantID: tenantID,
		state:    StateBuilding,
	}
}

// State returns the cart's current lifecycle state.
func (c *Cart) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Items returns a copy of the cart lines in insertion order.
func (c *Cart) Items() []LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]LineItem, 0, len(c.items))
	for _, item := range c.items {
		items = append(items, *item)
	}
	return items
}

// Totals returns the current money summary.
func (c *Cart) Totals() Totals {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totals
}

// AddItem adds a product line. Adding a product already in the cart merges
// into the existing line's quantity rather than duplicating it.
func (c *Cart) AddItem(productID, productName string, quantity int, unitPrice, taxRate float64) error {
	if quantity <= 0 {
		return apperr.Validation("quantity must be greater than zero")
	}
	if unitPrice <= 0 {
		return apperr.Validation("unit price must be greater than zero")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireBuilding(); err != nil {
		return err
	}

	for _, item := range c.items {
		if item.ProductID == productID {
			item.Quantity += quantity
			c.recompute()
			return nil
		}
	}

	c.items = append(c.items, &LineItem{
		ProductID:   productID,
		ProductName: productName,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		TaxRate:     taxRate,
	})
	c.recompute()
	return nil
}

// RemoveItem removes a product line.
func (c *Cart) RemoveItem(productID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireBuilding(); err != nil {
		return err
	}
	return c.removeLocked(productID)
}

// UpdateQuantity sets a line's quantity. Zero or negative removes the line.
func (c *Cart) UpdateQuantity(productID string, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireBuilding(); err != nil {
		return err
	}

	if quantity <= 0 {
		return c.removeLocked(productID)
	}
	for _, item := range c.items {
		if item.ProductID == productID {
			item.Quantity = quantity
			c.recompute()
			return nil
		}
	}
	return apperr.Newf(apperr.KindValidation, "product %s is not in the cart", productID)
}

// ApplyDiscount applies a discount to one line (productID set) or to the
// whole sale (productID empty).
func (c *Cart) ApplyDiscount(productID string, value float64, kind DiscountKind) error {
	if value < 0 {
		return apperr.Validation("discount cannot be negative")
	}
	if kind != DiscountAmount && kind != DiscountPercent {
		return apperr.Newf(apperr.KindValidation, "invalid discount kind %q", kind)
	}
	if kind == DiscountPercent && value > 100 {
		return apperr.Validation("percent discount cannot exceed 100")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireBuilding(); err != nil {
		return err
	}

	if productID == "" {
		c.saleDiscount = value
		c.saleDiscKind = kind
		c.recompute()
		return nil
	}

	for _, item := range c.items {
		if item.ProductID == productID {
			gross := float64(item.Quantity) * item.UnitPrice
			discount := value
			if kind == DiscountPercent {
				discount = gross * value / 100
			}
			if discount > gross {
				return apperr.Validation("discount cannot exceed line total")
			}
			item.Discount = discount
			c.recompute()
			return nil
		}
	}
	return apperr.Newf(apperr.KindValidation, "product %s is not in the cart", productID)
}

// SetCustomer attaches a customer to the sale.
func (c *Cart) SetCustomer(customerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CustomerID = customerID
}

// Clear resets the cart to an empty Building state.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

func (c *Cart) reset() {
	c.items = nil
	c.saleDiscount = 0
	c.saleDiscKind = ""
	c.CustomerID = ""
	c.totals = Totals{}
	c.state = StateBuilding
}

func (c *Cart) removeLocked(productID string) error {
	for i, item := range c.items {
		if item.ProductID == productID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			c.recompute()
			return nil
		}
	}
	return apperr.Newf(apperr.KindValidation, "product %s is not in the cart", productID)
}

func (c *Cart) requireBuilding() error {
	if c.state != StateBuilding {
		return apperr.Newf(apperr.KindValidation, "cart is %s, mutations require building state", c.state)
	}
	return nil
}

// recompute refreshes line totals and the cart summary. Tax applies to
// each line net of its own discount; the sale-level discount reduces the
// grand total without re-deriving tax.
func (c *Cart) recompute() {
	var subtotal, tax, lineDiscounts float64
	for _, item := range c.items {
		gross := float64(item.Quantity) * item.UnitPrice
		net := gross - item.Discount
		item.LineTotal = net
		subtotal += gross
		lineDiscounts += item.Discount
		tax += net * item.TaxRate
	}

	saleDiscount := c.saleDiscount
	if c.saleDiscKind == DiscountPercent {
		saleDiscount = (subtotal - lineDiscounts) * c.saleDiscount / 100
	}

	c.totals = Totals{
		Subtotal: round2(subtotal),
		Tax:      round2(tax),
		Discount: round2(lineDiscounts + saleDiscount),
		Total:    round2(subtotal - lineDiscounts - saleDiscount + tax),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
