package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartLine is one entry in a cart. ID is the product id; LineID tells apart
// lines that share the same product and unit.
type CartLine struct {
	LineID    string          `json:"lineId"`
	ID        int             `json:"id"`
	UnitID    int             `json:"unitId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Name      string          `json:"name,omitempty"`
	ImageURL  string          `json:"imageUrl,omitempty"`
}

// Subtotal returns quantity × unit price.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is a customer's ordered list of lines.
type Cart struct {
	CustomerID string     `json:"customerId"`
	Lines      []CartLine `json:"lines"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// NewCart returns an empty cart for customerID.
func NewCart(customerID string) *Cart {
	return &Cart{CustomerID: customerID, Lines: []CartLine{}}
}

// LineGroup merges the lines that share a product and unit.
type LineGroup struct {
	ProductID int             `json:"productId"`
	UnitID    int             `json:"unitId"`
	Line      CartLine        `json:"line"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Lines     []CartLine      `json:"lines"`
}

// AddLine adds quantity of product in unitID. Unless allowDuplicate is set,
// the quantity is merged into the first line with the same product and unit.
// Quantities are not validated here. It returns the affected line.
func (c *Cart) AddLine(product Product, unitID, quantity int, allowDuplicate bool) CartLine {
	if !allowDuplicate {
		if i := c.find(product.ID, unitID, ""); i >= 0 {
			c.Lines[i].Quantity += quantity
			return c.Lines[i]
		}
	}

	line := CartLine{
		LineID:    uuid.NewString(),
		ID:        product.ID,
		UnitID:    unitID,
		Quantity:  quantity,
		UnitPrice: product.PriceFor(unitID),
		Name:      product.Name,
		ImageURL:  product.ImageURL,
	}
	c.Lines = append(c.Lines, line)
	return line
}

// UpdateQuantity sets the quantity of the line identified by lineID, or of the
// first (productID, unitID) line when lineID is empty. A quantity of zero or
// less removes the line. It reports whether a line matched.
func (c *Cart) UpdateQuantity(productID, unitID, quantity int, lineID string) bool {
	i := c.find(productID, unitID, lineID)
	if i < 0 {
		return false
	}
	if quantity <= 0 {
		c.removeAt(i)
		return true
	}
	c.Lines[i].Quantity = quantity
	return true
}

// RemoveLine removes the targeted line using the same rule as UpdateQuantity.
// It is a no-op when nothing matches.
func (c *Cart) RemoveLine(productID, unitID int, lineID string) bool {
	i := c.find(productID, unitID, lineID)
	if i < 0 {
		return false
	}
	c.removeAt(i)
	return true
}

// Clear removes every line.
func (c *Cart) Clear() {
	c.Lines = []CartLine{}
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// TotalPrice sums quantity × unit price over all lines.
func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// TotalItemCount sums quantities over all lines.
func (c *Cart) TotalItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// GroupedView groups lines by (product, unit) in order of first appearance.
// The first line of each group is its representative.
func (c *Cart) GroupedView() []LineGroup {
	type key struct{ product, unit int }
	index := make(map[key]int)
	groups := make([]LineGroup, 0, len(c.Lines))

	for _, l := range c.Lines {
		k := key{l.ID, l.UnitID}
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, LineGroup{
				ProductID: l.ID,
				UnitID:    l.UnitID,
				Line:      l,
				Subtotal:  decimal.Zero,
			})
		}
		g := &groups[i]
		g.Quantity += l.Quantity
		g.Subtotal = g.Subtotal.Add(l.Subtotal())
		g.Lines = append(g.Lines, l)
	}
	return groups
}

// find returns the index of the line with lineID, or of the first
// (productID, unitID) line when lineID is empty; -1 if none.
func (c *Cart) find(productID, unitID int, lineID string) int {
	for i, l := range c.Lines {
		if lineID != "" {
			if l.LineID == lineID {
				return i
			}
			continue
		}
		if l.ID == productID && l.UnitID == unitID {
			return i
		}
	}
	return -1
}

func (c *Cart) removeAt(i int) {
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
}
