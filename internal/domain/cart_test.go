package domain

import (
	"encoding/json"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func apples() Product {
	return Product{
		ID:    1,
		Name:  "Manzana roja",
		Price: decimal.RequireFromString("2.50"),
		Units: []ProductUnit{{UnitID: 20, Price: decimal.RequireFromString("40.00")}},
	}
}

func pears() Product {
	return Product{ID: 2, Name: "Pera", Price: decimal.RequireFromString("3.10")}
}

var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func TestCart_AddLine_MergesSameProductAndUnit(t *testing.T) {
	c := NewCart("7")
	first := c.AddLine(apples(), 10, 2, false)
	c.AddLine(apples(), 10, 3, false)

	require.Len(t, c.Lines, 1)
	assert.Equal(t, 5, c.Lines[0].Quantity)
	assert.Equal(t, first.LineID, c.Lines[0].LineID)
}

func TestCart_AddLine_AllowDuplicate(t *testing.T) {
	c := NewCart("7")
	a := c.AddLine(apples(), 10, 2, false)
	b := c.AddLine(apples(), 10, 2, true)

	require.Len(t, c.Lines, 2)
	assert.NotEqual(t, a.LineID, b.LineID)
	assert.NotEmpty(t, b.LineID)
}

func TestCart_AddLine_DifferentUnitIsSeparateLine(t *testing.T) {
	c := NewCart("7")
	c.AddLine(apples(), 10, 1, false)
	c.AddLine(apples(), 20, 1, false)

	require.Len(t, c.Lines, 2)
	assert.True(t, decimal.RequireFromString("2.50").Equal(c.Lines[0].UnitPrice))
	assert.True(t, decimal.RequireFromString("40.00").Equal(c.Lines[1].UnitPrice))
}

func TestCart_UpdateQuantity(t *testing.T) {
	tests := []struct {
		name      string
		quantity  int
		byLine    bool
		wantLines int
		wantQty   []int
	}{
		{"sets first match", 9, false, 2, []int{9, 1}},
		{"targets line id", 9, true, 2, []int{1, 9}},
		{"zero removes", 0, false, 1, []int{1}},
		{"negative removes targeted line", -3, true, 1, []int{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCart("7")
			c.AddLine(apples(), 10, 1, false)
			dup := c.AddLine(apples(), 10, 1, true)

			lineID := ""
			if tt.byLine {
				lineID = dup.LineID
			}
			assert.True(t, c.UpdateQuantity(1, 10, tt.quantity, lineID))

			require.Len(t, c.Lines, tt.wantLines)
			qty := make([]int, 0, len(c.Lines))
			for _, l := range c.Lines {
				qty = append(qty, l.Quantity)
			}
			assert.Equal(t, tt.wantQty, qty)
		})
	}
}

func TestCart_UpdateQuantity_NoMatch(t *testing.T) {
	c := NewCart("7")
	c.AddLine(apples(), 10, 1, false)

	assert.False(t, c.UpdateQuantity(99, 10, 4, ""))
	assert.False(t, c.UpdateQuantity(1, 10, 4, "missing-line"))
	assert.Equal(t, 1, c.Lines[0].Quantity)
}

func TestCart_RemoveLine(t *testing.T) {
	c := NewCart("7")
	keep := c.AddLine(apples(), 10, 1, false)
	drop := c.AddLine(apples(), 10, 2, true)
	c.AddLine(pears(), 10, 1, false)

	assert.True(t, c.RemoveLine(1, 10, drop.LineID))
	assert.False(t, c.RemoveLine(3, 10, ""))

	require.Len(t, c.Lines, 2)
	assert.Equal(t, keep.LineID, c.Lines[0].LineID)
	assert.Equal(t, 2, c.Lines[1].ID)
}

func TestCart_ClearAndTotals(t *testing.T) {
	c := NewCart("7")
	c.AddLine(apples(), 10, 4, false) // 4 × 2.50
	c.AddLine(pears(), 10, 3, false)  // 3 × 3.10

	assert.Equal(t, 7, c.TotalItemCount())
	assert.Equal(t, "19.3", c.TotalPrice().String())

	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.Equal(t, 0, c.TotalItemCount())
	assert.True(t, c.TotalPrice().IsZero())
}

func TestCart_GroupedView(t *testing.T) {
	c := NewCart("7")
	a := c.AddLine(apples(), 10, 1, false)
	c.AddLine(pears(), 10, 2, false)
	b := c.AddLine(apples(), 10, 4, true)

	groups := c.GroupedView()
	require.Len(t, groups, 2)

	assert.Equal(t, 1, groups[0].ProductID)
	assert.Equal(t, a.LineID, groups[0].Line.LineID)
	assert.Equal(t, 5, groups[0].Quantity)
	assert.Equal(t, []string{a.LineID, b.LineID}, []string{groups[0].Lines[0].LineID, groups[0].Lines[1].LineID})
	assert.Equal(t, "12.5", groups[0].Subtotal.String())

	assert.Equal(t, 2, groups[1].ProductID)
	assert.Equal(t, 2, groups[1].Quantity)
}

// Random operation sequences must keep the count and grouping invariants.
func TestCart_RandomOperationsKeepInvariants(t *testing.T) {
	f := gofakeit.New(42)
	products := []Product{apples(), pears(), {ID: 3, Name: "Uva", Price: decimal.NewFromInt(5)}}

	for run := 0; run < 50; run++ {
		c := NewCart("7")
		for step := 0; step < 40; step++ {
			p := products[f.Number(0, len(products)-1)]
			unit := f.Number(1, 2) * 10
			lineID := ""
			if len(c.Lines) > 0 && f.Bool() {
				lineID = c.Lines[f.Number(0, len(c.Lines)-1)].LineID
			}

			switch f.Number(0, 2) {
			case 0:
				c.AddLine(p, unit, f.Number(1, 5), f.Bool())
			case 1:
				c.UpdateQuantity(p.ID, unit, f.Number(-2, 6), lineID)
			case 2:
				c.RemoveLine(p.ID, unit, lineID)
			}

			sum := 0
			ids := make(map[string]struct{}, len(c.Lines))
			for _, l := range c.Lines {
				require.Positive(t, l.Quantity)
				sum += l.Quantity
				ids[l.LineID] = struct{}{}
			}
			require.Equal(t, sum, c.TotalItemCount())
			require.Len(t, ids, len(c.Lines), "line ids must be unique")

			grouped := 0
			for _, g := range c.GroupedView() {
				inGroup := 0
				for _, l := range g.Lines {
					inGroup += l.Quantity
				}
				require.Equal(t, inGroup, g.Quantity)
				grouped += g.Quantity
			}
			require.Equal(t, sum, grouped)
		}
	}
}

func TestCart_PersistedRoundTrip(t *testing.T) {
	c := NewCart("7")
	c.AddLine(apples(), 10, 1, false)
	c.AddLine(apples(), 20, 2, false)
	c.AddLine(pears(), 10, 3, true)

	raw, err := json.Marshal(c)
	require.NoError(t, err)

	var restored Cart
	require.NoError(t, json.Unmarshal(raw, &restored))

	byLine := cmpopts.SortSlices(func(a, b CartLine) bool { return a.LineID < b.LineID })
	if diff := cmp.Diff(c.Lines, restored.Lines, byLine, decimalEqual); diff != "" {
		t.Errorf("restored lines mismatch (-want +got):\n%s", diff)
	}
}
