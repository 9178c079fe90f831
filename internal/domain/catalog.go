package domain

import (
	"github.com/shopspring/decimal"
)

// ProductUnit is a unit of measurement a product is sold in, with its own price.
type ProductUnit struct {
	UnitID int             `json:"unitMeasurementId"`
	Name   string          `json:"name,omitempty"`
	Price  decimal.Decimal `json:"price"`
}

// Product is a catalog product.
type Product struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  int             `json:"categoryId,omitempty"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	Units       []ProductUnit   `json:"units,omitempty"`
}

// PriceFor returns the price for unitID, falling back to the base price.
func (p Product) PriceFor(unitID int) decimal.Decimal {
	for _, u := range p.Units {
		if u.UnitID == unitID {
			return u.Price
		}
	}
	return p.Price
}

// Area is a delivery area of a customer company.
type Area struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	CompanyID int    `json:"companyId,omitempty"`
}

// Category groups products in the catalog.
type Category struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// UnitMeasurement is a sellable unit such as kilo or box.
type UnitMeasurement struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
