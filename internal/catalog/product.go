// Package catalog loads the product feed that backs the product grid, the
// variant picker and cart line items.
package catalog

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	ErrProductNotFound    = errors.New("product not found")
)

var DefaultPrice = decimal.RequireFromString("4.50")

const DefaultStock = 10

type Product struct {
	SKU      string           `json:"sku"`
	Name     string           `json:"name,omitempty"`
	Color    string           `json:"color,omitempty"`
	Price    *decimal.Decimal `json:"price,omitempty"`
	Stock    *int             `json:"stock,omitempty"`
	ImgSmall string           `json:"imgSmall,omitempty"`
	Image    string           `json:"image,omitempty"`
}

// withDefaults fills in what the feed may leave out.
func (p Product) withDefaults() Product {
	if p.Name == "" {
		p.Name = p.SKU
	}
	if p.Price == nil {
		price := DefaultPrice
		p.Price = &price
	}
	if p.Stock == nil {
		stock := DefaultStock
		p.Stock = &stock
	}
	if p.ImgSmall == "" {
		p.ImgSmall = "img/products/small/" + p.SKU + ".webp"
	}
	if p.Image == "" {
		p.Image = "img/products/" + p.SKU + ".webp"
	}
	return p
}

func (p Product) UnitPrice() decimal.Decimal {
	if p.Price == nil {
		return DefaultPrice
	}
	return *p.Price
}

func (p Product) StockLevel() int {
	if p.Stock == nil {
		return DefaultStock
	}
	return *p.Stock
}
