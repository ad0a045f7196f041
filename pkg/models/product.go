package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryVegetables Category = "vegetables"
	CategoryFruits     Category = "fruits"
	CategoryGrains     Category = "grains"
	CategoryHerbs      Category = "herbs"
	CategoryDairy      Category = "dairy"
	CategoryOther      Category = "other"
)

var Categories = []Category{
	CategoryVegetables,
	CategoryFruits,
	CategoryGrains,
	CategoryHerbs,
	CategoryDairy,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Product is a catalog entry offered by a farmer.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    Category        `json:"category"`
	Stock       int             `json:"stock"`
	Unit        string          `json:"unit"`
	Image       string          `json:"image,omitempty"`
	Farmer      string          `json:"farmer"`
	Location    string          `json:"location"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (p Product) InStock() bool {
	return p.Stock > 0
}
