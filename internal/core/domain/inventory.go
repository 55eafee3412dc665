package domain

import (
	"errors"
	"strconv"
	"strings"
)

// MaxPrice is the largest value the DECIMAL(12,2) price column holds.
const MaxPrice = 9999999999.99

type InventoryItem struct {
	ID          int64   `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	Description string  `json:"description" db:"description"`
	Quantity    int     `json:"quantity" db:"quantity"`
	Price       float64 `json:"price" db:"price"`
	Version     int64   `json:"-" db:"version"` // optimistic locking
}

// Validate checks the field constraints shared by create and update.
func (i InventoryItem) Validate() error {
	switch {
	case i.Name == "":
		return errors.New("name is required")
	case i.Quantity < 0:
		return errors.New("quantity must not be negative")
	case i.Price < 0:
		return errors.New("price must not be negative")
	case i.Price > MaxPrice:
		return errors.New("price must not exceed 9999999999.99")
	case !hasCents(i.Price):
		return errors.New("price must have at most 2 decimal places")
	}
	return nil
}

// hasCents reports whether the shortest decimal form of p has at most two
// fractional digits.
func hasCents(p float64) bool {
	s := strconv.FormatFloat(p, 'f', -1, 64)
	dot := strings.IndexByte(s, '.')
	return dot < 0 || len(s)-dot-1 <= 2
}

// ItemPatch carries the fields of a partial update. Nil fields are left untouched.
type ItemPatch struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Quantity    *int     `json:"quantity"`
	Price       *float64 `json:"price"`
}

func (p ItemPatch) Apply(item InventoryItem) InventoryItem {
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Quantity != nil {
		item.Quantity = *p.Quantity
	}
	if p.Price != nil {
		item.Price = *p.Price
	}
	return item
}

func (p ItemPatch) Renames(item InventoryItem) bool {
	return p.Name != nil && *p.Name != item.Name
}
