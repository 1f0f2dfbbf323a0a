package models

import "time"

// ProductSnapshot is denormalized product data stored inline on a cart line
// so repeat reads can skip the catalog call.
type ProductSnapshot struct {
	ID    string  `json:"_id,omitempty"`
	Name  string  `json:"name,omitempty"`
	Price float64 `json:"price,omitempty"`
	Image string  `json:"image,omitempty"`
	Slug  string  `json:"slug,omitempty"`
}

// Complete reports whether the snapshot carries enough data that a catalog
// lookup for the line can be skipped.
func (p *ProductSnapshot) Complete() bool {
	return p != nil && p.Name != "" && p.Price > 0
}

// HasPrice reports whether the snapshot is usable as a price source.
func (p *ProductSnapshot) HasPrice() bool {
	return p != nil && p.Price > 0
}

type CartLine struct {
	ProductID string           `json:"productId"`
	Quantity  int              `json:"quantity"`
	Price     float64          `json:"price"`
	Product   *ProductSnapshot `json:"product,omitempty"`
	AddedAt   time.Time        `json:"addedAt"`
}

// Cart is the persisted record for one identity. Line order is insertion
// order and productIds are unique within Items.
type Cart struct {
	Items []CartLine `json:"items"`
}

// Find returns the index of the line for productID, or -1.
func (c *Cart) Find(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}
