package models

// ProductFilter narrows a catalog listing. Zero values match everything.
type ProductFilter struct {
	Category Category
	Search   string
	Limit    int
}

// OrderFilter narrows an order listing, newest first.
type OrderFilter struct {
	UserID string
	Status OrderStatus
	Search string
	Limit  int
}
