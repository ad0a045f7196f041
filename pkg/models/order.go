package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

var OrderStatuses = []OrderStatus{
	StatusPending,
	StatusConfirmed,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is expected.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentCard           PaymentMethod = "card"
	PaymentUPI            PaymentMethod = "upi"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCashOnDelivery, PaymentCard, PaymentUPI:
		return true
	}
	return false
}

type Order struct {
	ID              string                         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID          string                         `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Items           datatypes.JSONSlice[OrderItem] `gorm:"type:json" json:"items"`
	TotalAmount     decimal.Decimal                `gorm:"type:decimal(12,2)" json:"total_amount"`
	ShippingAddress Address                        `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	PaymentMethod   PaymentMethod                  `gorm:"type:varchar(20)" json:"payment_method"`
	Notes           string                         `gorm:"type:text" json:"notes,omitempty"`
	Status          OrderStatus                    `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	CreatedAt       time.Time                      `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time                      `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem is a line of an order with the unit price captured at submission.
type OrderItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Unit        string          `json:"unit"`
	Image       string          `json:"image,omitempty"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
