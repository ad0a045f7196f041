package models

import (
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Address is shared by user profiles and order shipping snapshots.
type Address struct {
	Street  string `gorm:"type:varchar(200)" json:"street"`
	City    string `gorm:"type:varchar(100)" json:"city"`
	State   string `gorm:"type:varchar(100)" json:"state"`
	ZipCode string `gorm:"type:varchar(20)" json:"zipCode"`
}

// Missing lists the empty address fields by their JSON names.
func (a Address) Missing() []string {
	var missing []string
	if a.Street == "" {
		missing = append(missing, "street")
	}
	if a.City == "" {
		missing = append(missing, "city")
	}
	if a.State == "" {
		missing = append(missing, "state")
	}
	if a.ZipCode == "" {
		missing = append(missing, "zipCode")
	}
	return missing
}

type User struct {
	ID           string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name         string         `gorm:"type:varchar(100);not null" json:"name"`
	Email        string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"type:varchar(100);not null" json:"-"`
	Role         Role           `gorm:"type:varchar(10);default:'user'" json:"role"`
	Phone        string         `gorm:"type:varchar(20)" json:"phone,omitempty"`
	Address      Address        `gorm:"embedded;embeddedPrefix:address_" json:"address"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
