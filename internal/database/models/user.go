package models

import (
	"time"
)

// User represents an account that writes posts and comments
type User struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Profile *Profile `gorm:"foreignKey:UserID" json:"profile,omitempty"`
}

// TableName overrides the table name
func (User) TableName() string {
	return "users"
}

// Profile holds the optional public details of a user
type Profile struct {
	ID       uint    `gorm:"primarykey" json:"-"`
	UserID   uint    `gorm:"uniqueIndex;not null" json:"-"`
	Photo    *string `json:"photo"`
	HomePage *string `json:"home_page"`
}

// TableName overrides the table name
func (Profile) TableName() string {
	return "profiles"
}
