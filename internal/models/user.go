// Package models defines the persisted domain types and the application error model.
package models

import "time"

// UsernameMaxLength bounds User.Username.
const UsernameMaxLength = 150

// User is an account. Username is unique and never changes after creation.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"size:254" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"date_joined"`
	UpdatedAt time.Time `json:"-"`
}
