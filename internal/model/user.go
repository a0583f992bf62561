// Package model defines the data structures used throughout the application.
package model

import "time"

// UserTypeAdmin is the user type allowed to place orders on behalf of
// customers under the default order policy.
const UserTypeAdmin = 1

// User represents a credentialed account.
//
// PasswordHash carries a json:"-" tag so a User can be written to a response
// without leaking the bcrypt digest.
type User struct {
	ID           int64     `json:"id"           db:"user_id"`
	Name         string    `json:"name"         db:"name"`
	Email        string    `json:"email"        db:"email"`
	RUT          string    `json:"rut"          db:"rut"`
	Phone        string    `json:"phoneNumber"  db:"phone_number"`
	PasswordHash string    `json:"-"            db:"password"`
	UserTypeID   int       `json:"userTypeId"   db:"user_type_id"`
	IsActive     bool      `json:"isActive"     db:"is_active"`
	IsVerified   bool      `json:"isVerified"   db:"is_verified"`
	RegisteredAt time.Time `json:"registerDate" db:"register_date"`
	UpdatedAt    time.Time `json:"updatedAt"    db:"updated_at"`
}
