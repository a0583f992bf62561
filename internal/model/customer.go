package model

import "time"

// ProfileState tells whether a customer record holds real contact data or
// only the national id it was created with.
type ProfileState string

const (
	ProfileComplete   ProfileState = "complete"
	ProfileIncomplete ProfileState = "incomplete"
)

// Customer is the shipping/contact profile keyed by national id (RUT).
//
// Orders placed for an unknown RUT create an incomplete customer holding only
// the RUT. Downstream code checks Profile rather than comparing names.
type Customer struct {
	RUT        string       `json:"rut"                  db:"rut"`
	Name       string       `json:"name,omitempty"       db:"name"`
	Phone      string       `json:"phone,omitempty"      db:"phone"`
	Email      string       `json:"email,omitempty"      db:"email"`
	Address    string       `json:"address,omitempty"    db:"address"`
	City       string       `json:"city,omitempty"       db:"city"`
	Region     string       `json:"region,omitempty"     db:"region"`
	PostalCode string       `json:"postalCode,omitempty" db:"postal_code"`
	Profile    ProfileState `json:"profile"              db:"profile_state"`
	CreatedAt  time.Time    `json:"createdAt"            db:"created_at"`
	UpdatedAt  time.Time    `json:"updatedAt"            db:"updated_at"`
}

// Incomplete reports whether the record is a placeholder.
func (c *Customer) Incomplete() bool {
	return c.Profile == ProfileIncomplete
}

// DisplayName is the customer's name, or the RUT when no name is known.
func (c *Customer) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.RUT
}

// CustomerSummary is the customer projection embedded in order responses.
type CustomerSummary struct {
	RUT   string `json:"rut"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}
