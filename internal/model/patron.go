package model

import "time"

// PatronStatus is the staff-managed account state. Only Active patrons may
// borrow; Deactivated and Blocked fail the eligibility check.
type PatronStatus string

const (
	PatronActive      PatronStatus = "Active"
	PatronDeactivated PatronStatus = "Deactivated"
	PatronBlocked     PatronStatus = "Blocked"
)

// Patron is a registered library member. ExpirationDate is derived from
// CreatedAt plus the configured expiration years; it is never persisted.
type Patron struct {
	ID         int64        `json:"id"`
	PatronID   string       `json:"patron_id"`
	FirstName  string       `json:"first_name"`
	MiddleName string       `json:"middle_name,omitempty"`
	LastName   string       `json:"last_name"`
	Suffix     string       `json:"suffix,omitempty"`
	Email      string       `json:"email"`
	Barangay   string       `json:"barangay,omitempty"`
	City       string       `json:"city"`
	Province   string       `json:"province"`
	Number     string       `json:"number,omitempty"`
	Status     PatronStatus `json:"status"`
	Age        *int         `json:"age,omitempty"`
	Notes      string       `json:"notes,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`

	ExpirationDate time.Time `json:"expiration_date"`
}

// DeriveExpiration fills ExpirationDate from the registration date and the
// configured number of membership years.
func (p *Patron) DeriveExpiration(years int) {
	p.ExpirationDate = p.CreatedAt.AddDate(years, 0, 0)
}
