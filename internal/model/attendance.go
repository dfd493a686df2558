package model

import "time"

// Attendance is one visitor sign-in sheet entry. PatronID is set only when
// the visitor is a registered patron.
type Attendance struct {
	ID             int64      `json:"id"`
	PatronID       *int64     `json:"patron_id,omitempty"`
	FirstName      string     `json:"first_name"`
	MiddleName     string     `json:"middle_name,omitempty"`
	LastName       string     `json:"last_name"`
	Suffix         string     `json:"suffix,omitempty"`
	Province       string     `json:"province"`
	City           string     `json:"city"`
	Barangay       string     `json:"barangay"`
	Email          string     `json:"email,omitempty"`
	Number         string     `json:"number,omitempty"`
	Affiliation    string     `json:"affiliation,omitempty"`
	PurposeOfVisit string     `json:"purpose_of_visit"`
	TimeIn         time.Time  `json:"time_in"`
	TimeOut        *time.Time `json:"time_out,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
