// Package model contains the domain structs shared across packages.
package model

import "time"

// CirculationStatus enumerates the lifecycle of one loan episode. "Overdue"
// is intentionally absent: it is derived from the due date at read time via
// IsOverdue rather than stored as a fourth state.
type CirculationStatus string

const (
	StatusBorrowed CirculationStatus = "borrowed"
	StatusReturned CirculationStatus = "returned"
	StatusLost     CirculationStatus = "lost"
)

// Circulation represents one borrow-to-return episode for a copy/patron pair.
// Rows are never deleted; they form the audit trail of the collection.
type Circulation struct {
	ID           int64             `json:"id"`
	BookCopyID   int64             `json:"book_copy_id"`
	PatronID     int64             `json:"patron_id"`
	IssueDate    time.Time         `json:"issue_date"`
	DueDate      time.Time         `json:"due_date"`
	RenewalDate  *time.Time        `json:"renewal_date,omitempty"`
	RenewalCount int               `json:"renewal_count"`
	OverdueBy    int               `json:"overdue_by"`
	Fine         int64             `json:"fine"`
	DateReturned *time.Time        `json:"date_returned,omitempty"`
	Status       CirculationStatus `json:"status"`

	// Embedded summaries for list views, populated by joins only.
	Copy   *BookCopy `json:"book_copy,omitempty"`
	Book   *Book     `json:"book,omitempty"`
	Patron *Patron   `json:"patron,omitempty"`
}

// IsOverdue reports whether a still-open loan is past its due date.
func (c *Circulation) IsOverdue(now time.Time) bool {
	return c.Status == StatusBorrowed && DaysLate(c.DueDate, now) > 0
}

// DaysLate returns the number of whole days now is past due, comparing
// calendar dates in UTC. Returns 0 when the due date has not passed.
func DaysLate(due, now time.Time) int {
	d := StartOfDay(due)
	n := StartOfDay(now)
	if !n.After(d) {
		return 0
	}
	return int(n.Sub(d).Hours() / 24)
}

// StartOfDay truncates t to midnight UTC. A loan is overdue exactly when its
// due date falls before the start of the current day, so this is the
// threshold every overdue query compares against.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TransactionRow is one flattened entry of a patron's borrowing history.
type TransactionRow struct {
	CirculationID int64             `json:"circulation_id"`
	BookTitle     string            `json:"book_title"`
	CallNumber    string            `json:"call_number"`
	CopyNumber    int               `json:"copy_number"`
	Status        CirculationStatus `json:"status"`
	DateIssued    time.Time         `json:"date_issued"`
	DueDate       time.Time         `json:"due_date"`
	ReturnDate    *time.Time        `json:"return_date,omitempty"`
	Fine          int64             `json:"fine"`
}

// ReportCounts aggregates circulations by status. Overdue counts loans that
// are still borrowed with a due date in the past.
type ReportCounts struct {
	Borrowed int `json:"borrowed"`
	Returned int `json:"returned"`
	Lost     int `json:"lost"`
	Overdue  int `json:"overdue"`
}

// PatronStats summarizes one patron's borrowing activity.
type PatronStats struct {
	BorrowedBooks int           `json:"borrowedBooks"`
	ReturnedBooks int           `json:"returnedBooks"`
	TotalFine     int64         `json:"totalFine"`
	OverdueBooks  int           `json:"overdueBooks"`
	History       []Circulation `json:"history"`
}
