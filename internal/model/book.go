package model

import (
	"fmt"
	"strings"
	"time"
)

// CopyStatus describes the circulation state of one physical copy. Only the
// circulation engine may move a copy between these states.
type CopyStatus string

const (
	CopyAvailable CopyStatus = "available"
	CopyBorrowed  CopyStatus = "borrowed"
	CopyLost      CopyStatus = "lost"
	CopyArchived  CopyStatus = "archived"
)

// Book is the bibliographic record. Physical items live in BookCopy.
type Book struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Author       string     `json:"author,omitempty"`
	ISBN         string     `json:"isbn,omitempty"`
	Publisher    string     `json:"publisher,omitempty"`
	Copyright    string     `json:"copyright,omitempty"`
	Section      string     `json:"section"`
	DeweyDecimal string     `json:"dewey_decimal"`
	AuthorNumber string     `json:"author_number,omitempty"`
	CallNumber   string     `json:"call_number"`
	Source       string     `json:"source"`
	SourcePerson string     `json:"source_person,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	Copies       []BookCopy `json:"copies,omitempty"`
}

// BookCopy identifies one physical item of a book.
type BookCopy struct {
	ID              int64      `json:"id"`
	BookID          int64      `json:"book_id"`
	AccessionNumber string     `json:"accession_number"`
	Barcode         string     `json:"barcode"`
	CopyNumber      int        `json:"copy_number"`
	Status          CopyStatus `json:"status"`
	DateAdded       time.Time  `json:"date_added"`
}

// sectionAbbr maps library sections to their call number prefixes.
var sectionAbbr = map[string]string{
	"Filipiniana":      "FIL",
	"Gen. Circulation": "GC",
	"Gen. Reference":   "REF",
}

// BuildCallNumber assembles the shelf call number from its parts. Sections
// without a known abbreviation fall through unchanged.
func BuildCallNumber(section, dewey, authorNumber, copyright string) string {
	abbr, ok := sectionAbbr[section]
	if !ok {
		abbr = section
	}
	parts := []string{abbr, dewey}
	if authorNumber != "" {
		parts = append(parts, authorNumber)
	}
	if copyright != "" {
		parts = append(parts, copyright)
	}
	return strings.Join(parts, "\n")
}

// FormatAccession zero-pads a global accession sequence value to 5 digits.
func FormatAccession(n int) string {
	return fmt.Sprintf("%05d", n)
}
