package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildCallNumber(t *testing.T) {
	got := BuildCallNumber("Filipiniana", "899.211", "R627", "1887")
	assert.Equal(t, "FIL\n899.211\nR627\n1887", got)

	// Optional parts are skipped, unknown sections pass through.
	assert.Equal(t, "GC\n510", BuildCallNumber("Gen. Circulation", "510", "", ""))
	assert.Equal(t, "Periodicals\n050", BuildCallNumber("Periodicals", "050", "", ""))
}

func TestFormatAccession(t *testing.T) {
	assert.Equal(t, "00001", FormatAccession(1))
	assert.Equal(t, "00042", FormatAccession(42))
	assert.Equal(t, "12345", FormatAccession(12345))
}
