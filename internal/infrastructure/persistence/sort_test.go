package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSortOrder(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string returns DESC", "", "DESC"},
		{"ASC uppercase returns ASC", "ASC", "ASC"},
		{"asc lowercase returns ASC", "asc", "ASC"},
		{"invalid value returns DESC", "sideways", "DESC"},
		{"sql injection attempt returns DESC", "ASC; DROP TABLE financial_documents;--", "DESC"},
		{"whitespace around ASC returns ASC", "  asc  ", "ASC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeSortOrder(tt.input))
		})
	}
}

func TestOrderClause(t *testing.T) {
	tests := []struct {
		name      string
		sortBy    string
		sortOrder string
		expected  string
	}{
		{"empty uses default", "", "", defaultDocumentOrder},
		{"whitelisted column", "total", "asc", "total ASC, id ASC"},
		{"whitelisted column default direction", "number", "", "number DESC, id ASC"},
		{"unknown column uses default", "memo", "ASC", defaultDocumentOrder},
		{"injection uses default", "txn_date; DROP TABLE x", "ASC", defaultDocumentOrder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, orderClause(tt.sortBy, tt.sortOrder, documentSortColumns, defaultDocumentOrder))
		})
	}
}
