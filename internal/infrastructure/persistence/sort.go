package persistence

import (
	"strings"
)

// documentSortColumns whitelists the columns a document listing may sort on
var documentSortColumns = map[string]bool{
	"txn_date":   true,
	"number":     true,
	"total":      true,
	"created_at": true,
	"updated_at": true,
}

const defaultDocumentOrder = "txn_date DESC, number ASC"

// normalizeSortOrder returns ASC or DESC, defaulting to DESC
func normalizeSortOrder(order string) string {
	if strings.EqualFold(strings.TrimSpace(order), "ASC") {
		return "ASC"
	}
	return "DESC"
}

// orderClause builds an ORDER BY from caller input. Unknown columns fall back
// to def; id breaks ties so pages stay stable.
func orderClause(sortBy, sortOrder string, allowed map[string]bool, def string) string {
	column := strings.TrimSpace(sortBy)
	if !allowed[column] {
		return def
	}
	return column + " " + normalizeSortOrder(sortOrder) + ", id ASC"
}
