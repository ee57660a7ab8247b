// Package tenant scopes GORM statements to one tenant and guards against
// statements that forget to.
//
// Repositories filter explicitly:
//
//	db.WithContext(ctx).Scopes(tenant.Scope(tenantID)).Find(&rows)
//
// and Guard, registered once on the connection, turns a missing filter into
// ErrScopeMissing instead of a cross-tenant read or write.
package tenant

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Column is the tenant discriminator on every tenant-owned table
const Column = "tenant_id"

// ErrScopeMissing is returned for a statement on a tenant table without a
// tenant_id condition
var ErrScopeMissing = errors.New("tenant: statement on a tenant table has no tenant_id condition")

// Scope filters a statement to tenantID
func Scope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(clause.Eq{Column: clause.Column{Table: clause.CurrentTable, Name: Column}, Value: tenantID})
	}
}

// Guard registers callbacks rejecting query, row, update and delete
// statements on tables with a tenant_id column unless they filter on it.
// Creates are not checked; the inserted row carries its tenant.
func Guard(db *gorm.DB) error {
	cb := db.Callback()
	return errors.Join(
		cb.Query().Before("gorm:query").Register("tenant:guard_query", check),
		cb.Row().Before("gorm:row").Register("tenant:guard_row", check),
		cb.Update().Before("gorm:update").Register("tenant:guard_update", check),
		cb.Delete().Before("gorm:delete").Register("tenant:guard_delete", check),
	)
}

func check(db *gorm.DB) {
	stmt := db.Statement
	if db.Error != nil || stmt.Schema == nil || stmt.Schema.LookUpField(Column) == nil {
		return
	}
	if where, ok := stmt.Clauses["WHERE"].Expression.(clause.Where); ok && scoped(where.Exprs) {
		return
	}
	_ = db.AddError(ErrScopeMissing)
}

// scoped reports whether a top-level conjunct constrains the tenant column.
// A tenant condition inside an OR does not scope the statement.
func scoped(exprs []clause.Expression) bool {
	for _, expr := range exprs {
		switch e := expr.(type) {
		case clause.Eq:
			if isTenantColumn(e.Column) {
				return true
			}
		case clause.IN:
			if isTenantColumn(e.Column) {
				return true
			}
		case clause.Expr:
			if mentionsTenant(e.SQL) {
				return true
			}
		case clause.NamedExpr:
			if mentionsTenant(e.SQL) {
				return true
			}
		case clause.AndConditions:
			if scoped(e.Exprs) {
				return true
			}
		}
	}
	return false
}

func isTenantColumn(col any) bool {
	switch c := col.(type) {
	case clause.Column:
		return c.Name == Column
	case string:
		return c == Column
	}
	return false
}

func mentionsTenant(sql string) bool {
	return strings.Contains(sql, Column) && !strings.Contains(strings.ToUpper(sql), " OR ")
}
