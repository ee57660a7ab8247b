package tenant

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type ledgerRow struct {
	ID       uuid.UUID `gorm:"type:text;primaryKey"`
	TenantID uuid.UUID `gorm:"type:text;index"`
	Memo     string
}

type settingRow struct {
	Key   string `gorm:"primaryKey"`
	Value string
}

func newGuardedDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&ledgerRow{}, &settingRow{}))
	require.NoError(t, Guard(db))
	return db
}

func TestGuard_AllowsScopedStatements(t *testing.T) {
	db := newGuardedDB(t).WithContext(context.Background())
	tenantA, tenantB := uuid.New(), uuid.New()
	require.NoError(t, db.Create(&ledgerRow{ID: uuid.New(), TenantID: tenantA, Memo: "a"}).Error)
	require.NoError(t, db.Create(&ledgerRow{ID: uuid.New(), TenantID: tenantB, Memo: "b"}).Error)

	var rows []ledgerRow
	require.NoError(t, db.Scopes(Scope(tenantA)).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "a", rows[0].Memo)

	var count int64
	require.NoError(t, db.Model(&ledgerRow{}).Where("tenant_id = ? AND memo = ?", tenantB, "b").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	require.NoError(t, db.Model(&ledgerRow{}).Scopes(Scope(tenantA)).Update("memo", "a2").Error)
	require.NoError(t, db.Scopes(Scope(tenantB)).Delete(&ledgerRow{}).Error)
}

func TestGuard_RejectsUnscopedStatements(t *testing.T) {
	db := newGuardedDB(t).WithContext(context.Background())
	tenantA := uuid.New()
	id := uuid.New()
	require.NoError(t, db.Create(&ledgerRow{ID: id, TenantID: tenantA}).Error)

	var rows []ledgerRow
	assert.ErrorIs(t, db.Find(&rows).Error, ErrScopeMissing)
	assert.ErrorIs(t, db.Where("id = ?", id).First(&ledgerRow{}).Error, ErrScopeMissing)
	assert.ErrorIs(t, db.Where("tenant_id = ? OR memo = ?", tenantA, "x").Find(&rows).Error, ErrScopeMissing)
	assert.ErrorIs(t, db.Model(&ledgerRow{}).Where("id = ?", id).Update("memo", "x").Error, ErrScopeMissing)
	assert.ErrorIs(t, db.Where("id = ?", id).Delete(&ledgerRow{}).Error, ErrScopeMissing)

	var memo string
	require.NoError(t, db.Scopes(Scope(tenantA)).Model(&ledgerRow{}).Select("memo").Where("id = ?", id).Scan(&memo).Error)
}

func TestGuard_IgnoresTablesWithoutTenant(t *testing.T) {
	db := newGuardedDB(t).WithContext(context.Background())
	require.NoError(t, db.Create(&settingRow{Key: "k", Value: "v"}).Error)

	var rows []settingRow
	require.NoError(t, db.Find(&rows).Error)
	assert.Len(t, rows, 1)
}
