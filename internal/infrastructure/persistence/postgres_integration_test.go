package persistence

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/commandx/backend/internal/domain/periodlock"
	"github.com/commandx/backend/internal/infrastructure/migration"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func migrationsDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations")
}

// newPostgresDB starts a disposable PostgreSQL container and applies the
// repository migrations to it.
func newPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL container test in short mode")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("commandx_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	m, err := migration.New(sqlDB, migrationsDir(t), nil)
	require.NoError(t, err)
	require.NoError(t, m.Up())
	return db
}

func TestPostgres_PeriodLockRoundTrip(t *testing.T) {
	db := newPostgresDB(t)
	ctx := context.Background()
	store := NewGormPeriodStore(db)
	violations := NewGormViolationRepository(db)
	tenantID := uuid.New()

	settings := periodlock.DisabledSetting(tenantID)
	require.NoError(t, settings.Update(true, periodlock.MustParseDate("2024-12-31").Ptr(), nil, uuid.New()))
	require.NoError(t, store.SaveSettings(ctx, &settings))

	q1 := mustPeriod(t, tenantID, "Q1 Close", "2025-01-01", "2025-03-31", true)
	require.NoError(t, store.SavePeriod(ctx, q1))

	snap, err := store.LoadSnapshot(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, "2024-12-31", snap.Settings.CutoffDate.String())
	require.Len(t, snap.Periods, 1)
	assert.Equal(t, "2025-01-01", snap.Periods[0].StartDate.String())
	assert.Equal(t, "2025-03-31", snap.Periods[0].EndDate.String())

	hit, err := store.FindLockedContaining(ctx, tenantID, periodlock.MustParseDate("2025-03-31"))
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, q1.ID, hit.ID)

	miss, err := store.FindLockedContaining(ctx, tenantID, periodlock.MustParseDate("2025-04-01"))
	require.NoError(t, err)
	assert.Nil(t, miss)

	v := periodlock.NewViolation(tenantID, uuid.New(), "invoice", nil, periodlock.MustParseDate("2025-02-14"),
		snap.Settings.CutoffDate, periodlock.ActionCreate,
		periodlock.ViolationDetails{Reason: periodlock.ViolationAccountingPeriod, PeriodName: "Q1 Close"})
	require.NoError(t, violations.Append(ctx, v))

	rows, total, err := violations.List(ctx, tenantID, periodlock.ViolationFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Q1 Close", rows[0].Details.PeriodName)
}

func TestPostgres_SettingsConstraint(t *testing.T) {
	db := newPostgresDB(t)
	err := db.Exec(`INSERT INTO company_settings (tenant_id, lock_period_enabled) VALUES (?, TRUE)`, uuid.New()).Error
	assert.Error(t, err, "an enabled lock without a cutoff is rejected by the schema")
}
