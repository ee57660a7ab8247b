package periodlock

import (
	"context"
	"errors"
	"testing"

	"github.com/commandx/backend/internal/domain/periodlock"
	"github.com/commandx/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type countingInvalidator struct {
	tenants []uuid.UUID
}

func (c *countingInvalidator) Invalidate(_ context.Context, tenantID uuid.UUID) {
	c.tenants = append(c.tenants, tenantID)
}

func strPtr(s string) *string { return &s }

func newAdminFixture() (*AdminService, *MockPeriodStore, *MockViolationRepository, *countingInvalidator) {
	store := new(MockPeriodStore)
	violations := new(MockViolationRepository)
	inv := &countingInvalidator{}
	return NewAdminService(store, violations, inv, nil), store, violations, inv
}

func TestAdminService_UpdateSettings(t *testing.T) {
	ctx := context.Background()
	tenantID, userID := uuid.New(), uuid.New()

	t.Run("enables the lock and invalidates the cache", func(t *testing.T) {
		svc, store, _, inv := newAdminFixture()
		store.On("GetSettings", ctx, tenantID).Return(periodlock.DisabledSetting(tenantID), nil)
		store.On("SaveSettings", ctx, mock.MatchedBy(func(s *periodlock.GlobalLockSetting) bool {
			return s.Enabled && s.CutoffDate.String() == "2024-12-31" && s.UpdatedBy == userID
		})).Return(nil)

		resp, err := svc.UpdateSettings(ctx, tenantID, userID, UpdateSettingsRequest{
			Enabled:          true,
			LockedPeriodDate: strPtr("2024-12-31"),
			CutoverDate:      strPtr("2024-01-01"),
		})
		require.NoError(t, err)
		assert.True(t, resp.Enabled)
		assert.Equal(t, "2024-12-31", *resp.LockedPeriodDate)
		assert.Equal(t, "2025-01-01", *resp.MinAllowedDate)
		assert.Equal(t, "2024-01-01", *resp.CutoverDate)
		assert.Equal(t, []uuid.UUID{tenantID}, inv.tenants)
		store.AssertExpectations(t)
	})

	t.Run("enabling without a cutoff is rejected", func(t *testing.T) {
		svc, store, _, inv := newAdminFixture()
		store.On("GetSettings", ctx, tenantID).Return(periodlock.DisabledSetting(tenantID), nil)

		_, err := svc.UpdateSettings(ctx, tenantID, userID, UpdateSettingsRequest{Enabled: true})
		assert.ErrorIs(t, err, periodlock.ErrCutoffRequired)
		store.AssertNotCalled(t, "SaveSettings", mock.Anything, mock.Anything)
		assert.Empty(t, inv.tenants)
	})

	t.Run("malformed date", func(t *testing.T) {
		svc, store, _, _ := newAdminFixture()

		_, err := svc.UpdateSettings(ctx, tenantID, userID, UpdateSettingsRequest{
			Enabled:          true,
			LockedPeriodDate: strPtr("12/31/2024"),
		})
		assert.ErrorIs(t, err, periodlock.ErrInvalidDate)
		store.AssertNotCalled(t, "GetSettings", mock.Anything, mock.Anything)
	})

	t.Run("store failure is returned", func(t *testing.T) {
		svc, store, _, inv := newAdminFixture()
		store.On("GetSettings", ctx, tenantID).Return(periodlock.DisabledSetting(tenantID), nil)
		store.On("SaveSettings", ctx, mock.Anything).Return(periodlock.Unreachable("save settings", errors.New("conn reset")))

		_, err := svc.UpdateSettings(ctx, tenantID, userID, UpdateSettingsRequest{})
		assert.ErrorIs(t, err, periodlock.ErrStoreUnreachable)
		assert.Empty(t, inv.tenants)
	})
}

func TestAdminService_PeriodLifecycle(t *testing.T) {
	ctx := context.Background()
	tenantID, userID := uuid.New(), uuid.New()
	svc, store, _, inv := newAdminFixture()

	var saved *periodlock.LockedPeriod
	store.On("SavePeriod", ctx, mock.AnythingOfType("*periodlock.LockedPeriod")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*periodlock.LockedPeriod) }).
		Return(nil)

	created, err := svc.CreatePeriod(ctx, tenantID, userID, CreatePeriodRequest{
		Name:      "  Q1 Close ",
		StartDate: "2025-01-01",
		EndDate:   "2025-03-31",
	})
	require.NoError(t, err)
	assert.Equal(t, "Q1 Close", created.Name)
	assert.False(t, created.IsLocked)
	require.NotNil(t, saved)

	store.On("FindPeriodByID", ctx, tenantID, created.ID).Return(saved, nil)

	locked, err := svc.LockPeriod(ctx, tenantID, userID, created.ID)
	require.NoError(t, err)
	assert.True(t, locked.IsLocked)
	require.NotNil(t, locked.LockedBy)
	assert.Equal(t, userID, *locked.LockedBy)
	assert.NotNil(t, locked.LockedAt)

	updated, err := svc.UpdatePeriod(ctx, tenantID, created.ID, UpdatePeriodRequest{
		Name:      "Q1 2025",
		StartDate: "2025-01-01",
		EndDate:   "2025-04-15",
	})
	require.NoError(t, err)
	assert.Equal(t, "Q1 2025", updated.Name)
	assert.Equal(t, "2025-04-15", updated.EndDate)
	assert.True(t, updated.IsLocked)

	unlocked, err := svc.UnlockPeriod(ctx, tenantID, userID, created.ID)
	require.NoError(t, err)
	assert.False(t, unlocked.IsLocked)
	assert.Nil(t, unlocked.LockedBy)

	store.On("DeletePeriod", ctx, tenantID, created.ID).Return(nil)
	require.NoError(t, svc.DeletePeriod(ctx, tenantID, created.ID))

	assert.Len(t, inv.tenants, 5)
}

func TestAdminService_PeriodValidation(t *testing.T) {
	ctx := context.Background()
	tenantID, userID := uuid.New(), uuid.New()

	tests := []struct {
		name string
		req  CreatePeriodRequest
		err  error
	}{
		{"reversed range", CreatePeriodRequest{Name: "Bad", StartDate: "2025-03-31", EndDate: "2025-01-01"}, periodlock.ErrInvalidPeriodRange},
		{"blank name", CreatePeriodRequest{Name: "   ", StartDate: "2025-01-01", EndDate: "2025-01-31"}, periodlock.ErrInvalidPeriodName},
		{"bad start", CreatePeriodRequest{Name: "Jan", StartDate: "Jan 1", EndDate: "2025-01-31"}, periodlock.ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _, inv := newAdminFixture()
			_, err := svc.CreatePeriod(ctx, tenantID, userID, tt.req)
			assert.ErrorIs(t, err, tt.err)
			store.AssertNotCalled(t, "SavePeriod", mock.Anything, mock.Anything)
			assert.Empty(t, inv.tenants)
		})
	}

	t.Run("failed update leaves period untouched", func(t *testing.T) {
		svc, store, _, _ := newAdminFixture()
		p := q1Close(tenantID)
		store.On("FindPeriodByID", ctx, tenantID, p.ID).Return(p, nil)

		_, err := svc.UpdatePeriod(ctx, tenantID, p.ID, UpdatePeriodRequest{Name: "Renamed", StartDate: "2025-05-01", EndDate: "2025-04-01"})
		assert.ErrorIs(t, err, periodlock.ErrInvalidPeriodRange)
		assert.Equal(t, "Q1 Close", p.Name)
		assert.Equal(t, "2025-03-31", p.EndDate.String())
	})

	t.Run("unknown period", func(t *testing.T) {
		svc, store, _, _ := newAdminFixture()
		id := uuid.New()
		store.On("FindPeriodByID", ctx, tenantID, id).Return(nil, periodlock.ErrPeriodNotFound)

		_, err := svc.LockPeriod(ctx, tenantID, userID, id)
		assert.ErrorIs(t, err, periodlock.ErrPeriodNotFound)
	})
}

func TestAdminService_MatchingPeriods(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	svc, store, _, _ := newAdminFixture()

	q1 := q1Close(tenantID)
	feb, _ := periodlock.NewLockedPeriod(tenantID, "February", periodlock.MustParseDate("2025-02-01"), periodlock.MustParseDate("2025-02-28"), true, uuid.Nil)
	open, _ := periodlock.NewLockedPeriod(tenantID, "Open Feb", periodlock.MustParseDate("2025-02-01"), periodlock.MustParseDate("2025-02-28"), false, uuid.Nil)
	store.On("ListPeriods", ctx, tenantID).Return([]periodlock.LockedPeriod{*q1, *feb, *open}, nil)

	got, err := svc.MatchingPeriods(ctx, tenantID, "2025-02-15")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Q1 Close", got[0].Name)
	assert.Equal(t, "February", got[1].Name)
}

func TestAdminService_ListViolations(t *testing.T) {
	ctx := context.Background()
	tenantID, userID := uuid.New(), uuid.New()

	t.Run("maps filter and rows", func(t *testing.T) {
		svc, _, violations, _ := newAdminFixture()
		v := periodlock.NewViolation(tenantID, userID, "bill", nil,
			periodlock.MustParseDate("2024-11-30"), periodlock.MustParseDate("2024-12-31").Ptr(),
			periodlock.ActionUpdate, periodlock.ViolationDetails{Source: "quickbooks_sync", Reason: periodlock.ViolationGlobalLockedPeriod})

		violations.On("List", ctx, tenantID, mock.MatchedBy(func(f periodlock.ViolationFilter) bool {
			return f.EntityType == "bill" &&
				f.UserID != nil && *f.UserID == userID &&
				f.From != nil && f.From.String() == "2024-11-01" && f.To == nil &&
				f.Page == 2 && f.PageSize == shared.MaxPageSize
		})).Return([]periodlock.Violation{*v}, int64(101), nil)

		page, err := svc.ListViolations(ctx, tenantID, ViolationListFilter{
			EntityType: "bill",
			UserID:     userID.String(),
			FromDate:   "2024-11-01",
			Page:       2,
			PageSize:   500,
		})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, int64(101), page.Total)
		item := page.Items[0]
		assert.Equal(t, "2024-11-30", item.AttemptedDate)
		assert.Equal(t, "2024-12-31", *item.LockedPeriodDate)
		assert.Equal(t, "update", item.Action)
		assert.True(t, item.Blocked)
		assert.Equal(t, "quickbooks_sync", item.Details.Source)
	})

	t.Run("bad user id", func(t *testing.T) {
		svc, _, violations, _ := newAdminFixture()
		_, err := svc.ListViolations(ctx, tenantID, ViolationListFilter{UserID: "nope"})
		require.Error(t, err)
		de, ok := shared.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, "INVALID_USER_ID", de.Code)
		violations.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
	})
}
