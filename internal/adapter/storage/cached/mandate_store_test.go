package cached

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"vives-backoffice/internal/adapter/cache"
	"vives-backoffice/internal/core/domain"
	"vives-backoffice/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func testMandate() *domain.Mandate {
	return &domain.Mandate{
		ID:           7,
		GUID:         uuid.MustParse("9a1cf0de-55b2-4c6f-8a17-30b4d2e9c333"),
		ClientGUID:   uuid.MustParse("0b9f2a6e-74c8-4d21-8f3a-6c58e1d4b222"),
		CreditorName: "Energia Iberica SA",
		PayerIBAN:    "ES9121000418450200051332",
		PayeeIBAN:    "DE89370400440532013000",
		Amount:       decimal.RequireFromString("30.00"),
		Periodicity:  domain.PeriodicityWeekly,
		Active:       true,
	}
}

func TestMandateStore_GetByGUID_CacheHit(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockMandateRepository(ctrl)
	entityCache := mocks.NewMockEntityCache(ctrl)

	mandate := testMandate()
	snapshot, err := json.Marshal(mandate)
	require.NoError(t, err)

	entityCache.EXPECT().
		Get(gomock.Any(), cache.Key(cache.PrefixMandate, mandate.GUID)).
		Return(snapshot, true, nil)

	store := NewMandateStore(repo, entityCache, time.Minute, zerolog.Nop())
	got, err := store.GetByGUID(context.Background(), mandate.GUID)

	require.NoError(t, err)
	assert.Equal(t, mandate.GUID, got.GUID)
	assert.Equal(t, mandate.Periodicity, got.Periodicity)
}

func TestMandateStore_UpdateExecution_RefreshesSnapshot(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockMandateRepository(ctrl)
	entityCache := mocks.NewMockEntityCache(ctrl)

	mandate := testMandate()
	key := cache.Key(cache.PrefixMandate, mandate.GUID)
	executedAt := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	gomock.InOrder(
		repo.EXPECT().UpdateExecution(gomock.Any(), mandate.GUID, executedAt).Return(nil),
		entityCache.EXPECT().Delete(gomock.Any(), key).Return(nil),
		repo.EXPECT().GetByGUID(gomock.Any(), mandate.GUID).Return(mandate, nil),
		entityCache.EXPECT().Set(gomock.Any(), key, gomock.Any(), time.Minute).Return(nil),
	)

	store := NewMandateStore(repo, entityCache, time.Minute, zerolog.Nop())
	require.NoError(t, store.UpdateExecution(context.Background(), mandate.GUID, executedAt))
}

func TestMandateStore_Deactivate_RefreshesSnapshot(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockMandateRepository(ctrl)
	entityCache := mocks.NewMockEntityCache(ctrl)

	mandate := testMandate()
	mandate.Active = false
	key := cache.Key(cache.PrefixMandate, mandate.GUID)

	gomock.InOrder(
		repo.EXPECT().Deactivate(gomock.Any(), mandate.GUID).Return(nil),
		entityCache.EXPECT().Delete(gomock.Any(), key).Return(nil),
		repo.EXPECT().GetByGUID(gomock.Any(), mandate.GUID).Return(mandate, nil),
		entityCache.EXPECT().Set(gomock.Any(), key, gomock.Any(), time.Minute).Return(nil),
	)

	store := NewMandateStore(repo, entityCache, time.Minute, zerolog.Nop())
	require.NoError(t, store.Deactivate(context.Background(), mandate.GUID))
}

func TestMandateStore_ListActive_BypassesCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockMandateRepository(ctrl)
	entityCache := mocks.NewMockEntityCache(ctrl)

	mandate := testMandate()
	repo.EXPECT().ListActive(gomock.Any()).Return([]domain.Mandate{*mandate}, nil)

	store := NewMandateStore(repo, entityCache, time.Minute, zerolog.Nop())
	got, err := store.ListActive(context.Background())

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, mandate.GUID, got[0].GUID)
}
