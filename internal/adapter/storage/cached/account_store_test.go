package cached

import (
	"context"
	"encoding/json"
	"errors"
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

func testAccount() *domain.Account {
	return &domain.Account{
		ID:         1,
		GUID:       uuid.MustParse("5f64b9a1-3e07-4a8e-9c36-2d1a67c0f111"),
		IBAN:       "ES9121000418450200051332",
		Balance:    decimal.RequireFromString("100.00"),
		ClientGUID: uuid.MustParse("0b9f2a6e-74c8-4d21-8f3a-6c58e1d4b222"),
	}
}

func TestAccountStore_GetByGUID_CacheHit(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockAccountRepository(ctrl)
	entityCache := mocks.NewMockEntityCache(ctrl)

	account := testAccount()
	snapshot, err := json.Marshal(account)
	require.NoError(t, err)

	entityCache.EXPECT().
		Get(gomock.Any(), cache.Key(cache.PrefixAccount, account.GUID)).
		Return(snapshot, true, nil)

	store := NewAccountStore(repo, entityCache, time.Minute, zerolog.Nop())
	got, err := store.GetByGUID(context.Background(), account.GUID)

	require.NoError(t, err)
	assert.Equal(t, account.GUID, got.GUID)
	assert.True(t, got.Balance.Equal(account.Balance))
}

func TestAccountStore_GetByGUID_CacheMissLoadsAndStores(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockAccountRepository(ctrl)
	entityCache := mocks.NewMockEntityCache(ctrl)

	account := testAccount()
	key := cache.Key(cache.PrefixAccount, account.GUID)

	entityCache.EXPECT().Get(gomock.Any(), key).Return(nil, false, nil)
	repo.EXPECT().GetByGUID(gomock.Any(), account.GUID).Return(account, nil)
	entityCache.EXPECT().Set(gomock.Any(), key, gomock.Any(), time.Minute).Return(nil)

	store := NewAccountStore(repo, entityCache, time.Minute, zerolog.Nop())
	got, err := store.GetByGUID(context.Background(), account.GUID)

	require.NoError(t, err)
	assert.Equal(t, account, got)
}

func TestAccountStore_GetByGUID_CacheErrorFallsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockAccountRepository(ctrl)
	entityCache := mocks.NewMockEntityCache(ctrl)

	account := testAccount()

	entityCache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, false, errors.New("redis down"))
	repo.EXPECT().GetByGUID(gomock.Any(), account.GUID).Return(account, nil)
	entityCache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	store := NewAccountStore(repo, entityCache, time.Minute, zerolog.Nop())
	got, err := store.GetByGUID(context.Background(), account.GUID)

	require.NoError(t, err)
	assert.Equal(t, account, got)
}

func TestAccountStore_GetByGUID_NotFoundNotCached(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockAccountRepository(ctrl)
	entityCache := mocks.NewMockEntityCache(ctrl)

	guid := uuid.New()
	entityCache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, false, nil)
	repo.EXPECT().GetByGUID(gomock.Any(), guid).Return(nil, nil)

	store := NewAccountStore(repo, entityCache, time.Minute, zerolog.Nop())
	got, err := store.GetByGUID(context.Background(), guid)

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAccountStore_GetByIBAN_BypassesCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockAccountRepository(ctrl)
	entityCache := mocks.NewMockEntityCache(ctrl)

	account := testAccount()
	repo.EXPECT().GetByIBAN(gomock.Any(), account.IBAN).Return(account, nil)

	store := NewAccountStore(repo, entityCache, time.Minute, zerolog.Nop())
	got, err := store.GetByIBAN(context.Background(), account.IBAN)

	require.NoError(t, err)
	assert.Equal(t, account, got)
}

func TestAccountStore_Create_SeedsCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockAccountRepository(ctrl)
	entityCache := mocks.NewMockEntityCache(ctrl)

	account := testAccount()
	repo.EXPECT().Create(gomock.Any(), account).Return(nil)
	entityCache.EXPECT().
		Set(gomock.Any(), cache.Key(cache.PrefixAccount, account.GUID), gomock.Any(), time.Minute).
		Return(nil)

	store := NewAccountStore(repo, entityCache, time.Minute, zerolog.Nop())
	require.NoError(t, store.Create(context.Background(), account))
}

func TestAccountStore_Create_RepoErrorSkipsCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockAccountRepository(ctrl)
	entityCache := mocks.NewMockEntityCache(ctrl)

	account := testAccount()
	repo.EXPECT().Create(gomock.Any(), account).Return(errors.New("insert failed"))

	store := NewAccountStore(repo, entityCache, time.Minute, zerolog.Nop())
	assert.Error(t, store.Create(context.Background(), account))
}
