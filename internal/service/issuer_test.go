package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/distributor-portal/internal/model"
	"github.com/iliyamo/distributor-portal/internal/repository"
)

type stubApps struct {
	app        model.App
	appErr     error
	subExists  bool
	authorized bool
}

func (s *stubApps) GetByID(ctx context.Context, appID uint64) (model.App, error) {
	return s.app, s.appErr
}
func (s *stubApps) SubAppExists(ctx context.Context, appID, subAppID uint64) (bool, error) {
	return s.subExists, nil
}
func (s *stubApps) DistributorAuthorized(ctx context.Context, distributorID, appID uint64) (bool, error) {
	return s.authorized, nil
}

type stubTokenStore struct {
	created []model.PurchaseToken
	err     error
}

func (s *stubTokenStore) Create(ctx context.Context, t model.PurchaseToken) error {
	if s.err != nil {
		return s.err
	}
	s.created = append(s.created, t)
	return nil
}

func TestIssueUniqueToken(t *testing.T) {
	apps := &stubApps{
		app:        model.App{ID: 7, Domain: "shop.example.com", IsActive: true},
		subExists:  true,
		authorized: true,
	}
	store := &stubTokenStore{}
	issuer := NewTokenIssuer(apps, store, 30)

	sub := uint64(3)
	issued, err := issuer.Issue(context.Background(), 42, 7, &sub, model.IssuanceUnique)
	require.NoError(t, err)

	assert.Equal(t, model.TokenPending, issued.Status)
	assert.Equal(t, "shop.example.com", issued.AppDomain)
	assert.Len(t, issued.Token, 32) // 128-bit hex
	assert.WithinDuration(t, time.Now().UTC().Add(30*24*time.Hour), issued.ExpiresAt, time.Minute)

	require.Len(t, store.created, 1)
	tok := store.created[0]
	assert.Equal(t, uint64(42), tok.DistributorID)
	assert.Equal(t, uint64(7), tok.AppID)
	require.NotNil(t, tok.SubAppID)
	assert.Equal(t, sub, *tok.SubAppID)
}

func TestIssueGenericTokenStartsActive(t *testing.T) {
	apps := &stubApps{app: model.App{ID: 7, IsActive: true}, authorized: true}
	store := &stubTokenStore{}
	issuer := NewTokenIssuer(apps, store, 30)

	issued, err := issuer.Issue(context.Background(), 42, 7, nil, model.IssuanceGeneric)
	require.NoError(t, err)
	assert.Equal(t, model.TokenActive, issued.Status)
}

func TestIssueChecksFailInOrder(t *testing.T) {
	t.Run("unknown app", func(t *testing.T) {
		apps := &stubApps{appErr: repository.ErrNotFound}
		issuer := NewTokenIssuer(apps, &stubTokenStore{}, 30)
		_, err := issuer.Issue(context.Background(), 1, 9, nil, model.IssuanceUnique)
		assert.ErrorIs(t, err, ErrAppNotAvailable)
	})

	t.Run("inactive app", func(t *testing.T) {
		apps := &stubApps{app: model.App{ID: 9, IsActive: false}}
		issuer := NewTokenIssuer(apps, &stubTokenStore{}, 30)
		_, err := issuer.Issue(context.Background(), 1, 9, nil, model.IssuanceUnique)
		assert.ErrorIs(t, err, ErrAppNotAvailable)
	})

	t.Run("bad sub-app", func(t *testing.T) {
		apps := &stubApps{app: model.App{ID: 9, IsActive: true}, subExists: false, authorized: true}
		issuer := NewTokenIssuer(apps, &stubTokenStore{}, 30)
		sub := uint64(5)
		_, err := issuer.Issue(context.Background(), 1, 9, &sub, model.IssuanceUnique)
		assert.ErrorIs(t, err, ErrInvalidSubApp)
	})

	t.Run("unauthorized distributor", func(t *testing.T) {
		apps := &stubApps{app: model.App{ID: 9, IsActive: true}, subExists: true, authorized: false}
		issuer := NewTokenIssuer(apps, &stubTokenStore{}, 30)
		_, err := issuer.Issue(context.Background(), 1, 9, nil, model.IssuanceUnique)
		assert.ErrorIs(t, err, ErrAppNotAuthorized)
	})
}

func TestIssueTokenIDsAreUnique(t *testing.T) {
	apps := &stubApps{app: model.App{ID: 1, IsActive: true}, authorized: true}
	store := &stubTokenStore{}
	issuer := NewTokenIssuer(apps, store, 30)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		issued, err := issuer.Issue(context.Background(), 1, 1, nil, model.IssuanceGeneric)
		require.NoError(t, err)
		assert.False(t, seen[issued.Token])
		seen[issued.Token] = true
	}
}
