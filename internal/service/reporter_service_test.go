package service

import (
	"context"
	"testing"

	"dira-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReporterCreateNormalisesEmail(t *testing.T) {
	ctx := context.Background()
	svc := NewReporterService(newFakeReporterRepo())

	r, err := svc.Create(ctx, strPtr("Wanjiku"), "  Wanjiku@Example.COM ", false)
	require.NoError(t, err)
	assert.Equal(t, "wanjiku@example.com", r.Email)

	got, err := svc.GetByEmail(ctx, "WANJIKU@example.com")
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)

	_, err = svc.Create(ctx, nil, "wanjiku@example.com", true)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.Create(ctx, nil, "not-an-email", false)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestReporterGetOrCreate(t *testing.T) {
	ctx := context.Background()
	repo := newFakeReporterRepo()
	svc := NewReporterService(repo)

	first, err := svc.GetOrCreate(ctx, nil, "otieno@example.com", true)
	require.NoError(t, err)
	assert.True(t, first.IsAnonymous)

	second, err := svc.GetOrCreate(ctx, strPtr("Otieno"), "otieno@example.com", false)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.reporters, 1)
}

func TestReporterGetUnknown(t *testing.T) {
	svc := NewReporterService(newFakeReporterRepo())
	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOrganisationSeedValidates(t *testing.T) {
	ctx := context.Background()
	repo := &fakeOrgRepo{}
	svc := NewOrganisationService(repo)

	n, err := svc.Seed(ctx, []model.Organisation{
		{Name: "Kenya Power", Type: model.OrgTypeUtility, ContactEmail: "a@kplc.co.ke"},
		{Name: "Kenya Power", Type: model.OrgTypeUtility, ContactEmail: "b@kplc.co.ke"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, repo.orgs, 1)
	assert.Equal(t, "b@kplc.co.ke", repo.orgs[0].ContactEmail)

	_, err = svc.Seed(ctx, []model.Organisation{{Name: "Bank", Type: "private"}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	utilities, err := svc.ListByType(ctx, model.OrgTypeUtility)
	require.NoError(t, err)
	assert.Len(t, utilities, 1)
}
