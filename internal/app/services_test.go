package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nidahp/portal-api/internal/testutil"
	apperrors "github.com/nidahp/portal-api/pkg/errors"
)

func TestSubmitSeesFacilityDeactivationDespiteIdentityCache(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	svc := NewServices(db, Options{IdentityCacheTTL: time.Minute})

	fa := testutil.InsertFacility(t, db, "Alpha")

	// warm the identity cache with the active facility
	cached, err := svc.Identity.GetFacility(ctx, fa)
	require.NoError(t, err)
	require.True(t, cached.IsActive)

	_, err = svc.Needs.Submit(ctx, fa, "Ward cover", 1, []string{"nursing"})
	require.NoError(t, err)

	testutil.DeactivateFacility(t, db, fa)

	n, err := svc.Needs.Submit(ctx, fa, "Ward cover", 1, []string{"nursing"})
	assert.Nil(t, n)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation), "got %v", err)

	var count int
	require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM needs WHERE facility_id = ?", fa))
	assert.Equal(t, 1, count)
}
