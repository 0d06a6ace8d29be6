package need

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nidahp/portal-api/internal/model"
	"github.com/nidahp/portal-api/internal/repository/postgres"
	"github.com/nidahp/portal-api/internal/service/event"
	"github.com/nidahp/portal-api/internal/testutil"
	apperrors "github.com/nidahp/portal-api/pkg/errors"
	"github.com/nidahp/portal-api/pkg/logger"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		description string
		want        model.ProgramType
	}{
		{"", model.ProgramServices},
		{"   ", model.ProgramServices},
		{"Clinical Training Workshop", model.ProgramTraining},
		{"CAPACITY BUILDING for midwives", model.ProgramTraining},
		{"New staff orientation", model.ProgramTraining},
		{"Leadership coaching", model.ProgramTraining},
		{"Two anaesthetists for theatre", model.ProgramServices},
		{"skills  development", model.ProgramServices},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.description))
			assert.Equal(t, Classify(tt.description), Classify(tt.description))
		})
	}
}

type fixture struct {
	db       *sqlx.DB
	svc      *Service
	now      time.Time
	facility int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	base := testutil.Base(db)

	f := &fixture{
		db:  db,
		now: time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC),
	}
	events := event.NewEventService(postgres.NewOutboxRepository(base), logger.Nop())
	f.svc = NewService(postgres.NewNeedRepository(base), postgres.NewIdentityRepository(base), events, testutil.FixedClock(&f.now))
	f.facility = testutil.InsertFacility(t, db, "Lagos General")
	return f
}

func TestSubmitClassifiesAndStores(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n, err := f.svc.Submit(ctx, f.facility, "  Mentorship programme for interns ", 3, []string{"surgery", " nursing", ""})
	require.NoError(t, err)

	assert.NotZero(t, n.ID)
	assert.Equal(t, "Mentorship programme for interns", n.Description)
	assert.Equal(t, model.ProgramTraining, n.ProgramType)
	assert.Equal(t, "nursing,surgery", n.Tags)
	assert.True(t, n.CreatedAt.Equal(f.now))

	stored, err := f.svc.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProgramTraining, stored.ProgramType)

	var events int
	require.NoError(t, f.db.Get(&events, "SELECT COUNT(*) FROM outbox_events WHERE event_type = ?", model.EventNeedSubmitted))
	assert.Equal(t, 1, events)
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, f.facility, "   ", 1, nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	_, err = f.svc.Submit(ctx, f.facility, "Nurses", 0, nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	_, err = f.svc.Submit(ctx, 9999, "Nurses", 1, nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	testutil.DeactivateFacility(t, f.db, f.facility)
	_, err = f.svc.Submit(ctx, f.facility, "Nurses", 1, nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestUpdateWithinWindowKeepsClassification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n, err := f.svc.Submit(ctx, f.facility, "Theatre nurses", 2, nil)
	require.NoError(t, err)
	require.Equal(t, model.ProgramServices, n.ProgramType)

	f.now = f.now.Add(23*time.Hour + 59*time.Minute)
	updated, err := f.svc.Update(ctx, n.ID, f.facility, "Theatre nurses workshop", 4)
	require.NoError(t, err)

	assert.Equal(t, "Theatre nurses workshop", updated.Description)
	assert.Equal(t, 4, updated.Quantity)
	assert.Equal(t, model.ProgramServices, updated.ProgramType)
}

func TestUpdateLockBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n, err := f.svc.Submit(ctx, f.facility, "Theatre nurses", 2, nil)
	require.NoError(t, err)

	f.now = f.now.Add(model.NeedEditWindow)
	_, err = f.svc.Update(ctx, n.ID, f.facility, "Theatre nurses", 3)
	assert.True(t, apperrors.Is(err, apperrors.ErrLocked), "exactly 24h is locked")

	err = f.svc.Delete(ctx, n.ID, f.facility)
	assert.True(t, apperrors.Is(err, apperrors.ErrLocked))

	stored, err := f.svc.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Quantity)
}

func TestUpdateAndDeleteRequireOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := testutil.InsertFacility(t, f.db, "Abuja Teaching")

	n, err := f.svc.Submit(ctx, f.facility, "Theatre nurses", 2, nil)
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, n.ID, other, "Hijack", 1)
	assert.True(t, apperrors.Is(err, apperrors.ErrPermission))

	err = f.svc.Delete(ctx, n.ID, other)
	assert.True(t, apperrors.Is(err, apperrors.ErrPermission))

	_, err = f.svc.Update(ctx, 4242, f.facility, "x", 1)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	_, err = f.svc.Update(ctx, n.ID, f.facility, "", 1)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestUpdateChecksOwnershipAndLockBeforeInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := testutil.InsertFacility(t, f.db, "Abuja Teaching")

	n, err := f.svc.Submit(ctx, f.facility, "Theatre nurses", 2, nil)
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, n.ID, other, "   ", 0)
	assert.True(t, apperrors.Is(err, apperrors.ErrPermission), "got %v", err)

	f.now = f.now.Add(model.NeedEditWindow + time.Hour)
	_, err = f.svc.Update(ctx, n.ID, f.facility, "", 1)
	assert.True(t, apperrors.Is(err, apperrors.ErrLocked), "got %v", err)
}

func TestDeleteRemovesInterests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n, err := f.svc.Submit(ctx, f.facility, "Theatre nurses", 2, nil)
	require.NoError(t, err)

	pro := testutil.InsertProfessional(t, f.db, "Ada", model.RoleIndividual, testutil.Str("surgery"))
	created, err := postgres.NewInterestRepository(testutil.Base(f.db)).CreatePending(ctx, &model.Interest{
		ProfessionalID: pro, NeedID: n.ID, CreatedAt: f.now,
	})
	require.NoError(t, err)
	require.True(t, created)

	require.NoError(t, f.svc.Delete(ctx, n.ID, f.facility))

	var left int
	require.NoError(t, f.db.Get(&left, "SELECT COUNT(*) FROM interests"))
	assert.Zero(t, left)
}

func TestListByFacilityMarksEditable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old, err := f.svc.Submit(ctx, f.facility, "Old need", 1, nil)
	require.NoError(t, err)
	f.now = f.now.Add(30 * time.Hour)
	fresh, err := f.svc.Submit(ctx, f.facility, "Fresh workshop", 1, nil)
	require.NoError(t, err)

	list, err := f.svc.ListByFacility(ctx, f.facility)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, fresh.ID, list[0].ID)
	assert.True(t, list[0].Editable)
	assert.Equal(t, old.ID, list[1].ID)
	assert.False(t, list[1].Editable)

	training, err := f.svc.ListByProgram(ctx, model.ProgramTraining, "")
	require.NoError(t, err)
	require.Len(t, training, 1)
	assert.Equal(t, fresh.ID, training[0].ID)

	found, err := f.svc.ListByProgram(ctx, "", "  OLD ")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, old.ID, found[0].ID)

	none, err := f.svc.ListByProgram(ctx, model.ProgramTraining, "old")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.svc.ListByProgram(ctx, "Other", "")
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestReclassify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	testutil.InsertNeed(t, f.db, f.facility, "Clinical training", "", model.ProgramServices, f.now)
	testutil.InsertNeed(t, f.db, f.facility, "Locum cover", "", model.ProgramServices, f.now)

	changed, err := f.svc.Reclassify(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	changed, err = f.svc.Reclassify(ctx)
	require.NoError(t, err)
	assert.Zero(t, changed)
}
