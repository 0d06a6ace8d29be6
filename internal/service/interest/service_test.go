package interest

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nidahp/portal-api/internal/model"
	"github.com/nidahp/portal-api/internal/repository/postgres"
	"github.com/nidahp/portal-api/internal/testutil"
	apperrors "github.com/nidahp/portal-api/pkg/errors"
)

type fixture struct {
	db       *sqlx.DB
	svc      *Service
	pro      int64
	training int64
	services int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	base := testutil.Base(db)

	f := &fixture{db: db}
	f.svc = NewService(
		postgres.NewInterestRepository(base),
		postgres.NewNeedRepository(base),
		postgres.NewIdentityRepository(base),
		nil,
		nil,
	)

	fa := testutil.InsertFacility(t, db, "Alpha")
	now := time.Now().UTC()
	f.training = testutil.InsertNeed(t, db, fa, "Clinical training", "nursing", model.ProgramTraining, now)
	f.services = testutil.InsertNeed(t, db, fa, "Locum cover", "surgery", model.ProgramServices, now)
	f.pro = testutil.InsertProfessional(t, db, "Ada", model.RoleIndividual, testutil.Str("nursing"))
	return f
}

func TestExpressAndApprove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	i, err := f.svc.Express(ctx, f.pro, f.services)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, i.Status)

	pending, err := f.svc.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Ada", pending[0].ProfessionalName)
	assert.Equal(t, "Locum cover", pending[0].NeedDescription)

	approved, err := f.svc.Approve(ctx, i.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, approved.Status)
	assert.NotNil(t, approved.DecidedAt)

	_, err = f.svc.Approve(ctx, i.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrState))
	assert.Contains(t, err.Error(), "was already Approved")

	engagements, err := f.svc.ListApprovedFor(ctx, f.pro)
	require.NoError(t, err)
	require.Len(t, engagements, 1)
	assert.Equal(t, "Alpha", engagements[0].FacilityName)
}

func TestExpressDuplicateWhilePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Express(ctx, f.pro, f.services)
	require.NoError(t, err)

	_, err = f.svc.Express(ctx, f.pro, f.services)
	assert.True(t, apperrors.Is(err, apperrors.ErrDuplicate))

	// a different need is independent
	_, err = f.svc.Express(ctx, f.pro, f.training)
	require.NoError(t, err)

	_, err = f.svc.Reject(ctx, first.ID)
	require.NoError(t, err)

	again, err := f.svc.Express(ctx, f.pro, f.services)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, again.ID)
}

func TestExpressValidatesParties(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Express(ctx, 9999, f.services)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	_, err = f.svc.Express(ctx, f.pro, 9999)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	admin := testutil.InsertProfessional(t, f.db, "Root", model.RoleAdmin, nil)
	_, err = f.svc.Express(ctx, admin, f.services)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestApproveUnknownInterest(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Approve(context.Background(), 12345)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestRecordTrainingProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	training, err := f.svc.Express(ctx, f.pro, f.training)
	require.NoError(t, err)
	services, err := f.svc.Express(ctx, f.pro, f.services)
	require.NoError(t, err)

	_, err = f.svc.RecordTrainingProgress(ctx, training.ID, "Triage", model.TrainingScheduled)
	assert.True(t, apperrors.Is(err, apperrors.ErrState), "still pending")

	_, err = f.svc.Approve(ctx, training.ID)
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, services.ID)
	require.NoError(t, err)

	got, err := f.svc.RecordTrainingProgress(ctx, training.ID, " Triage ", model.TrainingOngoing)
	require.NoError(t, err)
	require.NotNil(t, got.TrainingTitle)
	assert.Equal(t, "Triage", *got.TrainingTitle)
	assert.Equal(t, model.TrainingOngoing, *got.TrainingStatus)

	_, err = f.svc.RecordTrainingProgress(ctx, services.ID, "Triage", model.TrainingDone)
	assert.True(t, apperrors.Is(err, apperrors.ErrState), "services need")

	_, err = f.svc.RecordTrainingProgress(ctx, training.ID, "Triage", "Paused")
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	trainings, err := f.svc.ListTrainingsFor(ctx, f.pro)
	require.NoError(t, err)
	require.Len(t, trainings, 1)
	assert.Equal(t, training.ID, trainings[0].ID)
}
