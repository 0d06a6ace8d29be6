package assignment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nidahp/portal-api/internal/model"
	"github.com/nidahp/portal-api/internal/repository"
	"github.com/nidahp/portal-api/internal/repository/postgres"
	"github.com/nidahp/portal-api/internal/testutil"
	apperrors "github.com/nidahp/portal-api/pkg/errors"
)

func TestApplyInsertsAndOverwrites(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService(postgres.NewAssignmentRepository(testutil.Base(db)), testutil.FixedClock(&now))

	fa := testutil.InsertFacility(t, db, "Alpha")
	fb := testutil.InsertFacility(t, db, "Beta")
	p1 := testutil.InsertProfessional(t, db, "Ada", model.RoleIndividual, testutil.Str("x"))
	p2 := testutil.InsertProfessional(t, db, "Bola", model.RoleIndividual, testutil.Str("x"))

	report, err := svc.Apply(ctx, []model.ProposedAssignment{
		{ProfessionalID: p1, FacilityID: fa, Score: 1},
		{ProfessionalID: p2, FacilityID: fa, Score: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Inserted)
	assert.Empty(t, report.Failed)

	_, err = svc.Approve(ctx, p1)
	require.NoError(t, err)

	now = now.Add(time.Hour)
	report, err = svc.Apply(ctx, []model.ProposedAssignment{{ProfessionalID: p1, FacilityID: fb, Score: 3}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Overwritten)

	pending, err := svc.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, p1, pending[0].ProfessionalID, "most recent first")
	assert.Equal(t, fb, pending[0].FacilityID)
	assert.Equal(t, 3, pending[0].Score)
}

func TestApplyReportsPartialFailure(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	svc := NewService(postgres.NewAssignmentRepository(testutil.Base(db)), nil)

	fa := testutil.InsertFacility(t, db, "Alpha")
	p1 := testutil.InsertProfessional(t, db, "Ada", model.RoleIndividual, testutil.Str("x"))
	p3 := testutil.InsertProfessional(t, db, "Chi", model.RoleIndividual, testutil.Str("x"))

	report, err := svc.Apply(ctx, []model.ProposedAssignment{
		{ProfessionalID: p1, FacilityID: fa, Score: 1},
		{ProfessionalID: 9999, FacilityID: fa, Score: 1}, // unknown professional, FK violation
		{ProfessionalID: p3, FacilityID: fa, Score: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Applied())
	require.Len(t, report.Failed, 1)
	assert.Equal(t, int64(9999), report.Failed[0].Proposal.ProfessionalID)

	pending, err := svc.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestApproveGuards(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	svc := NewService(postgres.NewAssignmentRepository(testutil.Base(db)), nil)

	fa := testutil.InsertFacility(t, db, "Alpha")
	p1 := testutil.InsertProfessional(t, db, "Ada", model.RoleIndividual, testutil.Str("x"))
	p2 := testutil.InsertProfessional(t, db, "Bola", model.RoleIndividual, testutil.Str("x"))

	_, err := svc.Approve(ctx, p1)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	_, err = svc.Apply(ctx, []model.ProposedAssignment{
		{ProfessionalID: p1, FacilityID: fa, Score: 1},
		{ProfessionalID: p2, FacilityID: fa, Score: 1},
	})
	require.NoError(t, err)

	a, err := svc.Approve(ctx, p1)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, a.Status)
	assert.NotNil(t, a.DecidedAt)

	_, err = svc.Approve(ctx, p1)
	require.True(t, apperrors.Is(err, apperrors.ErrState))
	assert.Contains(t, err.Error(), "was already Approved")

	a, err = svc.Reject(ctx, p2)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, a.Status)

	_, err = svc.Approve(ctx, p2)
	assert.True(t, apperrors.Is(err, apperrors.ErrState))

	pending, err := svc.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

type failingRepo struct {
	repository.AssignmentRepository
}

func (failingRepo) Upsert(context.Context, model.ProposedAssignment, time.Time) (model.AssignmentCommand, error) {
	return model.AssignmentCommand{}, errors.New("connection reset")
}

func TestApplyStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewService(failingRepo{}, nil)
	report, err := svc.Apply(ctx, []model.ProposedAssignment{{ProfessionalID: 1, FacilityID: 1, Score: 1}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, report.Applied())
	assert.Empty(t, report.Failed)
}

func TestApplyCollectsStoreErrors(t *testing.T) {
	svc := NewService(failingRepo{}, nil)
	report, err := svc.Apply(context.Background(), []model.ProposedAssignment{
		{ProfessionalID: 1, FacilityID: 1, Score: 1},
		{ProfessionalID: 2, FacilityID: 1, Score: 1},
	})
	require.NoError(t, err)
	assert.Len(t, report.Failed, 2)
	assert.EqualError(t, report.Failed[0].Err, "connection reset")

	out, err := json.Marshal(report)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"inserted": 0,
		"overwritten": 0,
		"failed": [
			{"proposal": {"professional_id": 1, "facility_id": 1, "score": 1}, "reason": "connection reset"},
			{"proposal": {"professional_id": 2, "facility_id": 1, "score": 1}, "reason": "connection reset"}
		]
	}`, string(out))
}

func TestConcurrentApplyKeepsOneRowPerProfessional(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	svc := NewService(postgres.NewAssignmentRepository(testutil.Base(db)), nil)

	pro := testutil.InsertProfessional(t, db, "Ada", model.RoleIndividual, testutil.Str("x"))
	const n = 12
	facilities := make([]int64, n)
	for k := range facilities {
		facilities[k] = testutil.InsertFacility(t, db, fmt.Sprintf("Facility %d", k))
	}

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		inserted    int
		overwritten int
		failures    []Failure
		errs        []error
	)
	for _, fa := range facilities {
		wg.Add(1)
		go func(fa int64) {
			defer wg.Done()
			report, err := svc.Apply(ctx, []model.ProposedAssignment{{ProfessionalID: pro, FacilityID: fa, Score: 1}})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			inserted += report.Inserted
			overwritten += report.Overwritten
			failures = append(failures, report.Failed...)
		}(fa)
	}
	wg.Wait()

	require.Empty(t, errs)
	require.Empty(t, failures)
	assert.Equal(t, 1, inserted)
	assert.Equal(t, n-1, overwritten)

	var rows int
	require.NoError(t, db.Get(&rows, "SELECT COUNT(*) FROM assignments WHERE professional_id = ?", pro))
	assert.Equal(t, 1, rows)

	stored, err := svc.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Contains(t, facilities, stored[0].FacilityID)
	assert.Equal(t, model.StatusPending, stored[0].Status)
}
