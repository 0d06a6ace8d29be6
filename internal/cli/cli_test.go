package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nidahp/portal-api/internal/app"
	"github.com/nidahp/portal-api/internal/model"
	"github.com/nidahp/portal-api/internal/repository/postgres"
	"github.com/nidahp/portal-api/internal/service/approval"
	"github.com/nidahp/portal-api/internal/testutil"
	"github.com/nidahp/portal-api/pkg/auth"
)

// sqliteDB keeps a shared in-memory database open for the whole test and
// returns the flags that point nidahctl at it.
func sqliteDB(t *testing.T) (*sqlx.DB, []string) {
	t.Helper()
	dsn := testutil.NewDSN(t)
	db := testutil.OpenDSN(t, dsn)
	return db, []string{"--db-driver", "sqlite", "--db-dsn", dsn}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func with(flags []string, args ...string) []string {
	return append(append([]string{}, args...), flags...)
}

func TestMigrate(t *testing.T) {
	dsn := testutil.NewDSN(t)
	db, err := postgres.Open(postgres.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	out, err := run(t, "migrate", "--db-driver", "sqlite", "--db-dsn", dsn)
	require.NoError(t, err)
	assert.Contains(t, out, "migrations applied (sqlite)")

	var n int
	require.NoError(t, db.Get(&n, "SELECT COUNT(*) FROM needs"))
	assert.Zero(t, n)

	// second run is a no-op
	_, err = run(t, "migrate", "--db-driver", "sqlite", "--db-dsn", dsn)
	require.NoError(t, err)
}

func TestMatchDryRunThenRun(t *testing.T) {
	db, flags := sqliteDB(t)
	fa := testutil.InsertFacility(t, db, "Alpha")
	testutil.InsertNeed(t, db, fa, "Ward cover", "nursing", model.ProgramServices, model.SystemClock())
	testutil.InsertProfessional(t, db, "Ada", model.RoleIndividual, testutil.Str("nursing"))
	testutil.InsertProfessional(t, db, "Chi", model.RoleIndividual, nil)

	out, err := run(t, with(flags, "match", "--dry-run")...)
	require.NoError(t, err)
	assert.Contains(t, out, "PROFESSIONAL")
	assert.Contains(t, out, "1 proposed (dry run), skipped 1 professionals and 0 facilities")

	out, err = run(t, with(flags, "pending")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing pending.")

	out, err = run(t, with(flags, "match")...)
	require.NoError(t, err)
	assert.Contains(t, out, "1 proposed: 1 inserted, 0 overwritten, 0 failed")

	out, err = run(t, with(flags, "pending")...)
	require.NoError(t, err)
	assert.Contains(t, out, "ASSIGNMENT")
	assert.Contains(t, out, "Ada")
	assert.Contains(t, out, "Alpha")
}

func TestDecideAssignment(t *testing.T) {
	db, flags := sqliteDB(t)
	fa := testutil.InsertFacility(t, db, "Alpha")
	testutil.InsertNeed(t, db, fa, "Ward cover", "nursing", model.ProgramServices, model.SystemClock())
	ada := testutil.InsertProfessional(t, db, "Ada", model.RoleIndividual, testutil.Str("nursing"))

	_, err := run(t, with(flags, "match")...)
	require.NoError(t, err)

	out, err := run(t, with(flags, "approve-assignment", fmt.Sprint(ada))...)
	require.NoError(t, err)
	assert.Contains(t, out, fmt.Sprintf("assignment of professional %d to facility %d is now Approved", ada, fa))

	_, err = run(t, with(flags, "reject-assignment", fmt.Sprint(ada))...)
	assert.Error(t, err, "already decided")

	_, err = run(t, with(flags, "approve-assignment", "abc")...)
	assert.EqualError(t, err, `invalid id "abc"`)

	_, err = run(t, with(flags, "approve-assignment")...)
	assert.Error(t, err)
}

func TestDecideInterestAndJSONOutput(t *testing.T) {
	db, flags := sqliteDB(t)
	fa := testutil.InsertFacility(t, db, "Alpha")
	needID := testutil.InsertNeed(t, db, fa, "Clinical training", "nursing", model.ProgramTraining, model.SystemClock())
	ada := testutil.InsertProfessional(t, db, "Ada", model.RoleIndividual, testutil.Str("nursing"))

	svc := app.NewServices(db, app.Options{})
	interest, err := svc.Interests.Express(context.Background(), ada, needID)
	require.NoError(t, err)

	out, err := run(t, with(flags, "pending", "-o", "json")...)
	require.NoError(t, err)
	var items approval.PendingItems
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items.Interests, 1)
	assert.Equal(t, interest.ID, items.Interests[0].ID)
	assert.Equal(t, "Clinical training", items.Interests[0].NeedDescription)
	assert.Empty(t, items.Assignments)

	out, err = run(t, with(flags, "reject-interest", fmt.Sprint(interest.ID))...)
	require.NoError(t, err)
	assert.Contains(t, out, fmt.Sprintf("interest %d is now Rejected", interest.ID))

	var status string
	require.NoError(t, db.Get(&status, "SELECT status FROM interests WHERE id = ?", interest.ID))
	assert.Equal(t, string(model.StatusRejected), status)

	var events int
	require.NoError(t, db.Get(&events, "SELECT COUNT(*) FROM outbox_events WHERE event_type = ?", model.EventInterestRejected))
	assert.Equal(t, 1, events)
}

func TestReclassify(t *testing.T) {
	db, flags := sqliteDB(t)
	fa := testutil.InsertFacility(t, db, "Alpha")
	id := testutil.InsertNeed(t, db, fa, "Mentorship for midwives", "midwifery", model.ProgramServices, model.SystemClock())
	testutil.InsertNeed(t, db, fa, "Locum cover", "surgery", model.ProgramServices, model.SystemClock())

	out, err := run(t, with(flags, "reclassify")...)
	require.NoError(t, err)
	assert.Contains(t, out, "1 needs reclassified")

	var pt string
	require.NoError(t, db.Get(&pt, "SELECT program_type FROM needs WHERE id = ?", id))
	assert.Equal(t, string(model.ProgramTraining), pt)
}

func TestToken(t *testing.T) {
	t.Setenv("NIDAH_JWT_SECRET", "cli-test-secret")

	out, err := run(t, "token", "--sub", "7", "--role", "facility")
	require.NoError(t, err)

	svc, err := auth.NewJWTService("cli-test-secret", "nidahp")
	require.NoError(t, err)
	claims, err := svc.ValidateToken(string(bytes.TrimSpace([]byte(out))))
	require.NoError(t, err)
	id, err := claims.ActorID()
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, model.RoleFacility, claims.Role)

	_, err = run(t, "token", "--sub", "7", "--role", "root")
	assert.EqualError(t, err, `unknown role "root"`)

	_, err = run(t, "token")
	assert.Error(t, err)
}

func TestUnknownOutputFormat(t *testing.T) {
	_, flags := sqliteDB(t)
	_, err := run(t, with(flags, "pending", "-o", "yaml")...)
	assert.EqualError(t, err, `unknown output format "yaml"`)
}
