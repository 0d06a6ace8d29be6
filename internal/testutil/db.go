// Package testutil provides an in-memory store and fixture rows for tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/nidahp/portal-api/internal/model"
	"github.com/nidahp/portal-api/internal/repository/postgres"
)

var dbSeq atomic.Int64

// NewDSN returns a DSN naming a fresh shared in-memory sqlite database. The
// database lives while at least one connection to it is open.
func NewDSN(t *testing.T) string {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared&_pragma=foreign_keys(1)&_time_format=sqlite", name, dbSeq.Add(1))
}

// NewDB opens a private in-memory sqlite database with all migrations applied.
func NewDB(t *testing.T) *sqlx.DB {
	t.Helper()
	return OpenDSN(t, NewDSN(t))
}

// OpenDSN opens dsn and applies all migrations.
func OpenDSN(t *testing.T, dsn string) *sqlx.DB {
	t.Helper()

	db, err := postgres.Open(postgres.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, postgres.RunMigrations(context.Background(), db))
	return db
}

// Base wraps db for repository constructors.
func Base(db *sqlx.DB) postgres.BaseRepository {
	return postgres.NewBaseRepository(db)
}

// InsertFacility registers an active facility and returns its id.
func InsertFacility(t *testing.T, db *sqlx.DB, name string) int64 {
	t.Helper()
	var id int64
	err := db.QueryRowx(
		`INSERT INTO facilities (name, code, state, is_active, created_at) VALUES (?, ?, ?, ?, ?) RETURNING id`,
		name, strings.ToUpper(strings.ReplaceAll(name, " ", "-")), "Lagos", true, time.Now().UTC(),
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// DeactivateFacility marks a facility inactive.
func DeactivateFacility(t *testing.T, db *sqlx.DB, id int64) {
	t.Helper()
	_, err := db.Exec(`UPDATE facilities SET is_active = ? WHERE id = ?`, false, id)
	require.NoError(t, err)
}

// InsertProfessional registers an account with the given role. A nil skills
// stores NULL.
func InsertProfessional(t *testing.T, db *sqlx.DB, name string, role model.Role, skills *string) int64 {
	t.Helper()
	var id int64
	err := db.QueryRowx(
		`INSERT INTO professionals (full_name, role, skills, created_at) VALUES (?, ?, ?, ?) RETURNING id`,
		name, string(role), skills, time.Now().UTC(),
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// InsertNeed stores a need directly, bypassing the registry's checks.
func InsertNeed(t *testing.T, db *sqlx.DB, facilityID int64, description, tags string, pt model.ProgramType, createdAt time.Time) int64 {
	t.Helper()
	var id int64
	err := db.QueryRowx(
		`INSERT INTO needs (facility_id, description, quantity, program_type, tags, created_at, updated_at)
		 VALUES (?, ?, 1, ?, ?, ?, ?) RETURNING id`,
		facilityID, description, string(pt), tags, createdAt, createdAt,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// Str returns a pointer to s.
func Str(s string) *string {
	return &s
}

// FixedClock returns a clock pinned at *now; tests move time by assigning to it.
func FixedClock(now *time.Time) model.Clock {
	return func() time.Time { return *now }
}
