package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"graph-store/core/database"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupSQLite(t *testing.T) *Gorm {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"}, nil)
	require.NoError(t, err)

	g := NewGorm(db)
	require.NoError(t, g.Migrate(context.Background()))
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func setupMockDB(t *testing.T) (*Gorm, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return NewGorm(gormDB), mock
}

func TestGorm_CommitAndFetch(t *testing.T) {
	ctx := context.Background()
	g := setupSQLite(t)

	require.NoError(t, g.Commit(ctx, ChangeSet{Inserts: []Record{
		record("2", "a"),
		record("1", "a"),
		record("3", "b"),
	}}))

	all, err := g.Fetch(ctx, Query{Entity: "person", All: true})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, "n-a", all[0].Fields["name"])
	assert.Equal(t, int64(1), all[0].Version)

	some, err := g.Fetch(ctx, Query{Entity: "person", UIDs: []string{"b"}})
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "3", some[0].ID)

	got, err := g.Get(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, "b", got.UID)

	_, err = g.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGorm_FetchSplitsLargeQueries(t *testing.T) {
	ctx := context.Background()
	g := setupSQLite(t)

	inserts := make([]Record, 0, fetchChunkSize+10)
	uids := make([]string, 0, fetchChunkSize+10)
	for i := 0; i < fetchChunkSize+10; i++ {
		uid := fmt.Sprintf("%c-%d", 'a'+i%26, i)
		inserts = append(inserts, record(fmt.Sprintf("id-%d", i), uid))
		uids = append(uids, uid)
	}
	require.NoError(t, g.Commit(ctx, ChangeSet{Inserts: inserts}))

	got, err := g.Fetch(ctx, Query{Entity: "person", UIDs: uids})
	require.NoError(t, err)
	assert.Len(t, got, fetchChunkSize+10)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].UID, got[i].UID)
	}
}

func TestGorm_CommitVersioning(t *testing.T) {
	ctx := context.Background()
	g := setupSQLite(t)
	require.NoError(t, g.Commit(ctx, ChangeSet{Inserts: []Record{record("1", "a")}}))

	upd := record("1", "a2")
	upd.Version = 1
	upd.Fields["count"] = 3
	require.NoError(t, g.Commit(ctx, ChangeSet{Updates: []Record{upd}}))

	got, err := g.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, "a2", got.UID)
	// JSON columns decode numbers as float64.
	assert.Equal(t, float64(3), got.Fields["count"])

	err = g.Commit(ctx, ChangeSet{
		Inserts: []Record{record("2", "b")},
		Updates: []Record{upd},
	})
	assert.ErrorIs(t, err, ErrConflict)

	// The transaction rolled back the insert.
	_, err = g.Get(ctx, "2")
	assert.ErrorIs(t, err, ErrNotFound)

	err = g.Commit(ctx, ChangeSet{Inserts: []Record{record("1", "dup")}})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestGorm_DeleteAndDuplicates(t *testing.T) {
	ctx := context.Background()
	g := setupSQLite(t)
	require.NoError(t, g.Commit(ctx, ChangeSet{Inserts: []Record{
		record("1", "a"),
		record("2", "a"),
		record("3", "b"),
	}}))

	groups, err := g.FindDuplicates(ctx, "person")
	require.NoError(t, err)
	assert.Equal(t, []DuplicateGroup{{UID: "a", IDs: []string{"1", "2"}}}, groups)

	require.NoError(t, g.Commit(ctx, ChangeSet{Deletes: []Record{{ID: "2", Entity: "person"}}}))

	groups, err = g.FindDuplicates(ctx, "person")
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestGorm_FetchError(t *testing.T) {
	g, mock := setupMockDB(t)

	mock.ExpectQuery("SELECT \\* FROM `objects` WHERE entity = \\?").
		WithArgs("person").
		WillReturnError(errors.New("connection reset"))

	_, err := g.Fetch(context.Background(), Query{Entity: "person", All: true})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch person")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGorm_CommitRollsBackOnError(t *testing.T) {
	g, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `objects`").WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()

	upd := record("1", "a")
	upd.Version = 1
	err := g.Commit(context.Background(), ChangeSet{Updates: []Record{upd}})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to update 1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExpectedColumns(t *testing.T) {
	g := setupSQLite(t)

	missing, err := database.MissingColumns(g.db, "objects", ExpectedColumns)
	require.NoError(t, err)
	assert.Empty(t, missing)
}
