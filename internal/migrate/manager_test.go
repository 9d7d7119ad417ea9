package migrate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMigration(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestUpAppliesPendingInOrder(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "0002_indexes.up.sql", "create index idx on t(a);")
	writeMigration(t, dir, "0001_init.up.sql", "create table t(a int);")
	writeMigration(t, dir, "0001_init.down.sql", "drop table t;")

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("create table if not exists schema_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_init.up.sql"))

	// Only the pending 0002 runs.
	mock.ExpectExec("create index idx").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("insert into schema_migrations").
		WithArgs("0002_indexes.up.sql").
		WillReturnResult(sqlmock.NewResult(0, 1))

	m := NewManager(db, dir)
	require.NoError(t, m.Up(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDownRollsBackLastApplied(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "0001_init.up.sql", "create table t(a int);")
	writeMigration(t, dir, "0001_init.down.sql", "drop table t;")

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("create table if not exists schema_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_init.up.sql"))
	mock.ExpectExec("drop table t").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("delete from schema_migrations").
		WithArgs("0001_init.up.sql").
		WillReturnResult(sqlmock.NewResult(0, 1))

	m := NewManager(db, dir)
	require.NoError(t, m.Down(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDownFailsWithoutDownFile(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "0001_init.up.sql", "create table t(a int);")

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("create table if not exists schema_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_init.up.sql"))

	m := NewManager(db, dir)
	err = m.Down(context.Background())
	assert.ErrorContains(t, err, "missing down migration")
}

func TestCollectSQLOrdersLexically(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "0002_b.up.sql", "")
	writeMigration(t, dir, "0001_a.up.sql", "")
	writeMigration(t, dir, "0001_a.down.sql", "")

	files, err := collectSQL(dir, ".up.sql")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "0001_a.up.sql", files[0].base)
	assert.Equal(t, "0002_b.up.sql", files[1].base)
}
