package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	in := `-- yorum; noktalı virgül
CREATE TABLE a (x TEXT DEFAULT 'a;b');
INSERT INTO a VALUES ('it''s');
SELECT 1`

	stmts := splitStatements(in)
	require.Len(t, stmts, 3)
	assert.Contains(t, stmts[0], "'a;b'")
	assert.Contains(t, stmts[1], "'it''s'")
	assert.Equal(t, "SELECT 1", stmts[2])
}

func TestNewAppliesEmbeddedMigrationsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.db")

	db, err := New(path, Migrations(), nil)
	require.NoError(t, err)

	var n int
	require.NoError(t, db.Conn.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('messages','group_messages','groups','group_members','users','user_relations')",
	).Scan(&n))
	assert.Equal(t, 6, n)
	require.NoError(t, db.Close())

	// İkinci açılışta aynı dosya tekrar çalıştırılmaz.
	db, err = New(path, Migrations(), nil)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Conn.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestRecoverableMigrationErrorsAreSkipped(t *testing.T) {
	fsys := fstest.MapFS{
		"001_a.sql": {Data: []byte("CREATE TABLE t (a TEXT); ALTER TABLE t ADD COLUMN b TEXT; ALTER TABLE t ADD COLUMN b TEXT;")},
	}

	db, err := New(filepath.Join(t.TempDir(), "x.db"), fsys, nil)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Conn.Exec("INSERT INTO t (a, b) VALUES ('1', '2')")
	assert.NoError(t, err)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	fsys := fstest.MapFS{"001_a.sql": {Data: []byte("CREATE TABLE t (a TEXT);")}}
	db, err := New(filepath.Join(t.TempDir(), "x.db"), fsys, nil)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	boom := errors.New("boom")

	err = WithTx(ctx, db.Conn, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO t VALUES ('x')"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = WithTx(ctx, db.Conn, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO t VALUES ('y')")
		return err
	})
	require.NoError(t, err)

	var n int
	require.NoError(t, db.Conn.QueryRow("SELECT COUNT(*) FROM t").Scan(&n))
	assert.Equal(t, 1, n)
}
