package migration

import (
	"context"
	"database/sql"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

// newTestDB はテスト用のインメモリSQLiteを生成する。
// :memory: は接続ごとに別のDBになるため、接続数を1に制限する。
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("インメモリDB接続に失敗: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

// TestApply はApply関数を検証する。
func TestApply(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"migrations/000002_add_index.up.sql":      {Data: []byte("CREATE INDEX idx_items_name ON items(name);")},
		"migrations/000001_create_items.up.sql":   {Data: []byte("CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT);")},
		"migrations/000001_create_items.down.sql": {Data: []byte("DROP TABLE items;")},
		"migrations/README.md":                    {Data: []byte("ignored")},
	}

	t.Run("バージョン順に適用されること", func(t *testing.T) {
		t.Parallel()

		db := newTestDB(t)
		n, err := Apply(context.Background(), db, fsys, "migrations")
		if err != nil {
			t.Fatalf("Apply()でエラーが発生: %v", err)
		}
		if n != 2 {
			t.Errorf("適用件数 = %d, want 2", n)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatalf("schema_migrationsの参照に失敗: %v", err)
		}
		if count != 2 {
			t.Errorf("記録件数 = %d, want 2", count)
		}
		if _, err := db.Exec("INSERT INTO items (name) VALUES ('a')"); err != nil {
			t.Errorf("作成されたテーブルに書き込めない: %v", err)
		}
	})

	t.Run("2回目の実行では何も適用しないこと", func(t *testing.T) {
		t.Parallel()

		db := newTestDB(t)
		if err := Run(db, fsys, "migrations"); err != nil {
			t.Fatalf("1回目のRun()でエラーが発生: %v", err)
		}
		n, err := Apply(context.Background(), db, fsys, "migrations")
		if err != nil {
			t.Fatalf("2回目のApply()でエラーが発生: %v", err)
		}
		if n != 0 {
			t.Errorf("適用件数 = %d, want 0", n)
		}
	})

	t.Run("不正なSQLはロールバックされ記録されないこと", func(t *testing.T) {
		t.Parallel()

		db := newTestDB(t)
		bad := fstest.MapFS{
			"m/000001_broken.up.sql": {Data: []byte("CREATE TABLE oops (")},
		}
		if _, err := Apply(context.Background(), db, bad, "m"); err == nil {
			t.Fatal("Apply()がエラーを返すべきだが、nilが返った")
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatalf("schema_migrationsの参照に失敗: %v", err)
		}
		if count != 0 {
			t.Errorf("記録件数 = %d, want 0", count)
		}
	})

	t.Run("同じバージョンが重複しているとエラーになること", func(t *testing.T) {
		t.Parallel()

		db := newTestDB(t)
		dup := fstest.MapFS{
			"m/000001_a.up.sql": {Data: []byte("SELECT 1;")},
			"m/000001_b.up.sql": {Data: []byte("SELECT 1;")},
		}
		if _, err := Apply(context.Background(), db, dup, "m"); err == nil {
			t.Fatal("Apply()がエラーを返すべきだが、nilが返った")
		}
	})

	t.Run("存在しないディレクトリはエラーになること", func(t *testing.T) {
		t.Parallel()

		db := newTestDB(t)
		if err := Run(db, fsys, "nothing"); err == nil {
			t.Fatal("Run()がエラーを返すべきだが、nilが返った")
		}
	})
}
