package db

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/anthrogizi/anthrogizi/migrations"
)

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"m/002_kind_index.sql":  {Data: []byte("CREATE INDEX k ON saved_calculation (kind);")},
		"m/001_saved_calc.sql":  {Data: []byte("CREATE TABLE saved_calculation (id TEXT);")},
		"m/010_later.sql":       {Data: []byte("SELECT 1;")},
		"m/README.md":           {Data: []byte("not sql")},
		"m/noprefix.sql":        {Data: []byte("SELECT 1;")},
		"m/abc_notnumeric.sql":  {Data: []byte("SELECT 1;")},
		"m/nested/003_skip.sql": {Data: []byte("SELECT 1;")},
	}

	migs, err := NewSQLiteMigrator(nil, fsys, "m").LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migs) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migs))
	}
	want := []int{1, 2, 10}
	for i, v := range want {
		if migs[i].Version != v {
			t.Errorf("migration %d: expected version %d, got %d", i, v, migs[i].Version)
		}
	}
	if migs[0].Name != "001_saved_calc.sql" || migs[0].SQL != "CREATE TABLE saved_calculation (id TEXT);" {
		t.Errorf("unexpected first migration %+v", migs[0])
	}
}

func TestLoadMigrations_DuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"m/001_a.sql": {Data: []byte("SELECT 1;")},
		"m/1_b.sql":   {Data: []byte("SELECT 1;")},
	}
	if _, err := NewSQLiteMigrator(nil, fsys, "m").LoadMigrations(); err == nil {
		t.Fatal("expected error for duplicate versions")
	}
}

func TestLoadMigrations_MissingDir(t *testing.T) {
	if _, err := NewSQLiteMigrator(nil, fstest.MapFS{}, "absent").LoadMigrations(); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	for _, dir := range []string{migrations.PostgresDir, migrations.SQLiteDir} {
		migs, err := NewSQLiteMigrator(nil, migrations.FS, dir).LoadMigrations()
		if err != nil {
			t.Fatalf("%s: %v", dir, err)
		}
		if len(migs) == 0 || migs[0].Version != 1 {
			t.Errorf("%s: expected migrations starting at version 1, got %+v", dir, migs)
		}
	}
}

func TestSQLiteMigrator_UpAndStatus(t *testing.T) {
	ctx := context.Background()
	sqlDB, err := OpenSQLite(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer sqlDB.Close()

	m := NewSQLiteMigrator(sqlDB, migrations.FS, migrations.SQLiteDir)

	before, err := m.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, s := range before {
		if s.Applied {
			t.Errorf("migration %d should be pending", s.Version)
		}
	}

	n, err := m.Up(ctx)
	if err != nil {
		t.Fatalf("up: %v", err)
	}
	if n != len(before) {
		t.Errorf("expected %d applied, got %d", len(before), n)
	}

	again, err := m.Up(ctx)
	if err != nil {
		t.Fatalf("second up: %v", err)
	}
	if again != 0 {
		t.Errorf("expected second run to apply nothing, got %d", again)
	}

	after, err := m.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, s := range after {
		if !s.Applied || s.AppliedAt == nil {
			t.Errorf("migration %d should be applied", s.Version)
		}
	}

	if _, err := sqlDB.ExecContext(ctx, `SELECT id, kind, payload, created_by, created_at FROM saved_calculation`); err != nil {
		t.Errorf("saved_calculation table not usable: %v", err)
	}
}

func TestSQLiteMigrator_UpTo(t *testing.T) {
	ctx := context.Background()
	sqlDB, err := OpenSQLite(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer sqlDB.Close()

	fsys := fstest.MapFS{
		"m/001_a.sql": {Data: []byte("CREATE TABLE a (id INTEGER);")},
		"m/002_b.sql": {Data: []byte("CREATE TABLE b (id INTEGER);")},
	}
	m := NewSQLiteMigrator(sqlDB, fsys, "m")
	n, err := m.UpTo(ctx, 1)
	if err != nil {
		t.Fatalf("up to 1: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 applied, got %d", n)
	}
	st, _ := m.Status(ctx)
	if !st[0].Applied || st[1].Applied {
		t.Errorf("expected only version 1 applied, got %+v", st)
	}
}
