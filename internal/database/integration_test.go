package database

import (
	"path/filepath"
	"testing"

	"uniportal/internal/config"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	cfg := &config.Config{
		DatabaseType:   "sqlite",
		DatabasePath:   filepath.Join(t.TempDir(), "test.db"),
		MigrationsPath: filepath.Join("..", "..", "migrations"),
	}

	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return db
}

func TestMigrationsCreateSchema(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)

	tables := []string{"accounts", "pending_registrations", "otp_codes", "announcements", "migrations"}

	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s not found: %v", table, err)
		}
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)

	// Running again must be a no-op, not an error.
	if err := db.RunMigrations(filepath.Join("..", "..", "migrations")); err != nil {
		t.Fatalf("Second migration run failed: %v", err)
	}

	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM migrations WHERE filename = ?", "001_init.sql").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to query migrations table: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected migration recorded once, got %d", count)
	}
}

func TestExecReturningID(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)

	id, err := db.ExecReturningID(
		"INSERT INTO accounts (email, username, full_name, password_hash, role, is_verified) VALUES (?, ?, ?, ?, ?, ?)",
		"alice@example.edu", "alice", "Alice Smith", "hash", "student", true)
	if err != nil {
		t.Fatalf("ExecReturningID failed: %v", err)
	}
	if id == 0 {
		t.Error("Expected non-zero id")
	}

	id2, err := db.ExecReturningID(
		"INSERT INTO accounts (email, username, full_name, password_hash, role, is_verified) VALUES (?, ?, ?, ?, ?, ?)",
		"bob@example.edu", "bob", "Bob Jones", "hash", "student", true)
	if err != nil {
		t.Fatalf("ExecReturningID failed: %v", err)
	}
	if id2 <= id {
		t.Errorf("Expected increasing ids, got %d then %d", id, id2)
	}
}

func TestTransactionCommitAndRollback(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}

	_, err = tx.Exec(
		"INSERT INTO pending_registrations (email, username, full_name, password_hash) VALUES (?, ?, ?, ?)",
		"carol@example.edu", "carol", "Carol White", "hash")
	if err != nil {
		tx.Rollback()
		t.Fatalf("Failed to insert in transaction: %v", err)
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("Failed to commit transaction: %v", err)
	}

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM pending_registrations WHERE email = ?", "carol@example.edu").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to query after commit: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 pending registration, got %d", count)
	}

	tx2, err := db.Begin()
	if err != nil {
		t.Fatalf("Failed to begin second transaction: %v", err)
	}

	_, err = tx2.Exec("DELETE FROM pending_registrations WHERE email = ?", "carol@example.edu")
	if err != nil {
		tx2.Rollback()
		t.Fatalf("Failed to delete in transaction: %v", err)
	}

	if err := tx2.Rollback(); err != nil {
		t.Fatalf("Failed to rollback transaction: %v", err)
	}

	err = db.QueryRow("SELECT COUNT(*) FROM pending_registrations WHERE email = ?", "carol@example.edu").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to query after rollback: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected row to survive rollback, got count %d", count)
	}
}
