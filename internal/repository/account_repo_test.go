package repository

import (
	"errors"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"uniportal/internal/config"
	"uniportal/internal/database"
	"uniportal/internal/models"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := &config.Config{
		DatabaseType:   "sqlite",
		DatabasePath:   filepath.Join(t.TempDir(), "test.db"),
		MigrationsPath: filepath.Join("..", "..", "migrations"),
	}

	db, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return db
}

func TestAccountCreateAndFind(t *testing.T) {
	repo := NewAccountRepository(openTestDB(t))

	created, err := repo.Create("alice@example.edu", "alice", "Alice Smith", "hash", models.RoleStudent, true)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID == 0 {
		t.Error("Create() returned zero id")
	}

	byEmail, err := repo.FindByEmail("alice@example.edu")
	if err != nil {
		t.Fatalf("FindByEmail() error = %v", err)
	}
	if byEmail == nil || byEmail.Username != "alice" {
		t.Errorf("FindByEmail() = %+v, want alice", byEmail)
	}

	byUsername, err := repo.FindByUsername("alice")
	if err != nil {
		t.Fatalf("FindByUsername() error = %v", err)
	}
	if byUsername == nil || byUsername.Email != "alice@example.edu" {
		t.Errorf("FindByUsername() = %+v, want alice@example.edu", byUsername)
	}

	byID, err := repo.FindByID(created.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if byID == nil || byID.Email != "alice@example.edu" {
		t.Errorf("FindByID() = %+v, want alice@example.edu", byID)
	}
}

func TestAccountFindMissingReturnsNil(t *testing.T) {
	repo := NewAccountRepository(openTestDB(t))

	account, err := repo.FindByEmail("nobody@example.edu")
	if err != nil {
		t.Fatalf("FindByEmail() error = %v", err)
	}
	if account != nil {
		t.Errorf("FindByEmail() = %+v, want nil for missing account", account)
	}
}

func TestAccountCreateDuplicate(t *testing.T) {
	repo := NewAccountRepository(openTestDB(t))

	if _, err := repo.Create("alice@example.edu", "alice", "Alice Smith", "hash", models.RoleStudent, true); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := repo.Create("alice@example.edu", "alice2", "Alice Smith", "hash", models.RoleStudent, true); !errors.Is(err, ErrDuplicate) {
		t.Errorf("Create() with duplicate email error = %v, want ErrDuplicate", err)
	}

	if _, err := repo.Create("alice2@example.edu", "alice", "Alice Smith", "hash", models.RoleStudent, true); !errors.Is(err, ErrDuplicate) {
		t.Errorf("Create() with duplicate username error = %v, want ErrDuplicate", err)
	}
}

func TestCreatePendingReplacesEarlierSubmission(t *testing.T) {
	repo := NewAccountRepository(openTestDB(t))

	if err := repo.CreatePending("bob@example.edu", "bob", "Bob Jones", "hash1"); err != nil {
		t.Fatalf("CreatePending() error = %v", err)
	}
	if err := repo.CreatePending("bob@example.edu", "bobby", "Bob Jones", "hash2"); err != nil {
		t.Fatalf("CreatePending() second submission error = %v", err)
	}

	pending, err := repo.FindPendingByEmail("bob@example.edu")
	if err != nil {
		t.Fatalf("FindPendingByEmail() error = %v", err)
	}
	if pending == nil {
		t.Fatal("FindPendingByEmail() = nil, want pending registration")
	}
	if pending.Username != "bobby" || pending.PasswordHash != "hash2" {
		t.Errorf("FindPendingByEmail() = %+v, want latest submission", pending)
	}
}

func TestPromotePending(t *testing.T) {
	repo := NewAccountRepository(openTestDB(t))

	if err := repo.CreatePending("bob@example.edu", "bob", "Bob Jones", "hash"); err != nil {
		t.Fatalf("CreatePending() error = %v", err)
	}

	account, err := repo.PromotePending("bob@example.edu")
	if err != nil {
		t.Fatalf("PromotePending() error = %v", err)
	}
	if account.Role != models.RoleStudent {
		t.Errorf("Role = %q, want %q", account.Role, models.RoleStudent)
	}
	if !account.IsVerified {
		t.Error("promoted account should be verified")
	}

	pending, err := repo.FindPendingByEmail("bob@example.edu")
	if err != nil {
		t.Fatalf("FindPendingByEmail() error = %v", err)
	}
	if pending != nil {
		t.Error("pending registration should be removed after promotion")
	}

	// A second promotion finds nothing to claim
	if _, err := repo.PromotePending("bob@example.edu"); !errors.Is(err, ErrPendingNotFound) {
		t.Errorf("second PromotePending() error = %v, want ErrPendingNotFound", err)
	}
}

func TestPromotePendingMissing(t *testing.T) {
	repo := NewAccountRepository(openTestDB(t))

	if _, err := repo.PromotePending("nobody@example.edu"); !errors.Is(err, ErrPendingNotFound) {
		t.Errorf("PromotePending() error = %v, want ErrPendingNotFound", err)
	}
}

func TestPromotePendingConcurrent(t *testing.T) {
	repo := NewAccountRepository(openTestDB(t))

	if err := repo.CreatePending("race@example.edu", "racer", "Race Condition", "hash"); err != nil {
		t.Fatalf("CreatePending() error = %v", err)
	}

	// Two verifications race for the same pending registration. The guarded
	// delete lets exactly one claim it; the other must see ErrPendingNotFound.
	start := make(chan struct{})
	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := repo.PromotePending("race@example.edu")
			results <- err
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	var wins, notFound int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrPendingNotFound):
			notFound++
		default:
			t.Errorf("PromotePending() error = %v, want nil or ErrPendingNotFound", err)
		}
	}
	if wins != 1 || notFound != 1 {
		t.Errorf("wins = %d, notFound = %d, want exactly one of each", wins, notFound)
	}

	count, err := repo.CountAccounts()
	if err != nil {
		t.Fatalf("CountAccounts() error = %v", err)
	}
	if count != 1 {
		t.Errorf("CountAccounts() = %d, want 1", count)
	}
}

func TestUpdatePasswordHash(t *testing.T) {
	repo := NewAccountRepository(openTestDB(t))

	if _, err := repo.Create("alice@example.edu", "alice", "Alice Smith", "oldhash", models.RoleStudent, true); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.UpdatePasswordHash("alice@example.edu", "newhash"); err != nil {
		t.Fatalf("UpdatePasswordHash() error = %v", err)
	}

	account, err := repo.FindByEmail("alice@example.edu")
	if err != nil {
		t.Fatalf("FindByEmail() error = %v", err)
	}
	if account.PasswordHash != "newhash" {
		t.Errorf("PasswordHash = %q, want %q", account.PasswordHash, "newhash")
	}
}

func TestUpdateProfile(t *testing.T) {
	repo := NewAccountRepository(openTestDB(t))

	created, err := repo.Create("alice@example.edu", "alice", "Alice Smith", "hash", models.RoleStudent, false)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	subjects := []string{"Algorithms", "Databases", "Networks"}
	if err := repo.UpdateProfile(created.ID, "Computer Science", subjects); err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	account, err := repo.FindByID(created.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if account.DegreeProgram != "Computer Science" {
		t.Errorf("DegreeProgram = %q, want Computer Science", account.DegreeProgram)
	}
	if !reflect.DeepEqual(account.Subjects, subjects) {
		t.Errorf("Subjects = %v, want %v", account.Subjects, subjects)
	}
	if !account.IsVerified {
		t.Error("UpdateProfile() should mark the account verified")
	}
}

func TestDeleteStalePending(t *testing.T) {
	db := openTestDB(t)
	repo := NewAccountRepository(db)

	// Insert one stale and one fresh pending row with explicit timestamps
	stale := time.Now().Add(-48 * time.Hour)
	fresh := time.Now()
	for _, row := range []struct {
		email     string
		createdAt time.Time
	}{
		{"stale@example.edu", stale},
		{"fresh@example.edu", fresh},
	} {
		_, err := db.Exec(
			"INSERT INTO pending_registrations (email, username, full_name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)",
			row.email, row.email, "Some Name", "hash", row.createdAt)
		if err != nil {
			t.Fatalf("insert pending: %v", err)
		}
	}

	if err := repo.DeleteStalePending(time.Now().Add(-24 * time.Hour)); err != nil {
		t.Fatalf("DeleteStalePending() error = %v", err)
	}

	if p, _ := repo.FindPendingByEmail("stale@example.edu"); p != nil {
		t.Error("stale pending registration should be deleted")
	}
	if p, _ := repo.FindPendingByEmail("fresh@example.edu"); p == nil {
		t.Error("fresh pending registration should survive")
	}
}

func TestCountAndListAccounts(t *testing.T) {
	repo := NewAccountRepository(openTestDB(t))

	count, err := repo.CountAccounts()
	if err != nil {
		t.Fatalf("CountAccounts() error = %v", err)
	}
	if count != 0 {
		t.Errorf("CountAccounts() = %d, want 0", count)
	}

	if _, err := repo.Create("alice@example.edu", "alice", "Alice Smith", "hash", models.RoleStudent, true); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := repo.Create("admin@example.edu", "admin", "Portal Admin", "hash", models.RoleAdmin, true); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	count, err = repo.CountAccounts()
	if err != nil {
		t.Fatalf("CountAccounts() error = %v", err)
	}
	if count != 2 {
		t.Errorf("CountAccounts() = %d, want 2", count)
	}

	accounts, err := repo.ListAccounts()
	if err != nil {
		t.Fatalf("ListAccounts() error = %v", err)
	}
	if len(accounts) != 2 {
		t.Errorf("ListAccounts() returned %d accounts, want 2", len(accounts))
	}
}
