package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/lifeplan/internal/models"
	"github.com/julianstephens/lifeplan/internal/storage/sqlite"
)

func setupTestDB(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "lifeplan.db")
	store := sqlite.NewStore(dbPath)
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	addHabit(t, store, "h1", "Read")
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
	return dbPath
}

func addHabit(t *testing.T, store *sqlite.Store, id, name string) {
	t.Helper()
	h := models.Habit{ID: id, UserID: "u1", Name: name, CreatedAt: time.Now().UTC()}
	if err := store.AddHabit(context.Background(), h); err != nil {
		t.Fatalf("failed to add habit: %v", err)
	}
}

func countHabits(t *testing.T, dbPath string) int {
	t.Helper()
	store := sqlite.NewStore(dbPath)
	if err := store.Load(); err != nil {
		t.Fatalf("failed to load store: %v", err)
	}
	defer store.Close()
	habits, err := store.ListHabits(context.Background(), "u1", true)
	if err != nil {
		t.Fatalf("failed to list habits: %v", err)
	}
	return len(habits)
}

func steppingClock(start time.Time, step time.Duration) func() time.Time {
	next := start
	return func() time.Time {
		t := next
		next = next.Add(step)
		return t
	}
}

func TestCreate(t *testing.T) {
	dbPath := setupTestDB(t)
	taken := time.Date(2024, 3, 10, 7, 30, 0, 0, time.UTC)
	mgr := NewManager(dbPath, WithClock(func() time.Time { return taken }))

	info, err := mgr.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if got, want := filepath.Base(info.Path), "lifeplan-20240310-073000.db"; got != want {
		t.Errorf("backup name = %s, want %s", got, want)
	}
	if info.Size == 0 {
		t.Error("backup is empty")
	}
	if got := countHabits(t, info.Path); got != 1 {
		t.Errorf("backup holds %d habits, want 1", got)
	}

	// Same second: the name gets a counter suffix
	second, err := mgr.Create()
	if err != nil {
		t.Fatalf("second Create failed: %v", err)
	}
	if got, want := filepath.Base(second.Path), "lifeplan-20240310-073000-1.db"; got != want {
		t.Errorf("backup name = %s, want %s", got, want)
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(backups) != 2 {
		t.Fatalf("expected 2 backups, got %d", len(backups))
	}
	if backups[0].Path != second.Path {
		t.Errorf("expected the suffixed backup first, got %s", backups[0].Path)
	}
}

func TestCreateMissingDatabase(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "missing.db"))
	if _, err := mgr.Create(); err == nil {
		t.Fatal("expected an error for a missing database")
	}
}

func TestCreateRejectsForeignDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "other.db")
	if err := os.WriteFile(dbPath, []byte("not a database"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewManager(dbPath).Create(); err == nil {
		t.Fatal("expected an error for a non-lifeplan file")
	}
}

func TestRotation(t *testing.T) {
	dbPath := setupTestDB(t)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mgr := NewManager(dbPath, WithRetention(3), WithClock(steppingClock(start, time.Hour)))

	for i := 0; i < 5; i++ {
		if _, err := mgr.Create(); err != nil {
			t.Fatalf("Create %d failed: %v", i, err)
		}
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(backups) != 3 {
		t.Fatalf("expected 3 backups after rotation, got %d", len(backups))
	}
	if want := start.Add(4 * time.Hour); !backups[0].Taken.Equal(want) {
		t.Errorf("newest backup taken at %v, want %v", backups[0].Taken, want)
	}
	if want := start.Add(2 * time.Hour); !backups[2].Taken.Equal(want) {
		t.Errorf("oldest kept backup taken at %v, want %v", backups[2].Taken, want)
	}
}

func TestListIgnoresUnrelatedFiles(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)
	if err := os.MkdirAll(mgr.Dir(), 0o700); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"notes.txt", "lifeplan-garbage.db", "lifeplan-20240101-000000-x.db"} {
		if err := os.WriteFile(filepath.Join(mgr.Dir(), name), nil, 0o600); err != nil {
			t.Fatal(err)
		}
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(backups) != 0 {
		t.Errorf("expected no backups, got %v", backups)
	}
	if _, err := mgr.Latest(); err != ErrNoBackups {
		t.Errorf("Latest error = %v, want ErrNoBackups", err)
	}
}

func TestRestore(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath, WithClock(steppingClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Minute)))

	snap, err := mgr.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	store := sqlite.NewStore(dbPath)
	if err := store.Load(); err != nil {
		t.Fatal(err)
	}
	addHabit(t, store, "h2", "Run")
	store.Close()
	if got := countHabits(t, dbPath); got != 2 {
		t.Fatalf("expected 2 habits before restore, got %d", got)
	}

	previous, err := mgr.Restore(snap.Path)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if got := countHabits(t, dbPath); got != 1 {
		t.Errorf("expected 1 habit after restore, got %d", got)
	}
	if got := countHabits(t, previous.Path); got != 2 {
		t.Errorf("pre-restore snapshot holds %d habits, want 2", got)
	}
}

func TestRestoreRejectsInvalidBackup(t *testing.T) {
	dbPath := setupTestDB(t)
	bad := filepath.Join(t.TempDir(), "bad.db")
	if err := os.WriteFile(bad, []byte("junk"), 0o600); err != nil {
		t.Fatal(err)
	}

	mgr := NewManager(dbPath)
	if _, err := mgr.Restore(bad); err == nil {
		t.Fatal("expected restore of a corrupt file to fail")
	}
	if _, err := mgr.Restore(filepath.Join(t.TempDir(), "nope.db")); err == nil {
		t.Fatal("expected restore of a missing file to fail")
	}
	if got := countHabits(t, dbPath); got != 1 {
		t.Errorf("database changed after failed restore: %d habits", got)
	}
}
