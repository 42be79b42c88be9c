package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/julianstephens/lifeplan/internal/constants"
	"github.com/julianstephens/lifeplan/internal/logicalday"
	"github.com/julianstephens/lifeplan/internal/models"
	"github.com/julianstephens/lifeplan/internal/storage"
	"github.com/julianstephens/lifeplan/internal/storage/storagetest"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestProvider(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Provider { return setupTestStore(t) })
}

func TestLoadRequiresInit(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.db"))
	if err := store.Load(); err == nil {
		t.Fatal("expected Load to fail before Init")
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	store := NewStore(path)
	if err := store.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	ctx := context.Background()
	created := time.Date(2024, 1, 1, 8, 30, 15, 123000000, time.UTC)
	rule := storagetest.NewRule("u1", "h1", constants.OwnerHabit, created)
	if err := store.AddRule(ctx, rule); err != nil {
		t.Fatalf("AddRule failed: %v", err)
	}
	store.Close()

	reopened := NewStore(path)
	if err := reopened.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.GetRule(ctx, "u1", rule.ID)
	if err != nil {
		t.Fatalf("GetRule failed: %v", err)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("expected created_at %s, got %s", created, got.CreatedAt)
	}

	st, err := reopened.MigrationStatus()
	if err != nil {
		t.Fatalf("MigrationStatus failed: %v", err)
	}
	if st.Current != st.Latest || len(st.Pending) != 0 {
		t.Errorf("expected schema up to date, got %+v", st)
	}
}

func TestConcurrentInsertsKeepOneRowPerKey(t *testing.T) {
	store := setupTestStore(t)
	rule := storagetest.NewRule("u1", "h1", constants.OwnerHabit, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	day := logicalday.MustParse("2024-01-01")

	var wg sync.WaitGroup
	var mu sync.Mutex
	total := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := store.InsertInstancesIgnoringDuplicates(context.Background(), []models.Instance{storagetest.NewInstance(rule, day)})
			if err != nil {
				t.Errorf("insert failed: %v", err)
				return
			}
			mu.Lock()
			total += n
			mu.Unlock()
		}()
	}
	wg.Wait()

	if total != 1 {
		t.Errorf("expected exactly one insert to win, got %d", total)
	}
	got, err := store.ListInstances(context.Background(), "u1", day, day)
	if err != nil {
		t.Fatalf("ListInstances failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected one stored instance, got %d", len(got))
	}
}

func TestTimestampOrdering(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	// 12:00:00.5 must sort after 12:00:00 even though its text form is longer
	whole := storagetest.NewRule("u1", "h1", constants.OwnerHabit, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	frac := storagetest.NewRule("u1", "h2", constants.OwnerHabit, time.Date(2024, 1, 1, 12, 0, 0, 500000000, time.UTC))
	for _, r := range []models.RecurrenceRule{frac, whole} {
		if err := store.AddRule(ctx, r); err != nil {
			t.Fatalf("AddRule failed: %v", err)
		}
	}

	rules, err := store.ListActiveRules(ctx, "u1")
	if err != nil {
		t.Fatalf("ListActiveRules failed: %v", err)
	}
	if len(rules) != 2 || rules[0].ID != whole.ID || rules[1].ID != frac.ID {
		t.Errorf("rules not in creation order: %+v", rules)
	}
}
