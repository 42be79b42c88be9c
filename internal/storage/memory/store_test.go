package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/julianstephens/lifeplan/internal/constants"
	"github.com/julianstephens/lifeplan/internal/logicalday"
	"github.com/julianstephens/lifeplan/internal/models"
	"github.com/julianstephens/lifeplan/internal/storage"
	"github.com/julianstephens/lifeplan/internal/storage/storagetest"
)

func TestProvider(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Provider { return New() })
}

func TestConcurrentInsertsKeepOneRowPerKey(t *testing.T) {
	s := New()
	rule := storagetest.NewRule("u1", "h1", constants.OwnerHabit, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	day := logicalday.MustParse("2024-01-01")

	var wg sync.WaitGroup
	totals := make([]int, 8)
	for i := range totals {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n, err := s.InsertInstancesIgnoringDuplicates(context.Background(), []models.Instance{storagetest.NewInstance(rule, day)})
			if err != nil {
				t.Errorf("insert failed: %v", err)
			}
			totals[i] = n
		}(i)
	}
	wg.Wait()

	sum := 0
	for _, n := range totals {
		sum += n
	}
	if sum != 1 {
		t.Errorf("expected exactly one insert to win, got %d", sum)
	}
}

func TestCancelledInsertStops(t *testing.T) {
	s := New()
	rule := storagetest.NewRule("u1", "h1", constants.OwnerHabit, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := s.InsertInstancesIgnoringDuplicates(ctx, []models.Instance{storagetest.NewInstance(rule, logicalday.MustParse("2024-01-01"))})
	if err == nil {
		t.Fatal("expected context error")
	}
	if n != 0 {
		t.Errorf("expected no inserts, got %d", n)
	}
}
