package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/harrison/docproof/internal/models"
)

func newMemStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func recordedRun(id, scenario, platform, status string, end time.Time) *models.Run {
	run := &models.Run{
		ID:             id,
		GuideSource:    "guide.md",
		Scenario:       scenario,
		Platform:       platform,
		RuntimeVersion: "node20",
		StartTime:      end.Add(-time.Minute),
		EndTime:        end,
		Steps: []models.StepResult{
			{Section: "Install", Title: "Install the package", Status: status},
			{Section: "Post-Run Validation", Title: "CLI reachability", Status: models.StatusFailed, Synthetic: true},
		},
		Environment: map[string]string{"sandboxRoot": "/tmp/x"},
	}
	run.ComputeSummary()
	return run
}

func TestRecordAndCount(t *testing.T) {
	store := newMemStore(t)
	ctx := context.Background()

	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	if err := store.RecordRun(ctx, recordedRun("r1", "fresh-install", "linux", models.StatusPassed, base)); err != nil {
		t.Fatal(err)
	}
	if err := store.RecordRun(ctx, recordedRun("r2", "upgrade", "darwin", models.StatusFailed, base.Add(time.Hour))); err != nil {
		t.Fatal(err)
	}

	n, err := store.RunCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("run count = %d, want 2", n)
	}
}

func TestDuplicateRunIDRejected(t *testing.T) {
	store := newMemStore(t)
	ctx := context.Background()

	run := recordedRun("dup", "fresh-install", "linux", models.StatusPassed, time.Now().UTC())
	if err := store.RecordRun(ctx, run); err != nil {
		t.Fatal(err)
	}
	if err := store.RecordRun(ctx, run); err == nil {
		t.Error("recording the same run twice must fail")
	}

	// The failed transaction must not leave partial step rows behind.
	outcomes, err := store.OutcomesForStep(ctx, "Install", "Install the package")
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 1 {
		t.Errorf("expected 1 outcome, got %d", len(outcomes))
	}
}

func TestOutcomesForStepNewestFirst(t *testing.T) {
	store := newMemStore(t)
	ctx := context.Background()

	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	if err := store.RecordRun(ctx, recordedRun("old", "fresh-install", "linux", models.StatusPassed, base)); err != nil {
		t.Fatal(err)
	}
	if err := store.RecordRun(ctx, recordedRun("new", "upgrade", "darwin", models.StatusFailed, base.Add(2*time.Hour))); err != nil {
		t.Fatal(err)
	}

	outcomes, err := store.OutcomesForStep(ctx, "Install", "Install the package")
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].RunID != "new" || outcomes[1].RunID != "old" {
		t.Errorf("order = %s, %s; want newest first", outcomes[0].RunID, outcomes[1].RunID)
	}
	if outcomes[0].Scenario != "upgrade" || outcomes[0].Platform != "darwin" {
		t.Errorf("outcome = %+v", outcomes[0])
	}
}

func TestSuccessCountsByDimension(t *testing.T) {
	store := newMemStore(t)
	ctx := context.Background()

	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	runs := []*models.Run{
		recordedRun("a", "fresh-install", "linux", models.StatusPassed, base),
		recordedRun("b", "fresh-install", "linux", models.StatusFailed, base.Add(time.Minute)),
		recordedRun("c", "fresh-install", "darwin", models.StatusPassed, base.Add(2*time.Minute)),
	}
	for _, run := range runs {
		if err := store.RecordRun(ctx, run); err != nil {
			t.Fatal(err)
		}
	}

	counts, err := store.SuccessCounts(ctx, "Install", "Install the package", "platform")
	if err != nil {
		t.Fatal(err)
	}
	if got := counts["linux"]; got != [2]int{1, 1} {
		t.Errorf("linux = %v, want [1 1]", got)
	}
	if got := counts["darwin"]; got != [2]int{1, 0} {
		t.Errorf("darwin = %v, want [1 0]", got)
	}
}

func TestSuccessCountsRejectsUnknownDimension(t *testing.T) {
	store := newMemStore(t)
	if _, err := store.SuccessCounts(context.Background(), "Install", "x", "os; DROP TABLE runs"); err == nil {
		t.Error("unknown dimension must be rejected")
	}
}

func TestOnDiskDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	store, err := NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.RecordRun(ctx, recordedRun("r1", "fresh-install", "linux", models.StatusPassed, time.Now().UTC())); err != nil {
		t.Fatal(err)
	}
	n, err := store.RunCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("run count = %d, want 1", n)
	}
}
