package migrations

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tradesense/src/model"
)

// helper to create a new in memory gorm DB and migrate schema
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open in memory db: %v", err)
	}

	if err := db.AutoMigrate(&model.Plan{}, &DataMigration{}); err != nil {
		t.Fatalf("failed to automigrate: %v", err)
	}

	return db
}

func TestRunOnceIsIdempotent(t *testing.T) {
	db := newTestDB(t)

	calls := 0
	fn := func(tx *gorm.DB) error {
		calls++
		return nil
	}

	if err := RunOnce(db, "test_migration", fn); err != nil {
		t.Fatalf("unexpected error on first run: %v", err)
	}
	if err := RunOnce(db, "test_migration", fn); err != nil {
		t.Fatalf("unexpected error on second run: %v", err)
	}

	if calls != 1 {
		t.Fatalf("expected migration fn to run exactly once, ran %d times", calls)
	}
}

func TestRunOnceDoesNotRecordFailures(t *testing.T) {
	db := newTestDB(t)

	failing := func(tx *gorm.DB) error {
		return fmt.Errorf("boom")
	}
	if err := RunOnce(db, "flaky_migration", failing); err == nil {
		t.Fatalf("expected error from failing migration")
	}

	// A failed migration must stay unrecorded and retry next time.
	calls := 0
	if err := RunOnce(db, "flaky_migration", func(tx *gorm.DB) error {
		calls++
		return nil
	}); err != nil {
		t.Fatalf("unexpected error on retry: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected retry to execute the migration, ran %d times", calls)
	}
}

func TestSeedDefaultPlans(t *testing.T) {
	db := newTestDB(t)

	if err := Run(db); err != nil {
		t.Fatalf("unexpected error running migrations: %v", err)
	}

	var plans []model.Plan
	if err := db.Order("price_dh ASC").Find(&plans).Error; err != nil {
		t.Fatalf("failed to list plans: %v", err)
	}
	if len(plans) != 3 {
		t.Fatalf("expected 3 seeded plans, got %d", len(plans))
	}

	if plans[0].Slug != "starter" || plans[0].StartBalance != 5000 {
		t.Fatalf("unexpected starter plan: %+v", plans[0])
	}
	if plans[2].Slug != "elite" || plans[2].StartBalance != 50000 {
		t.Fatalf("unexpected elite plan: %+v", plans[2])
	}

	var features []string
	if err := json.Unmarshal([]byte(plans[1].FeaturesJSON), &features); err != nil {
		t.Fatalf("features are not valid JSON: %v", err)
	}
	if len(features) == 0 {
		t.Fatalf("expected pro plan features to be seeded")
	}

	// Second run is a no-op.
	if err := Run(db); err != nil {
		t.Fatalf("unexpected error re-running migrations: %v", err)
	}
	var count int64
	if err := db.Model(&model.Plan{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count plans: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected plans untouched on re-run, got %d", count)
	}
}
