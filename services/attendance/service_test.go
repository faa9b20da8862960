package attendance

import (
	"strings"
	"testing"

	"geoattend_go/models"

	"gorm.io/gorm"
	"gorm.io/gorm/utils/tests"
)

// dryRunDB builds statements without a live connection.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{
		DryRun:                 true,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("opening dry-run db: %v", err)
	}
	return db
}

func TestOverrideUpdateConditionedOnPriorStatus(t *testing.T) {
	svc := NewServiceWithDB(dryRunDB(t), nil)

	stmt := svc.overrideQuery(42, models.StatusPending).Updates(map[string]interface{}{
		"status":          models.StatusPresent,
		"override_reason": "corrected",
	}).Statement

	sql := stmt.SQL.String()
	if !strings.Contains(sql, "WHERE") {
		t.Fatalf("expected a conditioned update, got %q", sql)
	}
	var sawPrevious bool
	for _, v := range stmt.Vars {
		if v == models.StatusPending {
			sawPrevious = true
		}
	}
	if !sawPrevious {
		t.Fatalf("update must be scoped to the previously read status, vars: %v", stmt.Vars)
	}
}
