package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRecordsMigrationContainsSchema(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_records.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no records migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS records",
		"PRIMARY KEY (pk, sk)",
		"CHECK (counter >= 0)",
		"idx_records_gsi1",
		"idx_records_gsi2",
		"DROP TABLE IF EXISTS records",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
