package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"rosterflow/internal/domain/normalize"
)

func TestLoadSenderPolicies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "senders.toml")
	data := `
[default]
date_order = "MDY"

[senders.eu-clinic]
date_order = "DMY"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write policy file: %v", err)
	}

	policies, err := LoadSenderPolicies(path)
	if err != nil {
		t.Fatalf("LoadSenderPolicies() error = %v", err)
	}

	if got := policies.NormalizePolicy("eu-clinic"); got.DateOrder != normalize.DayFirst {
		t.Fatalf("eu-clinic date order = %s", got.DateOrder)
	}
	if got := policies.NormalizePolicy("unknown-sender"); got.DateOrder != normalize.MonthFirst {
		t.Fatalf("default date order = %s", got.DateOrder)
	}
}

func TestLoadSenderPoliciesMissingFile(t *testing.T) {
	policies, err := LoadSenderPolicies(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("missing file should not error, got %v", err)
	}
	if got := policies.NormalizePolicy("anyone"); got.DateOrder != normalize.MonthFirst {
		t.Fatalf("fallback date order = %s", got.DateOrder)
	}
}
