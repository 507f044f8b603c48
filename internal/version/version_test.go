package version

import (
	"strings"
	"testing"
)

func TestMapKeys(t *testing.T) {
	m := Map()
	for _, key := range []string{"version", "git_commit", "build_date", "go_version"} {
		if m[key] == "" {
			t.Errorf("Map()[%q] is empty", key)
		}
	}
}

func TestInfoContainsVersion(t *testing.T) {
	old := Version
	Version = "v9.9.9"
	defer func() { Version = old }()

	if Short() != "v9.9.9" {
		t.Errorf("Short() = %q, want v9.9.9", Short())
	}
	if !strings.Contains(Info(), "v9.9.9") {
		t.Errorf("Info() = %q, want it to contain v9.9.9", Info())
	}
}
