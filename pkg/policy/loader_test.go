package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

const testRego = `# Flags topologies with too many zones.
# Used by the capacity planning team.
package openkerb.policies.test

import rego.v1

deny contains msg if {
	count(input.topology.zones) > 10
	msg := "too many zones"
}`

func writePolicyFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadRegoFile(t *testing.T) {
	t.Parallel()

	loader := NewLoader(zerolog.Nop())
	path := writePolicyFile(t, t.TempDir(), "zone-limit.rego", testRego)

	policies, err := loader.LoadFromPaths(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("LoadFromPaths: %v", err)
	}
	if len(policies) != 1 {
		t.Fatalf("policies = %d, want 1", len(policies))
	}

	p := policies[0]
	if p.Name != "zone-limit" {
		t.Errorf("name = %q, want zone-limit", p.Name)
	}
	if p.Severity != SeverityWarning {
		t.Errorf("severity = %s, want default warning", p.Severity)
	}
	if !p.Enabled {
		t.Error("loaded policies should default to enabled")
	}
	want := "Flags topologies with too many zones. Used by the capacity planning team."
	if p.Description != want {
		t.Errorf("description = %q, want %q", p.Description, want)
	}
}

func TestLoadJSONPolicy(t *testing.T) {
	t.Parallel()

	loader := NewLoader(zerolog.Nop())
	path := writePolicyFile(t, t.TempDir(), "custom.json", `{
		"name": "custom-rule",
		"description": "a JSON-defined policy",
		"rego": "package openkerb.policies.custom\n\nimport rego.v1\n",
		"severity": "error",
		"enabled": true
	}`)

	policies, err := loader.LoadFromPaths(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("LoadFromPaths: %v", err)
	}
	if len(policies) != 1 {
		t.Fatalf("policies = %d, want 1", len(policies))
	}
	if policies[0].Name != "custom-rule" || policies[0].Severity != SeverityError {
		t.Errorf("unexpected policy: %+v", policies[0])
	}
	if policies[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be defaulted")
	}
}

func TestLoadDirectorySkipsBadAndUnrelatedFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePolicyFile(t, dir, "good.rego", testRego)
	writePolicyFile(t, dir, "broken.json", `{not json`)
	writePolicyFile(t, dir, "notes.txt", "ignore me")

	loader := NewLoader(zerolog.Nop())
	policies, err := loader.LoadFromPaths(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("LoadFromPaths: %v", err)
	}
	if len(policies) != 1 {
		t.Fatalf("policies = %d, want 1 (bad and unrelated files skipped)", len(policies))
	}
	if policies[0].Name != "good" {
		t.Errorf("name = %q, want good", policies[0].Name)
	}
}

func TestLoadMissingPathFails(t *testing.T) {
	t.Parallel()

	loader := NewLoader(zerolog.Nop())
	if _, err := loader.LoadFromPaths(context.Background(), []string{"no/such/path"}); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestLoaderCache(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writePolicyFile(t, dir, "cached.rego", testRego)

	loader := NewLoader(zerolog.Nop())
	first, err := loader.LoadFromPaths(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("LoadFromPaths: %v", err)
	}

	// Rewrite the file; the cached policy is returned until the cache
	// is cleared.
	writePolicyFile(t, dir, "cached.rego", "# changed\npackage openkerb.policies.test\n\nimport rego.v1\n")

	second, err := loader.LoadFromPaths(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("LoadFromPaths: %v", err)
	}
	if second[0].Description != first[0].Description {
		t.Error("expected cached policy before ClearCache")
	}

	loader.ClearCache()
	third, err := loader.LoadFromPaths(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("LoadFromPaths: %v", err)
	}
	if third[0].Description == first[0].Description {
		t.Error("expected reloaded policy after ClearCache")
	}
}
