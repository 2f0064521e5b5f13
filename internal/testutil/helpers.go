package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

const updateGoldenEnv = "UPDATE_GOLDEN"

// NATSURL is the server integration tests talk to (ALLOC_TEST_NATS_URL).
func NATSURL() string {
	if url := os.Getenv("ALLOC_TEST_NATS_URL"); url != "" {
		return url
	}
	return "nats://localhost:4222"
}

// SkipUnlessIntegration skips tests that need a live NATS server unless
// INTEGRATION_TEST is set.
func SkipUnlessIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("INTEGRATION_TEST") == "" {
		t.Skip("integration test: set INTEGRATION_TEST=1 to run")
	}
}

// AssertGolden compares got with testdata/<name>. With UPDATE_GOLDEN=1 the
// file is rewritten from got instead.
func AssertGolden(t *testing.T, name string, got []byte) {
	t.Helper()
	path := filepath.Join("testdata", name)

	if os.Getenv(updateGoldenEnv) == "1" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, got, 0o644); err != nil {
			t.Fatalf("update %s: %v", path, err)
		}
		t.Logf("updated %s", path)
		return
	}

	want, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v (run with %s=1 to create it)", path, err, updateGoldenEnv)
	}
	if string(got) != string(want) {
		t.Errorf("%s mismatch\n--- want ---\n%s\n--- got ---\n%s", name, want, got)
	}
}

// WriteTemp writes content to name inside a per-test directory and returns
// the full path.
func WriteTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
