package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeAdminFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "admins.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write admin list: %v", err)
	}
	return path
}

func TestAdminList_Contains(t *testing.T) {
	path := writeAdminFile(t, t.TempDir(), "admins:\n  - user-1\n  - user-2\n")

	al, err := NewAdminList(path)
	if err != nil {
		t.Fatalf("NewAdminList failed: %v", err)
	}
	defer al.Close()

	if !al.Contains("user-1") {
		t.Error("Expected user-1 to be on the allow-list")
	}
	if al.Contains("user-3") {
		t.Error("Expected user-3 to not be on the allow-list")
	}
	if al.Contains("") {
		t.Error("Empty user ID must never match")
	}
}

func TestAdminList_EmptyPath(t *testing.T) {
	al, err := NewAdminList("")
	if err != nil {
		t.Fatalf("NewAdminList with empty path failed: %v", err)
	}
	defer al.Close()

	if al.Len() != 0 {
		t.Errorf("Expected empty list, got %d entries", al.Len())
	}
	if al.Contains("anyone") {
		t.Error("Empty list must not match any ID")
	}
}

func TestAdminList_MissingFile(t *testing.T) {
	if _, err := NewAdminList(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestAdminList_InvalidYAML(t *testing.T) {
	path := writeAdminFile(t, t.TempDir(), "admins: [unbalanced")
	if _, err := NewAdminList(path); err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestAdminList_Reload(t *testing.T) {
	dir := t.TempDir()
	path := writeAdminFile(t, dir, "admins:\n  - user-1\n")

	al, err := NewAdminList(path)
	if err != nil {
		t.Fatalf("NewAdminList failed: %v", err)
	}
	defer al.Close()

	reloaded := make(chan int, 4)
	if err := al.Watch(func(count int) { reloaded <- count }); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	writeAdminFile(t, dir, "admins:\n  - user-1\n  - user-2\n")

	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for reload")
	}

	if !al.Contains("user-2") {
		t.Error("Expected user-2 after reload")
	}
}
