package settings

import (
	"path/filepath"
	"testing"
)

func TestCacheFilePath_RespectsXDG(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	path, err := CacheFilePath()
	if err != nil {
		t.Fatalf("CacheFilePath: %v", err)
	}
	want := filepath.Join(tmp, "stkit", "cache.db")
	if path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}
}
