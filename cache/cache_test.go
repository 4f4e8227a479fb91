package cache

import (
	"path/filepath"
	"testing"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetMiss(t *testing.T) {
	s := openTemp(t)

	got, ok, err := s.Get("never stored")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok || got != "" {
		t.Fatalf("Get = %q, %v; want miss", got, ok)
	}
}

func TestPutGet(t *testing.T) {
	s := openTemp(t)

	if err := s.Put("Hello {PlayerName}!", "Salaam {PlayerName}!"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := s.Get("Hello {PlayerName}!")
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if got != "Salaam {PlayerName}!" {
		t.Fatalf("Get = %q", got)
	}

	// Keys are exact: a near-identical string is a separate entry.
	if _, ok, _ := s.Get("Hello {PlayerName}"); ok {
		t.Fatal("different text unexpectedly hit the cache")
	}
}

func TestPutOverwrites(t *testing.T) {
	s := openTemp(t)

	if err := s.Put("text", "first"); err != nil {
		t.Fatal(err)
	}
	if err := s.Put("text", "second"); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.Get("text")
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if got != "second" {
		t.Fatalf("Get = %q, want last write", got)
	}

	st, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Total != 1 {
		t.Fatalf("Total = %d, want 1 after overwrite", st.Total)
	}
}

func TestStatsAndClear(t *testing.T) {
	s := openTemp(t)

	for _, text := range []string{"a", "b", "c"} {
		if err := s.Put(text, text+"-translated"); err != nil {
			t.Fatal(err)
		}
	}

	st, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Total != 3 || st.Recent != 3 {
		t.Fatalf("Stats = %+v, want 3/3", st)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	st, err = s.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if st.Total != 0 {
		t.Fatalf("Total = %d after Clear, want 0", st.Total)
	}
	if _, ok, _ := s.Get("a"); ok {
		t.Fatal("entry survived Clear")
	}
}

func TestSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put("persistent", "value"); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	got, ok, err := s2.Get("persistent")
	if err != nil || !ok || got != "value" {
		t.Fatalf("after reopen: %q, %v, %v", got, ok, err)
	}
}
