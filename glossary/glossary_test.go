package glossary

import (
	"os"
	"path/filepath"
	"testing"
)

func writeGlossary(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "glossary.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ColumnSynonyms(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"english/farsi", "english,farsi"},
		{"en/fa", "en,fa"},
		{"source/target", "source,target"},
		{"mixed case", "English,Farsi"},
	}
	for _, tc := range tests {
		path := writeGlossary(t, tc.header+"\nHello,Salaam\n")
		g, err := Load(path)
		if err != nil {
			t.Errorf("%s: Load: %v", tc.name, err)
			continue
		}
		if g.Len() != 1 {
			t.Errorf("%s: Len = %d, want 1", tc.name, g.Len())
		}
	}
}

func TestLoad_UnknownColumns(t *testing.T) {
	path := writeGlossary(t, "foo,bar\nHello,Salaam\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unrecognized columns")
	}
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	g, err := Load(filepath.Join(t.TempDir(), "absent.csv"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if g.Len() != 0 {
		t.Fatalf("Len = %d, want 0", g.Len())
	}
	if got := g.Apply("unchanged"); got != "unchanged" {
		t.Fatalf("Apply = %q", got)
	}
}

func TestApply_WholeWordCaseInsensitive(t *testing.T) {
	path := writeGlossary(t, "english,farsi\nHello,Salaam\n")
	g, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if got := g.Apply("hello there. HELLO!"); got != "Salaam there. Salaam!" {
		t.Errorf("Apply = %q", got)
	}
	// Not a whole word: untouched.
	if got := g.Apply("Othello"); got != "Othello" {
		t.Errorf("Apply = %q, want untouched", got)
	}
}

func TestApply_LongestTermFirst(t *testing.T) {
	path := writeGlossary(t, "english,farsi\nDragon,X\nAdra Dragon,Y\n")
	g, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := g.Apply("The Adra Dragon sleeps"); got != "The Y sleeps" {
		t.Errorf("Apply = %q, want longest match to win", got)
	}
	if got := g.Apply("A Dragon flies"); got != "A X flies" {
		t.Errorf("Apply = %q", got)
	}
}

func TestApply_SkipsMaskedMarkers(t *testing.T) {
	path := writeGlossary(t, "english,farsi\nHello,Hi\n")
	g, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := g.Apply("Hello __PLACEHOLDER_0__!"); got != "Hi __PLACEHOLDER_0__!" {
		t.Errorf("Apply = %q", got)
	}
}
