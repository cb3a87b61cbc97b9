package story

import (
	"errors"
	"testing"
)

func TestBuiltinCoversSeedRefs(t *testing.T) {
	c := Builtin()
	refs := []string{
		"main-entrance", "sanctum", "assembly-hall", "ancient-inscription", "east-gate",
		"dharamshala", "yagnashala", "west-courtyard", "tulsi-garden", "sacred-pond",
	}
	for _, ref := range refs {
		for _, lang := range []Lang{Hindi, English} {
			s, err := c.Lookup(ref, lang)
			if err != nil {
				t.Fatalf("%s/%s: %v", ref, lang, err)
			}
			if s.Lang != lang || s.Ref != ref || s.Title == "" || s.Content == "" {
				t.Errorf("%s/%s: incomplete story %+v", ref, lang, s)
			}
		}
	}
	if got := len(c.Refs()); got != len(refs) {
		t.Fatalf("expected %d refs, got %d", len(refs), got)
	}
}

func TestLookupUnknownRef(t *testing.T) {
	_, err := Builtin().Lookup("qr99", English)
	if !errors.Is(err, ErrStoryNotFound) {
		t.Fatalf("expected ErrStoryNotFound, got %v", err)
	}
}

func TestLookupFallsBack(t *testing.T) {
	c, err := Parse([]byte(`
only-hindi:
  hi: {title: "शीर्षक", content: "x"}
only-marathi:
  mr: {title: "शीर्षक", content: "y"}
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	s, _ := c.Lookup("only-hindi", English)
	if s.Lang != Hindi {
		t.Fatalf("expected hindi fallback, got %s", s.Lang)
	}
	s, _ = c.Lookup("only-marathi", English)
	if s.Lang != "mr" {
		t.Fatalf("expected any-language fallback, got %s", s.Lang)
	}
}

func TestParseRejectsEmptyRef(t *testing.T) {
	if _, err := Parse([]byte("empty: {}")); err == nil {
		t.Fatal("expected error for ref without languages")
	}
	if _, err := Parse([]byte("[")); err == nil {
		t.Fatal("expected YAML error")
	}
}

func TestParseLang(t *testing.T) {
	if ParseLang("en") != English || ParseLang("hi") != Hindi || ParseLang("fr") != DefaultLang || ParseLang("") != DefaultLang {
		t.Fatal("unexpected language mapping")
	}
}
