package textutil

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestHTMLToText(t *testing.T) {
	html := `<p>Hello <b>world</b></p><script>alert(1)</script><p>Second   paragraph</p>`
	got := HTMLToText(html)
	if got != "Hello world\n\nSecond paragraph" {
		t.Fatalf("HTMLToText = %q", got)
	}
	if HTMLToText("  plain   text ") != "plain text" {
		t.Fatal("expected plain text to be collapsed")
	}
}

func TestFirstImage(t *testing.T) {
	html := `<div><p>intro</p><img alt="x" src=" https://cdn.example/a.png "><img src="b.png"></div>`
	if got := FirstImage(html); got != "https://cdn.example/a.png" {
		t.Fatalf("FirstImage = %q", got)
	}
	if FirstImage("<p>no images</p>") != "" {
		t.Fatal("expected empty image")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("unexpected %q", got)
	}
	got := Truncate("the quick brown fox jumps over the lazy dog", 20)
	if utf8.RuneCountInString(got) > 20 || !strings.HasSuffix(got, "…") {
		t.Fatalf("Truncate = %q", got)
	}
	if strings.Contains(got, "  ") || strings.HasSuffix(strings.TrimSuffix(got, "…"), " ") {
		t.Fatalf("expected clean word boundary, got %q", got)
	}
	multibyte := strings.Repeat("é", 30)
	if got := Truncate(multibyte, 10); utf8.RuneCountInString(got) != 10 {
		t.Fatalf("expected 10 runes, got %d", utf8.RuneCountInString(got))
	}
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{"#Go", "go", "Web Dev", "", "rust", "c++"}, 3)
	want := []string{"go", "webdev", "rust"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("NormalizeTags = %v, want %v", got, want)
	}
	if Hashtags([]string{"Go", "open source"}) != "#go #opensource" {
		t.Fatalf("unexpected hashtags %q", Hashtags([]string{"Go", "open source"}))
	}
}

func TestSplitListAndExcerpt(t *testing.T) {
	if got := SplitList("go; web | cli,,"); len(got) != 3 || got[2] != "cli" {
		t.Fatalf("SplitList = %v", got)
	}
	if got := Excerpt("First paragraph here.\n\nSecond.", 100); got != "First paragraph here." {
		t.Fatalf("Excerpt = %q", got)
	}
}

func TestFingerprintSimilarity(t *testing.T) {
	a := NewFingerprint("Building a scheduler in Go")
	b := NewFingerprint("building A SCHEDULER in go!")
	if got := CosineSimilarity(a, b); got < 0.999 {
		t.Fatalf("expected identical fingerprints, got %v", got)
	}
	c := NewFingerprint("Baking sourdough bread at home")
	if got := CosineSimilarity(a, c); got != 0 {
		t.Fatalf("expected unrelated titles to score 0, got %v", got)
	}
	if NewFingerprint("a b") != nil {
		t.Fatal("expected nil fingerprint for short tokens")
	}
	if CosineSimilarity(nil, a) != 0 {
		t.Fatal("expected nil similarity to be 0")
	}
}
