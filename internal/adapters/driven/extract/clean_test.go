package extract

import (
	"strings"
	"testing"
)

func TestCleanVision(t *testing.T) {
	cleaner := NewCleaner()

	input := "<loc_0><loc_500><_HTML_>The lion (Panthera leo) is a large cat <br> native to Africa. </p>"
	got := cleaner.CleanVision(input)

	if strings.Contains(got, "<") || strings.Contains(got, ">") {
		t.Errorf("tags survived cleaning: %q", got)
	}
	if !strings.Contains(got, "The lion (Panthera leo) is a large cat native to Africa.") {
		t.Errorf("unexpected cleaned text: %q", got)
	}
}

func TestCleanVisionEmpty(t *testing.T) {
	cleaner := NewCleaner()
	if got := cleaner.CleanVision(""); got != "" {
		t.Errorf("expected empty output, got %q", got)
	}
}

func TestCleanVisionCollapsesNewlines(t *testing.T) {
	cleaner := NewCleaner()
	got := cleaner.CleanVision("first paragraph\n\n\n\n\nsecond paragraph")
	if strings.Contains(got, "\n\n\n") {
		t.Errorf("newlines not collapsed: %q", got)
	}
	if !strings.Contains(got, "first paragraph\n\nsecond paragraph") {
		t.Errorf("paragraph break lost: %q", got)
	}
}

func TestCleanOCRMissingSpaces(t *testing.T) {
	cleaner := NewCleaner()

	got := cleaner.CleanOCR("native to Africa.It has a muscular body")
	if !strings.Contains(got, "Africa. It has") {
		t.Errorf("missing space after punctuation not fixed: %q", got)
	}

	got = cleaner.CleanOCR("largeCat of the genus")
	if !strings.Contains(got, "large Cat") {
		t.Errorf("missing space between words not fixed: %q", got)
	}
}

func TestCleanOCRJoinsBrokenLines(t *testing.T) {
	cleaner := NewCleaner()

	got := cleaner.CleanOCR("The lion is a large cat\nnative to Africa and India.")
	if strings.Contains(got, "cat\nnative") {
		t.Errorf("mid-sentence break not joined: %q", got)
	}
	if !strings.Contains(got, "cat native") {
		t.Errorf("unexpected join result: %q", got)
	}

	// Sentence-ending lines stay separate
	got = cleaner.CleanOCR("First sentence.\nSecond sentence.")
	if !strings.Contains(got, "First sentence.\nSecond sentence.") {
		t.Errorf("sentence boundary was joined: %q", got)
	}
}

func TestCleanOCRControlCharacters(t *testing.T) {
	cleaner := NewCleaner()
	got := cleaner.CleanOCR("hello\x00world\x1ftext")
	if strings.ContainsRune(got, '\x00') || strings.ContainsRune(got, '\x1f') {
		t.Errorf("control characters survived: %q", got)
	}
}
