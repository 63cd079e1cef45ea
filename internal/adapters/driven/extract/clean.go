package extract

import (
	"regexp"
	"strings"
)

// Cleaner normalizes raw extractor output. Vision models emit location
// markers and HTML fragments; OCR engines break sentences mid-line and
// drop spaces between words.
type Cleaner struct {
	locMarker    *regexp.Regexp
	htmlTag      *regexp.Regexp
	brTag        *regexp.Regexp
	pClose       *regexp.Regexp
	multiSpace   *regexp.Regexp
	multiNewline *regexp.Regexp
	missingSpace *regexp.Regexp
	punctSpace   *regexp.Regexp
	spacePunct   *regexp.Regexp
	controlChars *regexp.Regexp
}

// NewCleaner compiles the cleaning patterns
func NewCleaner() *Cleaner {
	return &Cleaner{
		locMarker:    regexp.MustCompile(`<loc_\d+>`),
		htmlTag:      regexp.MustCompile(`</?[^>]+>`),
		brTag:        regexp.MustCompile(`(?i)<br\s*/?>`),
		pClose:       regexp.MustCompile(`(?i)</p>`),
		multiSpace:   regexp.MustCompile(` {2,}`),
		multiNewline: regexp.MustCompile(`\n{3,}`),
		missingSpace: regexp.MustCompile(`([a-z])([A-Z])`),
		punctSpace:   regexp.MustCompile(`([.!?])([A-Z])`),
		spacePunct:   regexp.MustCompile(` +([.,!?;:])`),
		controlChars: regexp.MustCompile("[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]"),
	}
}

// CleanVision strips location markers and HTML fragments from vision
// model output, preserving paragraph breaks.
func (c *Cleaner) CleanVision(text string) string {
	if text == "" {
		return ""
	}
	cleaned := c.locMarker.ReplaceAllString(text, "")
	cleaned = c.brTag.ReplaceAllString(cleaned, " ")
	cleaned = c.pClose.ReplaceAllString(cleaned, "\n")
	cleaned = c.htmlTag.ReplaceAllString(cleaned, "")
	return c.normalize(cleaned)
}

// CleanOCR repairs spacing in OCR engine output: missing spaces between
// words, lines broken mid-sentence, stray control characters.
func (c *Cleaner) CleanOCR(text string) string {
	if text == "" {
		return ""
	}
	cleaned := c.controlChars.ReplaceAllString(text, " ")
	cleaned = c.missingSpace.ReplaceAllString(cleaned, "$1 $2")
	cleaned = c.punctSpace.ReplaceAllString(cleaned, "$1 $2")
	cleaned = c.joinBrokenLines(cleaned)
	cleaned = c.multiSpace.ReplaceAllString(cleaned, " ")
	cleaned = c.spacePunct.ReplaceAllString(cleaned, "$1")
	return c.normalize(cleaned)
}

// joinBrokenLines merges lines that do not end a sentence with the next
// line, keeping blank lines as paragraph breaks.
func (c *Cleaner) joinBrokenLines(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			out = append(out, "")
			continue
		}
		if len(out) > 0 && out[len(out)-1] != "" {
			prev := out[len(out)-1]
			last := prev[len(prev)-1]
			if !strings.ContainsRune(".!?:;", rune(last)) {
				out[len(out)-1] = prev + " " + line
				continue
			}
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func (c *Cleaner) normalize(text string) string {
	text = strings.ReplaceAll(text, "\t", " ")
	text = c.multiSpace.ReplaceAllString(text, " ")
	text = c.multiNewline.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
