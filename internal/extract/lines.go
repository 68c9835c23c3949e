package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// minAlnumRatio is the lowest share of letters and digits a line may carry
// before it is considered symbol noise.
const minAlnumRatio = 0.3

// decorativeGlyphs are bullets and arrows that pages use as visual separators.
const decorativeGlyphs = "•·▪◦‣►▶▸★☆◆◇■□→⇒»›|"

var navPrefixes = []string{"skip to", "jump to"}

// coalescer buffers consecutive short lines and joins them into one emitted
// line once enough accumulate. Menus and link farms reduce to runs of tiny
// lines; joining them keeps the output compact without losing the words.
type coalescer struct {
	opts Options
	buf  []string
}

// coalesceSeparator must not contain decorative glyphs: coalesced lines are
// part of the output text and have to survive a second pass through the
// line filter unchanged.
const coalesceSeparator = " / "

func (c *coalescer) add(line string) (emit []string) {
	c.buf = append(c.buf, line)
	if len(c.buf) < c.opts.CoalesceCount {
		return nil
	}
	return c.flushJoined()
}

// flush drains the buffer when a long line or end of document is reached.
// One or two leftovers pass through as they are; more get joined.
func (c *coalescer) flush() []string {
	if len(c.buf) <= 2 {
		out := c.buf
		c.buf = nil
		return out
	}
	return c.flushJoined()
}

func (c *coalescer) flushJoined() []string {
	joined := strings.Join(c.buf, coalesceSeparator)
	out := c.buf
	c.buf = nil
	if utf8.RuneCountInString(joined) <= c.opts.JoinedLineCap {
		return []string{joined}
	}
	return out
}

// lineFilter holds the per-document working state: emitted lines, the
// coalescing buffer, the previous emitted line for duplicate suppression, and
// whether the title duplicate has already been removed.
type lineFilter struct {
	opts      Options
	title     string
	titleSeen bool
	prev      string
	coal      coalescer
	out       []string
}

// filterLines applies the ordered line-level noise rules to normalized text.
func filterLines(text, title string, opts Options) string {
	f := &lineFilter{opts: opts, title: title, coal: coalescer{opts: opts}}
	for _, raw := range strings.Split(text, "\n") {
		f.line(strings.TrimSpace(raw))
	}
	for _, l := range f.coal.flush() {
		f.emit(l)
	}
	return strings.TrimSpace(strings.Join(f.out, "\n"))
}

func (f *lineFilter) line(s string) {
	if s == "" {
		// Paragraph boundary. Keep at most one blank between emitted lines;
		// a pending short-line buffer swallows it.
		if len(f.coal.buf) == 0 && len(f.out) > 0 && f.out[len(f.out)-1] != "" {
			f.out = append(f.out, "")
		}
		return
	}
	if f.drop(s) {
		return
	}

	heading := strings.HasPrefix(s, "#")
	if !heading && utf8.RuneCountInString(s) < f.opts.ShortLineLen {
		for _, l := range f.coal.add(s) {
			f.emit(l)
		}
		return
	}
	for _, l := range f.coal.flush() {
		f.emit(l)
	}
	f.emit(s)
}

// drop applies the per-line rejection rules in order.
func (f *lineFilter) drop(s string) bool {
	lower := strings.ToLower(s)
	for _, p := range navPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	if alnumRatio(s) < minAlnumRatio {
		return true
	}
	if countGlyphs(s) >= 4 {
		return true
	}
	if strings.TrimSpace(strings.Map(stripDecorative, s)) == "" {
		return true
	}
	if s == f.prev {
		return true
	}
	if !f.titleSeen && f.title != "" && (s == f.title || stripSiteSuffix(s) == f.title) {
		f.titleSeen = true
		return true
	}
	if isUILabel(s) {
		return true
	}
	return false
}

func (f *lineFilter) emit(s string) {
	f.out = append(f.out, s)
	f.prev = s
}

func alnumRatio(s string) float64 {
	var alnum, total int
	for _, r := range s {
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			alnum++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(alnum) / float64(total)
}

func countGlyphs(s string) int {
	n := 0
	for _, r := range s {
		if strings.ContainsRune(decorativeGlyphs, r) {
			n++
		}
	}
	return n
}

func stripDecorative(r rune) rune {
	if strings.ContainsRune(decorativeGlyphs, r) || r == ' ' || r == '\t' {
		return -1
	}
	return r
}

// isUILabel flags very short all-caps-or-symbol lines such as button text
// ("OK", "MENU", "READ MORE"). Headings are exempt.
func isUILabel(s string) bool {
	if strings.HasPrefix(s, "#") {
		return false
	}
	if len(s) >= 15 || len(strings.Fields(s)) > 2 {
		return false
	}
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
	}
	return true
}
