package extract

import (
	"strings"
	"testing"
)

func filter(t *testing.T, text, title string) string {
	t.Helper()
	return filterLines(text, title, Options{}.withDefaults())
}

func TestFilterLines_NavigationPhrases(t *testing.T) {
	in := "Skip to main content\nJump to navigation\nA real sentence that carries actual information."
	out := filter(t, in, "")
	if strings.Contains(out, "Skip to") || strings.Contains(out, "Jump to") {
		t.Fatalf("navigation phrases kept: %q", out)
	}
	if !strings.Contains(out, "real sentence") {
		t.Fatalf("content dropped: %q", out)
	}
}

func TestFilterLines_SymbolNoise(t *testing.T) {
	in := "$$$ %% ^^ && ((( )))\nNormal words survive the ratio check without trouble."
	out := filter(t, in, "")
	if strings.Contains(out, "$$$") {
		t.Fatalf("symbol noise kept: %q", out)
	}
	if !strings.Contains(out, "Normal words") {
		t.Fatalf("content dropped: %q", out)
	}
}

func TestFilterLines_DecorativeGlyphRuns(t *testing.T) {
	in := "• item • item • item • item\nEnough ordinary prose to stay in the output safely."
	out := filter(t, in, "")
	if strings.Contains(out, "• item •") {
		t.Fatalf("glyph run kept: %q", out)
	}
}

func TestFilterLines_DuplicateSuppression(t *testing.T) {
	in := "The same sentence appears twice in a row here.\nThe same sentence appears twice in a row here.\nAnd then something different follows it afterwards."
	out := filter(t, in, "")
	if strings.Count(out, "appears twice") != 1 {
		t.Fatalf("duplicate not suppressed: %q", out)
	}
}

func TestFilterLines_TitleDuplicateRemovedOnce(t *testing.T) {
	title := "Understanding Go Channels Deeply"
	in := title + "\nFirst paragraph of the article explains the basics at length.\n" +
		title + "\nSecond paragraph continues with more of the details afterwards."
	out := filter(t, in, title)
	// Only the first occurrence is removed; the later one is legitimate text.
	if got := strings.Count(out, title); got != 1 {
		t.Fatalf("want exactly 1 title occurrence, got %d in %q", got, out)
	}
}

func TestFilterLines_UILabels(t *testing.T) {
	in := "MENU\nOK\nProse sentences with lowercase letters remain untouched here."
	out := filter(t, in, "")
	if strings.Contains(out, "MENU") || strings.Contains(out, "OK") {
		t.Fatalf("UI labels kept: %q", out)
	}
	// Headings are exempt even when short and uppercase.
	out = filter(t, "# FAQ\nBody text long enough to keep following the heading.", "")
	if !strings.Contains(out, "# FAQ") {
		t.Fatalf("heading dropped: %q", out)
	}
}

func TestFilterLines_CoalescesShortRuns(t *testing.T) {
	in := "One\nTwo\nThree\nFour\nFive links\nA closing sentence that is clearly long enough to stand alone."
	out := filter(t, in, "")
	joined := "One" + coalesceSeparator + "Two" + coalesceSeparator + "Three" +
		coalesceSeparator + "Four" + coalesceSeparator + "Five links"
	if !strings.Contains(out, joined) {
		t.Fatalf("expected coalesced line %q in %q", joined, out)
	}
}

func TestFilterLines_SmallLeftoverFlushesInline(t *testing.T) {
	in := "Alpha\nBeta\nA long line of text arrives and flushes the pending buffer now."
	out := filter(t, in, "")
	lines := strings.Split(out, "\n")
	var found int
	for _, l := range lines {
		if l == "Alpha" || l == "Beta" {
			found++
		}
	}
	if found != 2 {
		t.Fatalf("expected Alpha and Beta emitted as-is, got %q", out)
	}
	if strings.Contains(out, "Alpha"+coalesceSeparator) {
		t.Fatalf("two leftovers should not be joined: %q", out)
	}
}

func TestFilterLines_EndOfDocumentFlush(t *testing.T) {
	in := "First bit\nSecond bit\nThird bit"
	out := filter(t, in, "")
	joined := "First bit" + coalesceSeparator + "Second bit" + coalesceSeparator + "Third bit"
	if out != joined {
		t.Fatalf("three leftovers at EOF should join: got %q, want %q", out, joined)
	}
}

func TestFilterLines_JoinedCapRespected(t *testing.T) {
	opts := Options{CoalesceCount: 3, ShortLineLen: 25, JoinedLineCap: 20}.withDefaults()
	in := "aaaa bbbb\ncccc dddd\neeee ffff"
	out := filterLines(in, "", opts)
	// Joined form would exceed the cap, so the lines pass through individually.
	if strings.Contains(out, coalesceSeparator) {
		t.Fatalf("cap ignored: %q", out)
	}
	for _, want := range []string{"aaaa bbbb", "cccc dddd", "eeee ffff"} {
		if !strings.Contains(out, want) {
			t.Fatalf("lost %q in %q", want, out)
		}
	}
}
