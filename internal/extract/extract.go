// Package extract reduces raw HTML to normalized readable text plus a derived
// title. It is deliberately pattern-based rather than a DOM renderer: an
// ordered cascade of markup removals feeds a structural-to-text conversion,
// then a line-level noise filter. Stateless across calls and safe for
// concurrent use.
package extract

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

// Document is the result of one extraction.
type Document struct {
	Title string
	Text  string
}

// Options tunes the short-line coalescing heuristic. The defaults were chosen
// empirically against news and blog pages; zero values select the defaults.
type Options struct {
	// CoalesceCount is how many consecutive short lines accumulate before
	// they are joined into one line.
	CoalesceCount int
	// ShortLineLen is the length (in runes) below which a non-heading line
	// counts as short.
	ShortLineLen int
	// JoinedLineCap is the maximum length of a joined line; above it the
	// buffered lines are emitted individually instead.
	JoinedLineCap int
}

func (o Options) withDefaults() Options {
	if o.CoalesceCount <= 0 {
		o.CoalesceCount = 5
	}
	if o.ShortLineLen <= 0 {
		o.ShortLineLen = 25
	}
	if o.JoinedLineCap <= 0 {
		o.JoinedLineCap = 300
	}
	return o
}

// stage is one named transformer in the markup cascade. Naming the stages
// keeps them independently testable and reorderable.
type stage struct {
	name string
	fn   func(string) string
}

var markupStages = []stage{
	{"invisible", dropInvisible},
	{"attr-boilerplate", dropAttrBoilerplate},
	{"semantic-boilerplate", dropSemanticBoilerplate},
	{"isolate-main", isolateMain},
	{"structure", structureToText},
	{"normalize", normalizeText},
}

// Extract runs the full cascade with default options.
func Extract(input string) Document {
	return WithOptions(input, Options{})
}

// WithOptions runs the full cascade with explicit coalescing options.
func WithOptions(input string, opts Options) Document {
	opts = opts.withDefaults()

	title := captureTitle(input)

	s := input
	for _, st := range markupStages {
		s = st.fn(s)
	}

	text := filterLines(s, title, opts)

	if title != "" && !strings.HasPrefix(text, "#") {
		if text == "" {
			text = "# " + title
		} else {
			text = "# " + title + "\n\n" + text
		}
	}
	return Document{Title: title, Text: text}
}

var reTitle = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// captureTitle pulls the first <title> element and trims a trailing
// " | Site Name" style suffix when the remainder is short.
func captureTitle(input string) string {
	m := reTitle.FindStringSubmatch(input)
	if m == nil {
		return ""
	}
	t := html.UnescapeString(m[1])
	t = strings.Join(strings.Fields(t), " ")
	return stripSiteSuffix(t)
}

var titleSeparators = []string{" | ", " — ", " – ", " - "}

func stripSiteSuffix(title string) string {
	best := -1
	sepLen := 0
	for _, sep := range titleSeparators {
		if i := strings.LastIndex(title, sep); i > best {
			best = i
			sepLen = len(sep)
		}
	}
	if best <= 0 {
		return title
	}
	before := strings.TrimSpace(title[:best])
	after := strings.TrimSpace(title[best+sepLen:])
	if before != "" && len(after) <= 35 {
		return before
	}
	return title
}

// Invisible elements never render as text. RE2 has no backreferences, so each
// paired tag gets its own compiled pattern.
var invisibleTags = []string{
	"script", "style", "noscript", "template", "svg", "canvas",
	"iframe", "object", "embed", "video", "audio",
}

var (
	reInvisible = compilePaired(invisibleTags)
	reComments  = regexp.MustCompile(`(?s)<!--.*?-->`)
)

func compilePaired(tags []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(tags))
	for _, t := range tags {
		out = append(out, regexp.MustCompile(`(?is)<`+t+`\b[^>]*>.*?</`+t+`\s*>`))
	}
	return out
}

func dropInvisible(s string) string {
	for _, re := range reInvisible {
		s = re.ReplaceAllString(s, "")
	}
	return reComments.ReplaceAllString(s, "")
}

// boilerplateVocab marks elements whose class or id identifies page furniture:
// navigation, sharing widgets, ads, consent popups, forms, pagination, and
// accessibility-only text.
const boilerplateVocab = `navbar|navigation|nav-bar|menu|sidebar|side-bar|footer|header|masthead|social|share|sharing|comment|disqus|advert|sponsor|promo|banner|popup|modal|overlay|cookie|consent|gdpr|newsletter|subscribe|signup|sign-up|login|log-in|pagination|pager|breadcrumb|related-posts|sr-only|screen-reader|skip-link|visually-hidden`

var boilerplateContainers = []string{"div", "section", "span", "ul", "ol", "form", "table", "a", "p"}

var reAttrBoilerplate = func() []*regexp.Regexp {
	attr := `\b(?:class|id)\s*=\s*(?:"[^"]*(?:` + boilerplateVocab + `)[^"]*"|'[^']*(?:` + boilerplateVocab + `)[^']*')`
	out := make([]*regexp.Regexp, 0, len(boilerplateContainers))
	for _, t := range boilerplateContainers {
		out = append(out, regexp.MustCompile(`(?is)<`+t+attr+`[^>]*>.*?</`+t+`\s*>`))
	}
	return out
}()

// attrPasses bounds how deep nested boilerplate gets peeled. Non-greedy
// matching stops at the first closing tag, so a fixed number of repeat
// passes catches the common nesting depths.
const attrPasses = 3

func dropAttrBoilerplate(s string) string {
	for i := 0; i < attrPasses; i++ {
		before := s
		for _, re := range reAttrBoilerplate {
			s = re.ReplaceAllString(s, "")
		}
		if s == before {
			break
		}
	}
	return s
}

var semanticTags = []string{"nav", "aside", "footer", "header", "figcaption"}

var reSemantic = compilePaired(semanticTags)

func dropSemanticBoilerplate(s string) string {
	for i := 0; i < attrPasses; i++ {
		before := s
		for _, re := range reSemantic {
			s = re.ReplaceAllString(s, "")
		}
		if s == before {
			break
		}
	}
	return s
}

var (
	reArticle = regexp.MustCompile(`(?is)<article\b[^>]*>(.*)</article\s*>`)
	reMain    = regexp.MustCompile(`(?is)<main\b[^>]*>(.*)</main\s*>`)
	reBody    = regexp.MustCompile(`(?is)<body\b[^>]*>(.*)</body\s*>`)
)

// isolateMain restricts processing to the content of <article> or <main>,
// falling back to <body>, then to the whole remaining document.
func isolateMain(s string) string {
	for _, re := range []*regexp.Regexp{reArticle, reMain, reBody} {
		if m := re.FindStringSubmatch(s); m != nil {
			return m[1]
		}
	}
	return s
}

var (
	reHeadingOpen  = regexp.MustCompile(`(?is)<h([1-6])\b[^>]*>`)
	reHeadingClose = regexp.MustCompile(`(?i)</h[1-6]\s*>`)
	reBreak        = regexp.MustCompile(`(?i)<br\s*/?>`)
	reBlockEnd     = regexp.MustCompile(`(?i)</(?:p|div|li|tr|article|section|blockquote|table)\s*>`)
	reListItem     = regexp.MustCompile(`(?i)<li\b[^>]*>`)
	reAnyTag       = regexp.MustCompile(`<[^>]+>`)
)

// structureToText turns headings into markdown-style prefixed lines, block
// boundaries into paragraph breaks, list items into bullets, and strips every
// remaining tag to a single space.
func structureToText(s string) string {
	s = reHeadingOpen.ReplaceAllStringFunc(s, func(open string) string {
		m := reHeadingOpen.FindStringSubmatch(open)
		level := int(m[1][0] - '0')
		return "\n\n" + strings.Repeat("#", level) + " "
	})
	s = reHeadingClose.ReplaceAllString(s, "\n\n")
	s = reBreak.ReplaceAllString(s, "\n")
	s = reBlockEnd.ReplaceAllString(s, "\n\n")
	s = reListItem.ReplaceAllString(s, "\n• ")
	return reAnyTag.ReplaceAllString(s, " ")
}

var (
	reSpaces       = regexp.MustCompile(`[ \t]+`)
	reLeadingSpace = regexp.MustCompile(`\n[ \t]+`)
	reMultiNewline = regexp.MustCompile(`\n{3,}`)
)

func normalizeText(s string) string {
	s = html.UnescapeString(s)
	s = reSpaces.ReplaceAllString(s, " ")
	s = reLeadingSpace.ReplaceAllString(s, "\n")
	s = reMultiNewline.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// StageNames lists the markup stages in execution order, mainly for debug
// logging and tests.
func StageNames() []string {
	names := make([]string, len(markupStages))
	for i, st := range markupStages {
		names[i] = st.name
	}
	return names
}

// RunStage executes a single named markup stage so stages can be exercised in
// isolation.
func RunStage(name, input string) (string, error) {
	for _, st := range markupStages {
		if st.name == name {
			return st.fn(input), nil
		}
	}
	return "", fmt.Errorf("unknown stage: %s", name)
}
