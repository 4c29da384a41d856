package pipeline

import (
	"regexp"
	"strings"
)

// Kind is the classification of a block's text.
type Kind int

const (
	// Prose is ordinary text, including converter-emitted inline markup.
	Prose Kind = iota
	// Code is a verbatim markup or code sample.
	Code
)

// String returns the kind name.
func (k Kind) String() string {
	if k == Code {
		return "code"
	}
	return "prose"
}

var (
	// Ordinary inline tags emitted by the raw converter itself.
	proseTagPattern = regexp.MustCompile(`(?i)^<(p|b|i|div|span|a|strong|em)(\s|>|/)`)

	// <tag attrs>...</tag> spanning the whole string.
	balancedTagPattern = regexp.MustCompile(`(?s)^<([A-Za-z][\w:.-]*)(\s[^>]*)?>.*</([A-Za-z][\w:.-]*)\s*>$`)

	// <word ...>, </word> or <?word anywhere in the string.
	openTagPattern  = regexp.MustCompile(`<[A-Za-z][\w:.-]*(\s[^>]*)?/?>`)
	closeTagPattern = regexp.MustCompile(`</[A-Za-z][\w:.-]*\s*>`)
	procInstPattern = regexp.MustCompile(`<\?[A-Za-z]\w*`)

	separatorPattern = regexp.MustCompile(`^(-{3,}|\.{3,}|…+)$`)
)

// Classify decides whether text is a markup sample or prose.
//
// Rules, first match wins:
//   - empty or whitespace-only text is prose
//   - text opening with p, b, i, div, span, a, strong or em is prose
//   - a balanced <tag>...</tag> spanning the whole text is code
//   - any opening, closing or processing-instruction tag makes it code
//   - everything else is prose
func Classify(text string) Kind {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Prose
	}
	if proseTagPattern.MatchString(trimmed) {
		return Prose
	}
	if isBalanced(trimmed) {
		return Code
	}
	if openTagPattern.MatchString(trimmed) ||
		closeTagPattern.MatchString(trimmed) ||
		procInstPattern.MatchString(trimmed) {
		return Code
	}
	return Prose
}

// IsCodeLike reports whether Classify(text) is Code.
func IsCodeLike(text string) bool {
	return Classify(text) == Code
}

// IsSeparator reports whether text is a decorative line of three or more
// dashes or dots. Callers honour it in table cells only.
func IsSeparator(text string) bool {
	return separatorPattern.MatchString(strings.TrimSpace(text))
}

// isBalanced reports whether s opens and closes the same tag.
func isBalanced(s string) bool {
	m := balancedTagPattern.FindStringSubmatch(s)
	return m != nil && strings.EqualFold(m[1], m[3])
}
