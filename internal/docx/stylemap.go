package docx

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultStyleMap maps the custom paragraph styles used by document authors
// and gives headings their site classes.
const DefaultStyleMap = `p[style-name='Warning'] => div.warning
p[style-name='Important'] => div.important
p[style-name='Code'] => pre.code
h1 => h1.title
h2 => h2.subtitle`

// Target is the HTML element a mapped paragraph becomes.
type Target struct {
	Tag     string
	Classes []string
}

// key identifies targets that merge when they follow each other.
func (t Target) key() string {
	return t.Tag + "." + strings.Join(t.Classes, ".")
}

// StyleMap maps Word paragraph styles to HTML elements.
//
// Supported rules, one per line, blank lines and # comments ignored:
//
//	p[style-name='Name'] => tag.class1.class2
//	p.StyleId => tag.class
//	h1 => h1.class
//
// A trailing :fresh on the target is accepted and ignored.
type StyleMap struct {
	byName   map[string]Target // lower-cased style name
	byID     map[string]Target
	headings map[int]Target
}

var (
	styleNameSelector = regexp.MustCompile(`^p\[style-name=(?:'([^']*)'|"([^"]*)")\]$`)
	styleIDSelector   = regexp.MustCompile(`^p\.([\w-]+)$`)
	headingSelector   = regexp.MustCompile(`^h([1-6])$`)
	targetPattern     = regexp.MustCompile(`^([a-z][a-z0-9]*)((?:\.[\w-]+)*)(?::fresh)?$`)
)

// ParseStyleMap parses style map rules.
func ParseStyleMap(src string) (StyleMap, error) {
	m := StyleMap{
		byName:   make(map[string]Target),
		byID:     make(map[string]Target),
		headings: make(map[int]Target),
	}

	sc := bufio.NewScanner(strings.NewReader(src))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		sel, tgt, ok := strings.Cut(line, "=>")
		if !ok {
			return StyleMap{}, fmt.Errorf("%w: line %d: missing =>", ErrInvalidStyleMap, lineNo)
		}
		sel, tgt = strings.TrimSpace(sel), strings.TrimSpace(tgt)

		target, err := parseTarget(tgt)
		if err != nil {
			return StyleMap{}, fmt.Errorf("%w: line %d: %v", ErrInvalidStyleMap, lineNo, err)
		}

		switch {
		case styleNameSelector.MatchString(sel):
			g := styleNameSelector.FindStringSubmatch(sel)
			m.byName[strings.ToLower(g[1]+g[2])] = target
		case styleIDSelector.MatchString(sel):
			m.byID[styleIDSelector.FindStringSubmatch(sel)[1]] = target
		case headingSelector.MatchString(sel):
			level, _ := strconv.Atoi(headingSelector.FindStringSubmatch(sel)[1])
			m.headings[level] = target
		default:
			return StyleMap{}, fmt.Errorf("%w: line %d: unsupported selector %q", ErrInvalidStyleMap, lineNo, sel)
		}
	}
	return m, sc.Err()
}

func parseTarget(s string) (Target, error) {
	g := targetPattern.FindStringSubmatch(strings.ToLower(s))
	if g == nil {
		return Target{}, fmt.Errorf("invalid target %q", s)
	}
	t := Target{Tag: g[1]}
	if g[2] != "" {
		t.Classes = strings.Split(strings.TrimPrefix(g[2], "."), ".")
	}
	return t, nil
}

// Resolve returns the element for a paragraph with the given style.
// Explicit style rules win; heading styles fall back to hN, with any hN rule
// applied; everything else is a p.
func (m StyleMap) Resolve(styleID, styleName string) Target {
	if t, ok := m.byName[strings.ToLower(styleName)]; ok && styleName != "" {
		return t
	}
	if t, ok := m.byID[styleID]; ok && styleID != "" {
		return t
	}
	if level := headingLevel(styleName); level > 0 {
		if t, ok := m.headings[level]; ok {
			return t
		}
		return Target{Tag: "h" + strconv.Itoa(level)}
	}
	return Target{Tag: "p"}
}

var headingName = regexp.MustCompile(`^heading\s*([1-6])$`)

// headingLevel maps Word's built-in heading and title styles to a level.
func headingLevel(styleName string) int {
	name := strings.ToLower(strings.TrimSpace(styleName))
	if name == "title" {
		return 1
	}
	if g := headingName.FindStringSubmatch(name); g != nil {
		level, _ := strconv.Atoi(g[1])
		return level
	}
	return 0
}
