// Package rutime recognizes Russian date and time expressions in free text.
//
// Every rule reports its first occurrence in the text. Occurrences are sorted by
// position and the first run of adjacent ones (separated only by spaces or commas)
// forms the expression; its span is what callers cut out of the message.
package rutime

import (
	"sort"
	"strings"
	"time"
	"unicode"
)

// Result is a recognized expression.
type Result struct {
	Index int    // byte offset of the expression in the source text
	Text  string // the expression as written
	// Time is the resolved wall-clock instant in the reference location.
	// It is zero when the expression names an impossible date such as 31.02.
	Time time.Time
}

// Parser is safe for concurrent use.
type Parser struct {
	rules []rule
}

func New() *Parser {
	return &Parser{rules: defaultRules()}
}

// Parse returns nil when text contains no expression. ref is "now"; its location is the
// one wall-clock values are read in. A non-nil anchor fixes year, month and day, so the
// text only needs to supply the time of day.
func (p *Parser) Parse(text string, ref time.Time, anchor *time.Time) *Result {
	matches := make([]*match, 0, len(p.rules))
	for _, r := range p.rules {
		if m := r.find(text); m != nil {
			matches = append(matches, m)
		}
	}
	if len(matches) == 0 {
		return nil
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].left != matches[j].left {
			return matches[i].left < matches[j].left
		}
		return matches[i].right > matches[j].right
	})

	left, right := matches[0].left, matches[0].right
	cluster := []*match{matches[0]}
	for _, m := range matches[1:] {
		if m.left > right && !isSeparator(text[right:m.left]) {
			break
		}
		cluster = append(cluster, m)
		if m.right > right {
			right = m.right
		}
	}

	sort.SliceStable(cluster, func(i, j int) bool {
		return cluster[i].priority < cluster[j].priority
	})
	var c components
	for _, m := range cluster {
		m.apply(&c)
	}

	res := &Result{Index: left, Text: text[left:right]}
	if t, ok := c.resolve(ref, anchor); ok {
		res.Time = t
	}
	return res
}

// Remainder returns text with the expression cut out and whitespace collapsed.
func (r *Result) Remainder(text string) string {
	rest := text[:r.Index] + " " + text[r.Index+len(r.Text):]
	rest = strings.Join(strings.Fields(rest), " ")
	return strings.Trim(rest, " ,;:-–—")
}

func isSeparator(gap string) bool {
	return strings.TrimFunc(gap, func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	}) == ""
}
