package scraper

import (
	"bytes"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Rule describes one attempt at locating a field: a CSS selector whose first
// match is read, and a predicate deciding whether the text is plausible.
type Rule struct {
	Selector string
	Valid    func(text string) bool

	// Text reads the matched node. Nil means goquery's plain Text.
	Text func(sel *goquery.Selection) string
}

func (r Rule) read(doc *goquery.Document) string {
	first := doc.Find(r.Selector).First()
	if first.Length() == 0 {
		return ""
	}
	if r.Text != nil {
		return strings.TrimSpace(r.Text(first))
	}
	return strings.TrimSpace(first.Text())
}

// SelectFirst evaluates rules in order and returns the text of the first rule
// whose match satisfies its predicate. Order is the only tie-break: a later
// rule is never consulted once an earlier one has produced valid text.
func SelectFirst(doc *goquery.Document, rules []Rule) (string, bool) {
	if doc == nil {
		return "", false
	}
	for _, rule := range rules {
		text := rule.read(doc)
		if text == "" {
			continue
		}
		if rule.Valid == nil || rule.Valid(text) {
			return text, true
		}
	}
	return "", false
}

// lengthBetween accepts texts whose character count is strictly between lower and upper.
func lengthBetween(lower, upper int) func(string) bool {
	return func(text string) bool {
		n := utf8.RuneCountInString(text)
		return n > lower && n < upper
	}
}

// lengthAbove accepts texts longer than lower characters.
func lengthAbove(lower int) func(string) bool {
	return func(text string) bool {
		return utf8.RuneCountInString(text) > lower
	}
}

var (
	titleRules = []Rule{
		{Selector: "h1", Valid: lengthBetween(5, 200)},
		{Selector: ".job-title", Valid: lengthBetween(5, 200)},
		{Selector: `[class*="title"]`, Valid: lengthBetween(5, 200)},
		{Selector: `[class*="job-title"]`, Valid: lengthBetween(5, 200)},
		{Selector: `[data-automation="jobTitle"]`, Valid: lengthBetween(5, 200)},
	}

	companyRules = []Rule{
		{Selector: ".company-name", Valid: lengthBetween(2, 100)},
		{Selector: `[class*="company"]`, Valid: lengthBetween(2, 100)},
		{Selector: `[data-automation="companyName"]`, Valid: lengthBetween(2, 100)},
		{Selector: `a[href*="company"]`, Valid: lengthBetween(2, 100)},
	}

	descriptionRules = []Rule{
		{Selector: ".job-description", Valid: lengthAbove(100), Text: blockText},
		{Selector: `[class*="description"]`, Valid: lengthAbove(100), Text: blockText},
		{Selector: `[class*="job-details"]`, Valid: lengthAbove(100), Text: blockText},
		{Selector: "article", Valid: lengthAbove(100), Text: blockText},
		{Selector: "main", Valid: lengthAbove(100), Text: blockText},
	}
)

// TitleRules returns a copy of the title rule set.
func TitleRules() []Rule { return slices.Clone(titleRules) }

// CompanyRules returns a copy of the company rule set.
func CompanyRules() []Rule { return slices.Clone(companyRules) }

// DescriptionRules returns a copy of the description rule set.
func DescriptionRules() []Rule { return slices.Clone(descriptionRules) }

var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true,
	atom.Fieldset: true, atom.Figcaption: true, atom.Figure: true, atom.Footer: true,
	atom.Form: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true, atom.Header: true,
	atom.Hr: true, atom.Li: true, atom.Main: true, atom.Nav: true,
	atom.Ol: true, atom.P: true, atom.Pre: true, atom.Section: true,
	atom.Table: true, atom.Tr: true, atom.Ul: true,
}

var hiddenElements = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Noscript: true, atom.Template: true,
}

// blockText returns the visible text of sel laid out the way a browser would
// render it as plain text: whitespace inside text nodes folds to spaces and
// every block-level element starts on its own line.
func blockText(sel *goquery.Selection) string {
	var w blockWriter
	for _, n := range sel.Nodes {
		w.walk(n)
	}
	return string(w.buf)
}

type blockWriter struct {
	buf []byte
}

func (w *blockWriter) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data)
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		if hiddenElements[n.DataAtom] {
			return
		}
		if n.DataAtom == atom.Br {
			w.breakLine(true)
			return
		}
	}

	block := n.Type == html.ElementNode && blockElements[n.DataAtom]
	if block {
		w.breakLine(false)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
	if block {
		w.breakLine(false)
	}
}

func (w *blockWriter) text(s string) {
	for _, r := range s {
		if r == '\n' || r == '\r' {
			r = ' '
		}
		w.buf = utf8.AppendRune(w.buf, r)
	}
}

// breakLine ends the current line. Unless force is set, an already empty
// line is left alone so nested blocks do not stack blank lines.
func (w *blockWriter) breakLine(force bool) {
	w.buf = bytes.TrimRight(w.buf, " \t")
	if !force && (len(w.buf) == 0 || w.buf[len(w.buf)-1] == '\n') {
		return
	}
	w.buf = append(w.buf, '\n')
}
