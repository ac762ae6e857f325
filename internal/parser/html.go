package parser

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// doc wraps a parsed notification email for label-based lookups.
type doc struct{ root *html.Node }

func parseHTML(b []byte) (*doc, error) {
	n, err := html.Parse(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	return &doc{root: n}, nil
}

func (d *doc) all(a atom.Atom) []*html.Node { return descendants(d.root, a) }

func descendants(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		for ch := c.FirstChild; ch != nil; ch = ch.NextSibling {
			if ch.Type == html.ElementNode && ch.DataAtom == a {
				out = append(out, ch)
			}
			walk(ch)
		}
	}
	walk(n)
	return out
}

// text is the element's text content with whitespace runs collapsed.
func text(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteByte(' ')
		}
		if c.Type == html.ElementNode && c.DataAtom == atom.Br {
			b.WriteByte(' ')
		}
		for ch := c.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// nextCell returns the next sibling element of a table cell.
func nextCell(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

// labelValues maps each label cell's text to the text of the cell beside it.
// The first occurrence of a label wins.
func (d *doc) labelValues(isLabel func(*html.Node) bool) map[string]string {
	out := map[string]string{}
	for _, td := range d.all(atom.Td) {
		if !isLabel(td) {
			continue
		}
		label := text(td)
		if _, seen := out[label]; seen || label == "" {
			continue
		}
		if v := nextCell(td); v != nil {
			out[label] = text(v)
		}
	}
	return out
}

// leafTables returns tables that do not nest another table, so layout
// wrappers never shadow the data tables inside them.
func (d *doc) leafTables() []*html.Node {
	var out []*html.Node
	for _, t := range d.all(atom.Table) {
		if len(descendants(t, atom.Table)) == 0 {
			out = append(out, t)
		}
	}
	return out
}

func rows(table *html.Node) []*html.Node { return descendants(table, atom.Tr) }

// cells returns the td/th children of a row.
func cells(tr *html.Node) []*html.Node {
	var out []*html.Node
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
			out = append(out, c)
		}
	}
	return out
}

func cellText(tr *html.Node, i int) string {
	cs := cells(tr)
	if i < 0 || i >= len(cs) {
		return ""
	}
	return text(cs[i])
}

// headerColumns finds the first row holding all labels and returns the row
// index with each label's column. Labels match by containment.
func headerColumns(table *html.Node, labels ...string) (int, map[string]int, bool) {
	for ri, tr := range rows(table) {
		cols := map[string]int{}
		for ci, c := range cells(tr) {
			t := text(c)
			for _, l := range labels {
				if _, done := cols[l]; !done && strings.Contains(t, l) {
					cols[l] = ci
				}
			}
		}
		if len(cols) == len(labels) {
			return ri, cols, true
		}
	}
	return 0, nil, false
}
