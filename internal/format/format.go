// Package format turns markdown returned by the text service into display
// content. Raw HTML in the input is never passed through.
package format

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var md = goldmark.New()

// HTML renders raw as sanitized HTML. Raw HTML blocks and dangerous link
// targets are dropped.
func HTML(raw string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(raw), &buf); err != nil {
		return "<p>" + html.EscapeString(raw) + "</p>"
	}
	return buf.String()
}

// Terminal renders raw as plain text for a terminal: emphasis markers are
// stripped, list items get bullets or numbers, and raw HTML is dropped.
func Terminal(raw string) string {
	src := []byte(raw)
	doc := md.Parser().Parse(text.NewReader(src))
	r := &renderer{src: src}
	r.blocks(doc, true)
	for len(r.out) > 0 && r.out[len(r.out)-1] == "" {
		r.out = r.out[:len(r.out)-1]
	}
	return strings.Join(r.out, "\n")
}

type renderer struct {
	src []byte
	out []string
}

func (r *renderer) emit(line string) {
	r.out = append(r.out, line)
}

func (r *renderer) gap(loose bool) {
	if loose && len(r.out) > 0 && r.out[len(r.out)-1] != "" {
		r.out = append(r.out, "")
	}
}

func (r *renderer) blocks(parent ast.Node, loose bool) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch n := n.(type) {
		case *ast.Heading, *ast.Paragraph, *ast.TextBlock:
			for _, line := range strings.Split(r.inline(n), "\n") {
				r.emit(line)
			}
			r.gap(loose)

		case *ast.List:
			r.list(n)
			r.gap(loose)

		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				r.emit("    " + strings.TrimRight(string(seg.Value(r.src)), "\n"))
			}
			r.gap(loose)

		case *ast.Blockquote:
			sub := &renderer{src: r.src}
			sub.blocks(n, false)
			for _, line := range sub.out {
				r.emit("│ " + line)
			}
			r.gap(loose)

		case *ast.ThematicBreak:
			r.emit("────")
			r.gap(loose)

		case *ast.HTMLBlock:
			// dropped

		default:
			r.blocks(n, loose)
		}
	}
}

func (r *renderer) list(l *ast.List) {
	num := l.Start
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		marker := "• "
		if l.IsOrdered() {
			marker = fmt.Sprintf("%d. ", num)
			num++
		}
		sub := &renderer{src: r.src}
		sub.blocks(item, false)
		if len(sub.out) == 0 {
			r.emit(strings.TrimSpace(marker))
			continue
		}
		pad := strings.Repeat(" ", utf8.RuneCountInString(marker))
		for i, line := range sub.out {
			if i == 0 {
				r.emit(marker + line)
			} else {
				r.emit(pad + line)
			}
		}
	}
}

func (r *renderer) inline(n ast.Node) string {
	var b strings.Builder
	r.writeInline(&b, n)
	return strings.TrimSpace(b.String())
}

func (r *renderer) writeInline(b *strings.Builder, parent ast.Node) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch n := n.(type) {
		case *ast.Text:
			b.Write(n.Segment.Value(r.src))
			switch {
			case n.HardLineBreak():
				b.WriteByte('\n')
			case n.SoftLineBreak():
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(n.Value)
		case *ast.AutoLink:
			b.Write(n.Label(r.src))
		case *ast.RawHTML:
			// dropped
		default:
			r.writeInline(b, n)
		}
	}
}
