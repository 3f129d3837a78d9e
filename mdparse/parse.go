// Package mdparse produces mdfmt event streams from Markdown source using
// goldmark with the GFM table and footnote extensions.
package mdparse

import (
	"bytes"
	"errors"
	"fmt"
	"iter"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"pkt.systems/mdfmt"
)

// Option configures parsing.
type Option func(*parseConfig)

type parseConfig struct {
	tables    bool
	footnotes bool
}

// WithTables enables or disables GFM tables. Enabled by default.
func WithTables(enabled bool) Option {
	return func(cfg *parseConfig) {
		cfg.tables = enabled
	}
}

// WithFootnotes enables or disables footnotes. Enabled by default.
func WithFootnotes(enabled bool) Option {
	return func(cfg *parseConfig) {
		cfg.footnotes = enabled
	}
}

func newEngine(opts []Option) goldmark.Markdown {
	cfg := parseConfig{tables: true, footnotes: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	var exts []goldmark.Extender
	if cfg.tables {
		exts = append(exts, extension.Table)
	}
	if cfg.footnotes {
		exts = append(exts, extension.Footnote)
	}
	return goldmark.New(goldmark.WithExtensions(exts...))
}

// Parse validates src and returns its event stream.
func Parse(src []byte, opts ...Option) ([]mdfmt.Event, error) {
	if err := Validate(src); err != nil {
		return nil, fmt.Errorf("mdparse: %w", err)
	}
	var buf mdfmt.EventBuffer
	if err := Emit(src, &buf, opts...); err != nil {
		return nil, err
	}
	return buf.Events, nil
}

// Emit parses src and writes its events to sink, stopping at the first
// sink error, which is returned unchanged.
func Emit(src []byte, sink mdfmt.Sink, opts ...Option) error {
	doc := newEngine(opts).Parser().Parse(text.NewReader(src))
	w := walker{src: src, sink: sink}
	w.indexFootnotes(doc)
	return w.children(doc)
}

var errStopped = errors.New("mdparse: iteration stopped")

type yieldSink func(mdfmt.Event) bool

func (y yieldSink) WriteEvent(e mdfmt.Event) error {
	if !y(e) {
		return errStopped
	}
	return nil
}

// Events iterates the event stream of src. Input is not validated; call
// Validate first for untrusted sources.
func Events(src []byte, opts ...Option) iter.Seq[mdfmt.Event] {
	return func(yield func(mdfmt.Event) bool) {
		_ = Emit(src, yieldSink(yield), opts...)
	}
}

type walker struct {
	src       []byte
	sink      mdfmt.Sink
	footnotes map[int]string
}

// indexFootnotes maps footnote indexes to labels; references only carry
// the index.
func (w *walker) indexFootnotes(doc ast.Node) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if fn, ok := n.(*east.Footnote); ok && entering {
			if w.footnotes == nil {
				w.footnotes = make(map[int]string)
			}
			w.footnotes[fn.Index] = string(fn.Ref)
		}
		return ast.WalkContinue, nil
	})
}

func (w *walker) emit(e mdfmt.Event) error {
	return w.sink.WriteEvent(e)
}

func (w *walker) children(n ast.Node) error {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if err := w.node(c); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) wrap(tag mdfmt.Tag, n ast.Node) error {
	if err := w.emit(mdfmt.Start(tag)); err != nil {
		return err
	}
	if err := w.children(n); err != nil {
		return err
	}
	return w.emit(mdfmt.End(tag))
}

func (w *walker) node(n ast.Node) error {
	switch n := n.(type) {
	case *ast.Paragraph:
		return w.wrap(mdfmt.TagParagraph.Tag(), n)
	case *ast.TextBlock:
		// Tight list items carry no paragraph.
		return w.children(n)
	case *ast.Heading:
		return w.wrap(mdfmt.Heading(n.Level), n)
	case *ast.ThematicBreak:
		return w.wrap(mdfmt.TagThematicBreak.Tag(), n)
	case *ast.Blockquote:
		return w.wrap(mdfmt.TagBlockQuote.Tag(), n)
	case *ast.List:
		tag := mdfmt.BulletList()
		if n.IsOrdered() {
			tag = mdfmt.OrderedList(n.Start)
		}
		return w.wrap(tag, n)
	case *ast.ListItem:
		return w.wrap(mdfmt.TagItem.Tag(), n)
	case *ast.FencedCodeBlock:
		info := ""
		if n.Info != nil {
			info = string(n.Info.Segment.Value(w.src))
		}
		return w.codeBlock(info, n.Lines())
	case *ast.CodeBlock:
		return w.codeBlock("", n.Lines())
	case *ast.HTMLBlock:
		var b bytes.Buffer
		w.appendLines(&b, n.Lines())
		if n.HasClosure() {
			b.Write(n.ClosureLine.Value(w.src))
		}
		return w.emit(mdfmt.HTML(b.String()))
	case *ast.Text:
		return w.text(n)
	case *ast.String:
		if len(n.Value) == 0 {
			return nil
		}
		return w.emit(mdfmt.Text(string(n.Value)))
	case *ast.CodeSpan:
		return w.codeSpan(n)
	case *ast.Emphasis:
		tag := mdfmt.TagEmphasis.Tag()
		if n.Level >= 2 {
			tag = mdfmt.TagStrong.Tag()
		}
		return w.wrap(tag, n)
	case *ast.Link:
		return w.wrap(mdfmt.Link(string(n.Destination), string(n.Title)), n)
	case *ast.Image:
		return w.wrap(mdfmt.Image(string(n.Destination), string(n.Title)), n)
	case *ast.AutoLink:
		return w.autoLink(n)
	case *ast.RawHTML:
		var b bytes.Buffer
		w.appendLines(&b, n.Segments)
		return w.emit(mdfmt.InlineHTML(b.String()))
	case *east.Table:
		aligns := make([]mdfmt.Alignment, len(n.Alignments))
		for i, a := range n.Alignments {
			aligns[i] = alignment(a)
		}
		return w.wrap(mdfmt.Table(aligns...), n)
	case *east.TableHeader:
		return w.wrap(mdfmt.TagTableHead.Tag(), n)
	case *east.TableRow:
		return w.wrap(mdfmt.TagTableRow.Tag(), n)
	case *east.TableCell:
		return w.wrap(mdfmt.TagTableCell.Tag(), n)
	case *east.FootnoteLink:
		return w.emit(mdfmt.FootnoteReference(w.footnotes[n.Index]))
	case *east.FootnoteBacklink:
		return nil
	case *east.Footnote:
		return w.wrap(mdfmt.FootnoteDefinition(string(n.Ref)), n)
	default:
		return w.children(n)
	}
}

func (w *walker) text(n *ast.Text) error {
	if v := n.Segment.Value(w.src); len(v) > 0 {
		if err := w.emit(mdfmt.Text(string(v))); err != nil {
			return err
		}
	}
	switch {
	case n.HardLineBreak():
		return w.emit(mdfmt.HardBreak())
	case n.SoftLineBreak():
		return w.emit(mdfmt.SoftBreak())
	}
	return nil
}

func (w *walker) codeBlock(info string, lines *text.Segments) error {
	tag := mdfmt.CodeBlock(info)
	if err := w.emit(mdfmt.Start(tag)); err != nil {
		return err
	}
	if lines.Len() > 0 {
		var b bytes.Buffer
		w.appendLines(&b, lines)
		if err := w.emit(mdfmt.Text(b.String())); err != nil {
			return err
		}
	}
	return w.emit(mdfmt.End(tag))
}

func (w *walker) codeSpan(n *ast.CodeSpan) error {
	tag := mdfmt.TagCode.Tag()
	if err := w.emit(mdfmt.Start(tag)); err != nil {
		return err
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		var v []byte
		switch c := c.(type) {
		case *ast.Text:
			v = c.Segment.Value(w.src)
		case *ast.String:
			v = c.Value
		default:
			continue
		}
		line, wrapped := bytes.CutSuffix(v, []byte("\n"))
		if len(line) > 0 {
			if err := w.emit(mdfmt.Text(string(line))); err != nil {
				return err
			}
		}
		if wrapped {
			if err := w.emit(mdfmt.SoftBreak()); err != nil {
				return err
			}
		}
	}
	return w.emit(mdfmt.End(tag))
}

func (w *walker) autoLink(n *ast.AutoLink) error {
	url := string(n.URL(w.src))
	if n.AutoLinkType == ast.AutoLinkEmail && !bytes.HasPrefix(bytes.ToLower([]byte(url)), []byte("mailto:")) {
		url = "mailto:" + url
	}
	tag := mdfmt.Link(url, "")
	if err := w.emit(mdfmt.Start(tag)); err != nil {
		return err
	}
	if err := w.emit(mdfmt.Text(string(n.Label(w.src)))); err != nil {
		return err
	}
	return w.emit(mdfmt.End(tag))
}

func (w *walker) appendLines(b *bytes.Buffer, lines *text.Segments) {
	if lines == nil {
		return
	}
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(w.src))
	}
}

func alignment(a east.Alignment) mdfmt.Alignment {
	switch a {
	case east.AlignLeft:
		return mdfmt.AlignLeft
	case east.AlignCenter:
		return mdfmt.AlignCenter
	case east.AlignRight:
		return mdfmt.AlignRight
	default:
		return mdfmt.AlignNone
	}
}
