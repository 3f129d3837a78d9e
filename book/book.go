// Package book assembles Markdown chapters into books and streams them
// through preprocessing and the mdfmt formatter.
package book

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/adrg/frontmatter"

	"pkt.systems/mdfmt"
	"pkt.systems/mdfmt/mdparse"
)

// Chapter is one Markdown source of a book.
type Chapter struct {
	// Number is the dotted section number ("2", "2.1"); empty for
	// unnumbered chapters.
	Number string
	Name   string
	// Path is the chapter path relative to the book root. Rewrite writes
	// the chapter to the same path below its output directory.
	Path string
	// Source is where the content was read from.
	Source string
	// Content is the Markdown body without front matter.
	Content []byte
}

// Book is an ordered list of chapters.
type Book struct {
	Title string
	// Root is the directory include-file paths are relative to.
	Root     string
	Chapters []Chapter
}

type frontMatter struct {
	Title string `yaml:"title" toml:"title" json:"title"`
}

// NewChapter validates src, strips its front matter and names the chapter.
// An empty name is taken from the front matter title, then from the first
// heading, then from the file name of path.
func NewChapter(name, path string, src []byte) (Chapter, error) {
	if err := mdparse.Validate(src); err != nil {
		return Chapter{}, fmt.Errorf("book: %s: %w", path, err)
	}
	var meta frontMatter
	body := src
	if len(src) > 0 {
		rest, err := frontmatter.Parse(bytes.NewReader(src), &meta)
		if err != nil {
			return Chapter{}, fmt.Errorf("book: %s: front matter: %w", path, err)
		}
		body = rest
	}
	if name == "" {
		name = strings.TrimSpace(meta.Title)
	}
	if name == "" {
		name = firstHeading(body)
	}
	if name == "" {
		base := filepath.Base(path)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return Chapter{Name: name, Path: path, Source: path, Content: body}, nil
}

// firstHeading returns the plain text of the first heading in src.
func firstHeading(src []byte) string {
	var (
		b  strings.Builder
		in bool
	)
	for e := range mdparse.Events(src) {
		switch {
		case e.Kind == mdfmt.EventStart && e.Tag.Kind == mdfmt.TagHeading:
			in = true
		case e.Kind == mdfmt.EventEnd && e.Tag.Kind == mdfmt.TagHeading:
			return strings.TrimSpace(b.String())
		case in && e.Kind == mdfmt.EventText:
			b.WriteString(e.Text)
		case in && (e.Kind == mdfmt.EventSoftBreak || e.Kind == mdfmt.EventHardBreak):
			b.WriteByte(' ')
		}
	}
	return ""
}
