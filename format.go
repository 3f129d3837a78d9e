package mdfmt

import (
	"io"
	"strings"
)

// Formatter re-serializes an event stream into Markdown source text.
// It is not safe for concurrent use.
type Formatter struct {
	w     io.Writer
	state *State
	own   State
	opts  Options
	err   error
}

// NewFormatter creates a Formatter writing to w. When state is non-nil the
// formatter resumes from it and updates it in place; otherwise it starts
// from an empty state.
func NewFormatter(w io.Writer, state *State, opts ...Option) *Formatter {
	f := &Formatter{}
	f.resetWithOptions(w, state, buildOptions(opts))
	return f
}

// Reset clears the formatter for reuse with a new writer and state,
// keeping its options.
func (f *Formatter) Reset(w io.Writer, state *State) {
	f.resetWithOptions(w, state, f.opts)
}

func (f *Formatter) resetWithOptions(w io.Writer, state *State, opts Options) {
	f.w = w
	f.own = State{}
	if state == nil {
		state = &f.own
	}
	f.state = state
	f.opts = opts
	f.err = nil
}

// State returns the live serializer state.
func (f *Formatter) State() *State {
	return f.state
}

// Options returns the newline policy in effect.
func (f *Formatter) Options() Options {
	return f.opts
}

// Err returns the first write error, if any.
func (f *Formatter) Err() error {
	return f.err
}

// WriteEvent serializes one event. Once a write to the underlying writer
// failed, every later call returns that same error without writing.
func (f *Formatter) WriteEvent(e Event) error {
	if f.err != nil {
		return f.err
	}
	switch e.Kind {
	case EventStart:
		f.start(e.Tag)
	case EventEnd:
		f.end(e.Tag)
	case EventText:
		f.flush()
		f.captureHeader(e.Text)
		if f.state.InCodeSpan {
			f.state.CodeSpan += e.Text
			break
		}
		f.writeLines(e.Text)
	case EventHTML:
		f.flush()
		text, trailing := strings.CutSuffix(e.Text, "\n")
		f.writeLines(text)
		if trailing {
			f.state.raise(f.opts.AfterHTML + 1)
		} else {
			f.state.raise(f.opts.AfterHTML)
		}
	case EventInlineHTML:
		f.writeString(e.Text)
	case EventHardBreak:
		if f.state.InCodeSpan {
			f.state.CodeSpan += "\n"
			break
		}
		f.flush()
		f.writeString("  ")
		f.newline()
	case EventSoftBreak:
		if f.state.InCodeSpan {
			f.state.CodeSpan += "\n"
			break
		}
		f.flush()
		f.newline()
	case EventFootnoteReference:
		f.flush()
		f.writeString("[^")
		f.writeString(e.Text)
		f.writeString("]")
	}
	return f.err
}

func (f *Formatter) start(t Tag) {
	// Starts that write nothing leave the watermark to the next content so
	// competing requirements merge into one flush.
	switch t.Kind {
	case TagBlockQuote:
		// Pending newlines still belong to the enclosing block.
		f.flush()
		f.state.pushPadding("> ")
		f.writeString("> ")
		return
	case TagList:
		f.state.pushList(t)
		if len(f.state.Lists) > 1 {
			f.state.raise(f.opts.AfterRest)
		}
		return
	case TagTable:
		f.startTable(t.Alignments)
		return
	case TagTableHead:
		f.state.InTableHead = true
		return
	case TagTableRow:
		return
	}
	f.flush()
	switch t.Kind {
	case TagHeading:
		level := t.Level
		if level < 1 {
			level = 1
		} else if level > 6 {
			level = 6
		}
		f.writeString("######"[:level])
		f.writeString(" ")
	case TagItem:
		marker := "* "
		if l := f.state.topList(); l != nil {
			marker = l.marker()
		}
		f.writeString(marker)
		f.state.pushPadding(spaces(len(marker)))
	case TagCodeBlock:
		f.writeString("```")
		f.writeString(t.Info)
		f.newline()
	case TagTableCell:
		f.startCell()
	case TagEmphasis:
		f.writeString("*")
	case TagStrong:
		f.writeString("**")
	case TagCode:
		f.state.InCodeSpan = true
		f.state.CodeSpan = ""
	case TagLink:
		f.writeString("[")
	case TagImage:
		f.writeString("![")
	case TagFootnoteDefinition:
		f.writeString("[^")
		f.writeString(t.Label)
		f.writeString("]: ")
		f.state.pushPadding("    ")
	case TagThematicBreak:
		f.writeString("---")
	}
}

func (f *Formatter) end(t Tag) {
	switch t.Kind {
	case TagParagraph:
		f.state.raise(f.opts.AfterParagraph)
	case TagHeading:
		f.state.raise(f.opts.AfterHeading)
	case TagBlockQuote:
		f.state.popPadding()
	case TagList:
		f.state.popList()
		if len(f.state.Lists) == 0 {
			f.state.raise(f.opts.AfterList)
		}
	case TagItem:
		f.state.popPadding()
		f.state.raise(f.opts.AfterRest)
	case TagCodeBlock:
		f.writeString("```")
		f.state.raise(f.opts.AfterCodeBlock)
	case TagTable:
		f.endTable()
		f.state.raise(f.opts.AfterTable)
	case TagTableHead:
		if f.state.InTableHead {
			f.endHeaderRow()
		}
		f.state.raise(f.opts.AfterRest)
	case TagTableRow:
		if f.state.InTableHead {
			f.endHeaderRow()
		} else {
			f.writeString("|")
		}
		f.state.raise(f.opts.AfterRest)
	case TagTableCell:
		f.state.HeaderCellOpen = false
	case TagEmphasis:
		f.writeString("*")
	case TagStrong:
		f.writeString("**")
	case TagCode:
		f.writeCodeSpan()
	case TagLink, TagImage:
		f.writeString("](")
		f.writeDestination(t.Destination)
		if t.Title != "" {
			f.writeString(` "`)
			f.writeString(t.Title)
			f.writeString(`"`)
		}
		f.writeString(")")
	case TagFootnoteDefinition:
		f.state.popPadding()
	case TagThematicBreak:
		f.state.raise(f.opts.AfterRest)
	}
}

// flush discharges the newline watermark, following every line break with
// the continuation padding.
func (f *Formatter) flush() {
	for f.state.PendingNewlines > 0 {
		f.newline()
		f.state.PendingNewlines--
	}
}

func (f *Formatter) newline() {
	f.writeString("\n")
	f.writePadding()
}

func (f *Formatter) writePadding() {
	for _, p := range f.state.Padding {
		f.writeString(p)
	}
}

// writeLines writes s, re-emitting the padding after each line break.
func (f *Formatter) writeLines(s string) {
	for {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			f.writeString(s)
			return
		}
		f.writeString(s[:i+1])
		f.writePadding()
		s = s[i+1:]
	}
}

func (f *Formatter) writeString(s string) {
	if f.err != nil || s == "" {
		return
	}
	if _, err := io.WriteString(f.w, s); err != nil {
		f.err = err
	}
}

// writeCodeSpan writes the buffered code span inside a fence longer than
// any backtick run of its content.
func (f *Formatter) writeCodeSpan() {
	s := f.state
	content := s.CodeSpan
	s.InCodeSpan = false
	s.CodeSpan = ""
	fence := backticks(longestRun(content, '`') + 1)
	// A space on each side keeps edge backticks and edge spaces intact.
	pad := strings.HasPrefix(content, "`") || strings.HasSuffix(content, "`") ||
		(len(content) > 1 && isSpace(content[0]) && isSpace(content[len(content)-1]) &&
			strings.TrimLeft(content, " \n") != "")
	f.writeString(fence)
	if pad {
		f.writeString(" ")
	}
	f.writeLines(content)
	if pad {
		f.writeString(" ")
	}
	f.writeString(fence)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n'
}

func longestRun(s string, c byte) int {
	longest, run := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] != c {
			run = 0
			continue
		}
		run++
		longest = max(longest, run)
	}
	return longest
}

const backtickRun = "````````"

func backticks(n int) string {
	if n <= len(backtickRun) {
		return backtickRun[:n]
	}
	return strings.Repeat("`", n)
}

// writeDestination writes a link destination, switching to the <...> form
// when the bare form would not parse back to the same destination.
func (f *Formatter) writeDestination(d string) {
	if !needsAngleBrackets(d) {
		f.writeString(d)
		return
	}
	f.writeString("<")
	for {
		i := strings.IndexAny(d, "<>")
		if i < 0 {
			break
		}
		f.writeString(d[:i])
		f.writeString("\\")
		f.writeString(d[i : i+1])
		d = d[i+1:]
	}
	f.writeString(d)
	f.writeString(">")
}

func needsAngleBrackets(d string) bool {
	if strings.HasPrefix(d, "<") {
		return true
	}
	depth := 0
	for i := 0; i < len(d); i++ {
		switch c := d[i]; {
		case c == '\\':
			i++
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth < 0 {
				return true
			}
		case c <= ' ' || c == 0x7f:
			return true
		}
	}
	return depth != 0
}

const spaceRun = "                "

func spaces(n int) string {
	if n <= len(spaceRun) {
		return spaceRun[:n]
	}
	return strings.Repeat(" ", n)
}
