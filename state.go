package mdfmt

import "strconv"

// State is the serializer state threaded through a formatting pass. It can be
// kept between calls to resume one logical document across several event
// streams. The zero value is an empty state.
type State struct {
	// PendingNewlines is the number of line breaks owed before the next
	// content. It is a watermark: raised to a maximum, never summed.
	PendingNewlines int
	// Lists has one entry per open list, outermost first.
	Lists []ListState
	// Padding holds the continuation prefixes of the open blocks,
	// outermost first. Their concatenation follows every line break.
	Padding []string
	// TableAlignments is set while a table is open.
	TableAlignments []Alignment
	// TableHeaders collects the text of the header cells, one entry per
	// column, and is frozen once it holds len(TableAlignments) entries.
	TableHeaders []string
	// InTableHead reports whether the header row of a table is open.
	InTableHead bool
	// HeaderCellOpen reports whether text is captured into the last
	// TableHeaders entry.
	HeaderCellOpen bool
	// InCodeSpan reports whether an inline code span is open. Its content
	// is collected in CodeSpan and written when the span closes, so the
	// fence can outgrow any backtick run inside.
	InCodeSpan bool
	CodeSpan   string
}

// ListState tracks one open list.
type ListState struct {
	Ordered bool
	// Next is the ordinal printed by the next item of an ordered list.
	Next int
}

// marker returns the item marker for the list and advances its ordinal.
func (l *ListState) marker() string {
	if !l.Ordered {
		return "* "
	}
	m := strconv.Itoa(l.Next) + ". "
	l.Next++
	return m
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	out.Lists = append([]ListState(nil), s.Lists...)
	out.Padding = append([]string(nil), s.Padding...)
	out.TableAlignments = append([]Alignment(nil), s.TableAlignments...)
	out.TableHeaders = append([]string(nil), s.TableHeaders...)
	return out
}

// raise lifts the newline watermark to at least n.
func (s *State) raise(n int) {
	if n > s.PendingNewlines {
		s.PendingNewlines = n
	}
}

func (s *State) pushPadding(p string) {
	s.Padding = append(s.Padding, p)
}

func (s *State) popPadding() {
	if len(s.Padding) > 0 {
		s.Padding = s.Padding[:len(s.Padding)-1]
	}
}

func (s *State) pushList(t Tag) {
	s.Lists = append(s.Lists, ListState{Ordered: t.Ordered, Next: t.Start})
}

func (s *State) popList() {
	if len(s.Lists) > 0 {
		s.Lists = s.Lists[:len(s.Lists)-1]
	}
}

func (s *State) topList() *ListState {
	if len(s.Lists) == 0 {
		return nil
	}
	return &s.Lists[len(s.Lists)-1]
}
