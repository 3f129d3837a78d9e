package mdfmt

import "github.com/muesli/reflow/ansi"

func (f *Formatter) startTable(alignments []Alignment) {
	f.state.TableAlignments = append([]Alignment(nil), alignments...)
	f.state.TableHeaders = nil
	f.state.InTableHead = false
	f.state.HeaderCellOpen = false
}

func (f *Formatter) startCell() {
	f.writeString("|")
	s := f.state
	if s.InTableHead && len(s.TableHeaders) < len(s.TableAlignments) {
		s.TableHeaders = append(s.TableHeaders, "")
		s.HeaderCellOpen = true
	}
}

func (f *Formatter) captureHeader(text string) {
	s := f.state
	if !s.HeaderCellOpen || len(s.TableHeaders) == 0 {
		return
	}
	s.TableHeaders[len(s.TableHeaders)-1] += text
}

// endHeaderRow closes the header row and synthesizes the delimiter row from
// the column alignments and the captured header widths.
func (f *Formatter) endHeaderRow() {
	s := f.state
	f.writeString("|")
	s.InTableHead = false
	s.HeaderCellOpen = false
	// Missing header cells still get a delimiter cell; padding the capture
	// also freezes it for the body rows.
	for len(s.TableHeaders) < len(s.TableAlignments) {
		s.TableHeaders = append(s.TableHeaders, "")
	}
	if len(s.TableAlignments) == 0 {
		return
	}
	f.newline()
	for i, a := range s.TableAlignments {
		f.writeString("|")
		f.writeDelimiterCell(a, ansi.PrintableRuneWidth(s.TableHeaders[i]))
	}
	f.writeString("|")
}

func (f *Formatter) writeDelimiterCell(a Alignment, width int) {
	lead := a == AlignLeft || a == AlignCenter
	trail := a == AlignCenter || a == AlignRight
	colons := 0
	if lead {
		colons++
	}
	if trail {
		colons++
	}
	dashes := max(width, 3-colons)
	if lead {
		f.writeString(":")
	}
	for dashes > 0 {
		n := dashes
		if n > len(dashRun) {
			n = len(dashRun)
		}
		f.writeString(dashRun[:n])
		dashes -= n
	}
	if trail {
		f.writeString(":")
	}
}

const dashRun = "--------------------------------"

func (f *Formatter) endTable() {
	s := f.state
	s.TableAlignments = nil
	s.TableHeaders = nil
	s.InTableHead = false
	s.HeaderCellOpen = false
}
