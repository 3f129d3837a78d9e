// Package mdfmt turns a stream of Markdown events back into Markdown source.
//
// The events are what a CommonMark parser emits (start and end of blocks and
// inlines, text, raw HTML, breaks, footnote references). The formatter writes
// them in a single pass, carrying everything it needs in a State:
//
//   - a newline watermark, raised when a block closes and discharged only
//     right before the next content, so no trailing blank lines are written
//   - a padding stack of continuation prefixes ("> " for quotes, spaces for
//     list items) repeated after every line break
//   - a list stack producing "* " and "N. " markers
//   - the table alignments and header texts used to synthesize the
//     delimiter row
//
// Because the State is exported and resumable, one logical document can be
// formatted across several calls without duplicated or missing blank lines at
// the seams.
//
// Example:
//
//	events := []mdfmt.Event{
//		mdfmt.Start(mdfmt.Heading(1)),
//		mdfmt.Text("Title"),
//		mdfmt.End(mdfmt.Heading(1)),
//		mdfmt.Start(mdfmt.TagParagraph.Tag()),
//		mdfmt.Text("Body."),
//		mdfmt.End(mdfmt.TagParagraph.Tag()),
//	}
//	state, err := mdfmt.Format(mdfmt.FormatRequest{
//		Events: mdfmt.Events(events),
//		Writer: os.Stdout,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	_ = state.PendingNewlines // 2: a blank line would precede more content
//
// The mdparse package produces events from Markdown source using goldmark.
package mdfmt
