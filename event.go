package mdfmt

import (
	"strconv"
	"strings"
)

// EventKind discriminates the variants of Event.
type EventKind uint8

const (
	// EventStart opens a block or inline container described by Event.Tag.
	EventStart EventKind = iota
	// EventEnd closes the container opened by the matching EventStart.
	EventEnd
	// EventText carries literal text in Event.Text.
	EventText
	// EventInlineHTML carries raw inline markup, written verbatim.
	EventInlineHTML
	// EventHTML carries raw block markup.
	EventHTML
	// EventHardBreak is a hard line break inside a paragraph.
	EventHardBreak
	// EventSoftBreak is a soft line break inside a paragraph.
	EventSoftBreak
	// EventFootnoteReference references the footnote labeled Event.Text.
	EventFootnoteReference
)

// TagKind discriminates the variants of Tag.
type TagKind uint8

const (
	TagParagraph TagKind = iota
	TagHeading
	TagBlockQuote
	TagList
	TagItem
	TagCodeBlock
	TagTable
	TagTableHead
	TagTableRow
	TagTableCell
	TagEmphasis
	TagStrong
	TagCode
	TagLink
	TagImage
	TagFootnoteDefinition
	TagThematicBreak
)

var tagNames = [...]string{
	TagParagraph:          "Paragraph",
	TagHeading:            "Heading",
	TagBlockQuote:         "BlockQuote",
	TagList:               "List",
	TagItem:               "Item",
	TagCodeBlock:          "CodeBlock",
	TagTable:              "Table",
	TagTableHead:          "TableHead",
	TagTableRow:           "TableRow",
	TagTableCell:          "TableCell",
	TagEmphasis:           "Emphasis",
	TagStrong:             "Strong",
	TagCode:               "Code",
	TagLink:               "Link",
	TagImage:              "Image",
	TagFootnoteDefinition: "FootnoteDefinition",
	TagThematicBreak:      "ThematicBreak",
}

func (k TagKind) String() string {
	if int(k) < len(tagNames) {
		return tagNames[k]
	}
	return "TagKind(" + strconv.Itoa(int(k)) + ")"
}

// Tag returns a Tag of kind k without payload.
func (k TagKind) Tag() Tag {
	return Tag{Kind: k}
}

// Alignment is the horizontal alignment of a table column.
type Alignment uint8

const (
	AlignNone Alignment = iota
	AlignLeft
	AlignCenter
	AlignRight
)

func (a Alignment) String() string {
	switch a {
	case AlignLeft:
		return "Left"
	case AlignCenter:
		return "Center"
	case AlignRight:
		return "Right"
	default:
		return "None"
	}
}

// Tag describes the container opened or closed by a Start or End event.
// Only the fields relevant to Kind are set.
type Tag struct {
	Kind TagKind

	// Level is the heading level, 1 through 6.
	Level int
	// Ordered and Start describe a list; Start is the first ordinal.
	Ordered bool
	Start   int
	// Info is the info string of a fenced code block.
	Info string
	// Alignments holds one entry per table column.
	Alignments []Alignment
	// Destination and Title belong to links and images.
	Destination string
	Title       string
	// Label names a footnote definition.
	Label string
}

// Heading returns a heading tag of the given level.
func Heading(level int) Tag {
	return Tag{Kind: TagHeading, Level: level}
}

// BulletList returns an unordered list tag.
func BulletList() Tag {
	return Tag{Kind: TagList}
}

// OrderedList returns an ordered list tag whose first item is numbered start.
func OrderedList(start int) Tag {
	return Tag{Kind: TagList, Ordered: true, Start: start}
}

// CodeBlock returns a fenced code block tag.
func CodeBlock(info string) Tag {
	return Tag{Kind: TagCodeBlock, Info: info}
}

// Table returns a table tag with one alignment per column.
func Table(alignments ...Alignment) Tag {
	return Tag{Kind: TagTable, Alignments: alignments}
}

// Link returns a link tag.
func Link(destination, title string) Tag {
	return Tag{Kind: TagLink, Destination: destination, Title: title}
}

// Image returns an image tag.
func Image(destination, title string) Tag {
	return Tag{Kind: TagImage, Destination: destination, Title: title}
}

// FootnoteDefinition returns a footnote definition tag.
func FootnoteDefinition(label string) Tag {
	return Tag{Kind: TagFootnoteDefinition, Label: label}
}

func (t Tag) String() string {
	switch t.Kind {
	case TagHeading:
		return "Heading(" + strconv.Itoa(t.Level) + ")"
	case TagList:
		if t.Ordered {
			return "List(" + strconv.Itoa(t.Start) + ")"
		}
		return "List(None)"
	case TagCodeBlock:
		return "CodeBlock(" + strconv.Quote(t.Info) + ")"
	case TagTable:
		var b strings.Builder
		b.WriteString("Table([")
		for i, a := range t.Alignments {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(a.String())
		}
		b.WriteString("])")
		return b.String()
	case TagLink, TagImage:
		return t.Kind.String() + "(" + strconv.Quote(t.Destination) + ", " + strconv.Quote(t.Title) + ")"
	case TagFootnoteDefinition:
		return "FootnoteDefinition(" + strconv.Quote(t.Label) + ")"
	default:
		return t.Kind.String()
	}
}

// Event is one unit of a structured Markdown event stream.
type Event struct {
	Kind EventKind
	Tag  Tag
	// Text is the payload of text, markup and footnote reference events.
	Text string
}

// Start returns an event opening t.
func Start(t Tag) Event {
	return Event{Kind: EventStart, Tag: t}
}

// End returns an event closing t.
func End(t Tag) Event {
	return Event{Kind: EventEnd, Tag: t}
}

// Text returns a text event.
func Text(s string) Event {
	return Event{Kind: EventText, Text: s}
}

// InlineHTML returns a raw inline markup event.
func InlineHTML(s string) Event {
	return Event{Kind: EventInlineHTML, Text: s}
}

// HTML returns a raw block markup event.
func HTML(s string) Event {
	return Event{Kind: EventHTML, Text: s}
}

// HardBreak returns a hard line break event.
func HardBreak() Event {
	return Event{Kind: EventHardBreak}
}

// SoftBreak returns a soft line break event.
func SoftBreak() Event {
	return Event{Kind: EventSoftBreak}
}

// FootnoteReference returns a reference to the footnote labeled label.
func FootnoteReference(label string) Event {
	return Event{Kind: EventFootnoteReference, Text: label}
}

// String renders e in a compact debugging form such as Start(Heading(2)).
func (e Event) String() string {
	switch e.Kind {
	case EventStart:
		return "Start(" + e.Tag.String() + ")"
	case EventEnd:
		return "End(" + e.Tag.String() + ")"
	case EventText:
		return "Text(" + strconv.Quote(e.Text) + ")"
	case EventInlineHTML:
		return "InlineHtml(" + strconv.Quote(e.Text) + ")"
	case EventHTML:
		return "Html(" + strconv.Quote(e.Text) + ")"
	case EventHardBreak:
		return "HardBreak"
	case EventSoftBreak:
		return "SoftBreak"
	case EventFootnoteReference:
		return "FootnoteReference(" + strconv.Quote(e.Text) + ")"
	default:
		return "Event(" + strconv.Itoa(int(e.Kind)) + ")"
	}
}
