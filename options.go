package mdfmt

// Options holds the newline counts written between block-level constructs.
// A count is the number of line breaks owed before the next content, so 2
// produces one blank line.
type Options struct {
	AfterHeading   int
	AfterParagraph int
	AfterCodeBlock int
	AfterTable     int
	AfterList      int
	AfterHTML      int
	AfterRest      int
}

// DefaultOptions returns the default newline policy.
func DefaultOptions() Options {
	return Options{
		AfterHeading:   2,
		AfterParagraph: 2,
		AfterCodeBlock: 2,
		AfterTable:     2,
		AfterList:      2,
		AfterHTML:      1,
		AfterRest:      1,
	}
}

// Option configures formatting behavior.
type Option func(*Options)

// WithOptions replaces the whole newline policy.
func WithOptions(o Options) Option {
	return func(cfg *Options) {
		*cfg = Options{
			AfterHeading:   clampCount(o.AfterHeading),
			AfterParagraph: clampCount(o.AfterParagraph),
			AfterCodeBlock: clampCount(o.AfterCodeBlock),
			AfterTable:     clampCount(o.AfterTable),
			AfterList:      clampCount(o.AfterList),
			AfterHTML:      clampCount(o.AfterHTML),
			AfterRest:      clampCount(o.AfterRest),
		}
	}
}

// WithNewlinesAfterHeading sets the newlines owed after a heading.
func WithNewlinesAfterHeading(n int) Option {
	return func(cfg *Options) {
		cfg.AfterHeading = clampCount(n)
	}
}

// WithNewlinesAfterParagraph sets the newlines owed after a paragraph.
func WithNewlinesAfterParagraph(n int) Option {
	return func(cfg *Options) {
		cfg.AfterParagraph = clampCount(n)
	}
}

// WithNewlinesAfterCodeBlock sets the newlines owed after a code block.
func WithNewlinesAfterCodeBlock(n int) Option {
	return func(cfg *Options) {
		cfg.AfterCodeBlock = clampCount(n)
	}
}

// WithNewlinesAfterTable sets the newlines owed after a table.
func WithNewlinesAfterTable(n int) Option {
	return func(cfg *Options) {
		cfg.AfterTable = clampCount(n)
	}
}

// WithNewlinesAfterList sets the newlines owed after an outermost list.
func WithNewlinesAfterList(n int) Option {
	return func(cfg *Options) {
		cfg.AfterList = clampCount(n)
	}
}

// WithNewlinesAfterHTML sets the newlines owed after raw block markup.
func WithNewlinesAfterHTML(n int) Option {
	return func(cfg *Options) {
		cfg.AfterHTML = clampCount(n)
	}
}

// WithNewlinesAfterRest sets the newlines owed after any other block.
func WithNewlinesAfterRest(n int) Option {
	return func(cfg *Options) {
		cfg.AfterRest = clampCount(n)
	}
}

func buildOptions(opts []Option) Options {
	cfg := DefaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func clampCount(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
