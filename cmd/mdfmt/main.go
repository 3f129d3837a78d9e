package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"pkt.systems/mdfmt"
	"pkt.systems/mdfmt/book"
	"pkt.systems/mdfmt/playback"
	"pkt.systems/mdfmt/preprocess"
	"pkt.systems/version"
)

func init() {
	version.SetDefaultModule("pkt.systems/mdfmt")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type config struct {
	bookPath    string
	selections  []string
	titles      bool
	exec        bool
	events      bool
	play        bool
	cps         int
	rewriteDir  string
	outPath     string
	verbose     bool
	showVersion bool
	newlines    mdfmt.Options
}

// errUsage marks errors answered with exit status 2.
var errUsage = errors.New("usage")

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, inputs, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if cfg.showVersion {
		fmt.Fprintln(stdout, version.Module(), version.Current())
		return 0
	}
	logger := newLogger(stderr, cfg.verbose)
	defer func() { _ = logger.Sync() }()

	if err := execute(ctx, cfg, inputs, stdin, stdout, logger); err != nil {
		fmt.Fprintf(stderr, "mdfmt: %v\n", err)
		if errors.Is(err, errUsage) {
			return 2
		}
		return 1
	}
	return 0
}

func parseFlags(args []string, stderr io.Writer) (config, []string, error) {
	var cfg config
	defaults := mdfmt.DefaultOptions()
	flags := pflag.NewFlagSet("mdfmt", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&cfg.bookPath, "book", "", "Book manifest (book.toml, book.yaml) or directory containing one")
	flags.StringSliceVarP(&cfg.selections, "select", "s", nil, "Glob selecting chapters by name or number (repeatable)")
	flags.BoolVar(&cfg.titles, "titles", false, "Write a heading with number and name before each chapter")
	flags.BoolVar(&cfg.exec, "exec", false, "Run code block actions (hide, prepare, use, include-file, exec)")
	flags.BoolVar(&cfg.events, "events", false, "Print the event stream instead of Markdown")
	flags.BoolVar(&cfg.play, "play", false, "Type the output into the terminal")
	flags.IntVar(&cfg.cps, "cps", playback.DefaultCPS, "Characters per second for --play")
	flags.StringVar(&cfg.rewriteDir, "rewrite", "", "Write each chapter to its own file below this directory")
	flags.StringVarP(&cfg.outPath, "output", "o", "", "Output file instead of stdout")
	flags.IntVar(&cfg.newlines.AfterHeading, "newlines-after-heading", defaults.AfterHeading, "Line breaks after a heading")
	flags.IntVar(&cfg.newlines.AfterParagraph, "newlines-after-paragraph", defaults.AfterParagraph, "Line breaks after a paragraph")
	flags.IntVar(&cfg.newlines.AfterCodeBlock, "newlines-after-codeblock", defaults.AfterCodeBlock, "Line breaks after a code block")
	flags.IntVar(&cfg.newlines.AfterTable, "newlines-after-table", defaults.AfterTable, "Line breaks after a table")
	flags.IntVar(&cfg.newlines.AfterList, "newlines-after-list", defaults.AfterList, "Line breaks after a list")
	flags.IntVar(&cfg.newlines.AfterHTML, "newlines-after-html", defaults.AfterHTML, "Line breaks after block HTML")
	flags.IntVar(&cfg.newlines.AfterRest, "newlines-after-rest", defaults.AfterRest, "Line breaks after any other block")
	flags.BoolVarP(&cfg.verbose, "verbose", "v", false, "Log debug details to stderr")
	flags.BoolVar(&cfg.showVersion, "version", false, "Print version and exit")

	flags.SetInterspersed(true)
	flags.Usage = func() {
		fmt.Fprintln(stderr, version.Module(), version.Current())
		fmt.Fprintf(stderr, "Usage: mdfmt [flags] [inputs...]\n")
		fmt.Fprintln(stderr, "\nInputs are files, file:// or http(s):// URLs. If none is given and --book")
		fmt.Fprintln(stderr, "is not set, Markdown is read from stdin.")
		fmt.Fprintln(stderr, "\nFlags:")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return config{}, nil, err
	}
	return cfg, flags.Args(), nil
}

func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core)
}

func execute(ctx context.Context, cfg config, inputs []string, stdin io.Reader, stdout io.Writer, logger *zap.Logger) error {
	if cfg.bookPath != "" && len(inputs) > 0 {
		return fmt.Errorf("%w: --book and input arguments are mutually exclusive", errUsage)
	}
	if cfg.rewriteDir != "" && (cfg.events || cfg.play || cfg.outPath != "") {
		return fmt.Errorf("%w: --rewrite cannot be combined with --events, --play or --output", errUsage)
	}
	b, err := loadBook(ctx, cfg, inputs, stdin)
	if err != nil {
		return err
	}
	sel := book.NewSelector(cfg.selections...)
	for _, p := range sel.Ignored() {
		logger.Warn("ignoring invalid chapter pattern", zap.String("pattern", p))
	}
	var proc *preprocess.Processor
	if cfg.exec {
		proc = preprocess.NewProcessor(preprocess.WithRoot(b.Root), preprocess.WithLogger(logger))
	}
	opts := []mdfmt.Option{mdfmt.WithOptions(cfg.newlines)}

	if cfg.rewriteDir != "" {
		_, err := book.Rewrite(ctx, book.RewriteRequest{
			Book:      b,
			Dir:       normalizePath(cfg.rewriteDir),
			Selector:  sel,
			Processor: proc,
			Options:   opts,
			Logger:    logger,
		})
		return err
	}

	writer, closeOut, err := resolveOutput(cfg.outPath, stdout)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	if closeOut != nil {
		defer func() { _ = closeOut.Close() }()
	}

	if cfg.events {
		return book.Stream(ctx, book.StreamRequest{
			Book:      b,
			Sink:      eventPrinter{w: writer},
			Selector:  sel,
			Titles:    cfg.titles,
			Processor: proc,
			Logger:    logger,
		})
	}

	out := &countingWriter{w: writer}
	var dst io.Writer = out
	var player *playback.Writer
	if cfg.play {
		player = playback.NewWriter(out, cfg.cps, playback.WithContext(ctx), playback.WithEnabled(playback.IsTerminal(writer)))
		dst = player
	}
	_, err = book.Render(ctx, book.RenderRequest{
		Book:      b,
		Writer:    dst,
		Selector:  sel,
		Titles:    cfg.titles,
		Processor: proc,
		Options:   opts,
		Logger:    logger,
	})
	if player != nil {
		if ferr := player.Flush(); err == nil {
			err = ferr
		}
	}
	if err != nil {
		return err
	}
	if out.n > 0 {
		_, err = io.WriteString(dst, "\n")
	}
	return err
}

func loadBook(ctx context.Context, cfg config, inputs []string, stdin io.Reader) (*book.Book, error) {
	switch {
	case cfg.bookPath != "":
		return book.Load(cfg.bookPath)
	case len(inputs) > 0:
		return book.FromSources(ctx, book.SourcesRequest{Sources: inputs})
	default:
		c, err := book.ReadChapter(stdin, "", "stdin.md")
		if err != nil {
			return nil, err
		}
		c.Number = "1"
		return &book.Book{Root: ".", Chapters: []book.Chapter{c}}, nil
	}
}

// eventPrinter writes one event per line in its debugging form.
type eventPrinter struct {
	w io.Writer
}

func (p eventPrinter) WriteEvent(e mdfmt.Event) error {
	_, err := fmt.Fprintln(p.w, e.String())
	return err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func resolveOutput(path string, stdout io.Writer) (io.Writer, io.Closer, error) {
	if strings.TrimSpace(path) == "" {
		return stdout, nil, nil
	}
	clean := normalizePath(path)
	dir := filepath.Dir(clean)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}
	}
	f, err := os.Create(clean)
	if err != nil {
		return nil, nil, err
	}
	return f, f, nil
}

func normalizePath(path string) string {
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			if path == "~" {
				path = home
			} else {
				path = filepath.Join(home, path[2:])
			}
		}
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		return abs
	}
	return path
}
