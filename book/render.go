package book

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"pkt.systems/mdfmt"
	"pkt.systems/mdfmt/mdparse"
	"pkt.systems/mdfmt/preprocess"
)

// StreamRequest configures Stream.
type StreamRequest struct {
	Book *Book
	Sink mdfmt.Sink
	// Selector limits the chapters written to Sink. Unselected chapters
	// still run through preprocessing in dry-run mode so their prepare
	// blocks count.
	Selector Selector
	// Titles emits a level-one heading with the chapter number and name
	// before each chapter.
	Titles bool
	// Processor runs code block actions; nil passes the chapters through
	// as parsed.
	Processor    *preprocess.Processor
	ParseOptions []mdparse.Option
	Logger       *zap.Logger
}

// Stream writes the events of the selected chapters to req.Sink as one
// event stream.
func Stream(ctx context.Context, req StreamRequest) error {
	if req.Book == nil {
		return errors.New("book: stream: book is nil")
	}
	if req.Sink == nil {
		return errors.New("book: stream: sink is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	logger := req.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	matched := 0
	for _, c := range req.Book.Chapters {
		selected := req.Selector.Match(c)
		sink := mdfmt.Discard
		if selected {
			matched++
			sink = req.Sink
			if req.Titles {
				if err := writeTitle(sink, c); err != nil {
					return err
				}
			}
		}
		logger.Debug("stream chapter",
			zap.String("number", c.Number),
			zap.String("name", c.Name),
			zap.Bool("selected", selected),
		)
		if err := processChapter(ctx, c, sink, !selected, req.Processor, req.ParseOptions); err != nil {
			return err
		}
	}
	if !req.Selector.Empty() && matched == 0 {
		return fmt.Errorf("book: %w", ErrNoChapterMatched)
	}
	return nil
}

// RenderRequest configures Render.
type RenderRequest struct {
	Book         *Book
	Writer       io.Writer
	Selector     Selector
	Titles       bool
	Processor    *preprocess.Processor
	Options      []mdfmt.Option
	ParseOptions []mdparse.Option
	Logger       *zap.Logger
}

// Render writes the selected chapters as one Markdown document. A single
// formatter state spans all chapters, so blank lines between chapters
// follow the same rules as blank lines between blocks. The final state is
// returned even on error.
func Render(ctx context.Context, req RenderRequest) (mdfmt.State, error) {
	if req.Writer == nil {
		return mdfmt.State{}, errors.New("book: render: writer is nil")
	}
	var state mdfmt.State
	f := mdfmt.NewFormatter(req.Writer, &state, req.Options...)
	err := Stream(ctx, StreamRequest{
		Book:         req.Book,
		Sink:         f,
		Selector:     req.Selector,
		Titles:       req.Titles,
		Processor:    req.Processor,
		ParseOptions: req.ParseOptions,
		Logger:       req.Logger,
	})
	return state.Clone(), err
}

// RewriteRequest configures Rewrite.
type RewriteRequest struct {
	Book *Book
	// Dir receives one file per selected chapter at the chapter's Path.
	Dir          string
	Selector     Selector
	Processor    *preprocess.Processor
	Options      []mdfmt.Option
	ParseOptions []mdparse.Option
	Logger       *zap.Logger
}

// Rewrite writes every selected chapter, processed and re-serialized, to
// its own file below req.Dir. Each file starts from an empty state. It
// returns the written paths.
func Rewrite(ctx context.Context, req RewriteRequest) ([]string, error) {
	if req.Book == nil {
		return nil, errors.New("book: rewrite: book is nil")
	}
	if strings.TrimSpace(req.Dir) == "" {
		return nil, errors.New("book: rewrite: dir is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	logger := req.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var written []string
	matched := 0
	for _, c := range req.Book.Chapters {
		if !req.Selector.Match(c) {
			if err := processChapter(ctx, c, mdfmt.Discard, true, req.Processor, req.ParseOptions); err != nil {
				return written, err
			}
			continue
		}
		matched++
		out, err := rewriteChapter(ctx, req, c)
		if err != nil {
			return written, err
		}
		logger.Info("wrote markdown file", zap.String("path", out))
		written = append(written, out)
	}
	if !req.Selector.Empty() && matched == 0 {
		return written, fmt.Errorf("book: %w", ErrNoChapterMatched)
	}
	return written, nil
}

func rewriteChapter(ctx context.Context, req RewriteRequest, c Chapter) (string, error) {
	rel := filepath.Clean(filepath.FromSlash(c.Path))
	if filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		rel = filepath.Base(rel)
	}
	out := filepath.Join(req.Dir, rel)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", fmt.Errorf("book: rewrite: %w", err)
	}
	file, err := os.Create(out)
	if err != nil {
		return "", fmt.Errorf("book: rewrite: %w", err)
	}
	f := mdfmt.NewFormatter(file, nil, req.Options...)
	err = processChapter(ctx, c, f, false, req.Processor, req.ParseOptions)
	if cerr := file.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("book: rewrite: %w", cerr)
	}
	if err != nil {
		return "", err
	}
	return out, nil
}

func processChapter(ctx context.Context, c Chapter, sink mdfmt.Sink, dryRun bool, proc *preprocess.Processor, parseOpts []mdparse.Option) error {
	events := mdparse.Events(c.Content, parseOpts...)
	var err error
	if proc == nil {
		if dryRun {
			return nil
		}
		err = mdfmt.Copy(sink, events)
	} else {
		err = proc.Process(ctx, preprocess.ProcessRequest{
			Events: events,
			Sink:   sink,
			DryRun: dryRun,
		})
	}
	if err != nil {
		return fmt.Errorf("book: chapter %q in %s: %w", c.Name, c.Path, err)
	}
	return nil
}

func writeTitle(sink mdfmt.Sink, c Chapter) error {
	name := c.Name
	if c.Number != "" {
		name = c.Number + " " + name
	}
	heading := mdfmt.Heading(1)
	for _, e := range []mdfmt.Event{
		mdfmt.Start(heading),
		mdfmt.Text(name),
		mdfmt.End(heading),
	} {
		if err := sink.WriteEvent(e); err != nil {
			return err
		}
	}
	return nil
}
