// Package preprocess runs tagged code blocks of an mdfmt event stream.
//
// A fenced code block whose info string reads "program,key[=value],..."
// is acted on when its End event arrives:
//
//	hide              drop the block, including anything spliced into it
//	prepare=name      remember the block's code under name
//	use=name          prepend code remembered with prepare
//	include-file=path append the file at root/path to the block
//	exec[=status]     run program with the code on stdin and append an
//	                  "output" code block with its stdout and stderr
//
// Actions apply in the order they are written.
package preprocess

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"pkt.systems/mdfmt"
)

var (
	// ErrUnknownReference reports a use= naming no earlier prepare=.
	ErrUnknownReference = errors.New("reference not prepared")
	// ErrExitStatus reports an exec whose exit status differs from the
	// expected one.
	ErrExitStatus = errors.New("unexpected exit status")
)

// OutputInfo is the info string of the code blocks holding exec output.
const OutputInfo = "output"

// Option configures a Processor.
type Option func(*Processor)

// WithRoot sets the directory include-file paths are relative to.
func WithRoot(dir string) Option {
	return func(p *Processor) {
		p.root = dir
	}
}

// WithRunner replaces the process runner used by exec.
func WithRunner(r Runner) Option {
	return func(p *Processor) {
		if r != nil {
			p.runner = r
		}
	}
}

// WithLogger sets the logger for executed programs.
func WithLogger(l *zap.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// Processor applies code block actions. Prepared code is kept across calls
// to Process, so one Processor serves all chapters of a book in order.
// It is not safe for concurrent use.
type Processor struct {
	root     string
	runner   Runner
	logger   *zap.Logger
	prepared map[string]string
}

// NewProcessor creates a Processor running programs locally.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		runner:   CommandRunner{},
		logger:   zap.NewNop(),
		prepared: make(map[string]string),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Prepared returns the code remembered under name.
func (p *Processor) Prepared(name string) (string, bool) {
	code, ok := p.prepared[name]
	return code, ok
}

// ProcessRequest is one event stream to process.
type ProcessRequest struct {
	Events iter.Seq[mdfmt.Event]
	Sink   mdfmt.Sink
	// DryRun skips exec and every action after it in the same tag, but
	// still records prepare and applies include-file.
	DryRun bool
}

// Process filters req.Events into req.Sink. It stops at the first action
// or sink error.
func (p *Processor) Process(ctx context.Context, req ProcessRequest) error {
	if req.Events == nil {
		return errors.New("preprocess: events is nil")
	}
	if req.Sink == nil {
		return errors.New("preprocess: sink is nil")
	}
	r := &run{p: p, ctx: ctx, sink: req.Sink, dryRun: req.DryRun}
	for e := range req.Events {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.handle(e); err != nil {
			return err
		}
	}
	return nil
}

// run is the per-stream state of Process.
type run struct {
	p      *Processor
	ctx    context.Context
	sink   mdfmt.Sink
	dryRun bool

	actions []action
	hide    bool
	code    strings.Builder
}

func (r *run) handle(e mdfmt.Event) error {
	switch {
	case e.Kind == mdfmt.EventStart && e.Tag.Kind == mdfmt.TagCodeBlock:
		actions, err := parseActions(e.Tag.Info)
		if err != nil {
			return fmt.Errorf("preprocess: %w", err)
		}
		r.actions = actions
		r.hide = hidden(actions)
		r.code.Reset()
		return r.emit(e)
	case e.Kind == mdfmt.EventText && len(r.actions) > 0:
		r.code.WriteString(e.Text)
		return r.emit(e)
	case e.Kind == mdfmt.EventEnd && e.Tag.Kind == mdfmt.TagCodeBlock:
		err := r.endBlock(e)
		r.actions = nil
		r.hide = false
		r.code.Reset()
		return err
	default:
		return r.emit(e)
	}
}

func (r *run) emit(events ...mdfmt.Event) error {
	if r.hide {
		return nil
	}
	for _, e := range events {
		if err := r.sink.WriteEvent(e); err != nil {
			return err
		}
	}
	return nil
}

// endBlock applies the block's actions and emits included text before the
// End event and exec output after it.
func (r *run) endBlock(end mdfmt.Event) error {
	var before, after []mdfmt.Event
	for _, a := range r.actions {
		switch a.kind {
		case actionUse:
			code, ok := r.p.prepared[a.name]
			if !ok {
				return fmt.Errorf("preprocess: %w: %q has no earlier 'prepare' block", ErrUnknownReference, a.name)
			}
			rest := r.code.String()
			r.code.Reset()
			r.code.WriteString(code)
			r.code.WriteString(rest)
		case actionPrepare:
			r.p.prepared[a.name] = r.code.String()
		case actionIncludeFile:
			text, err := r.p.include(a.name)
			if err != nil {
				return err
			}
			r.code.WriteString(text)
			before = append(before, mdfmt.Text(text))
		case actionExec:
			if r.dryRun {
				return r.emitBlock(before, end, after)
			}
			out, err := r.p.exec(r.ctx, a, r.code.String())
			if err != nil {
				return err
			}
			after = append(after, out...)
		}
	}
	return r.emitBlock(before, end, after)
}

func (r *run) emitBlock(before []mdfmt.Event, end mdfmt.Event, after []mdfmt.Event) error {
	if err := r.emit(before...); err != nil {
		return err
	}
	if err := r.emit(end); err != nil {
		return err
	}
	return r.emit(after...)
}

func (p *Processor) include(name string) (string, error) {
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.root, name)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("preprocess: include-file=%s: %w", name, err)
	}
	text := string(data)
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return text, nil
}

func (p *Processor) exec(ctx context.Context, a action, code string) ([]mdfmt.Event, error) {
	res, err := p.runner.Run(ctx, a.program, code)
	if err != nil {
		return nil, fmt.Errorf("preprocess: exec %q: %w", a.program, err)
	}
	p.logger.Debug("executed program",
		zap.String("program", a.program),
		zap.String("stdin", code),
		zap.Int("exit_code", res.ExitCode),
	)
	if res.ExitCode != a.status {
		return nil, fmt.Errorf("preprocess: exec %q: %w: got %d, want %d\nstdout: %s\nstderr: %s",
			a.program, ErrExitStatus, res.ExitCode, a.status, res.Stdout, res.Stderr)
	}
	tag := mdfmt.CodeBlock(OutputInfo)
	out := []mdfmt.Event{mdfmt.Start(tag)}
	for _, stream := range [][]byte{res.Stdout, res.Stderr} {
		if len(stream) == 0 {
			continue
		}
		text := strings.ToValidUTF8(string(stream), "\uFFFD")
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		out = append(out, mdfmt.Text(text))
	}
	return append(out, mdfmt.End(tag)), nil
}
