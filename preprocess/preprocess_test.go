package preprocess

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pkt.systems/mdfmt"
	"pkt.systems/mdfmt/mdparse"
)

type call struct {
	Program string
	Stdin   string
}

type fakeRunner struct {
	calls  []call
	result Result
	err    error
}

func (f *fakeRunner) Run(_ context.Context, program string, stdin string) (Result, error) {
	f.calls = append(f.calls, call{Program: program, Stdin: stdin})
	return f.result, f.err
}

func process(t *testing.T, p *Processor, src string, dryRun bool) (string, error) {
	t.Helper()
	events, err := mdparse.Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var buf mdfmt.EventBuffer
	err = p.Process(context.Background(), ProcessRequest{
		Events: mdfmt.Events(events),
		Sink:   &buf,
		DryRun: dryRun,
	})
	out, _ := mdfmt.FormatString(buf.Events)
	return out, err
}

func TestHideDropsBlock(t *testing.T) {
	t.Parallel()
	p := NewProcessor(WithRunner(&fakeRunner{}))
	got, err := process(t, p, "a\n\n```sh,hide\nsecret\n```\n\nb", false)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if got != "a\n\nb" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestPrepareUseExec(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{result: Result{Stdout: []byte("1")}}
	p := NewProcessor(WithRunner(runner))
	src := "```sh,prepare=setup,hide\nexport A=1\n```\n\n```sh,use=setup,exec\necho $A\n```"
	got, err := process(t, p, src, false)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	want := "```sh,use=setup,exec\necho $A\n```\n\n```output\n1\n```"
	if got != want {
		t.Fatalf("output mismatch\ngot:  %q\nwant: %q", got, want)
	}
	wantCalls := []call{{Program: "sh", Stdin: "export A=1\necho $A\n"}}
	if diff := cmp.Diff(wantCalls, runner.calls); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
	if code, ok := p.Prepared("setup"); !ok || code != "export A=1\n" {
		t.Fatalf("unexpected prepared code %q (%v)", code, ok)
	}
}

func TestExecOutputKeepsStdoutAndStderr(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{result: Result{Stdout: []byte("out\n"), Stderr: []byte("err"), ExitCode: 2}}
	p := NewProcessor(WithRunner(runner))
	got, err := process(t, p, "```bash,exec=2\nfalse\n```", false)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	want := "```bash,exec=2\nfalse\n```\n\n```output\nout\nerr\n```"
	if got != want {
		t.Fatalf("output mismatch\ngot:  %q\nwant: %q", got, want)
	}
}

func TestExecStatusMismatch(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{result: Result{Stdout: []byte("so"), Stderr: []byte("se"), ExitCode: 1}}
	p := NewProcessor(WithRunner(runner))
	_, err := process(t, p, "```sh,exec\nfalse\n```", false)
	if !errors.Is(err, ErrExitStatus) {
		t.Fatalf("expected ErrExitStatus, got %v", err)
	}
	if !strings.Contains(err.Error(), "stdout: so") || !strings.Contains(err.Error(), "stderr: se") {
		t.Fatalf("expected captured output in error, got %v", err)
	}
}

func TestExecRunnerError(t *testing.T) {
	t.Parallel()
	boom := errors.New("no such program")
	p := NewProcessor(WithRunner(&fakeRunner{err: boom}))
	_, err := process(t, p, "```nope,exec\nx\n```", false)
	if !errors.Is(err, boom) {
		t.Fatalf("expected runner error, got %v", err)
	}
}

func TestDryRunSkipsExecButPrepares(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{result: Result{Stdout: []byte("never")}}
	p := NewProcessor(WithRunner(runner))
	got, err := process(t, p, "```sh,exec,prepare=late\necho\n```\n\n```sh,prepare=early\nx\n```", true)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(runner.calls) != 0 {
		t.Fatalf("expected no exec in dry run, got %v", runner.calls)
	}
	if got != "```sh,exec,prepare=late\necho\n```\n\n```sh,prepare=early\nx\n```" {
		t.Fatalf("unexpected output %q", got)
	}
	if _, ok := p.Prepared("late"); ok {
		t.Fatalf("actions after exec must not run in dry run")
	}
	if _, ok := p.Prepared("early"); !ok {
		t.Fatalf("prepare must run in dry run")
	}
}

func TestPreparedCodeSurvivesAcrossStreams(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{}
	p := NewProcessor(WithRunner(runner))
	if _, err := process(t, p, "```sh,prepare=a,hide\none\n```", true); err != nil {
		t.Fatalf("first stream: %v", err)
	}
	if _, err := process(t, p, "```sh,use=a,exec\ntwo\n```", false); err != nil {
		t.Fatalf("second stream: %v", err)
	}
	if len(runner.calls) != 1 || runner.calls[0].Stdin != "one\ntwo\n" {
		t.Fatalf("unexpected calls %v", runner.calls)
	}
}

func TestUnknownReference(t *testing.T) {
	t.Parallel()
	p := NewProcessor(WithRunner(&fakeRunner{}))
	_, err := process(t, p, "```sh,use=missing\nx\n```", false)
	if !errors.Is(err, ErrUnknownReference) {
		t.Fatalf("expected ErrUnknownReference, got %v", err)
	}
}

func TestIncludeFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "inc.txt"), []byte("included"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	runner := &fakeRunner{}
	p := NewProcessor(WithRoot(dir), WithRunner(runner))
	got, err := process(t, p, "```txt,include-file=inc.txt,exec\nfirst\n```", false)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	want := "```txt,include-file=inc.txt,exec\nfirst\nincluded\n```\n\n```output\n```"
	if got != want {
		t.Fatalf("output mismatch\ngot:  %q\nwant: %q", got, want)
	}
	if len(runner.calls) != 1 || runner.calls[0].Stdin != "first\nincluded\n" {
		t.Fatalf("unexpected calls %v", runner.calls)
	}
}

func TestIncludeFileMissing(t *testing.T) {
	t.Parallel()
	p := NewProcessor(WithRoot(t.TempDir()))
	_, err := process(t, p, "```txt,include-file=nope.txt\n```", false)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

func TestSinkErrorStopsProcessing(t *testing.T) {
	t.Parallel()
	full := errors.New("sink full")
	p := NewProcessor()
	err := p.Process(context.Background(), ProcessRequest{
		Events: mdfmt.Events([]mdfmt.Event{mdfmt.Text("a"), mdfmt.Text("b")}),
		Sink:   failingSink{err: full},
	})
	if !errors.Is(err, full) {
		t.Fatalf("expected sink error, got %v", err)
	}
}

func TestProcessHonorsCanceledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf mdfmt.EventBuffer
	err := NewProcessor().Process(ctx, ProcessRequest{
		Events: mdfmt.Events([]mdfmt.Event{mdfmt.Text("a")}),
		Sink:   &buf,
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(buf.Events) != 0 {
		t.Fatalf("expected no events, got %v", buf.Events)
	}
}

func TestProcessValidatesRequest(t *testing.T) {
	t.Parallel()
	p := NewProcessor()
	if err := p.Process(context.Background(), ProcessRequest{Sink: &mdfmt.EventBuffer{}}); err == nil {
		t.Fatalf("expected error for nil events")
	}
	if err := p.Process(context.Background(), ProcessRequest{Events: mdfmt.Events(nil)}); err == nil {
		t.Fatalf("expected error for nil sink")
	}
}

type failingSink struct{ err error }

func (s failingSink) WriteEvent(mdfmt.Event) error { return s.err }

func TestCommandRunner(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	res, err := CommandRunner{}.Run(context.Background(), "sh", "echo out; echo err >&2; exit 3")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.ExitCode != 3 || string(res.Stdout) != "out\n" || string(res.Stderr) != "err\n" {
		t.Fatalf("unexpected result code=%d stdout=%q stderr=%q", res.ExitCode, res.Stdout, res.Stderr)
	}
}
