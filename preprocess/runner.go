package preprocess

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
)

// Result is the outcome of running a program.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner runs program with stdin as its standard input.
type Runner interface {
	Run(ctx context.Context, program string, stdin string) (Result, error)
}

// CommandRunner runs programs as local processes.
type CommandRunner struct {
	// Dir is the working directory; empty means the current one.
	Dir string
}

// Run starts program and waits for it. A non-zero exit is reported in the
// Result, not as an error; processes killed by a signal report 1.
func (c CommandRunner) Run(ctx context.Context, program string, stdin string) (Result, error) {
	cmd := exec.CommandContext(ctx, program)
	cmd.Dir = c.Dir
	cmd.Stdin = strings.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return res, nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return res, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	res.ExitCode = exitErr.ExitCode()
	if res.ExitCode < 0 {
		res.ExitCode = 1
	}
	return res, nil
}
