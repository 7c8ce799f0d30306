// Package command runs external programs and captures their output for
// error reporting.
package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

const tailLines = 20

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, dir, binary string, args []string, onLine func(string)) error
}

// Local runs commands on the host.
type Local struct{}

// Run starts binary in dir, forwards every stdout and stderr line to onLine
// and waits for exit. A failed command yields an *ExitError carrying the
// last lines of output.
func (Local) Run(ctx context.Context, dir, binary string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Dir = dir
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", binary, err)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		scanErr error
		once    sync.Once
		tail    []string
	)

	record := func(line string) {
		mu.Lock()
		tail = append(tail, line)
		if len(tail) > tailLines {
			tail = tail[len(tail)-tailLines:]
		}
		mu.Unlock()
		if onLine != nil {
			onLine(line)
		}
	}

	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			record(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	wg.Wait()

	if scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("scan output: %w", scanErr)
	}
	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", binary, ctxErr)
		}
		return &ExitError{Binary: binary, Err: err, Output: strings.Join(tail, "\n")}
	}
	return nil
}

// ExitError reports a command that ran but failed.
type ExitError struct {
	Binary string
	Err    error
	Output string
}

func (e *ExitError) Error() string {
	if strings.TrimSpace(e.Output) == "" {
		return fmt.Sprintf("%s: %v", e.Binary, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Binary, e.Err, strings.TrimSpace(e.Output))
}

func (e *ExitError) Unwrap() error { return e.Err }

// IsNotFound reports whether err means the binary could not be located.
func IsNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}
