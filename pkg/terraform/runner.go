package terraform

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Runner executes the terraform binary
type Runner interface {
	Run(inv Invocation) (Result, error)
}

// ExecRunner runs terraform as a child process on the local host
type ExecRunner struct {
	Binary string
	Stdout io.Writer
	Stderr io.Writer
	Logger zerolog.Logger
}

// NewExecRunner creates a runner for the given binary, forwarding verbose output to the
// process's own streams
func NewExecRunner(binary string, logger zerolog.Logger) *ExecRunner {
	if binary == "" {
		binary = DefaultBinary
	}
	return &ExecRunner{
		Binary: binary,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Logger: logger,
	}
}

// BuildArgs returns the argument list for an invocation. Variables are emitted as
// `-var key=value` pairs sorted by key.
func BuildArgs(inv Invocation) []string {
	args := make([]string, 0, 1+len(inv.Args)+2*len(inv.Vars))
	args = append(args, inv.Subcommand)
	args = append(args, inv.Args...)

	keys := make([]string, 0, len(inv.Vars))
	for k := range inv.Vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-var", fmt.Sprintf("%s=%s", k, inv.Vars[k]))
	}
	return args
}

// Run executes the invocation and blocks until the child exits. The child is never
// cancelled once started.
func (r *ExecRunner) Run(inv Invocation) (Result, error) {
	args := BuildArgs(inv)
	r.Logger.Debug().
		Str("dir", inv.Dir).
		Str("cmd", r.Binary+" "+strings.Join(args, " ")).
		Msg("running terraform")

	cmd := exec.Command(r.Binary, args...)
	cmd.Dir = inv.Dir
	cmd.Stdin = os.Stdin

	// A nil stream is connected to the null device
	var stdout bytes.Buffer
	switch {
	case inv.Capture:
		cmd.Stdout = &stdout
	case inv.Verbose:
		cmd.Stdout = r.Stdout
	}
	if inv.Verbose {
		cmd.Stderr = r.Stderr
	}

	err := cmd.Run()
	result := Result{Stdout: stdout.Bytes()}
	if err == nil {
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitStatus = exitErr.ExitCode()
		return result, &ExecutionError{Subcommand: inv.Subcommand, ExitStatus: result.ExitStatus}
	}
	return result, &LaunchError{Subcommand: inv.Subcommand, Err: err}
}
