package terraform

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildArgs(t *testing.T) {
	t.Parallel()

	args := BuildArgs(Invocation{
		Subcommand: SubcommandApply,
		Args:       []string{"-auto-approve"},
		Vars:       map[string]string{"region": "us-east-1", "env": "dev"},
	})
	assert.Equal(t, []string{
		"apply", "-auto-approve",
		"-var", "env=dev",
		"-var", "region=us-east-1",
	}, args)

	assert.Equal(t, []string{"init"}, BuildArgs(Invocation{Subcommand: SubcommandInit}))
}

func TestBuildArgs_ValueWithEquals(t *testing.T) {
	t.Parallel()

	args := BuildArgs(Invocation{Subcommand: SubcommandDestroy, Vars: map[string]string{"tags": "a=b"}})
	assert.Equal(t, []string{"destroy", "-var", "tags=a=b"}, args)
}

// writeScript creates an executable shell script standing in for terraform. Tests using
// it stay sequential: exec of a freshly written file races with concurrent forks (ETXTBSY).
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on Windows")
	}
	path := filepath.Join(t.TempDir(), "terraform")
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestExecRunner_CaptureStdout(t *testing.T) {
	bin := writeScript(t, `echo "$@"; echo "to stderr" >&2`)
	var stdout, stderr bytes.Buffer
	runner := &ExecRunner{Binary: bin, Stdout: &stdout, Stderr: &stderr, Logger: zerolog.Nop()}

	result, err := runner.Run(Invocation{
		Subcommand: SubcommandOutput,
		Args:       []string{"-json"},
		Vars:       map[string]string{"k": "v"},
		Capture:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "output -json -var k=v", strings.TrimSpace(string(result.Stdout)))
	assert.Empty(t, stdout.String(), "captured output must not be forwarded")
	assert.Empty(t, stderr.String(), "stderr is discarded when not verbose")
}

func TestExecRunner_Quiet(t *testing.T) {
	bin := writeScript(t, `echo out; echo err >&2`)
	var stdout, stderr bytes.Buffer
	runner := &ExecRunner{Binary: bin, Stdout: &stdout, Stderr: &stderr, Logger: zerolog.Nop()}

	result, err := runner.Run(Invocation{Subcommand: SubcommandInit})
	require.NoError(t, err)
	assert.Empty(t, result.Stdout)
	assert.Empty(t, stdout.String())
	assert.Empty(t, stderr.String())
}

func TestExecRunner_Verbose(t *testing.T) {
	bin := writeScript(t, `echo out; echo err >&2`)
	var stdout, stderr bytes.Buffer
	runner := &ExecRunner{Binary: bin, Stdout: &stdout, Stderr: &stderr, Logger: zerolog.Nop()}

	_, err := runner.Run(Invocation{Subcommand: SubcommandInit, Verbose: true})
	require.NoError(t, err)
	assert.Equal(t, "out\n", stdout.String())
	assert.Equal(t, "err\n", stderr.String())
}

func TestExecRunner_WorkingDirectory(t *testing.T) {
	bin := writeScript(t, `pwd`)
	dir := t.TempDir()
	runner := &ExecRunner{Binary: bin, Logger: zerolog.Nop()}

	result, err := runner.Run(Invocation{Subcommand: SubcommandInit, Dir: dir, Capture: true})
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(strings.TrimSpace(string(result.Stdout)))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestExecRunner_ExitStatus(t *testing.T) {
	bin := writeScript(t, `exit 3`)
	runner := &ExecRunner{Binary: bin, Logger: zerolog.Nop()}

	result, err := runner.Run(Invocation{Subcommand: SubcommandApply})
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, SubcommandApply, execErr.Subcommand)
	assert.Equal(t, 3, execErr.ExitStatus)
	assert.Equal(t, 3, result.ExitStatus)
	assert.Contains(t, err.Error(), "exit code 3")
}

func TestExecRunner_LaunchFailure(t *testing.T) {
	t.Parallel()

	runner := &ExecRunner{Binary: filepath.Join(t.TempDir(), "missing-terraform"), Logger: zerolog.Nop()}

	_, err := runner.Run(Invocation{Subcommand: SubcommandInit})
	var launchErr *LaunchError
	require.ErrorAs(t, err, &launchErr)
	assert.Equal(t, SubcommandInit, launchErr.Subcommand)
}

func TestNewExecRunner_DefaultBinary(t *testing.T) {
	t.Parallel()

	runner := NewExecRunner("", zerolog.Nop())
	assert.Equal(t, DefaultBinary, runner.Binary)
	assert.Equal(t, os.Stdout, runner.Stdout)
}
