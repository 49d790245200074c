package terraform

import "fmt"

// NotInstalledError is returned when the version probe fails
type NotInstalledError struct {
	Binary string
	Err    error
}

func (e *NotInstalledError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s must be installed and in PATH: %v", e.Binary, e.Err)
	}
	return fmt.Sprintf("%s must be installed and in PATH", e.Binary)
}

func (e *NotInstalledError) Unwrap() error { return e.Err }

// LaunchError is returned when the binary could not be started at all
type LaunchError struct {
	Subcommand string
	Err        error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to execute `terraform %s`: %v", e.Subcommand, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// ExecutionError is returned when a subcommand ran but exited unsuccessfully.
// ExitStatus is -1 when the process ended without an exit status (killed by a signal).
type ExecutionError struct {
	Subcommand string
	ExitStatus int
}

func (e *ExecutionError) Error() string {
	if e.ExitStatus < 0 {
		return fmt.Sprintf("`terraform %s` terminated without an exit status", e.Subcommand)
	}
	return fmt.Sprintf("`terraform %s` failed with exit code %d", e.Subcommand, e.ExitStatus)
}

// DecodeError is returned when `output -json` produced malformed JSON
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to parse terraform output JSON: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
