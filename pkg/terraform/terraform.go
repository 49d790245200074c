package terraform

// Terraform is the main interface for terraform CLI operations
type Terraform struct {
	binary string
	runner Runner
}

// New creates a Terraform instance that runs commands through runner
func New(binary string, runner Runner) *Terraform {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Terraform{
		binary: binary,
		runner: runner,
	}
}

// Binary returns the name of the executable this instance drives
func (t *Terraform) Binary() string {
	return t.binary
}

// Preflight confirms the binary resolves and runs. Both streams are discarded.
func (t *Terraform) Preflight() error {
	_, err := t.runner.Run(Invocation{Subcommand: SubcommandVersion})
	if err != nil {
		return &NotInstalledError{Binary: t.binary, Err: err}
	}
	return nil
}

// Init runs `terraform init`. Variables are not forwarded.
func (t *Terraform) Init(target Target) error {
	_, err := t.runner.Run(Invocation{
		Subcommand: SubcommandInit,
		Dir:        target.Dir,
		Verbose:    target.Verbose,
	})
	return err
}

// Apply runs `terraform apply -auto-approve` with the target's variables
func (t *Terraform) Apply(target Target) error {
	_, err := t.runner.Run(Invocation{
		Subcommand: SubcommandApply,
		Args:       []string{"-auto-approve"},
		Dir:        target.Dir,
		Vars:       target.Vars,
		Verbose:    target.Verbose,
	})
	return err
}

// Output runs `terraform output -json` and decodes the result
func (t *Terraform) Output(target Target) (Outputs, error) {
	result, err := t.runner.Run(Invocation{
		Subcommand: SubcommandOutput,
		Args:       []string{"-json"},
		Dir:        target.Dir,
		Capture:    true,
		Verbose:    target.Verbose,
	})
	if err != nil {
		return nil, err
	}
	return DecodeOutputs(result.Stdout)
}

// Destroy runs `terraform destroy -auto-approve` with the target's variables
func (t *Terraform) Destroy(target Target) error {
	_, err := t.runner.Run(Invocation{
		Subcommand: SubcommandDestroy,
		Args:       []string{"-auto-approve"},
		Dir:        target.Dir,
		Vars:       target.Vars,
		Verbose:    target.Verbose,
	})
	return err
}
