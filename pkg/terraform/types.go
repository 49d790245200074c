package terraform

// Subcommand names understood by the terraform CLI
const (
	SubcommandInit    = "init"
	SubcommandApply   = "apply"
	SubcommandDestroy = "destroy"
	SubcommandOutput  = "output"
	SubcommandVersion = "-version"
)

// DefaultBinary is the executable looked up on PATH when none is configured
const DefaultBinary = "terraform"

// Invocation describes a single run of the terraform binary
type Invocation struct {
	Subcommand string
	Args       []string
	Dir        string
	Vars       map[string]string
	// Capture returns stdout to the caller regardless of Verbose
	Capture bool
	// Verbose forwards the tool's streams to the terminal
	Verbose bool
}

// Result contains the outcome of an invocation
type Result struct {
	ExitStatus int
	Stdout     []byte
}

// Target identifies where and how a subcommand runs
type Target struct {
	Dir     string
	Vars    map[string]string
	Verbose bool
}

// Outputs maps an output name to its display string
type Outputs map[string]string

// Variable is a `variable` block declared by the configuration
type Variable struct {
	Name     string
	Required bool
}
