package lifecycle

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"atar/pkg/identity"
	"atar/pkg/terraform"
	"atar/pkg/workspace"
)

type call struct {
	op     string
	target terraform.Target
}

// fakeTool records every operation instead of running terraform
type fakeTool struct {
	mu      sync.Mutex
	calls   []call
	errs    map[string]error
	outputs terraform.Outputs
	// destroyGate, when set, blocks Destroy until closed
	destroyGate chan struct{}
	// outputPanic, when set, makes Output panic with this value
	outputPanic any
}

func (f *fakeTool) record(op string, target terraform.Target) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{op: op, target: target})
	return f.errs[op]
}

func (f *fakeTool) Preflight() error {
	return f.record("preflight", terraform.Target{})
}

func (f *fakeTool) Init(target terraform.Target) error {
	return f.record("init", target)
}

func (f *fakeTool) Apply(target terraform.Target) error {
	return f.record("apply", target)
}

func (f *fakeTool) Output(target terraform.Target) (terraform.Outputs, error) {
	if f.outputPanic != nil {
		_ = f.record("output", target)
		panic(f.outputPanic)
	}
	if err := f.record("output", target); err != nil {
		return nil, err
	}
	return f.outputs, nil
}

func (f *fakeTool) Destroy(target terraform.Target) error {
	if f.destroyGate != nil {
		<-f.destroyGate
	}
	return f.record("destroy", target)
}

func (f *fakeTool) ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.op)
	}
	return out
}

func (f *fakeTool) count(op string) int {
	n := 0
	for _, o := range f.ops() {
		if o == op {
			n++
		}
	}
	return n
}

func (f *fakeTool) last(op string) call {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].op == op {
			return f.calls[i]
		}
	}
	return call{}
}

type fakeIdentity struct {
	id  identity.CallerIdentity
	err error
	n   int
}

func (f *fakeIdentity) Resolve(context.Context) (identity.CallerIdentity, error) {
	f.n++
	return f.id, f.err
}

// fixture is a configuration directory plus a controller over a private workspace root
type fixture struct {
	tool       *fakeTool
	workspaces *workspace.Manager
	controller *Controller
	configPath string
}

func newFixture(t *testing.T, tool *fakeTool) *fixture {
	t.Helper()
	src := t.TempDir()
	configPath := filepath.Join(src, "main.tf")
	require.NoError(t, os.WriteFile(configPath, []byte(`variable "region" {}`), 0o600))

	workspaces := workspace.NewManager(t.TempDir(), "atar", zerolog.Nop())
	controller := NewController(tool, workspaces, Options{Logger: zerolog.Nop(), InspectVariables: true})
	controller.newID = func() string { return "test-session" }
	return &fixture{
		tool:       tool,
		workspaces: workspaces,
		controller: controller,
		configPath: configPath,
	}
}

func (f *fixture) request(t *testing.T, vars map[string]string) Request {
	t.Helper()
	req, err := NewRequest(f.configPath, "", vars, false)
	require.NoError(t, err)
	return req
}
