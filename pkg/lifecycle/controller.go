// Package lifecycle sequences an ephemeral deployment: preflight, workspace preparation,
// init, apply and output retrieval, followed later by exactly one destroy.
//
// Deploy returns a Session once apply has succeeded. From that point the caller owns the
// teardown: Session.Teardown is guarded by a compare-and-set so any mix of explicit
// calls, signals (see Guard.Listen) and panics (see Guard.Recover) runs destroy once.
// A deploy that fails before apply succeeds never produces a Session, so nothing is
// destroyed on that path beyond what the tool rolled back itself.
package lifecycle

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"atar/pkg/identity"
	"atar/pkg/terraform"
	"atar/pkg/workspace"
)

// Tool runs the external configuration tool
type Tool interface {
	Preflight() error
	Init(target terraform.Target) error
	Apply(target terraform.Target) error
	Output(target terraform.Target) (terraform.Outputs, error)
	Destroy(target terraform.Target) error
}

// Workspaces prepares isolated working copies
type Workspaces interface {
	Prepare(sourceDir string) (workspace.Workspace, error)
	PrepareRepository(repoURL, subdir string) (workspace.Workspace, error)
}

// Options configures a Controller
type Options struct {
	Logger zerolog.Logger
	// Identity, when set, is reported after preflight. Failures only warn.
	Identity identity.Resolver
	// InspectVariables warns about undeclared and missing variables before apply
	InspectVariables bool
}

// Controller drives deploy and undeploy
type Controller struct {
	tool       Tool
	workspaces Workspaces
	options    Options
	newID      func() string
}

// NewController creates a controller
func NewController(tool Tool, workspaces Workspaces, options Options) *Controller {
	return &Controller{
		tool:       tool,
		workspaces: workspaces,
		options:    options,
		newID:      uuid.NewString,
	}
}

// Deploy applies the configuration and returns the live session with its outputs.
//
// Each onDeployed hook runs as soon as apply has succeeded and before outputs are read,
// so callers can arm their teardown triggers for the whole Deployed window. A panic
// after that point tears the session down before it propagates.
//
// When reading outputs fails the resources already exist, so the session is returned
// together with the error and the caller must still tear it down.
func (c *Controller) Deploy(ctx context.Context, req Request, onDeployed ...func(*Session)) (*Session, error) {
	id := c.newID()
	log := c.options.Logger.With().
		Str("session", id).
		Str("config", req.ConfigPath()).
		Logger()

	ws, err := c.prepare(ctx, log, req)
	if err != nil {
		return nil, err
	}

	target := terraform.Target{Dir: ws.Dir, Verbose: req.Verbose()}
	log.Info().Str("state", StateInitializing.String()).Msg("initializing")
	if err := c.tool.Init(target); err != nil {
		return nil, &StageError{Stage: StateInitializing, Err: err}
	}

	if c.options.InspectVariables {
		c.inspect(log, ws.Dir, req.Vars())
	}

	target.Vars = req.Vars()
	log.Info().Str("state", StateApplying.String()).Msg("applying")
	if err := c.tool.Apply(target); err != nil {
		return nil, &StageError{Stage: StateApplying, Err: err}
	}

	session := newSession(id, req, ws, c.tool, log)
	defer NewGuard(session, log).Recover()
	for _, hook := range onDeployed {
		hook(session)
	}
	log.Info().Str("state", StateDeployed.String()).Msg("resources deployed")

	outputs, err := c.tool.Output(target)
	if err != nil {
		return session, fmt.Errorf("failed to read outputs: %w", err)
	}
	session.Outputs = outputs
	return session, nil
}

// Undeploy destroys the configuration without a prior deploy in this process, reusing
// the cached workspace for the same source when there is one.
func (c *Controller) Undeploy(ctx context.Context, req Request) error {
	log := c.options.Logger.With().Str("config", req.ConfigPath()).Logger()

	ws, err := c.prepare(ctx, log, req)
	if err != nil {
		return err
	}

	log.Info().Str("workdir", ws.Dir).Msg("destroying resources")
	err = c.tool.Destroy(terraform.Target{
		Dir:     ws.Dir,
		Vars:    req.Vars(),
		Verbose: req.Verbose(),
	})
	if err != nil {
		return &StageError{Stage: StateDestroying, Err: err}
	}
	log.Info().Msg("resources destroyed")
	return nil
}

// prepare runs the preflight probe and resolves the workspace. Nothing on disk is
// touched before the probe succeeds.
func (c *Controller) prepare(ctx context.Context, log zerolog.Logger, req Request) (workspace.Workspace, error) {
	log.Debug().Str("state", StatePreflight.String()).Msg("checking terraform installation")
	if err := c.tool.Preflight(); err != nil {
		return workspace.Workspace{}, &StageError{Stage: StatePreflight, Err: err}
	}

	if c.options.Identity != nil {
		id, err := c.options.Identity.Resolve(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("could not resolve AWS caller identity")
		} else {
			log.Info().Str("account", id.Account).Str("arn", id.ARN).Msg("using AWS identity")
		}
	}

	log.Debug().Str("state", StatePreparing.String()).Msg("preparing workspace")
	var ws workspace.Workspace
	var err error
	if req.Repository() != "" {
		ws, err = c.workspaces.PrepareRepository(req.Repository(), req.SourceDir())
	} else {
		ws, err = c.workspaces.Prepare(req.SourceDir())
	}
	if err != nil {
		return workspace.Workspace{}, &StageError{Stage: StatePreparing, Err: err}
	}
	log.Info().Str("workdir", ws.Dir).Msg("workspace ready")
	return ws, nil
}

func (c *Controller) inspect(log zerolog.Logger, dir string, vars map[string]string) {
	declared, err := terraform.InspectVariables(dir)
	if err != nil {
		log.Debug().Err(err).Msg("skipping variable inspection")
		return
	}
	undeclared, missing := terraform.CheckVariables(declared, vars)
	for _, name := range undeclared {
		log.Warn().Str("variable", name).Msg("variable is not declared by the configuration")
	}
	for _, name := range missing {
		log.Warn().Str("variable", name).Msg("required variable has no value")
	}
}
