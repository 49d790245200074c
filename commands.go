package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"atar/pkg/config"
	"atar/pkg/identity"
	"atar/pkg/lifecycle"
	"atar/pkg/logging"
	"atar/pkg/terraform"
	"atar/pkg/workspace"
)

const outputsBanner = "*************************** Outputs **************************"

// reservedNote is appended to the deploy and undeploy help
const reservedNote = `The names terraform, repo, config and debug are atar options and cannot be
passed as Terraform variables from the command line. Set such variables in the
[vars] table of the config file instead.`

// invocation is the parsed command line of deploy or undeploy
type invocation struct {
	configPath string
	repository string
	configFile string
	debug      bool
	help       bool
	vars       map[string]string
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "atar",
		Short: "Ephemeral Terraform deployments",
		Long: `atar applies a Terraform configuration, prints its outputs and keeps the
resources alive until it is interrupted, then destroys them.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	// Subcommands parse these themselves; they are declared so the root can skip them
	// while locating the subcommand and so they appear in help.
	rootCmd.PersistentFlags().Bool("debug", false, "forward terraform output and enable debug logs")
	rootCmd.PersistentFlags().String("config", "", "config file (default "+config.DefaultPath()+")")

	rootCmd.AddCommand(
		newDeployCommand(stdout, stderr),
		newUndeployCommand(stdout, stderr),
	)
	return rootCmd
}

func newDeployCommand(stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "deploy --terraform <PATH> [--repo <URL>] [--<var> <value> ...]",
		Short: "Deploy a configuration, wait until interrupted, then destroy it",
		Long: `Deploys a Terraform module, waits until interrupted, then destroys it.

Flags:
  --terraform <PATH>    Path to the Terraform main.tf file
  --repo <URL>          Git repository holding the configuration; --terraform is then
                        relative to the repository root
  --<var> <value>       Terraform variable
  --config <PATH>       atar config file
  --debug               Forward terraform output and enable debug logs

` + reservedNote,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := parseArgs(args)
			if err != nil {
				return err
			}
			if inv.help {
				return cmd.Help()
			}
			return runDeploy(cmd.Context(), inv, stdout, stderr)
		},
	}
}

func newUndeployCommand(stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "undeploy --terraform <PATH> [--repo <URL>] [--<var> <value> ...]",
		Short: "Destroy an existing deployment",
		Long: `Destroys an existing Terraform deployment.

Flags:
  --terraform <PATH>    Path to the Terraform main.tf file
  --repo <URL>          Git repository holding the configuration
  --<var> <value>       Terraform variable
  --config <PATH>       atar config file
  --debug               Forward terraform output and enable debug logs

` + reservedNote,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := parseArgs(args)
			if err != nil {
				return err
			}
			if inv.help {
				return cmd.Help()
			}
			return runUndeploy(cmd.Context(), inv, stdout, stderr)
		},
	}
}

// parseArgs reads --terraform, --repo, --config and --debug; any other --name takes the
// next argument (or the text after '=') as a variable value.
func parseArgs(args []string) (invocation, error) {
	inv := invocation{vars: map[string]string{}}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-h" || arg == "--help":
			inv.help = true
			return inv, nil
		case arg == "--debug":
			inv.debug = true
			continue
		case !strings.HasPrefix(arg, "--") || arg == "--":
			return invocation{}, fmt.Errorf("unexpected argument: %s", arg)
		}

		name, value, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if name == "" {
			return invocation{}, fmt.Errorf("unexpected argument: %s", arg)
		}
		if !hasValue {
			i++
			if i >= len(args) {
				if name == "terraform" {
					return invocation{}, errors.New("--terraform requires a path")
				}
				return invocation{}, fmt.Errorf("flag %s requires a value", arg)
			}
			value = args[i]
		}

		switch name {
		case "terraform":
			inv.configPath = value
		case "repo":
			inv.repository = value
		case "config":
			inv.configFile = value
		default:
			inv.vars[name] = value
		}
	}

	if inv.configPath == "" {
		return invocation{}, errors.New("`--terraform` argument is required")
	}
	return inv, nil
}

// environment is everything a command needs once config is loaded
type environment struct {
	logger     zerolog.Logger
	controller *lifecycle.Controller
	request    lifecycle.Request
}

func setup(ctx context.Context, inv invocation, stderr io.Writer) (environment, error) {
	cfg, err := config.Load(inv.configFile)
	if err != nil {
		return environment{}, err
	}
	debug := inv.debug || cfg.Debug
	logger := logging.New(stderr, cfg.LogLevel, debug)

	req, err := lifecycle.NewRequest(inv.configPath, inv.repository, cfg.MergeVars(inv.vars), debug)
	if err != nil {
		return environment{}, err
	}

	runner := terraform.NewExecRunner(cfg.Binary, logging.Component(logger, "runner"))
	workspaces := workspace.NewManager(cfg.WorkspaceRoot, cfg.Namespace, logging.Component(logger, "workspace"))
	if debug {
		workspaces.Progress = stderr
	}

	options := lifecycle.Options{
		Logger:           logging.Component(logger, "lifecycle"),
		InspectVariables: cfg.InspectVariables,
	}
	if cfg.ReportAWSIdentity {
		resolver, err := identity.NewAWSResolver(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("AWS identity report disabled")
		} else {
			options.Identity = resolver
		}
	}

	return environment{
		logger:     logger,
		controller: lifecycle.NewController(terraform.New(cfg.Binary, runner), workspaces, options),
		request:    req,
	}, nil
}

func runDeploy(ctx context.Context, inv invocation, stdout, stderr io.Writer) error {
	env, err := setup(ctx, inv, stderr)
	if err != nil {
		return err
	}
	printVariables(stdout, env.request)

	// Signals are captured from the moment resources exist. Before that the default
	// behaviour applies and an interrupted run simply aborts.
	sigChan := make(chan os.Signal, 1)
	defer signal.Stop(sigChan)
	armSignals := func(*lifecycle.Session) {
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	}

	session, err := env.controller.Deploy(ctx, env.request, armSignals)
	if session == nil {
		return err
	}

	guard := lifecycle.NewGuard(session, env.logger)
	defer guard.Recover()
	guard.Listen(sigChan)

	if err != nil {
		// Resources exist even though the outputs could not be read
		_ = guard.Release()
		return err
	}
	printOutputs(stdout, session.Outputs)

	fmt.Fprintln(stdout, "Resources deployed.\n\nPress Ctrl+C or send SIGTERM to destroy and exit.")
	if _, err := guard.Wait(ctx); err != nil {
		fmt.Fprintln(stdout, "\nContext cancelled: starting Terraform destroy...")
	} else {
		fmt.Fprintln(stdout, "\nSignal received: starting Terraform destroy...")
	}

	// A failed destroy has already been logged and does not change the exit code
	_ = guard.Release()
	return nil
}

func runUndeploy(ctx context.Context, inv invocation, stdout, stderr io.Writer) error {
	env, err := setup(ctx, inv, stderr)
	if err != nil {
		return err
	}
	printVariables(stdout, env.request)
	return env.controller.Undeploy(ctx, env.request)
}

func printVariables(w io.Writer, req lifecycle.Request) {
	fmt.Fprintln(w, "Variables:")
	fmt.Fprintf(w, "  path: %s\n", req.ConfigPath())
	if req.Repository() != "" {
		fmt.Fprintf(w, "  repo: %s\n", req.Repository())
	}
	vars := req.Vars()
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %s\n", k, vars[k])
	}
}

func printOutputs(w io.Writer, outputs terraform.Outputs) {
	if len(outputs) == 0 {
		return
	}
	fmt.Fprintln(w, outputsBanner)
	for _, name := range outputs.Names() {
		fmt.Fprintf(w, "%s: %s\n", name, outputs[name])
	}
	fmt.Fprintln(w, strings.Repeat("*", len(outputsBanner)))
}
