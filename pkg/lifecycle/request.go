package lifecycle

import (
	"errors"
	"path/filepath"

	"atar/pkg/workspace"
)

// Request describes one deploy or undeploy. It is not modified after construction.
type Request struct {
	configPath string
	repository string
	vars       map[string]string
	verbose    bool
}

// NewRequest validates and canonicalizes its inputs. Without a repository configPath
// must exist locally; with one it is taken relative to the repository root.
func NewRequest(configPath, repository string, vars map[string]string, verbose bool) (Request, error) {
	if configPath == "" {
		return Request{}, errors.New("configuration path is required")
	}

	path := filepath.Clean(configPath)
	if repository == "" {
		canonical, err := workspace.Canonicalize(configPath)
		if err != nil {
			return Request{}, err
		}
		path = canonical
	}

	copied := make(map[string]string, len(vars))
	for k, v := range vars {
		copied[k] = v
	}
	return Request{
		configPath: path,
		repository: repository,
		vars:       copied,
		verbose:    verbose,
	}, nil
}

// ConfigPath returns the configuration file path
func (r Request) ConfigPath() string { return r.configPath }

// Repository returns the git URL the configuration lives in, if any
func (r Request) Repository() string { return r.repository }

// Verbose reports whether the tool's streams are forwarded
func (r Request) Verbose() bool { return r.verbose }

// Vars returns a copy of the variables
func (r Request) Vars() map[string]string {
	out := make(map[string]string, len(r.vars))
	for k, v := range r.vars {
		out[k] = v
	}
	return out
}

// SourceDir returns the directory holding the configuration file
func (r Request) SourceDir() string {
	return filepath.Dir(r.configPath)
}
