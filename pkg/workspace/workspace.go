// Package workspace keeps an isolated working copy of a terraform configuration per
// source, so the tool's local state never lands in the user's checkout.
//
// Working copies live at <root>/<namespace>/<hex sha256 of the canonical source> and
// are never deleted here. A directory that already exists is reused as-is; callers who
// need a fresh copy must remove it first.
package workspace

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"atar/pkg/git"
)

// DefaultNamespace is the directory under the root that holds all working copies
const DefaultNamespace = "atar"

// Error is returned for any failure to resolve, read, or copy a source
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("workspace %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Workspace is a prepared working copy
type Workspace struct {
	// Source is the canonical source directory or repository URL
	Source string
	// Root is the cached copy of Source
	Root string
	// Dir is where the tool runs; equal to Root for local sources
	Dir string
	Key string
}

// Manager prepares workspaces below Root/Namespace
type Manager struct {
	Root      string
	Namespace string
	Logger    zerolog.Logger
	// Progress receives clone progress for repository sources; nil discards it
	Progress io.Writer

	clone func(url, dest string, progress io.Writer) error
}

// NewManager creates a manager rooted at root, falling back to the system temp dir
func NewManager(root, namespace string, logger zerolog.Logger) *Manager {
	if root == "" {
		root = os.TempDir()
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Manager{
		Root:      root,
		Namespace: namespace,
		Logger:    logger,
		clone:     git.CloneRepository,
	}
}

// Key returns the hex-encoded SHA-256 of source
func Key(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Canonicalize returns the absolute path of p with symlinks resolved
func Canonicalize(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", &Error{Op: "resolve", Path: p, Err: err}
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", &Error{Op: "resolve", Path: p, Err: err}
	}
	return resolved, nil
}

// Path returns the working directory used for a cache key
func (m *Manager) Path(key string) string {
	return filepath.Join(m.Root, m.Namespace, key)
}

// Prepare returns the working copy of sourceDir, copying it on first use
func (m *Manager) Prepare(sourceDir string) (Workspace, error) {
	source, err := Canonicalize(sourceDir)
	if err != nil {
		return Workspace{}, err
	}
	info, err := os.Stat(source)
	if err != nil {
		return Workspace{}, &Error{Op: "read", Path: source, Err: err}
	}
	if !info.IsDir() {
		return Workspace{}, &Error{Op: "read", Path: source, Err: errors.New("not a directory")}
	}

	key := Key(source)
	ws := Workspace{Source: source, Root: m.Path(key), Dir: m.Path(key), Key: key}
	log := m.Logger.With().Str("source", source).Str("workdir", ws.Root).Logger()

	exists, err := dirExists(ws.Root)
	if err != nil {
		return Workspace{}, &Error{Op: "stat", Path: ws.Root, Err: err}
	}
	if exists {
		log.Debug().Msg("reusing workspace")
		return ws, nil
	}

	log.Debug().Msg("copying configuration into workspace")
	if err := copyTree(source, ws.Root); err != nil {
		return Workspace{}, &Error{Op: "copy", Path: source, Err: err}
	}
	return ws, nil
}

// PrepareRepository returns a working copy of a git repository, cloning it on first
// use. subdir is the configuration directory relative to the repository root.
func (m *Manager) PrepareRepository(repoURL, subdir string) (Workspace, error) {
	if repoURL == "" {
		return Workspace{}, &Error{Op: "clone", Path: repoURL, Err: errors.New("empty repository URL")}
	}
	clean := filepath.Clean(subdir)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return Workspace{}, &Error{Op: "resolve", Path: subdir, Err: errors.New("path escapes the repository")}
	}

	key := Key(repoURL)
	root := m.Path(key)
	ws := Workspace{Source: repoURL, Root: root, Dir: filepath.Join(root, clean), Key: key}
	log := m.Logger.With().Str("source", repoURL).Str("workdir", root).Logger()

	exists, err := dirExists(root)
	if err != nil {
		return Workspace{}, &Error{Op: "stat", Path: root, Err: err}
	}
	if !exists {
		log.Debug().Msg("cloning repository into workspace")
		if err := os.MkdirAll(filepath.Dir(root), 0o755); err != nil {
			return Workspace{}, &Error{Op: "clone", Path: repoURL, Err: err}
		}
		if err := m.clone(repoURL, root, m.Progress); err != nil {
			return Workspace{}, &Error{Op: "clone", Path: repoURL, Err: err}
		}
	} else {
		log.Debug().Msg("reusing workspace")
	}

	ok, err := dirExists(ws.Dir)
	if err != nil || !ok {
		if err == nil {
			err = errors.New("configuration directory not found in repository")
		}
		return Workspace{}, &Error{Op: "read", Path: ws.Dir, Err: err}
	}
	return ws, nil
}

func dirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err == nil {
		return info.IsDir(), nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
