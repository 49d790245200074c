package lifecycle

import (
	"sync/atomic"

	"github.com/rs/zerolog"

	"atar/pkg/terraform"
	"atar/pkg/workspace"
)

// Session is a live deployment. Its resources are destroyed by the first call to
// Teardown; every later call is a no-op.
type Session struct {
	ID        string
	Request   Request
	Workspace workspace.Workspace
	Outputs   terraform.Outputs

	tool   Tool
	logger zerolog.Logger

	state atomic.Int32
	fired atomic.Bool
	done  chan struct{}
	err   error
}

func newSession(id string, req Request, ws workspace.Workspace, tool Tool, logger zerolog.Logger) *Session {
	s := &Session{
		ID:        id,
		Request:   req,
		Workspace: ws,
		tool:      tool,
		logger:    logger,
		done:      make(chan struct{}),
	}
	s.state.Store(int32(StateDeployed))
	return s
}

// State returns the current lifecycle state
func (s *Session) State() State {
	return State(s.state.Load())
}

// Target returns where teardown runs
func (s *Session) Target() terraform.Target {
	return terraform.Target{
		Dir:     s.Workspace.Dir,
		Vars:    s.Request.Vars(),
		Verbose: s.Request.Verbose(),
	}
}

// Teardown destroys the session's resources exactly once. The first caller runs destroy
// and gets its error. Later callers block until that run has finished and get nil.
// A failed destroy is not retried.
func (s *Session) Teardown() error {
	if !s.fired.CompareAndSwap(false, true) {
		<-s.done
		return nil
	}
	defer close(s.done)

	s.state.Store(int32(StateDestroying))
	s.logger.Info().Str("workdir", s.Workspace.Dir).Msg("destroying resources")

	err := s.tool.Destroy(s.Target())
	s.state.Store(int32(StateTornDown))
	if err != nil {
		s.err = err
		return &StageError{Stage: StateDestroying, Err: err}
	}
	s.logger.Info().Msg("resources destroyed")
	return nil
}

// Done is closed once teardown has finished
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the error from the teardown run, if any
func (s *Session) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}
