package lifecycle

import "fmt"

// State is a step of the deployment lifecycle
type State int32

const (
	StateIdle State = iota
	StatePreflight
	StatePreparing
	StateInitializing
	StateApplying
	StateDeployed
	StateDestroying
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreflight:
		return "preflight"
	case StatePreparing:
		return "preparing"
	case StateInitializing:
		return "initializing"
	case StateApplying:
		return "applying"
	case StateDeployed:
		return "deployed"
	case StateDestroying:
		return "destroying"
	case StateTornDown:
		return "torn down"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// StageError records the state an operation failed in
type StageError struct {
	Stage State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
