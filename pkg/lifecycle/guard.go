package lifecycle

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// Guard ties a Session's teardown to the process's termination paths
type Guard struct {
	session *Session
	logger  zerolog.Logger
	trigger chan os.Signal
}

// NewGuard creates a guard for session
func NewGuard(session *Session, logger zerolog.Logger) *Guard {
	return &Guard{
		session: session,
		logger:  logger,
		trigger: make(chan os.Signal, 1),
	}
}

// Listen forwards the first signal received on sigs to Wait
func (g *Guard) Listen(sigs <-chan os.Signal) {
	go func() {
		sig, ok := <-sigs
		if !ok {
			return
		}
		g.Notify(sig)
	}()
}

// Notify wakes Wait as if sig had been delivered. Only the first notification counts.
func (g *Guard) Notify(sig os.Signal) {
	select {
	case g.trigger <- sig:
	default:
	}
}

// Wait blocks until a signal arrives or ctx is done
func (g *Guard) Wait(ctx context.Context) (os.Signal, error) {
	select {
	case sig := <-g.trigger:
		return sig, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release tears the session down. A failed destroy is logged and returned but is not
// meant to change how the process exits.
func (g *Guard) Release() error {
	err := g.session.Teardown()
	if err != nil {
		g.logger.Error().Err(err).Msg("failed to destroy resources")
	}
	return err
}

// Recover must be deferred by the goroutine that owns the session. On panic it tears
// the session down and then resumes panicking with the original value.
func (g *Guard) Recover() {
	r := recover()
	if r == nil {
		return
	}
	g.logger.Error().Str("panic", fmt.Sprint(r)).Msg("panic, cleaning up resources")
	_ = g.Release()
	panic(r)
}
