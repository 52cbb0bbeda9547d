// ABOUTME: Accessor for the process-wide audio context
// ABOUTME: Creates the context once and recreates it only after it has been closed
package radio

import (
	"fmt"

	"github.com/Resonate-Protocol/radiodeck/pkg/webaudio"
)

// ContextFactory creates the shared audio context
type ContextFactory func() (webaudio.AudioContext, error)

// contextProvider owns the shared context; callers hold the manager lock
type contextProvider struct {
	factory ContextFactory
	ctx     webaudio.AudioContext
	created int
}

// acquire returns the open context, creating it when none exists or the
// existing one reports closed
func (p *contextProvider) acquire() (webaudio.AudioContext, error) {
	if p.ctx != nil && p.ctx.State() != webaudio.StateClosed {
		return p.ctx, nil
	}
	if p.factory == nil {
		return nil, fmt.Errorf("%w: no context factory", ErrContextCreationFailed)
	}

	ctx, err := p.factory()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContextCreationFailed, err)
	}
	if ctx == nil {
		return nil, fmt.Errorf("%w: factory returned nil", ErrContextCreationFailed)
	}

	p.ctx = ctx
	p.created++
	return ctx, nil
}

// current returns the context without creating one
func (p *contextProvider) current() webaudio.AudioContext {
	return p.ctx
}

// close closes the shared context; only full application teardown calls it
func (p *contextProvider) close() error {
	if p.ctx == nil {
		return nil
	}
	err := p.ctx.Close()
	p.ctx = nil
	return err
}
