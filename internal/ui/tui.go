// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and bridges manager callbacks into messages
package ui

import (
	"context"
	"sync"

	"github.com/Resonate-Protocol/radiodeck/pkg/radio"
	tea "github.com/charmbracelet/bubbletea"
)

// Program is a running TUI. Notifications are queued and delivered in
// order by a forwarding goroutine, so they never block the caller: manager
// callbacks fire from inside Update when a key drives the manager.
type Program struct {
	*tea.Program

	mu    sync.Mutex
	queue []tea.Msg
	wake  chan struct{}
}

// NewProgram creates the TUI program; it stops when ctx ends
func NewProgram(ctx context.Context, opts Options, extra ...tea.ProgramOption) *Program {
	progOpts := append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, extra...)
	p := &Program{
		Program: tea.NewProgram(NewModel(opts), progOpts...),
		wake:    make(chan struct{}, 1),
	}
	go p.forward(ctx)
	return p
}

// NotifyStatus forwards a manager state change
func (p *Program) NotifyStatus(st radio.Status) {
	p.post(StatusMsg{Status: st})
}

// NotifyError forwards a surfaced playback error
func (p *Program) NotifyError(err error) {
	p.post(ErrorMsg{Err: err})
}

// AddStation forwards a discovered station
func (p *Program) AddStation(st radio.Station) {
	p.post(StationFoundMsg{Station: st})
}

func (p *Program) post(msg tea.Msg) {
	p.mu.Lock()
	p.queue = append(p.queue, msg)
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// forward delivers queued messages until ctx ends. Send returns once the
// program has exited, so a quit never strands this goroutine.
func (p *Program) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.wake:
		}

		p.mu.Lock()
		batch := p.queue
		p.queue = nil
		p.mu.Unlock()

		for _, msg := range batch {
			p.Send(msg)
		}
	}
}
