// ABOUTME: Session manager types, errors and collaborator interfaces
// ABOUTME: Declares stations, session states, status snapshots and the media element contract
package radio

import (
	"context"
	"errors"

	"github.com/Resonate-Protocol/radiodeck/pkg/audio/output"
	"github.com/Resonate-Protocol/radiodeck/pkg/media"
	"github.com/Resonate-Protocol/radiodeck/pkg/webaudio"
)

var (
	// ErrContextCreationFailed is returned when the shared audio context cannot be created
	ErrContextCreationFailed = errors.New("audio context creation failed")

	// ErrAudioUnavailable is returned when neither processed nor direct playback is possible
	ErrAudioUnavailable = errors.New("audio unavailable")

	// ErrPlaybackRejected wraps network and codec failures from the media element
	ErrPlaybackRejected = errors.New("playback rejected")

	// ErrNoStation is returned when a start request has no stream URL
	ErrNoStation = errors.New("station has no stream url")
)

// State of a playback session
type State string

const (
	StateIdle     State = "idle"
	StateStarting State = "starting"
	StatePlaying  State = "playing"
	StateStopping State = "stopping"
	StateStopped  State = "stopped"
	StateFailed   State = "failed"
)

// Station is a named stream
type Station struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Element is the media element a session plays through
type Element interface {
	webaudio.MediaElement

	SetSrc(url string)
	Src() string
	Load()
	Play(ctx context.Context) error
	Pause()
	SetVolume(v float64)

	AddEventListener(typ media.EventType, fn media.Listener) media.ListenerID
	RemoveEventListener(id media.ListenerID)

	// AttachOutput plays the element directly, without processing
	AttachOutput(out output.Output) error
	DetachOutput()

	Close() error
}

// StartOptions describes one start request
type StartOptions struct {
	Station Station

	// Element reuses a caller-owned element; a fresh one is created when nil
	Element Element

	// CompressorPreset overrides the manager's current preset
	CompressorPreset string

	// Visualize binds the visualizer to the new chain
	Visualize bool
}

// Status is a snapshot of the manager
type Status struct {
	SessionID        uint64
	State            State
	Station          Station
	Playing          bool
	Processed        bool
	CompressorPreset string
	VisualizerActive bool
	VisualizerPreset string
	Volume           int
}

// Metrics receives session lifecycle counts
type Metrics interface {
	SessionStarted()
	SessionCommitted()
	SessionStale()
	SessionFailed(reason string)
	DisconnectFailed()
	SetActive(active bool)
}

type nopMetrics struct{}

func (nopMetrics) SessionStarted()      {}
func (nopMetrics) SessionCommitted()    {}
func (nopMetrics) SessionStale()        {}
func (nopMetrics) SessionFailed(string) {}
func (nopMetrics) DisconnectFailed()    {}
func (nopMetrics) SetActive(bool)       {}
