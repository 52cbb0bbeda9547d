// ABOUTME: Audio graph contracts shared by the engine and its callers
// ABOUTME: Defines node, param, context and media element interfaces plus graph errors
package webaudio

import (
	"context"
	"errors"
)

// RenderQuantum is the number of frames processed per graph pull
const RenderQuantum = 128

// State of an audio context
type State string

const (
	StateSuspended State = "suspended"
	StateRunning   State = "running"
	StateClosed    State = "closed"
)

var (
	// ErrSourceAlreadyBound is returned when a media element already has a
	// source node in this context
	ErrSourceAlreadyBound = errors.New("media element already bound to a source node")

	// ErrContextClosed is returned by operations on a closed context
	ErrContextClosed = errors.New("audio context is closed")

	// ErrInvalidConnection is returned for connections across contexts or into nodes without inputs
	ErrInvalidConnection = errors.New("invalid node connection")

	// ErrCycle is returned when a connection would create a feedback loop
	ErrCycle = errors.New("connection would create a cycle")

	// ErrNotConnected is returned when disconnecting from a node that is not a destination
	ErrNotConnected = errors.New("nodes are not connected")
)

// MediaElement is the playback element a source node reads from
type MediaElement interface {
	// ID uniquely identifies the element
	ID() string

	// SetOutputFormat configures the rate and channel count ReadPCM produces
	SetOutputFormat(sampleRate, channels int)

	// ReadPCM copies up to len(dst) interleaved samples and returns the count.
	// It never blocks; missing samples are left for the caller to zero.
	ReadPCM(dst []float32) int
}

// AudioNode is a processing unit in the graph
type AudioNode interface {
	// Connect routes this node's output into dst
	Connect(dst AudioNode) error

	// Disconnect removes every outgoing connection
	Disconnect() error

	// DisconnectFrom removes the connection to dst only
	DisconnectFrom(dst AudioNode) error
}

// AudioParam is an automatable node parameter
type AudioParam interface {
	Value() float64
	SetValue(v float64)
	LinearRampToValueAtTime(v float64, endTime float64)
	CancelScheduledValues()
}

// MediaElementSource feeds a media element into the graph
type MediaElementSource interface {
	AudioNode
	MediaElement() MediaElement
}

// Compressor is a dynamics compressor node
type Compressor interface {
	AudioNode
	Threshold() AudioParam
	Knee() AudioParam
	Ratio() AudioParam
	Attack() AudioParam
	Release() AudioParam

	// Reduction is the current gain reduction in dB (zero or negative)
	Reduction() float64
}

// Analyser exposes frequency and time domain snapshots of its input
type Analyser interface {
	AudioNode
	FFTSize() int
	SetFFTSize(n int) error
	FrequencyBinCount() int
	ByteFrequencyData(dst []byte)
	ByteTimeDomainData(dst []byte)
}

// Gain scales its input
type Gain interface {
	AudioNode
	Gain() AudioParam
}

// AudioContext owns a graph and renders it to an output
type AudioContext interface {
	CreateMediaElementSource(el MediaElement) (MediaElementSource, error)
	BoundSource(el MediaElement) (MediaElementSource, bool)
	ReleaseMediaElementSource(el MediaElement)
	CreateDynamicsCompressor() (Compressor, error)
	CreateAnalyser() (Analyser, error)
	CreateGain() (Gain, error)
	Destination() AudioNode
	State() State
	SampleRate() int
	CurrentTime() float64
	Resume(ctx context.Context) error
	Close() error
}
