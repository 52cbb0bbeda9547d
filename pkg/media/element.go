// ABOUTME: Streaming media element for internet radio URLs
// ABOUTME: Fetches over HTTP, decodes, resamples and buffers PCM for the audio graph
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/Resonate-Protocol/radiodeck/pkg/audio"
	"github.com/Resonate-Protocol/radiodeck/pkg/audio/decode"
	"github.com/Resonate-Protocol/radiodeck/pkg/audio/resample"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrNoSource is returned by Play when no source URL is set
	ErrNoSource = errors.New("media element has no source")

	// ErrAborted is returned by Play when Load interrupts a pending play
	ErrAborted = errors.New("play interrupted by load")

	// ErrUnsupportedFormat is reported when the stream codec is not recognised
	ErrUnsupportedFormat = errors.New("unsupported stream format")
)

const (
	defaultBufferSeconds = 4
	defaultSampleRate    = 48000
	defaultChannels      = 2
	decodeChunkFrames    = 4096
	defaultUserAgent     = "radiodeck"
)

// Options configures an Element
type Options struct {
	// Client performs stream requests; http.DefaultClient when nil
	Client *http.Client

	Logger zerolog.Logger

	// BufferSeconds bounds how much decoded audio is held ahead of playback
	BufferSeconds float64

	UserAgent string
}

// loadState tracks one fetch of the current source
type loadState struct {
	cancel  context.CancelFunc
	ready   chan struct{}
	failed  chan struct{}
	aborted chan struct{}
	err     error
}

// Element plays one stream URL at a time
type Element struct {
	id        string
	client    *http.Client
	logger    zerolog.Logger
	bufferSec float64
	userAgent string

	mu           sync.Mutex
	src          string
	paused       bool
	volume       float32
	sampleRate   int
	channels     int
	ring         *ringBuffer
	current      *loadState
	eof          bool
	endedSent    bool
	listeners    map[ListenerID]listenerEntry
	nextListener ListenerID
	direct       *directPump

	space chan struct{}
}

// New creates an idle, paused element
func New(opts Options) *Element {
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.BufferSeconds <= 0 {
		opts.BufferSeconds = defaultBufferSeconds
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	id := uuid.NewString()
	e := &Element{
		id:         id,
		client:     opts.Client,
		logger:     opts.Logger.With().Str("component", "media").Str("element", id).Logger(),
		bufferSec:  opts.BufferSeconds,
		userAgent:  opts.UserAgent,
		paused:     true,
		volume:     1,
		sampleRate: defaultSampleRate,
		channels:   defaultChannels,
		listeners:  make(map[ListenerID]listenerEntry),
		space:      make(chan struct{}, 1),
	}
	e.ring = newRingBuffer(e.capacity())
	return e
}

// ID uniquely identifies the element
func (e *Element) ID() string {
	return e.id
}

// SetSrc sets the stream URL; it takes effect on the next Load or Play
func (e *Element) SetSrc(url string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.src = url
}

// Src returns the stream URL
func (e *Element) Src() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.src
}

// Paused reports whether the element is paused
func (e *Element) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// SetVolume sets the element's own output scale in [0, 1]
func (e *Element) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = float32(v)
}

// SetOutputFormat sets the rate and channel count ReadPCM produces.
// Changing the format discards buffered audio.
func (e *Element) SetOutputFormat(sampleRate, channels int) {
	if sampleRate <= 0 || channels <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if sampleRate == e.sampleRate && channels == e.channels {
		return
	}
	e.sampleRate = sampleRate
	e.channels = channels
	e.ring = newRingBuffer(e.capacity())
}

func (e *Element) capacity() int {
	frames := int(e.bufferSec * float64(e.sampleRate))
	return max(frames, decodeChunkFrames) * e.channels
}

// Load aborts any fetch in progress, pauses and discards buffered audio.
// With an empty source this fully releases the stream.
func (e *Element) Load() {
	e.mu.Lock()
	e.resetLocked()
	e.mu.Unlock()
}

func (e *Element) resetLocked() {
	if e.current != nil {
		e.current.cancel()
		close(e.current.aborted)
		e.current = nil
	}
	e.ring.Reset()
	e.eof = false
	e.endedSent = false
	e.paused = true
}

// Play starts fetching if needed and returns once audio is buffered and
// playback has begun, or when the fetch fails or ctx ends.
func (e *Element) Play(ctx context.Context) error {
	e.mu.Lock()
	if e.src == "" {
		e.mu.Unlock()
		return ErrNoSource
	}
	l := e.current
	if l == nil {
		l = e.startLoadLocked()
	}
	e.mu.Unlock()

	select {
	case <-l.failed:
		return l.err
	case <-l.aborted:
		return ErrAborted
	default:
	}

	select {
	case <-l.ready:
	case <-l.failed:
		return l.err
	case <-l.aborted:
		return ErrAborted
	case <-ctx.Done():
		return ctx.Err()
	}

	e.mu.Lock()
	if e.current != l {
		e.mu.Unlock()
		return ErrAborted
	}
	wasPaused := e.paused
	e.paused = false
	e.mu.Unlock()

	if wasPaused {
		e.emit(Event{Type: EventPlay})
	}
	return nil
}

// Pause stops consumption; buffering continues until the buffer is full
func (e *Element) Pause() {
	e.mu.Lock()
	wasPaused := e.paused
	e.paused = true
	e.mu.Unlock()

	if !wasPaused {
		e.emit(Event{Type: EventPause})
	}
}

// ReadPCM drains buffered audio. It returns 0 while paused or starved.
func (e *Element) ReadPCM(dst []float32) int {
	e.mu.Lock()
	if e.paused {
		e.mu.Unlock()
		return 0
	}

	avail := e.ring.Available()
	avail -= avail % e.channels
	n := e.ring.Read(dst[:min(len(dst), avail)])
	if e.volume != 1 {
		for i := 0; i < n; i++ {
			dst[i] *= e.volume
		}
	}

	ended := n == 0 && e.eof && !e.endedSent
	if ended {
		e.endedSent = true
		e.paused = true
	}
	e.mu.Unlock()

	if n > 0 {
		select {
		case e.space <- struct{}{}:
		default:
		}
	}
	if ended {
		// ReadPCM runs on the render path; listeners must not block it
		go e.emit(Event{Type: EventEnded})
	}
	return n
}

// Close releases the stream and any direct output
func (e *Element) Close() error {
	e.DetachOutput()
	e.mu.Lock()
	e.src = ""
	e.resetLocked()
	e.mu.Unlock()
	return nil
}

func (e *Element) startLoadLocked() *loadState {
	ctx, cancel := context.WithCancel(context.Background())
	l := &loadState{
		cancel:  cancel,
		ready:   make(chan struct{}),
		failed:  make(chan struct{}),
		aborted: make(chan struct{}),
	}
	e.current = l
	e.eof = false
	e.endedSent = false

	go e.run(ctx, l, e.src)
	return l
}

func (e *Element) run(ctx context.Context, l *loadState, url string) {
	e.logger.Debug().Str("url", url).Msg("fetching stream")

	err := e.stream(ctx, l, url)

	if ctx.Err() != nil {
		e.logger.Debug().Str("url", url).Msg("stream fetch aborted")
		return
	}

	if errors.Is(err, io.EOF) {
		e.mu.Lock()
		if e.current == l {
			e.eof = true
		}
		e.mu.Unlock()
		e.logger.Debug().Str("url", url).Msg("stream finished")
		return
	}

	l.err = err
	close(l.failed)

	e.logger.Warn().Err(err).Str("url", url).Msg("stream failed")
	e.emitIfCurrent(l, Event{Type: EventError, Err: err})
}

func (e *Element) emitIfCurrent(l *loadState, ev Event) {
	e.mu.Lock()
	current := e.current == l
	e.mu.Unlock()
	if current {
		e.emit(ev)
	}
}

func (e *Element) stream(ctx context.Context, l *loadState, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch stream: unexpected status %s", resp.Status)
	}

	codec := decode.CodecFromContentType(resp.Header.Get("Content-Type"), url)
	if codec == "" {
		return fmt.Errorf("%w: content type %q", ErrUnsupportedFormat, resp.Header.Get("Content-Type"))
	}

	dec, err := decode.New(codec, resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	defer dec.Close()

	format := dec.Format()
	e.logger.Info().
		Str("codec", format.Codec).
		Int("sample_rate", format.SampleRate).
		Int("channels", format.Channels).
		Msg("stream opened")

	var (
		rs       *resample.Resampler
		rsRate   int
		buffered bool
		in       = make([]int32, decodeChunkFrames*format.Channels)
	)

	for {
		n, readErr := dec.Read(in)
		if n > 0 {
			rate, channels := e.outputFormat()
			if rs == nil || rsRate != rate {
				rs = resample.New(format.SampleRate, rate, format.Channels)
				rsRate = rate
			}

			chunk := mapChannels(rs.Process(in[:n]), format.Channels, channels)
			if err := e.enqueue(ctx, l, chunk); err != nil {
				return err
			}

			if !buffered && len(chunk) > 0 {
				buffered = true
				e.emitIfCurrent(l, Event{Type: EventCanPlay})
				close(l.ready)
			}
		}

		if errors.Is(readErr, io.EOF) {
			if !buffered {
				return fmt.Errorf("stream ended before any audio")
			}
			return io.EOF
		}
		if readErr != nil {
			return fmt.Errorf("decode %s: %w", codec, readErr)
		}
	}
}

func (e *Element) outputFormat() (int, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sampleRate, e.channels
}

// enqueue blocks until chunk fits in the buffer or the load is abandoned
func (e *Element) enqueue(ctx context.Context, l *loadState, chunk []float32) error {
	for len(chunk) > 0 {
		e.mu.Lock()
		if e.current != l {
			e.mu.Unlock()
			return context.Canceled
		}
		w := e.ring.Write(chunk)
		e.mu.Unlock()

		chunk = chunk[w:]
		if len(chunk) == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.space:
		case <-time.After(20 * time.Millisecond):
		}
	}
	return nil
}

// mapChannels converts interleaved decoder samples to float32 with the
// requested channel count, duplicating or dropping channels as needed
func mapChannels(samples []int32, inCh, outCh int) []float32 {
	frames := len(samples) / inCh
	out := make([]float32, frames*outCh)
	for f := 0; f < frames; f++ {
		for c := 0; c < outCh; c++ {
			out[f*outCh+c] = audio.SampleToFloat32(samples[f*inCh+c%inCh])
		}
	}
	return out
}
