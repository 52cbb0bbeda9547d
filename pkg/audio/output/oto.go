// ABOUTME: Oto-based audio output implementation
// ABOUTME: Streams PCM from the audio context to the system device using oto
package output

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/Resonate-Protocol/radiodeck/pkg/audio"
	"github.com/ebitengine/oto/v3"
	"github.com/rs/zerolog"
)

// oto allows a single context per process
var (
	otoOnce    sync.Once
	otoShared  *oto.Context
	otoErr     error
	otoRate    int
	otoChannel int
)

// Oto output implementation using oto library
type Oto struct {
	mu         sync.Mutex
	otoCtx     *oto.Context
	player     *oto.Player
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	sampleRate int
	channels   int
	ready      bool
	buf        []byte
	logger     zerolog.Logger
}

// NewOto creates a new Oto output
func NewOto(logger zerolog.Logger) *Oto {
	return &Oto{
		logger: logger.With().Str("component", "oto").Logger(),
	}
}

// Open initializes the output device
func (o *Oto) Open(sampleRate, channels, bitDepth int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	// oto only supports 16-bit output
	if bitDepth != 16 {
		o.logger.Warn().Int("bit_depth", bitDepth).Msg("oto only supports 16-bit output, ignoring requested bit depth")
	}

	if o.ready {
		if o.sampleRate == sampleRate && o.channels == channels {
			o.logger.Debug().Msg("audio output already initialized with same format, reusing context")
			return nil
		}
		return fmt.Errorf("output already open at %dHz/%dch", o.sampleRate, o.channels)
	}

	ctx, err := sharedContext(sampleRate, channels)
	if err != nil {
		return err
	}
	if otoRate != sampleRate || otoChannel != channels {
		return fmt.Errorf("oto context already created at %dHz/%dch, cannot reinitialize at %dHz/%dch",
			otoRate, otoChannel, sampleRate, channels)
	}

	// A previous output may have suspended the shared context on Close
	if err := ctx.Resume(); err != nil {
		o.logger.Warn().Err(err).Msg("oto resume failed")
	}

	o.otoCtx = ctx
	o.sampleRate = sampleRate
	o.channels = channels

	// Create pipe for continuous streaming
	o.pipeReader, o.pipeWriter = io.Pipe()

	// Create persistent player that reads from the pipe
	o.player = o.otoCtx.NewPlayer(o.pipeReader)
	o.player.Play()

	o.ready = true

	o.logger.Info().Int("sample_rate", sampleRate).Int("channels", channels).Msg("audio output initialized")

	return nil
}

func sharedContext(sampleRate, channels int) (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channels,
			Format:       oto.FormatSignedInt16LE,
		}

		ctx, readyChan, err := oto.NewContext(op)
		if err != nil {
			otoErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-readyChan

		otoShared = ctx
		otoRate = sampleRate
		otoChannel = channels
	})
	return otoShared, otoErr
}

// Write outputs audio samples (blocks until written)
func (o *Oto) Write(samples []int32) error {
	o.mu.Lock()
	if !o.ready {
		o.mu.Unlock()
		return fmt.Errorf("output not initialized")
	}
	w := o.pipeWriter
	if cap(o.buf) < len(samples)*2 {
		o.buf = make([]byte, len(samples)*2)
	}
	out := o.buf[:len(samples)*2]
	o.mu.Unlock()

	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(audio.SampleToInt16(s)))
	}

	// Write to pipe (which feeds the persistent player)
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("pipe write failed: %w", err)
	}

	return nil
}

// Suspend pauses the device
func (o *Oto) Suspend() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.otoCtx == nil {
		return nil
	}
	return o.otoCtx.Suspend()
}

// Resume resumes a suspended device
func (o *Oto) Resume() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.otoCtx == nil {
		return nil
	}
	return o.otoCtx.Resume()
}

// Close releases output resources. The process-wide oto context is suspended,
// not destroyed.
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pipeWriter != nil {
		o.pipeWriter.Close()
		o.pipeWriter = nil
	}
	if o.player != nil {
		o.player.Close()
		o.player = nil
	}
	if o.pipeReader != nil {
		o.pipeReader.Close()
		o.pipeReader = nil
	}
	if o.otoCtx != nil {
		if err := o.otoCtx.Suspend(); err != nil {
			o.logger.Warn().Err(err).Msg("oto suspend failed")
		}
		o.otoCtx = nil
	}
	o.ready = false
	return nil
}
