// ABOUTME: Direct element playback without an audio graph
// ABOUTME: Pumps buffered PCM straight to an output when no audio context is available
package media

import (
	"fmt"

	"github.com/Resonate-Protocol/radiodeck/pkg/audio"
	"github.com/Resonate-Protocol/radiodeck/pkg/audio/output"
)

const directChunkFrames = 1024

type directPump struct {
	out  output.Output
	stop chan struct{}
	done chan struct{}
}

// AttachOutput plays the element straight to out, bypassing any processing.
// Attaching replaces a previously attached output.
func (e *Element) AttachOutput(out output.Output) error {
	e.DetachOutput()

	rate, channels := e.outputFormat()
	if err := out.Open(rate, channels, 16); err != nil {
		return fmt.Errorf("open direct output: %w", err)
	}

	p := &directPump{
		out:  out,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	e.mu.Lock()
	e.direct = p
	e.mu.Unlock()

	go e.pump(p, channels)

	e.logger.Info().Int("sample_rate", rate).Int("channels", channels).Msg("direct output attached")
	return nil
}

// DetachOutput stops direct playback and closes the output
func (e *Element) DetachOutput() {
	e.mu.Lock()
	p := e.direct
	e.direct = nil
	e.mu.Unlock()

	if p == nil {
		return
	}
	close(p.stop)
	if err := p.out.Close(); err != nil {
		e.logger.Warn().Err(err).Msg("close direct output")
	}
	<-p.done
}

// HasDirectOutput reports whether an output is attached
func (e *Element) HasDirectOutput() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.direct != nil
}

func (e *Element) pump(p *directPump, channels int) {
	defer close(p.done)

	buf := make([]float32, directChunkFrames*channels)
	samples := make([]int32, len(buf))

	for {
		select {
		case <-p.stop:
			return
		default:
		}

		n := e.ReadPCM(buf)
		for i := range samples {
			if i < n {
				samples[i] = audio.SampleFromFloat32(buf[i])
			} else {
				samples[i] = 0
			}
		}

		if err := p.out.Write(samples); err != nil {
			select {
			case <-p.stop:
			default:
				e.logger.Warn().Err(err).Msg("direct output write failed")
			}
			return
		}
	}
}
