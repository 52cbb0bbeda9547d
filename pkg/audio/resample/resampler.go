// ABOUTME: Streaming linear resampler for converting audio sample rates
// ABOUTME: Converts decoded stream audio to the audio context rate, carrying state across chunks
package resample

// Resampler performs linear interpolation to convert between sample rates.
// It keeps the last input frame so consecutive chunks join without clicks.
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64
	position   float64
	prev       []int32 // last frame of the previous chunk
	havePrev   bool
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	if channels < 1 {
		channels = 1
	}
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		prev:       make([]int32, channels),
	}
}

// Passthrough reports whether input and output rates match
func (r *Resampler) Passthrough() bool {
	return r.inputRate == r.outputRate
}

// Process converts one chunk of interleaved input samples and returns the
// interleaved output produced so far. Trailing fractional frames are carried
// into the next call.
func (r *Resampler) Process(input []int32) []int32 {
	inputFrames := len(input) / r.channels
	if inputFrames == 0 {
		return nil
	}
	if r.Passthrough() {
		out := make([]int32, inputFrames*r.channels)
		copy(out, input)
		return out
	}

	// Virtual frame index 0 is the carried frame when present
	offset := 0
	if r.havePrev {
		offset = 1
	}
	total := inputFrames + offset

	frame := func(idx, ch int) int32 {
		if idx < offset {
			return r.prev[ch]
		}
		return input[(idx-offset)*r.channels+ch]
	}

	out := make([]int32, 0, r.OutputSamplesNeeded(len(input))+r.channels)
	for {
		idx := int(r.position)
		if idx+1 >= total {
			break
		}
		frac := r.position - float64(idx)
		for ch := 0; ch < r.channels; ch++ {
			s1 := frame(idx, ch)
			s2 := frame(idx+1, ch)
			out = append(out, int32(float64(s1)*(1.0-frac)+float64(s2)*frac))
		}
		r.position += r.ratio
	}

	// The last input frame becomes virtual index 0 for the next chunk
	r.position -= float64(total - 1)
	if r.position < 0 {
		r.position = 0
	}
	copy(r.prev, input[(inputFrames-1)*r.channels:inputFrames*r.channels])
	r.havePrev = true

	return out
}

// Reset resets the resampler state
func (r *Resampler) Reset() {
	r.position = 0.0
	r.havePrev = false
	for i := range r.prev {
		r.prev[i] = 0
	}
}

// OutputSamplesNeeded estimates how many output samples will be produced from input samples
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(float64(inputFrames) / r.ratio)
	return outputFrames * r.channels
}
