// ABOUTME: Circular sample buffer between the stream fetcher and the audio graph
// ABOUTME: Not synchronized; the owning element guards it with its mutex
package media

type ringBuffer struct {
	buffer   []float32
	readPos  int
	writePos int
	count    int
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{buffer: make([]float32, capacity)}
}

// Write adds as many samples as fit and returns the number written
func (rb *ringBuffer) Write(samples []float32) int {
	size := len(rb.buffer)
	written := 0
	for written < len(samples) && rb.count < size {
		rb.buffer[rb.writePos] = samples[written]
		rb.writePos = (rb.writePos + 1) % size
		rb.count++
		written++
	}
	return written
}

// Read drains up to len(samples) samples and returns the number read
func (rb *ringBuffer) Read(samples []float32) int {
	size := len(rb.buffer)
	read := 0
	for read < len(samples) && rb.count > 0 {
		samples[read] = rb.buffer[rb.readPos]
		rb.readPos = (rb.readPos + 1) % size
		rb.count--
		read++
	}
	return read
}

// Available returns the number of buffered samples
func (rb *ringBuffer) Available() int {
	return rb.count
}

// Free returns the remaining capacity
func (rb *ringBuffer) Free() int {
	return len(rb.buffer) - rb.count
}

// Reset discards buffered samples
func (rb *ringBuffer) Reset() {
	rb.readPos, rb.writePos, rb.count = 0, 0, 0
}
