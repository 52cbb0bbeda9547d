// ABOUTME: Audio decoder package for streaming codec support
// ABOUTME: Provides the Decoder interface and MP3, Opus, FLAC and WAV implementations
// Package decode provides streaming audio decoders for internet radio.
//
// Supports: MP3, Ogg Opus, FLAC, WAV (16-bit and 24-bit PCM)
//
// All decoders read from an io.Reader (usually an HTTP response body) and
// output interleaved int32 samples in 24-bit range.
//
// Example:
//
//	codec := decode.CodecFromContentType(resp.Header.Get("Content-Type"), url)
//	dec, err := decode.New(codec, resp.Body)
//	n, err := dec.Read(samples)
package decode
