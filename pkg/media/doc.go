// ABOUTME: Media element package for streaming audio sources
// ABOUTME: Fetches, decodes and buffers a stream behind a play/pause/load element
// Package media provides a streaming media element for internet radio.
//
// An Element fetches its source URL over HTTP, picks a decoder from the
// response content type and keeps a few seconds of PCM buffered at the
// format requested with SetOutputFormat. An audio graph pulls that PCM with
// ReadPCM; without a graph AttachOutput plays it straight to a device.
//
// Events (canplay, play, pause, ended, error) are delivered to listeners
// registered with AddEventListener and removed by handle.
package media
