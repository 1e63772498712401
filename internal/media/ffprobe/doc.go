// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// This package has no bindery-specific dependencies and could be extracted
// as a standalone library.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio stream properties (codec, sample rate, channels)
//   - Format: container-level metadata (duration, size, bitrate, tags)
//
// Primary entry point:
//   - Inspect: executes ffprobe and returns parsed Result
package ffprobe
