// Package media implements the binary payload containers for file-like
// column values: PNG images, muxed PCM audio, triangle meshes (binary glTF
// subset), and paired index/value sequences.
//
// The containers are self-describing byte payloads. Everything above this
// package treats them as opaque blobs; everything below (the blob store)
// never inspects them.
package media

import "errors"

var (
	// ErrMalformedPayload is returned when a payload cannot be parsed as the
	// expected container format.
	ErrMalformedPayload = errors.New("malformed media payload")

	// ErrEmptyPayload is returned when a payload is empty.
	ErrEmptyPayload = errors.New("empty media payload")
)
