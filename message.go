package handoff

import "github.com/google/uuid"

// Message is what a Buffer hands from producer to consumer. It is either a
// payload or the end-of-stream marker of the buffer that minted it.
type Message[T any] struct {
	Value  T         // The payload; zero for the end-of-stream marker
	Source uuid.UUID // ID of the buffer the message passed through

	eos bool
}

func valueMessage[T any](source uuid.UUID, value T) Message[T] {
	return Message[T]{Value: value, Source: source}
}

func endOfStream[T any](source uuid.UUID) Message[T] {
	return Message[T]{Source: source, eos: true}
}

// IsEndOfStream reports whether m is an end-of-stream marker from any buffer.
// Use Buffer.IsEndOfStream to also check that it came from a particular one.
func (m Message[T]) IsEndOfStream() bool {
	return m.eos
}
