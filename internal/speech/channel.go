// Package speech provides the streaming transport between the candidate's
// microphone audio and the transcription backend.
package speech

import (
	"context"
	"errors"
)

// ErrNoToken means a streaming credential could not be obtained. This is an
// environment failure: fatal to the session, not retryable.
var ErrNoToken = errors.New("speech: streaming token unavailable")

// Listener receives transcript updates from the transcription backend.
type Listener interface {
	// OnFragment is called for each incremental turn transcript. Fragments
	// may arrive out of order; turnOrder is the reassembly key.
	OnFragment(turnOrder int, text string)

	// OnError is called when the stream fails.
	OnError(err error)
}

// Channel is a bidirectional audio-to-text streaming transport. One Channel
// instance serves one capture phase: it is fully torn down before reasoning
// begins and a fresh one is opened for the next turn, so a stale stream can
// never leak audio into the next turn's buffer.
type Channel interface {
	// Open establishes the stream and starts delivering fragments to the
	// listener. Blocks only for the handshake.
	Open(ctx context.Context, listener Listener) error

	// SendAudio forwards one chunk of raw PCM audio.
	SendAudio(data []byte) error

	// Close signals termination to the backend and releases the connection.
	// Safe to call more than once.
	Close() error
}

// TokenSource issues the short-lived credential needed to open a Channel.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// ChannelFactory builds a fresh Channel per capture phase.
type ChannelFactory func() Channel
