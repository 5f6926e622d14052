package adapter

import "context"

// Speech boundary for a voice front-end. The text pipeline treats voice as
// an input/output transform around the session: audio comes in, an
// utterance goes to the router, the response is spoken back. The engines
// (Whisper, platform TTS) live behind these interfaces so the session
// never links against them; a CLI front-end wires concrete implementations
// when voice is enabled.

// Transcriber converts captured audio into an utterance for the router.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Synthesizer renders the assistant's reply as audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
