package speechtotext

import "github.com/koscakluka/ema-voiceagent/core/audio"

type TranscriptionOptions struct {
	// PartialTranscriptionCallback is called for every finalized segment.
	PartialTranscriptionCallback func(transcript string)
	// InterimTranscriptionCallback is called with non-final guesses. Setting
	// it requests interim results from the provider.
	InterimTranscriptionCallback func(transcript string)
	// TranscriptionCallback is called once with the whole transcript.
	TranscriptionCallback func(transcript string)

	Language     string
	EncodingInfo audio.EncodingInfo
}

type TranscriptionOption func(*TranscriptionOptions)

func WithTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.TranscriptionCallback = callback
	}
}

func WithPartialTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.PartialTranscriptionCallback = callback
	}
}

func WithInterimTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.InterimTranscriptionCallback = callback
	}
}

// WithLanguage sets the expected language. "multi" enables code switching.
func WithLanguage(language string) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.Language = language
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.EncodingInfo = encodingInfo
	}
}
