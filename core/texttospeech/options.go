package texttospeech

import "github.com/koscakluka/ema-voiceagent/core/audio"

type SynthesisOptions struct {
	VoiceID  string
	ModelID  string
	Language string

	EncodingInfo audio.EncodingInfo
}

type SynthesisOption func(*SynthesisOptions)

func WithVoice(voiceID string) SynthesisOption {
	return func(o *SynthesisOptions) { o.VoiceID = voiceID }
}

func WithModel(modelID string) SynthesisOption {
	return func(o *SynthesisOptions) { o.ModelID = modelID }
}

// WithLanguage sets the language hint. An empty language lets the provider
// decide.
func WithLanguage(language string) SynthesisOption {
	return func(o *SynthesisOptions) { o.Language = language }
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) SynthesisOption {
	return func(o *SynthesisOptions) {
		if encodingInfo.IsZero() {
			return
		}
		o.EncodingInfo = encodingInfo
	}
}
