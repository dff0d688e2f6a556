package agent

import (
	"maps"

	"github.com/koscakluka/ema-voiceagent/core/audio"
	"github.com/koscakluka/ema-voiceagent/core/scenarios"
)

const (
	DefaultListenProvider = "deepgram"
	DefaultListenModel    = "nova-3"
	DefaultThinkProvider  = "open_ai"
	DefaultThinkModel     = "gpt-4o-mini"
	DefaultSpeakProvider  = "cartesia"
	DefaultSpeakModel     = "sonic-multilingual"
)

// Providers holds everything about the remote pipeline that does not come
// from a scenario.
type Providers struct {
	ListenType  string
	ListenModel string

	ThinkType  string
	ThinkModel string

	SpeakType     string
	SpeakModelID  string
	VoiceID       string
	SpeakEndpoint *SpeakEndpoint

	Input  audio.EncodingInfo
	Output audio.EncodingInfo
}

func DefaultProviders(voiceID string, endpoint *SpeakEndpoint) Providers {
	return Providers{
		ListenType:    DefaultListenProvider,
		ListenModel:   DefaultListenModel,
		ThinkType:     DefaultThinkProvider,
		ThinkModel:    DefaultThinkModel,
		SpeakType:     DefaultSpeakProvider,
		SpeakModelID:  DefaultSpeakModel,
		VoiceID:       voiceID,
		SpeakEndpoint: endpoint,
		Input:         audio.GetInputEncodingInfo(),
		Output:        audio.GetOutputEncodingInfo(),
	}
}

// BuildSettings maps a scenario onto the Settings message. The result only
// depends on its inputs.
func BuildSettings(scenario scenarios.Scenario, providers Providers) Settings {
	input := providers.Input
	if input.IsZero() {
		input = audio.GetInputEncodingInfo()
	}
	output := providers.Output
	if output.IsZero() {
		output = audio.GetOutputEncodingInfo()
	}

	speak := SpeakSettings{
		Provider: SpeakProvider{
			Type:     providers.SpeakType,
			ModelID:  providers.SpeakModelID,
			Language: scenario.SpeakLanguage,
		},
	}
	if providers.VoiceID != "" {
		speak.Provider.Voice = &VoiceSpec{Mode: "id", ID: providers.VoiceID}
	}
	if providers.SpeakEndpoint != nil {
		speak.Endpoint = &SpeakEndpoint{
			URL:     providers.SpeakEndpoint.URL,
			Headers: maps.Clone(providers.SpeakEndpoint.Headers),
		}
	}

	return Settings{
		Type: TypeSettings,
		Audio: AudioSettings{
			Input: AudioFormat{
				Encoding:   input.Format.Name(),
				SampleRate: input.SampleRate,
			},
			Output: AudioFormat{
				Encoding:   output.Format.Name(),
				SampleRate: output.SampleRate,
				Container:  "none",
			},
		},
		Agent: AgentSettings{
			Language: scenario.AgentLanguage,
			Listen: ListenSettings{Provider: ListenProvider{
				Type:     providers.ListenType,
				Model:    providers.ListenModel,
				Language: scenario.ListenLanguage,
			}},
			Think: ThinkSettings{
				Provider: ThinkProvider{Type: providers.ThinkType, Model: providers.ThinkModel},
				Prompt:   scenario.Prompt,
			},
			Speak:    speak,
			Greeting: scenario.Greeting,
		},
	}
}
