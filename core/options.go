package orchestration

import (
	"github.com/koscakluka/ema-voiceagent/core/agent"
	"github.com/koscakluka/ema-voiceagent/core/scenarios"
)

type OrchestratorOption func(*Orchestrator)

// WithAudioSink sets where agent audio is persisted after every completed
// response. Without a sink audio is buffered and discarded.
func WithAudioSink(sink AudioSink) OrchestratorOption {
	return func(o *Orchestrator) {
		o.sink = sink
	}
}

type RunOptions struct {
	audioPrefix string

	onStateChange      func(State)
	onSettingsApplied  func()
	onUserTurn         func(index int, turn scenarios.Turn)
	onConversationText func(entry TranscriptEntry)
	onAgentText        func(text string)
	onAudio            func(chunk []byte)
	onAudioSaved       func(file AudioFile)
	onError            func(err agent.RemoteError)
	onWarning          func(warning agent.RemoteError)
	onClosed           func(result *Result)
}

type RunOption func(*RunOptions)

// WithAudioPrefix sets the file name prefix used for saved audio. Defaults
// to the scenario ID.
func WithAudioPrefix(prefix string) RunOption {
	return func(o *RunOptions) {
		o.audioPrefix = prefix
	}
}

func WithStateChangeCallback(callback func(State)) RunOption {
	return func(o *RunOptions) {
		o.onStateChange = callback
	}
}

func WithSettingsAppliedCallback(callback func()) RunOption {
	return func(o *RunOptions) {
		o.onSettingsApplied = callback
	}
}

// WithUserTurnCallback is called right after a turn was injected. index is
// 1-based.
func WithUserTurnCallback(callback func(index int, turn scenarios.Turn)) RunOption {
	return func(o *RunOptions) {
		o.onUserTurn = callback
	}
}

// WithConversationTextCallback is called for every transcript entry the
// agent reports, for both roles.
func WithConversationTextCallback(callback func(entry TranscriptEntry)) RunOption {
	return func(o *RunOptions) {
		o.onConversationText = callback
	}
}

func WithAgentTextCallback(callback func(text string)) RunOption {
	return func(o *RunOptions) {
		o.onAgentText = callback
	}
}

func WithAudioCallback(callback func(chunk []byte)) RunOption {
	return func(o *RunOptions) {
		o.onAudio = callback
	}
}

func WithAudioSavedCallback(callback func(file AudioFile)) RunOption {
	return func(o *RunOptions) {
		o.onAudioSaved = callback
	}
}

// WithErrorCallback is called for agent errors. The idle timeout error is
// counted but not reported here.
func WithErrorCallback(callback func(err agent.RemoteError)) RunOption {
	return func(o *RunOptions) {
		o.onError = callback
	}
}

func WithWarningCallback(callback func(warning agent.RemoteError)) RunOption {
	return func(o *RunOptions) {
		o.onWarning = callback
	}
}

func WithClosedCallback(callback func(result *Result)) RunOption {
	return func(o *RunOptions) {
		o.onClosed = callback
	}
}
