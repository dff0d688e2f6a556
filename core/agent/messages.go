package agent

// Outbound message tags understood by the voice agent.
const (
	TypeSettings          = "Settings"
	TypeInjectUserMessage = "InjectUserMessage"
	TypeKeepAlive         = "KeepAlive"
)

type Settings struct {
	Type  string        `json:"type"`
	Audio AudioSettings `json:"audio"`
	Agent AgentSettings `json:"agent"`
}

type AudioSettings struct {
	Input  AudioFormat `json:"input"`
	Output AudioFormat `json:"output"`
}

type AudioFormat struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
	Container  string `json:"container,omitempty"`
}

type AgentSettings struct {
	Language string         `json:"language,omitempty"`
	Listen   ListenSettings `json:"listen"`
	Think    ThinkSettings  `json:"think"`
	Speak    SpeakSettings  `json:"speak"`
	Greeting string         `json:"greeting,omitempty"`
}

type ListenSettings struct {
	Provider ListenProvider `json:"provider"`
}

type ListenProvider struct {
	Type     string `json:"type"`
	Model    string `json:"model"`
	Language string `json:"language,omitempty"`
}

type ThinkSettings struct {
	Provider ThinkProvider `json:"provider"`
	Prompt   string        `json:"prompt"`
}

type ThinkProvider struct {
	Type  string `json:"type"`
	Model string `json:"model"`
}

type SpeakSettings struct {
	Provider SpeakProvider  `json:"provider"`
	Endpoint *SpeakEndpoint `json:"endpoint,omitempty"`
}

type SpeakProvider struct {
	Type     string     `json:"type"`
	ModelID  string     `json:"model_id,omitempty"`
	Voice    *VoiceSpec `json:"voice,omitempty"`
	Language string     `json:"language,omitempty"`
}

type VoiceSpec struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

// SpeakEndpoint points the agent at a third-party TTS API. Headers are
// forwarded verbatim, so they carry the provider credentials.
type SpeakEndpoint struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

type InjectUserMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func NewInjectUserMessage(content string) InjectUserMessage {
	return InjectUserMessage{Type: TypeInjectUserMessage, Content: content}
}

type KeepAlive struct {
	Type string `json:"type"`
}

var keepAliveMsg = KeepAlive{Type: TypeKeepAlive}
