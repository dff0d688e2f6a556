package agent

import (
	"encoding/json"
	"fmt"
)

type EventType string

// Inbound event tags. EventAudio is never sent by the agent as a tag, it
// marks binary frames.
const (
	EventWelcome              EventType = "Welcome"
	EventSettingsApplied      EventType = "SettingsApplied"
	EventConversationText     EventType = "ConversationText"
	EventAgentAudioDone       EventType = "AgentAudioDone"
	EventInjectionRefused     EventType = "InjectionRefused"
	EventWarning              EventType = "Warning"
	EventError                EventType = "Error"
	EventAudio                EventType = "audio"
	EventUserStartedSpeaking  EventType = "UserStartedSpeaking"
	EventAgentThinking        EventType = "AgentThinking"
	EventAgentStartedSpeaking EventType = "AgentStartedSpeaking"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Error codes with special handling.
const (
	CodeClientMessageTimeout    = "CLIENT_MESSAGE_TIMEOUT"
	CodeInvalidSettings         = "INVALID_SETTINGS"
	CodeUnparsableClientMessage = "UNPARSABLE_CLIENT_MESSAGE"
	CodeInjectionRefused        = "INJECTION_REFUSED"
)

// Event is a single message received from the voice agent.
type Event struct {
	Type EventType

	// ConversationText
	Role    string
	Content string

	// Welcome
	RequestID string

	// Warning, Error and InjectionRefused
	Code        string
	Description string

	// Binary frames, passed through untouched
	Audio []byte

	Raw json.RawMessage
}

type wireEvent struct {
	Type        string `json:"type"`
	Role        string `json:"role"`
	Content     string `json:"content"`
	RequestID   string `json:"request_id"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Message     string `json:"message"`
}

// DecodeEvent parses a textual frame. Every textual frame must carry a
// type tag.
func DecodeEvent(msg []byte) (Event, error) {
	var parsed wireEvent
	if err := json.Unmarshal(msg, &parsed); err != nil {
		return Event{}, fmt.Errorf("failed to unmarshal agent message: %w", err)
	}
	if parsed.Type == "" {
		return Event{}, fmt.Errorf("agent message has no type")
	}

	event := Event{
		Type:        EventType(parsed.Type),
		Role:        parsed.Role,
		Content:     parsed.Content,
		RequestID:   parsed.RequestID,
		Code:        parsed.Code,
		Description: parsed.Description,
		Raw:         json.RawMessage(msg),
	}

	if event.Type == EventInjectionRefused {
		event.Code = CodeInjectionRefused
		if event.Description == "" {
			event.Description = parsed.Message
		}
	}

	return event, nil
}

func audioEvent(chunk []byte) Event {
	return Event{Type: EventAudio, Audio: chunk}
}

// RemoteError is an error or warning reported by the voice agent.
type RemoteError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Description)
}

// IsFatal reports codes after which the session cannot continue.
func (e *RemoteError) IsFatal() bool {
	return IsFatalCode(e.Code)
}

func IsFatalCode(code string) bool {
	switch code {
	case CodeInvalidSettings, CodeUnparsableClientMessage:
		return true
	}
	return false
}

// IsIdleTimeout reports the error the agent sends when no client message
// arrived for a while. It is expected noise, not a failure.
func IsIdleTimeout(code string) bool {
	return code == CodeClientMessageTimeout
}

func (e Event) RemoteError() *RemoteError {
	return &RemoteError{Code: e.Code, Description: e.Description}
}
