package orchestration

import (
	"time"

	"github.com/koscakluka/ema-voiceagent/core/agent"
	"github.com/koscakluka/ema-voiceagent/core/scenarios"
)

type State int

const (
	StateConnecting State = iota
	StateAwaitingAcknowledgement
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAwaitingAcknowledgement:
		return "awaiting_acknowledgement"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// TranscriptEntry is one line of the conversation. Label is only set for
// turns sent by the orchestrator.
type TranscriptEntry struct {
	Role    string `json:"role"`
	Label   string `json:"label,omitempty"`
	Content string `json:"content"`
}

// Result is everything observed during one session.
type Result struct {
	SessionID   string             `json:"session_id"`
	RequestID   string             `json:"request_id,omitempty"`
	Scenario    scenarios.Scenario `json:"scenario"`
	Interactive bool               `json:"interactive"`

	SettingsApplied bool              `json:"settings_applied"`
	Transcript      []TranscriptEntry `json:"transcript"`
	TurnsSent       int               `json:"turns_sent"`
	KeepAlivesSent  int               `json:"keepalives_sent"`

	Errors       []agent.RemoteError `json:"errors"`
	Warnings     []agent.RemoteError `json:"warnings"`
	IdleTimeouts int                 `json:"idle_timeouts"`
	Fatal        *agent.RemoteError  `json:"fatal,omitempty"`

	AudioFiles []AudioFile `json:"audio_files"`

	State       State     `json:"state"`
	Abandoned   bool      `json:"abandoned"`
	CloseReason string    `json:"close_reason"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at"`
}

// AgentResponses returns the assistant lines of the transcript in order.
func (r *Result) AgentResponses() []string {
	var responses []string
	for _, entry := range r.Transcript {
		if entry.Role == agent.RoleAssistant {
			responses = append(responses, entry.Content)
		}
	}
	return responses
}

// Passed reports whether the session got its settings acknowledged, ended
// without a reported error and produced at least one agent response.
func (r *Result) Passed() bool {
	return r.SettingsApplied && len(r.Errors) == 0 && !r.Abandoned && len(r.AgentResponses()) > 0
}

// AudioBytes is the total amount of agent audio saved.
func (r *Result) AudioBytes() int {
	total := 0
	for _, f := range r.AudioFiles {
		total += f.Size
	}
	return total
}

func (r *Result) Duration() time.Duration {
	if r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}
