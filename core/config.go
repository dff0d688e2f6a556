package orchestration

import (
	"errors"
	"time"

	"github.com/koscakluka/ema-voiceagent/core/agent"
)

// Config is the fixed part of every session an orchestrator runs.
type Config struct {
	URL       string
	APIKey    string
	Providers agent.Providers
	Pacing    Pacing
}

func (c Config) validate() error {
	var errs []error
	if c.APIKey == "" {
		errs = append(errs, errors.New("agent api key is required"))
	}
	if c.Pacing.KeepAliveInterval <= 0 {
		errs = append(errs, errors.New("keepalive interval must be positive"))
	}
	return errors.Join(errs...)
}

// Pacing holds the timings of a session.
type Pacing struct {
	// FirstTurnDelay is waited after the settings were acknowledged.
	FirstTurnDelay time.Duration
	// TurnDelay is waited between two consecutive scripted turns.
	TurnDelay time.Duration
	// FinalResponseWait keeps the session open after the last scripted turn.
	FinalResponseWait time.Duration
	// AwaitResponse, when positive, additionally waits up to this long for
	// the agent to finish speaking before a scripted turn is sent.
	AwaitResponse time.Duration

	// SettleDelay is waited after an interactive turn before input is
	// accepted again.
	SettleDelay time.Duration
	// ReadyTimeout bounds the wait for the agent's response before input is
	// accepted again. Zero waits indefinitely.
	ReadyTimeout time.Duration

	KeepAliveInterval time.Duration

	// BaseTimeout and PerTurnTimeout bound scripted sessions.
	// Interactive sessions only use BaseTimeout until the settings are
	// acknowledged.
	BaseTimeout    time.Duration
	PerTurnTimeout time.Duration

	// CloseTimeout bounds the close handshake.
	CloseTimeout time.Duration
}

// Timeout is the total time a scripted session with the given number of
// turns may take.
func (p Pacing) Timeout(turns int) time.Duration {
	return p.BaseTimeout + time.Duration(turns)*p.PerTurnTimeout
}

// DemoPacing is the pacing of the interactive demo.
func DemoPacing() Pacing {
	return Pacing{
		FirstTurnDelay:    4 * time.Second,
		TurnDelay:         6 * time.Second,
		FinalResponseWait: 8 * time.Second,
		SettleDelay:       500 * time.Millisecond,
		ReadyTimeout:      30 * time.Second,
		KeepAliveInterval: 7 * time.Second,
		BaseTimeout:       30 * time.Second,
		PerTurnTimeout:    10 * time.Second,
		CloseTimeout:      3 * time.Second,
	}
}

// SuitePacing is the pacing of the test suite.
func SuitePacing() Pacing {
	return Pacing{
		FirstTurnDelay:    3 * time.Second,
		TurnDelay:         6 * time.Second,
		FinalResponseWait: 8 * time.Second,
		SettleDelay:       500 * time.Millisecond,
		ReadyTimeout:      30 * time.Second,
		KeepAliveInterval: 7 * time.Second,
		BaseTimeout:       20 * time.Second,
		PerTurnTimeout:    10 * time.Second,
		CloseTimeout:      5 * time.Second,
	}
}
