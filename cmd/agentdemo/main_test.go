package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	orchestration "github.com/koscakluka/ema-voiceagent/core"
	"github.com/koscakluka/ema-voiceagent/core/agent"
	"github.com/koscakluka/ema-voiceagent/core/agent/agenttest"
	"github.com/koscakluka/ema-voiceagent/internal/config"
)

func fastPacing(t *testing.T) {
	t.Helper()
	previous := demoPacing
	demoPacing = func() orchestration.Pacing {
		return orchestration.Pacing{
			FirstTurnDelay:    5 * time.Millisecond,
			TurnDelay:         10 * time.Millisecond,
			FinalResponseWait: 30 * time.Millisecond,
			SettleDelay:       time.Millisecond,
			ReadyTimeout:      time.Second,
			KeepAliveInterval: time.Hour,
			BaseTimeout:       5 * time.Second,
			PerTurnTimeout:    time.Second,
			CloseTimeout:      500 * time.Millisecond,
		}
	}
	t.Cleanup(func() { demoPacing = previous })
}

func echoAgent(s *agenttest.Session) {
	for {
		msg, err := s.Read()
		if err != nil {
			return
		}
		switch msg.Type {
		case agent.TypeSettings:
			_ = s.SendEvent("SettingsApplied", nil)
		case agent.TypeInjectUserMessage:
			_ = s.SendEvent("ConversationText", map[string]string{"role": "assistant", "content": "echo " + msg.Content})
			_ = s.SendAudio(make([]byte, 960))
			_ = s.SendEvent("AgentAudioDone", nil)
		}
	}
}

func setEnv(t *testing.T, agentURL string) (envFile string, audioDir string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvDeepgramAPIKey, "dg-key")
	t.Setenv(config.EnvCartesiaAPIKey, "cartesia-key")
	t.Setenv(config.EnvCartesiaVoiceID, "voice-1")
	t.Setenv(config.EnvAgentURL, agentURL)
	t.Setenv(config.EnvAudioDir, "")
	return filepath.Join(dir, "missing.env"), filepath.Join(dir, "audio")
}

func TestRunScriptedScenario(t *testing.T) {
	fastPacing(t)
	server := agenttest.NewServer(echoAgent)
	defer server.Close()
	envFile, audioDir := setEnv(t, server.URL())

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--env-file", envFile, "--audio-dir", audioDir, "1"}, strings.NewReader(""), &stdout, &stderr)
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d (stderr: %s)", code, stderr.String())
	}

	out := stdout.String()
	for _, want := range []string{
		"Deepgram Voice Agent + Cartesia Multilingual TTS Demo",
		"Connecting to Deepgram Voice Agent...",
		"Connected and configured.",
		"AGENT: echo Cierra el work order",
		"CONVERSATION SUMMARY",
		"Done. Audio files saved in: " + audioDir,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, out)
		}
	}

	files, err := os.ReadDir(audioDir)
	if err != nil {
		t.Fatalf("failed to read audio dir: %v", err)
	}
	if len(files) != 4 {
		t.Fatalf("expected one audio file per turn, got %d", len(files))
	}
	if !strings.HasPrefix(files[0].Name(), audioPrefix+"_turn") {
		t.Fatalf("unexpected audio file name %s", files[0].Name())
	}
}

func TestRunInteractiveScenarioFromMenu(t *testing.T) {
	fastPacing(t)
	server := agenttest.NewServer(echoAgent)
	defer server.Close()
	envFile, audioDir := setEnv(t, server.URL())

	var stdout, stderr bytes.Buffer
	stdin := strings.NewReader("5\nhola\n\nbonjour\nquit\n")
	code := run(context.Background(), []string{"--env-file", envFile, "--audio-dir", audioDir}, stdin, &stdout, &stderr)
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d (stderr: %s)", code, stderr.String())
	}

	out := stdout.String()
	for _, want := range []string{"Enter scenario number (1-5): ", "Type messages below", "YOU [custom]: hola", "AGENT: echo bonjour"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestRunMissingCredentials(t *testing.T) {
	envFile, _ := setEnv(t, "ws://127.0.0.1:1")
	t.Setenv(config.EnvCartesiaVoiceID, "")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--env-file", envFile, "1"}, strings.NewReader(""), &stdout, &stderr)
	if code != exitUsage {
		t.Fatalf("expected exit %d, got %d", exitUsage, code)
	}
	if !strings.Contains(stderr.String(), config.EnvCartesiaVoiceID) {
		t.Fatalf("expected missing variable named, got %q", stderr.String())
	}
	if stdout.Len() != 0 {
		t.Fatalf("expected nothing printed before credentials are checked, got %q", stdout.String())
	}
}

func TestRunUnknownScenario(t *testing.T) {
	envFile, audioDir := setEnv(t, "ws://127.0.0.1:1")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--env-file", envFile, "--audio-dir", audioDir, "9"}, strings.NewReader(""), &stdout, &stderr)
	if code != exitUsage {
		t.Fatalf("expected exit %d, got %d", exitUsage, code)
	}
	if !strings.Contains(stderr.String(), "available: 1, 2, 3, 4, 5") {
		t.Fatalf("expected available scenarios listed, got %q", stderr.String())
	}
}

func TestRunConnectionFailure(t *testing.T) {
	fastPacing(t)
	envFile, audioDir := setEnv(t, "ws://127.0.0.1:1")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--env-file", envFile, "--audio-dir", audioDir, "2"}, strings.NewReader(""), &stdout, &stderr)
	if code != exitFailure {
		t.Fatalf("expected exit %d, got %d", exitFailure, code)
	}
	if !strings.Contains(stdout.String(), "Connection failed") {
		t.Fatalf("expected connection failure reported, got:\n%s", stdout.String())
	}
}
