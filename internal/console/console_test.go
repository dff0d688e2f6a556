package console

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	orchestration "github.com/koscakluka/ema-voiceagent/core"
	"github.com/koscakluka/ema-voiceagent/core/agent"
	"github.com/koscakluka/ema-voiceagent/core/agent/agenttest"
	"github.com/koscakluka/ema-voiceagent/core/scenarios"
)

func testResult(applied bool) *orchestration.Result {
	return &orchestration.Result{
		Scenario:        scenarios.Scenario{ID: "T1_multi", Name: "T1: multi", AgentLanguage: "multi", ListenLanguage: "multi"},
		SettingsApplied: applied,
		Transcript: []orchestration.TranscriptEntry{
			{Role: agent.RoleUser, Label: "Spanish", Content: "Hola"},
			{Role: agent.RoleAssistant, Content: "Hola, ¿en qué puedo ayudarte?"},
		},
		AudioFiles: []orchestration.AudioFile{
			{Name: "t1_turn1.pcm", Size: 48000},
			{Name: "t1_turn2.pcm", Size: 1200},
		},
	}
}

func TestSummaryListsConversation(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out)

	result := testResult(true)
	result.Transcript = append(result.Transcript, orchestration.TranscriptEntry{Role: agent.RoleUser, Content: "adios"})
	result.Errors = []agent.RemoteError{{Code: "X", Description: "broken"}}
	p.Summary(result)

	got := out.String()
	for _, want := range []string{"CONVERSATION SUMMARY", "YOU [Spanish]: Hola", "AGENT: Hola", "YOU: adios", "[X] broken"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected summary to contain %q, got:\n%s", want, got)
		}
	}
}

func TestReportShowsEachScenario(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out)

	rejected := testResult(false)
	rejected.Scenario.ID = "T2_rejected"
	rejected.Scenario.Name = ""
	rejected.AudioFiles = nil
	rejected.Errors = []agent.RemoteError{{Code: agent.CodeInvalidSettings, Description: "bad"}}

	p.Report(ReportMeta{Title: "REPORT", VoiceID: "voice-1", TTSModel: "sonic-multilingual", STTModel: "nova-3", LLM: "gpt-4o-mini", Timestamp: time.Unix(0, 0).UTC()},
		[]ReportEntry{
			{Result: testResult(true), AudioTranscripts: map[string]string{"t1_turn1.pcm": "hola"}},
			{Result: rejected},
		})

	got := out.String()
	for _, want := range []string{
		"Voice ID  : voice-1",
		"Config: agent.language=multi, listen.language=multi, cartesia.language=auto",
		"Settings: ACCEPTED",
		"Settings: REJECTED",
		"USER [Spanish]: Hola",
		"Audio: 2 files, 49,200 bytes total",
		`t1_turn1.pcm: "hola"`,
		"Audio: NONE",
		"T2_rejected",
		"INVALID_SETTINGS",
		"Passed: 1/2",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected report to contain %q, got:\n%s", want, got)
		}
	}
}

func TestSessionOptionsPrintLiveEvents(t *testing.T) {
	server := agenttest.NewServer(func(s *agenttest.Session) {
		for {
			msg, err := s.Read()
			if err != nil {
				return
			}
			switch msg.Type {
			case agent.TypeSettings:
				_ = s.SendEvent("SettingsApplied", nil)
			case agent.TypeInjectUserMessage:
				_ = s.SendEvent("ConversationText", map[string]string{"role": "assistant", "content": "Hi there"})
				_ = s.SendAudio(make([]byte, 480))
				_ = s.SendEvent("AgentAudioDone", nil)
			}
		}
	})
	defer server.Close()

	var out bytes.Buffer
	p := NewPrinter(&out)

	scenario := scenarios.Scenario{ID: "live", Prompt: "p", Turns: []scenarios.Turn{{Label: "English", Text: "Hello"}}}
	config := orchestration.Config{
		URL:       server.URL(),
		APIKey:    "key",
		Providers: agent.DefaultProviders("voice", nil),
		Pacing: orchestration.Pacing{
			FirstTurnDelay:    5 * time.Millisecond,
			FinalResponseWait: 50 * time.Millisecond,
			KeepAliveInterval: time.Hour,
			BaseTimeout:       5 * time.Second,
			CloseTimeout:      500 * time.Millisecond,
		},
	}
	sink, err := orchestration.NewFileSink(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	o := orchestration.NewOrchestrator(config, orchestration.WithAudioSink(sink))
	if _, err := o.Run(context.Background(), scenario, nil, p.SessionOptions(scenario, false)...); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := out.String()
	for _, want := range []string{"Connected and configured.", "YOU [English]: Hello", "AGENT: Hi there", "(480 bytes)"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, got)
		}
	}
}

func TestWriteResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "results.json")
	meta := ReportMeta{Title: "REPORT", VoiceID: "voice-1"}
	if err := WriteResults(path, meta, []ReportEntry{{Result: testResult(true)}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read results: %v", err)
	}
	var decoded struct {
		VoiceID string `json:"voice_id"`
		Results []struct {
			Result struct {
				SettingsApplied bool `json:"settings_applied"`
			} `json:"result"`
		} `json:"results"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("results are not valid json: %v", err)
	}
	if decoded.VoiceID != "voice-1" || len(decoded.Results) != 1 || !decoded.Results[0].Result.SettingsApplied {
		t.Fatalf("unexpected results %s", data)
	}
}

func TestMenuModel(t *testing.T) {
	set := scenarios.Demo()

	t.Run("digit selects scenario", func(t *testing.T) {
		model, cmd := newMenuModel(set).Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("3")})
		if m := model.(menuModel); m.chosen != 2 || cmd == nil {
			t.Fatalf("expected third scenario chosen, got %d", m.chosen)
		}
	})

	t.Run("enter selects highlighted", func(t *testing.T) {
		model, _ := newMenuModel(set).Update(tea.KeyMsg{Type: tea.KeyDown})
		model, _ = model.(menuModel).Update(tea.KeyMsg{Type: tea.KeyEnter})
		if m := model.(menuModel); m.chosen != 1 {
			t.Fatalf("expected second scenario chosen, got %d", m.chosen)
		}
	})

	t.Run("escape cancels", func(t *testing.T) {
		model, _ := newMenuModel(set).Update(tea.KeyMsg{Type: tea.KeyEsc})
		if m := model.(menuModel); !m.cancelled || m.View() != "" {
			t.Fatalf("expected menu cancelled")
		}
	})

	t.Run("out of range digit is ignored", func(t *testing.T) {
		model, _ := newMenuModel(set).Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("9")})
		if m := model.(menuModel); m.chosen != -1 || m.cancelled {
			t.Fatalf("expected no selection, got %d", m.chosen)
		}
	})
}

func TestSelectScenarioFallbackPrompt(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader("9\n\n2\nleft over\n")

	s, err := SelectScenario(in, &out, scenarios.Demo())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Key != "2" {
		t.Fatalf("expected scenario 2, got %s", s.Key)
	}
	if !strings.Contains(out.String(), "Enter scenario number (1-5): ") || !strings.Contains(out.String(), `Unknown scenario "9"`) {
		t.Fatalf("unexpected prompt output:\n%s", out.String())
	}

	rest, _ := readLine(in)
	if rest != "left over" {
		t.Fatalf("expected remaining input untouched, got %q", rest)
	}
}

func TestSelectScenarioKeepsCustomScenarioInteractive(t *testing.T) {
	s, err := SelectScenario(strings.NewReader("5\n"), &bytes.Buffer{}, scenarios.Demo())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Interactive() {
		t.Fatalf("expected scenario 5 to be interactive, got turns %#v", s.Turns)
	}
}

func TestSelectScenarioFallbackEOF(t *testing.T) {
	_, err := SelectScenario(strings.NewReader("7"), &bytes.Buffer{}, scenarios.Demo())
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}
