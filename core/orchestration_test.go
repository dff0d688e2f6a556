package orchestration

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/koscakluka/ema-voiceagent/core/agent"
	"github.com/koscakluka/ema-voiceagent/core/agent/agenttest"
	"github.com/koscakluka/ema-voiceagent/core/scenarios"
)

func testPacing() Pacing {
	return Pacing{
		FirstTurnDelay:    10 * time.Millisecond,
		TurnDelay:         40 * time.Millisecond,
		FinalResponseWait: 50 * time.Millisecond,
		SettleDelay:       5 * time.Millisecond,
		ReadyTimeout:      time.Second,
		KeepAliveInterval: time.Hour,
		BaseTimeout:       5 * time.Second,
		PerTurnTimeout:    time.Second,
		CloseTimeout:      500 * time.Millisecond,
	}
}

func testConfig(url string) Config {
	return Config{
		URL:       url,
		APIKey:    "dg-key",
		Providers: agent.DefaultProviders("voice", nil),
		Pacing:    testPacing(),
	}
}

func threeTurnScenario() scenarios.Scenario {
	return scenarios.Scenario{
		ID:     "three",
		Prompt: "answer briefly",
		Turns: []scenarios.Turn{
			{Label: "English", Text: "hello"},
			{Label: "Spanish", Text: "hola"},
			{Label: "German", Text: "hallo"},
		},
	}
}

// respondingAgent acknowledges the settings and answers every injected
// message with a transcript line and one audio segment. Everything the
// client sent is reported on received once the client goes away.
func respondingAgent(received chan<- []agenttest.ClientMessage) func(*agenttest.Session) {
	return func(s *agenttest.Session) {
		var msgs []agenttest.ClientMessage
		defer func() { received <- msgs }()

		for {
			msg, err := s.Read()
			if err != nil {
				return
			}
			msgs = append(msgs, msg)

			switch msg.Type {
			case agent.TypeSettings:
				_ = s.SendEvent("Welcome", map[string]string{"request_id": "req-1"})
				_ = s.SendEvent("SettingsApplied", nil)
			case agent.TypeInjectUserMessage:
				_ = s.SendEvent("ConversationText", map[string]string{"role": "assistant", "content": "re: " + msg.Content})
				_ = s.SendAudio(make([]byte, 480))
				_ = s.SendAudio(make([]byte, 480))
				_ = s.SendEvent("AgentAudioDone", nil)
			}
		}
	}
}

func awaitClientMessages(t *testing.T, received <-chan []agenttest.ClientMessage) []agenttest.ClientMessage {
	t.Helper()
	select {
	case msgs := <-received:
		return msgs
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for the agent to see the client go away")
		return nil
	}
}

type recordingSink struct {
	mu       sync.Mutex
	segments []AudioSegment
	err      error
}

func (s *recordingSink) WriteSegment(_ context.Context, segment AudioSegment) (AudioFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments = append(s.segments, segment)
	if s.err != nil {
		return AudioFile{}, s.err
	}
	return AudioFile{Name: segment.Prefix, Turn: segment.Turn, Size: len(segment.Audio)}, nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.segments)
}

func TestRunDeliversScriptedTurnsInOrder(t *testing.T) {
	received := make(chan []agenttest.ClientMessage, 1)
	server := agenttest.NewServer(respondingAgent(received))
	defer server.Close()

	sink := &recordingSink{}
	var states []State
	var userTurns []int
	o := NewOrchestrator(testConfig(server.URL()), WithAudioSink(sink))
	result, err := o.Run(context.Background(), threeTurnScenario(), nil,
		WithStateChangeCallback(func(s State) { states = append(states, s) }),
		WithUserTurnCallback(func(index int, _ scenarios.Turn) { userTurns = append(userTurns, index) }),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.SettingsApplied {
		t.Fatalf("expected settings to be applied")
	}
	if result.RequestID != "req-1" {
		t.Fatalf("expected request id req-1, got %q", result.RequestID)
	}
	if result.TurnsSent != 3 || len(userTurns) != 3 || userTurns[2] != 3 {
		t.Fatalf("expected 3 turns sent, got %d (%v)", result.TurnsSent, userTurns)
	}

	wantTranscript := []TranscriptEntry{
		{Role: agent.RoleUser, Label: "English", Content: "hello"},
		{Role: agent.RoleAssistant, Content: "re: hello"},
		{Role: agent.RoleUser, Label: "Spanish", Content: "hola"},
		{Role: agent.RoleAssistant, Content: "re: hola"},
		{Role: agent.RoleUser, Label: "German", Content: "hallo"},
		{Role: agent.RoleAssistant, Content: "re: hallo"},
	}
	if len(result.Transcript) != len(wantTranscript) {
		t.Fatalf("expected %d transcript entries, got %+v", len(wantTranscript), result.Transcript)
	}
	for i, want := range wantTranscript {
		if result.Transcript[i] != want {
			t.Fatalf("transcript entry %d: expected %+v, got %+v", i, want, result.Transcript[i])
		}
	}

	if len(result.AudioFiles) != 3 || sink.count() != 3 {
		t.Fatalf("expected one audio file per response, got %d", len(result.AudioFiles))
	}
	if result.AudioFiles[0].Size != 960 || result.AudioFiles[2].Turn != 3 {
		t.Fatalf("unexpected audio files %+v", result.AudioFiles)
	}
	if result.AudioFiles[0].Name != "three" {
		t.Fatalf("expected scenario id as audio prefix, got %q", result.AudioFiles[0].Name)
	}

	if result.State != StateClosed || result.CloseReason != "turns completed" {
		t.Fatalf("unexpected final state %s (%s)", result.State, result.CloseReason)
	}
	wantStates := []State{StateAwaitingAcknowledgement, StateActive, StateClosing, StateClosed}
	if len(states) != len(wantStates) {
		t.Fatalf("expected states %v, got %v", wantStates, states)
	}
	for i := range wantStates {
		if states[i] != wantStates[i] {
			t.Fatalf("expected states %v, got %v", wantStates, states)
		}
	}

	msgs := awaitClientMessages(t, received)
	if len(msgs) != 4 || msgs[0].Type != agent.TypeSettings {
		t.Fatalf("expected settings and 3 injected messages, got %d", len(msgs))
	}
	for i, want := range []string{"hello", "hola", "hallo"} {
		if msgs[i+1].Type != agent.TypeInjectUserMessage || msgs[i+1].Content != want {
			t.Fatalf("message %d: expected %q, got %+v", i+1, want, msgs[i+1])
		}
	}
	for i := 2; i < len(msgs); i++ {
		if gap := msgs[i].At.Sub(msgs[i-1].At); gap < testPacing().TurnDelay-5*time.Millisecond {
			t.Fatalf("expected turns at least %s apart, got %s", testPacing().TurnDelay, gap)
		}
	}
}

func TestRunFatalErrorStopsTurnsAndLiveness(t *testing.T) {
	received := make(chan []agenttest.ClientMessage, 1)
	server := agenttest.NewServer(func(s *agenttest.Session) {
		var msgs []agenttest.ClientMessage
		defer func() { received <- msgs }()

		if _, err := s.Read(); err != nil {
			return
		}
		_ = s.SendEvent("SettingsApplied", nil)
		_ = s.SendEvent("Error", map[string]string{"code": agent.CodeInvalidSettings, "description": "bad voice"})
		msgs = s.Drain()
	})
	defer server.Close()

	config := testConfig(server.URL())
	config.Pacing.FirstTurnDelay = 200 * time.Millisecond
	config.Pacing.KeepAliveInterval = 50 * time.Millisecond

	var reported []agent.RemoteError
	result, err := NewOrchestrator(config).Run(context.Background(), threeTurnScenario(), nil,
		WithErrorCallback(func(err agent.RemoteError) { reported = append(reported, err) }),
	)

	var remoteErr *agent.RemoteError
	if !errors.As(err, &remoteErr) || remoteErr.Code != agent.CodeInvalidSettings {
		t.Fatalf("expected fatal remote error, got %v", err)
	}
	if result.Fatal == nil || len(result.Errors) != 1 || len(reported) != 1 {
		t.Fatalf("expected exactly one fatal error, got %+v", result.Errors)
	}
	if result.TurnsSent != 0 {
		t.Fatalf("expected no turns after fatal error, got %d", result.TurnsSent)
	}
	if result.State != StateClosed {
		t.Fatalf("expected closed session, got %s", result.State)
	}

	for _, msg := range awaitClientMessages(t, received) {
		if msg.Type == agent.TypeInjectUserMessage || msg.Type == agent.TypeKeepAlive {
			t.Fatalf("unexpected %s after fatal error", msg.Type)
		}
	}
}

func TestRunRejectedSettingsNeverActivates(t *testing.T) {
	server := agenttest.NewServer(func(s *agenttest.Session) {
		if _, err := s.Read(); err != nil {
			return
		}
		_ = s.SendEvent("Error", map[string]string{"code": agent.CodeUnparsableClientMessage, "description": "nope"})
		s.Drain()
	})
	defer server.Close()

	sessionStates := map[State]bool{}
	result, err := NewOrchestrator(testConfig(server.URL())).Run(context.Background(), threeTurnScenario(), nil,
		WithStateChangeCallback(func(s State) { sessionStates[s] = true }),
	)
	if err == nil {
		t.Fatalf("expected fatal error")
	}
	if result.SettingsApplied || sessionStates[StateActive] {
		t.Fatalf("expected session to never become active")
	}
}

func TestRunCountsIdleTimeoutsAndRecordsWarnings(t *testing.T) {
	server := agenttest.NewServer(func(s *agenttest.Session) {
		if _, err := s.Read(); err != nil {
			return
		}
		_ = s.SendEvent("SettingsApplied", nil)
		_ = s.SendEvent("Error", map[string]string{"code": agent.CodeClientMessageTimeout, "description": "idle"})
		_ = s.SendEvent("Warning", map[string]string{"code": "SLOW", "description": "slow tts"})
		_ = s.SendEvent("InjectionRefused", map[string]string{"message": "agent is speaking"})
		_ = s.SendEvent("Error", map[string]string{"code": "TTS_FAILED", "description": "tts down"})
		s.Drain()
	})
	defer server.Close()

	scenario := threeTurnScenario()
	scenario.Turns = scenario.Turns[:1]

	var reported []agent.RemoteError
	result, err := NewOrchestrator(testConfig(server.URL())).Run(context.Background(), scenario, nil,
		WithErrorCallback(func(err agent.RemoteError) { reported = append(reported, err) }),
	)
	if err != nil {
		t.Fatalf("expected non-fatal errors not to fail the run, got %v", err)
	}

	if result.IdleTimeouts != 1 {
		t.Fatalf("expected one idle timeout, got %d", result.IdleTimeouts)
	}
	if len(result.Errors) != 1 || result.Errors[0].Code != "TTS_FAILED" || len(reported) != 1 {
		t.Fatalf("expected only the real error listed, got %+v", result.Errors)
	}
	if len(result.Warnings) != 2 || result.Warnings[1].Code != agent.CodeInjectionRefused {
		t.Fatalf("unexpected warnings %+v", result.Warnings)
	}
	if result.TurnsSent != 1 {
		t.Fatalf("expected the session to continue, got %d turns", result.TurnsSent)
	}
}

func TestRunAbandonsUnacknowledgedSession(t *testing.T) {
	server := agenttest.NewServer(func(s *agenttest.Session) { s.Drain() })
	defer server.Close()

	config := testConfig(server.URL())
	config.Pacing.BaseTimeout = 50 * time.Millisecond
	config.Pacing.PerTurnTimeout = 0

	result, err := NewOrchestrator(config).Run(context.Background(), threeTurnScenario(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Abandoned || result.SettingsApplied || result.CloseReason != "timed out" {
		t.Fatalf("expected abandoned session, got %+v", result)
	}
}

func TestRunSendsKeepAlivesOnlyWhileActive(t *testing.T) {
	received := make(chan []agenttest.ClientMessage, 1)
	server := agenttest.NewServer(respondingAgent(received))
	defer server.Close()

	config := testConfig(server.URL())
	config.Pacing.KeepAliveInterval = 20 * time.Millisecond
	config.Pacing.FinalResponseWait = 150 * time.Millisecond

	scenario := threeTurnScenario()
	scenario.Turns = scenario.Turns[:1]
	result, err := NewOrchestrator(config).Run(context.Background(), scenario, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msgs := awaitClientMessages(t, received)
	keepAlives := 0
	for _, msg := range msgs {
		if msg.Type == agent.TypeKeepAlive {
			keepAlives++
		}
	}
	if keepAlives < 2 {
		t.Fatalf("expected periodic keepalives, got %d", keepAlives)
	}
	if keepAlives != result.KeepAlivesSent {
		t.Fatalf("expected %d keepalives recorded, got %d", keepAlives, result.KeepAlivesSent)
	}
	if msgs[0].Type != agent.TypeSettings {
		t.Fatalf("expected settings before any keepalive")
	}
}

func TestRunInteractiveSession(t *testing.T) {
	received := make(chan []agenttest.ClientMessage, 1)
	server := agenttest.NewServer(respondingAgent(received))
	defer server.Close()

	prompts := 0
	var agentTexts []string
	source := InteractiveTurns(strings.NewReader("hello there\n\n   \nsecond\nQuit\nnever sent\n"),
		WithInteractivePacing(testPacing()),
		WithPrompt(func() { prompts++ }),
	)

	scenario := scenarios.Scenario{ID: "custom", Prompt: "chat"}
	result, err := NewOrchestrator(testConfig(server.URL())).Run(context.Background(), scenario, source,
		WithAgentTextCallback(func(text string) { agentTexts = append(agentTexts, text) }),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Interactive || result.TurnsSent != 2 {
		t.Fatalf("expected 2 interactive turns, got %d", result.TurnsSent)
	}
	if result.Transcript[0].Label != "custom" || result.Transcript[2].Content != "second" {
		t.Fatalf("unexpected transcript %+v", result.Transcript)
	}
	if len(agentTexts) != 2 {
		t.Fatalf("expected both answers reported, got %v", agentTexts)
	}
	if prompts != 5 {
		t.Fatalf("expected a prompt per line read, got %d", prompts)
	}
	if result.CloseReason != "input ended" {
		t.Fatalf("unexpected close reason %q", result.CloseReason)
	}

	for _, msg := range awaitClientMessages(t, received) {
		if msg.Content == "never sent" {
			t.Fatalf("expected input after quit to be ignored")
		}
	}
}

func TestRunDemoCustomScenarioReadsTypedTurns(t *testing.T) {
	scenario, err := scenarios.Find(scenarios.Demo(), "5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !scenario.Interactive() {
		t.Fatalf("expected the custom demo scenario to be interactive, got turns %#v", scenario.Turns)
	}

	received := make(chan []agenttest.ClientMessage, 1)
	server := agenttest.NewServer(respondingAgent(received))
	defer server.Close()

	orchestrator := NewOrchestrator(testConfig(server.URL()))
	if _, err := orchestrator.Run(context.Background(), scenario, nil); err == nil {
		t.Fatalf("expected an interactive scenario to need a turn source")
	}

	source := InteractiveTurns(strings.NewReader("hola\nhow are you?\nexit\nnever sent\n"),
		WithInteractivePacing(testPacing()),
	)
	result, err := orchestrator.Run(context.Background(), scenario, source)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Interactive || result.TurnsSent != 2 {
		t.Fatalf("expected 2 typed turns, got %d (interactive %v)", result.TurnsSent, result.Interactive)
	}
	if result.CloseReason != "input ended" {
		t.Fatalf("unexpected close reason %q", result.CloseReason)
	}

	var injected []string
	for _, msg := range awaitClientMessages(t, received) {
		if msg.Type == agent.TypeInjectUserMessage {
			injected = append(injected, msg.Content)
		}
	}
	if strings.Join(injected, "|") != "hola|how are you?" {
		t.Fatalf("unexpected injected turns %q", injected)
	}
}

func TestRunStopsOnCancellation(t *testing.T) {
	server := agenttest.NewServer(func(s *agenttest.Session) {
		if _, err := s.Read(); err != nil {
			return
		}
		_ = s.SendEvent("SettingsApplied", nil)
		s.Drain()
	})
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	config := testConfig(server.URL())
	config.Pacing.FirstTurnDelay = time.Hour

	done := make(chan *Result, 1)
	go func() {
		result, _ := NewOrchestrator(config).Run(ctx, threeTurnScenario(), nil,
			WithSettingsAppliedCallback(cancel),
		)
		done <- result
	}()

	select {
	case result := <-done:
		if result.CloseReason != "cancelled" || result.State != StateClosed {
			t.Fatalf("expected cancelled session, got %s (%s)", result.State, result.CloseReason)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for cancelled session to close")
	}
}

func TestRunFailsWithoutConnection(t *testing.T) {
	config := testConfig("ws://127.0.0.1:1")
	result, err := NewOrchestrator(config).Run(context.Background(), threeTurnScenario(), nil)
	if err == nil {
		t.Fatalf("expected dial failure")
	}
	if result == nil || result.State != StateClosed || result.SettingsApplied {
		t.Fatalf("expected closed result without acknowledgement, got %+v", result)
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	config := testConfig("ws://unused")
	config.APIKey = ""
	if _, err := NewOrchestrator(config).Run(context.Background(), threeTurnScenario(), nil); err == nil {
		t.Fatalf("expected missing api key to be rejected")
	}

	if _, err := NewOrchestrator(testConfig("ws://unused")).Run(context.Background(), scenarios.Scenario{ID: "chat"}, nil); err == nil {
		t.Fatalf("expected interactive scenario without a source to be rejected")
	}
}

func TestFinishFlushesOnceAndClosesOnce(t *testing.T) {
	sink := &recordingSink{}
	o := NewOrchestrator(testConfig("ws://unused"), WithAudioSink(sink))

	closed := 0
	s := newSession(o, threeTurnScenario(), ScriptedTurns(nil, testPacing()), RunOptions{
		audioPrefix: "demo",
		onClosed:    func(*Result) { closed++ },
	})
	s.buffer.AddAudio([]byte{1, 2, 3, 4})

	s.finish(context.Background())
	s.finish(context.Background())

	if sink.count() != 1 {
		t.Fatalf("expected exactly one final flush, got %d", sink.count())
	}
	if closed != 1 || s.result.State != StateClosed {
		t.Fatalf("expected exactly one closed transition, got %d", closed)
	}
	if !sink.segments[0].Final || sink.segments[0].Prefix != "demo" {
		t.Fatalf("unexpected final segment %+v", sink.segments[0])
	}
}

func TestFlushAudio(t *testing.T) {
	t.Run("empty buffer is a no-op", func(t *testing.T) {
		sink := &recordingSink{}
		s := newSession(NewOrchestrator(testConfig("ws://unused"), WithAudioSink(sink)), threeTurnScenario(), ScriptedTurns(nil, testPacing()), RunOptions{})
		s.flushAudio(context.Background(), false)
		if sink.count() != 0 || s.saved != 0 {
			t.Fatalf("expected nothing written")
		}
	})

	t.Run("sink failure still resets the buffer", func(t *testing.T) {
		sink := &recordingSink{err: errors.New("disk full")}
		s := newSession(NewOrchestrator(testConfig("ws://unused"), WithAudioSink(sink)), threeTurnScenario(), ScriptedTurns(nil, testPacing()), RunOptions{})
		s.buffer.AddAudio([]byte{1, 2})
		s.flushAudio(context.Background(), false)

		if s.buffer.Len() != 0 {
			t.Fatalf("expected buffer reset after failed write")
		}
		if len(s.result.AudioFiles) != 0 {
			t.Fatalf("expected failed write not to be recorded")
		}
	})
}
