package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/koscakluka/ema-voiceagent/core/agent/agenttest"
	"github.com/koscakluka/ema-voiceagent/core/scenarios"
)

func TestConnExchangesSettingsAndEvents(t *testing.T) {
	received := make(chan agenttest.ClientMessage, 4)
	server := agenttest.NewServer(func(s *agenttest.Session) {
		settings, err := s.Read()
		if err != nil {
			return
		}
		received <- settings
		_ = s.SendEvent("SettingsApplied", nil)
		_ = s.SendRaw("garbage")
		_ = s.SendAudio([]byte{1, 2, 3, 4})
		_ = s.SendEvent("ConversationText", map[string]string{"role": "assistant", "content": "hello"})

		msg, err := s.Read()
		if err != nil {
			return
		}
		received <- msg
		s.Drain()
	})
	defer server.Close()

	conn, err := Dial(context.Background(), server.URL(), "dg-key")
	if err != nil {
		t.Fatalf("unexpected dial error: %v", err)
	}
	defer conn.Close()

	settings := BuildSettings(scenarios.Scenario{ID: "s", Prompt: "p"}, DefaultProviders("v", nil))
	if err := conn.SendSettings(settings); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantTypes := []EventType{EventSettingsApplied, EventAudio, EventConversationText}
	for _, want := range wantTypes {
		event, err := conn.ReadEvent()
		if err != nil {
			t.Fatalf("unexpected read error: %v", err)
		}
		if event.Type != want {
			t.Fatalf("expected %s, got %s", want, event.Type)
		}
		if want == EventAudio && len(event.Audio) != 4 {
			t.Fatalf("expected 4 audio bytes, got %d", len(event.Audio))
		}
	}

	if err := conn.InjectUserMessage("hola"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case msg := <-received:
		if msg.Type != TypeSettings {
			t.Fatalf("expected settings first, got %s", msg.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for settings")
	}
	select {
	case msg := <-received:
		if msg.Type != TypeInjectUserMessage || msg.Content != "hola" {
			t.Fatalf("unexpected injected message %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for injected message")
	}

	if got := server.Authorizations(); len(got) != 1 || got[0] != "Token dg-key" {
		t.Fatalf("unexpected authorization headers %v", got)
	}
}

func TestGracefulCloseEndsReadsWithNormalClosure(t *testing.T) {
	server := agenttest.NewServer(func(s *agenttest.Session) { s.Drain() })
	defer server.Close()

	conn, err := Dial(context.Background(), server.URL(), "key")
	if err != nil {
		t.Fatalf("unexpected dial error: %v", err)
	}
	defer conn.Close()

	if err := conn.CloseGracefully(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if err := conn.KeepAlive(); !errors.Is(err, ErrConnClosed) {
		t.Fatalf("expected writes after close to fail with ErrConnClosed, got %v", err)
	}

	_, err = conn.ReadEvent()
	if !IsNormalClosure(err) {
		t.Fatalf("expected normal closure, got %v", err)
	}
}

func TestDialWithoutKeyFails(t *testing.T) {
	if _, err := Dial(context.Background(), "ws://127.0.0.1:1", ""); err == nil {
		t.Fatalf("expected missing key to fail")
	}
}
