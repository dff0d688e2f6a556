// Package agenttest provides an in-process voice agent for tests.
package agenttest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ClientMessage is a textual frame received from the client.
type ClientMessage struct {
	Type    string          `json:"type"`
	Content string          `json:"content,omitempty"`
	Raw     json.RawMessage `json:"-"`
	At      time.Time       `json:"-"`
}

// Server accepts agent websocket connections and hands each to Handler.
type Server struct {
	*httptest.Server

	Handler func(*Session)

	mu            sync.Mutex
	authorization []string
}

func NewServer(handler func(*Session)) *Server {
	s := &Server{Handler: handler}
	upgrader := websocket.Upgrader{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.authorization = append(s.authorization, r.Header.Get("Authorization"))
		s.mu.Unlock()

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		session := &Session{ws: ws}
		if s.Handler != nil {
			s.Handler(session)
		}
	}))
	return s
}

// URL is the websocket address of the server.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.Server.URL, "http")
}

// Authorizations lists the Authorization headers seen so far.
func (s *Server) Authorizations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.authorization...)
}

// Session is the server side of one connection.
type Session struct {
	ws *websocket.Conn
	mu sync.Mutex
}

// Read returns the next textual client frame. Binary frames are skipped.
func (s *Session) Read() (ClientMessage, error) {
	for {
		msgType, data, err := s.ws.ReadMessage()
		if err != nil {
			return ClientMessage{}, err
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return ClientMessage{}, err
		}
		msg.Raw = data
		msg.At = time.Now()
		return msg, nil
	}
}

// ReadUntil reads frames until one of the given type arrives, dropping the
// rest.
func (s *Session) ReadUntil(msgType string) (ClientMessage, error) {
	for {
		msg, err := s.Read()
		if err != nil {
			return ClientMessage{}, err
		}
		if msg.Type == msgType {
			return msg, nil
		}
	}
}

func (s *Session) SendJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ws.WriteJSON(v)
}

func (s *Session) SendEvent(eventType string, fields map[string]string) error {
	msg := map[string]string{"type": eventType}
	for k, v := range fields {
		msg[k] = v
	}
	return s.SendJSON(msg)
}

func (s *Session) SendAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ws.WriteMessage(websocket.BinaryMessage, chunk)
}

func (s *Session) SendRaw(data string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ws.WriteMessage(websocket.TextMessage, []byte(data))
}

// Close performs the server side of the close handshake.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	return s.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

// Drain reads and discards frames until the client goes away, answering the
// client's close frame.
func (s *Session) Drain() []ClientMessage {
	var msgs []ClientMessage
	for {
		msg, err := s.Read()
		if err != nil {
			return msgs
		}
		msgs = append(msgs, msg)
	}
}
