package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const DefaultURL = "wss://agent.deepgram.com/v1/agent/converse"

const closeWriteTimeout = time.Second

var ErrConnClosed = errors.New("agent connection closed")

// Conn is a single websocket session with the voice agent.
//
// Writes are serialized, reads must happen from a single goroutine.
type Conn struct {
	ws *websocket.Conn
	mu sync.Mutex

	closed bool
}

// Dial opens the websocket. Nothing is sent on the connection until the
// caller sends Settings.
func Dial(ctx context.Context, url string, apiKey string) (*Conn, error) {
	ctx, span := tracer.Start(ctx, "dial voice agent")
	defer span.End()
	span.SetAttributes(attribute.String("agent.url", url))

	if apiKey == "" {
		err := fmt.Errorf("agent api key not provided")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	dialer := *websocket.DefaultDialer
	ws, resp, err := dialer.DialContext(ctx, url, http.Header{"Authorization": {"Token " + apiKey}})
	if err != nil {
		if resp != nil {
			span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
		}
		err = fmt.Errorf("failed to open socket connection to voice agent: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return &Conn{ws: ws}, nil
}

func (c *Conn) SendSettings(settings Settings) error {
	return c.sendWebsocketMessage(settings)
}

func (c *Conn) InjectUserMessage(content string) error {
	return c.sendWebsocketMessage(NewInjectUserMessage(content))
}

func (c *Conn) KeepAlive() error {
	return c.sendWebsocketMessage(keepAliveMsg)
}

func (c *Conn) sendWebsocketMessage(msg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.ws == nil {
		return ErrConnClosed
	}

	if err := c.ws.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write to websocket: %w", err)
	}
	return nil
}

// ReadEvent blocks for the next frame. Binary frames are returned as
// EventAudio without inspection. Text frames that cannot be decoded are
// skipped.
func (c *Conn) ReadEvent() (Event, error) {
	for {
		msgType, msg, err := c.ws.ReadMessage()
		if err != nil {
			return Event{}, err
		}

		switch msgType {
		case websocket.BinaryMessage:
			if len(msg) == 0 {
				continue
			}
			return audioEvent(msg), nil
		case websocket.TextMessage:
			event, err := DecodeEvent(msg)
			if err != nil {
				logger.Warn("Skipping undecodable agent message", "error", err)
				continue
			}
			return event, nil
		}
	}
}

// CloseGracefully starts the websocket close handshake. The connection stays
// readable until the agent answers with its own close frame.
func (c *Conn) CloseGracefully() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout)); err != nil {
		if agressiveCloseErr := c.ws.Close(); agressiveCloseErr != nil {
			return fmt.Errorf("failed to close websocket: %w", errors.Join(err, agressiveCloseErr))
		}
	}
	return nil
}

// Close tears the connection down immediately, unblocking ReadEvent.
func (c *Conn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	return c.ws.Close()
}

// IsNormalClosure reports read errors that mean the session ended cleanly.
func IsNormalClosure(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
